package serrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type BaseError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LocaleKey string `json:"locale_key,omitempty"`
}

func (e *BaseError) Error() string {
	return e.Message
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

var (
	ErrTenantNotResolved  = NewError("TENANT_NOT_RESOLVED", "tenant not resolved", "Errors.TenantNotResolved")
	ErrDescriptorConflict = NewError("DESCRIPTOR_CONFLICT", "organization already has a data config", "Errors.DescriptorConflict")
	ErrDescriptorNotFound = NewError("DESCRIPTOR_NOT_FOUND", "data config not found", "Errors.DescriptorNotFound")
	ErrProvisionFailure   = NewError("PROVISION_FAILURE", "tenant database could not be provisioned", "Errors.ProvisionFailure")
	ErrCommitFailure      = NewError("COMMIT_FAILURE", "unit of work could not be committed", "Errors.CommitFailure")
	ErrTenantUnavailable  = NewError("TENANT_UNAVAILABLE", "tenant database is unreachable", "Errors.TenantUnavailable")
	ErrValidation         = NewError("VALIDATION", "validation failed", "Errors.Validation")
)

var kinds = []*BaseError{
	ErrTenantNotResolved,
	ErrDescriptorConflict,
	ErrDescriptorNotFound,
	ErrProvisionFailure,
	ErrCommitFailure,
	ErrTenantUnavailable,
	ErrValidation,
}

// KindOf returns the error kind err belongs to, or nil for unclassified errors.
func KindOf(err error) *BaseError {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// TenantNotResolved wraps ErrTenantNotResolved with the reason it was raised.
func TenantNotResolved(reason string) error {
	return fmt.Errorf("%w: %s", ErrTenantNotResolved, reason)
}

type ProvisionError struct {
	Organization string
	Version      int64
	Cause        error
}

func (e *ProvisionError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("provision %q at version %d: %v", e.Organization, e.Version, e.Cause)
	}
	return fmt.Sprintf("provision %q: %v", e.Organization, e.Cause)
}

func (e *ProvisionError) Unwrap() error { return e.Cause }

func (e *ProvisionError) Is(target error) bool { return target == ErrProvisionFailure }

type CommitError struct {
	Stage string
	Cause error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed at %s: %v", e.Stage, e.Cause)
}

func (e *CommitError) Unwrap() error { return e.Cause }

func (e *CommitError) Is(target error) bool { return target == ErrCommitFailure }

type UnavailableError struct {
	Organization string
	Attempts     int
	Cause        error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("tenant %q unreachable after %d attempt(s): %v", e.Organization, e.Attempts, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

func (e *UnavailableError) Is(target error) bool { return target == ErrTenantUnavailable }

type ValidationError struct {
	// Fields maps a json field name to the failed rule, e.g. "max=65535".
	Fields map[string]string
	// Messages holds human-readable text per field; it may be nil.
	Messages map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
