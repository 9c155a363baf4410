package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gemelli/tenantcore/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch serrors.KindOf(err) {
	case serrors.ErrTenantNotResolved:
		return http.StatusBadRequest
	case serrors.ErrDescriptorConflict:
		return http.StatusConflict
	case serrors.ErrDescriptorNotFound:
		return http.StatusNotFound
	case serrors.ErrProvisionFailure:
		return http.StatusServiceUnavailable
	case serrors.ErrCommitFailure:
		return http.StatusInternalServerError
	case serrors.ErrTenantUnavailable:
		return http.StatusServiceUnavailable
	case serrors.ErrValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err using its kind. Causes of unclassified errors
// are not echoed to the client.
func WriteServiceError(w http.ResponseWriter, requestID string, err error) error {
	meta := map[string]string{}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	kind := serrors.KindOf(err)
	if kind == nil {
		return WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", meta)
	}

	env := &ErrorEnvelope{Code: kind.Code, Message: kind.Message, Meta: meta}
	var validation *serrors.ValidationError
	if errors.As(err, &validation) {
		for field, reason := range validation.Fields {
			meta[field] = reason
		}
		env.Details = validation.Messages
	}
	return WriteJSON(w, StatusOf(err), env)
}
