package services

import (
	"context"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

var ErrDiffMismatch = errors.New("stored diff does not reproduce the recorded state")

type AuditService struct {
	repo record.Repository
}

func NewAuditService(repo record.Repository) *AuditService {
	return &AuditService{repo: repo}
}

// List returns one page of the tenant's audit trail, newest first, and the total count.
func (s *AuditService) List(ctx context.Context, params *record.FindParams) ([]*record.Record, int64, error) {
	if params == nil {
		params = &record.FindParams{}
	}
	if params.Limit <= 0 {
		params.Limit = defaultPageSize
	}
	if params.Limit > maxPageSize {
		params.Limit = maxPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	records, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}

func (s *AuditService) GetByID(ctx context.Context, id uuid.UUID) (*record.Record, error) {
	return s.repo.GetByID(ctx, id)
}

// Diff renders the change as an RFC 6902 patch from Prior to Next.
func (s *AuditService) Diff(r *record.Record) (jsondiff.Patch, error) {
	return Diff(r)
}

func Diff(r *record.Record) (jsondiff.Patch, error) {
	patch, err := jsondiff.CompareJSON(document(r.Prior), document(r.Next))
	if err != nil {
		return nil, errors.Wrapf(err, "diff audit log %s", r.ID)
	}
	return patch, nil
}

// Verify checks that applying the diff to Prior yields Next. Only modifications
// carry two documents, so other operations always verify.
func (s *AuditService) Verify(r *record.Record) error {
	if r.Operation != record.Modified {
		return nil
	}
	patch, err := Diff(r)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	decoded, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return errors.Wrap(err, "decode patch")
	}
	applied, err := decoded.Apply([]byte(r.Prior))
	if err != nil {
		return errors.Wrap(err, "apply patch")
	}
	if !jsonpatch.Equal(applied, []byte(r.Next)) {
		return ErrDiffMismatch
	}
	return nil
}

func document(state string) []byte {
	if state == "" {
		return []byte("null")
	}
	return []byte(state)
}
