package descriptor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FindParams struct {
	Module string
	Limit  int
	Offset int
}

type Repository interface {
	GetByOrganization(ctx context.Context, organization string) (*Descriptor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Descriptor, error)
	List(ctx context.Context, params *FindParams) ([]*Descriptor, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// Create must fail with serrors.ErrDescriptorConflict when the organization already exists.
	Create(ctx context.Context, d *Descriptor) (*Descriptor, error)
	// Update must fail with serrors.ErrDescriptorConflict when the stored row's
	// updated_at no longer equals previousUpdatedAt.
	Update(ctx context.Context, d *Descriptor, previousUpdatedAt time.Time) (*Descriptor, error)
}
