package employee

import (
	"context"

	"github.com/google/uuid"

	"github.com/gemelli/tenantcore/pkg/unitofwork"
)

type FindParams struct {
	Limit  int
	Offset int
}

// Repository reads through the request's tenant session. Mutations are not
// executed directly; they are tracked on the caller's unit of work.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Employee, error)
	List(ctx context.Context, params *FindParams) ([]*Employee, error)
	Count(ctx context.Context) (int64, error)
	Add(uow *unitofwork.UnitOfWork, e *Employee) error
	Update(uow *unitofwork.UnitOfWork, e *Employee) error
	Remove(uow *unitofwork.UnitOfWork, id uuid.UUID) error
}
