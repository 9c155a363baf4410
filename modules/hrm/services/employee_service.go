package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gemelli/tenantcore/modules/hrm/domain/employee"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/eventbus"
	"github.com/gemelli/tenantcore/pkg/tenantdb"
	"github.com/gemelli/tenantcore/pkg/unitofwork"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// useTxBeginner resolves where units of work open their transaction.
var useTxBeginner = func(ctx context.Context) (unitofwork.TxBeginner, error) {
	session, err := tenantdb.UseSession(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

type EmployeeService struct {
	repo      employee.Repository
	audit     unitofwork.AuditSink
	publisher eventbus.EventBus
	now       func() time.Time
}

func NewEmployeeService(repo employee.Repository, audit unitofwork.AuditSink, publisher eventbus.EventBus) *EmployeeService {
	return &EmployeeService{
		repo:      repo,
		audit:     audit,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *EmployeeService) GetByID(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *EmployeeService) List(ctx context.Context, params *employee.FindParams) ([]*employee.Employee, int64, error) {
	if params == nil {
		params = &employee.FindParams{}
	}
	if params.Limit <= 0 {
		params.Limit = defaultPageSize
	}
	if params.Limit > maxPageSize {
		params.Limit = maxPageSize
	}
	items, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (s *EmployeeService) Create(ctx context.Context, dto *employee.CreateDTO) (*employee.Employee, error) {
	if err := dto.Ok(); err != nil {
		return nil, err
	}
	entity := dto.ToEntity(s.now())
	if err := s.commit(ctx, func(uow *unitofwork.UnitOfWork) error {
		return s.repo.Add(uow, entity)
	}); err != nil {
		return nil, err
	}
	s.publish(&employee.CreatedEvent{Result: *entity.Clone()})
	return entity, nil
}

// UpdateSalary changes one employee's pay. The audit record carries the
// salary before and after the change.
func (s *EmployeeService) UpdateSalary(ctx context.Context, id uuid.UUID, dto *employee.UpdateSalaryDTO) (*employee.Employee, error) {
	if err := dto.Ok(); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	updated := current.WithSalary(dto.Salary, dto.Effective(now), now)
	if current.Salary.Equal(updated.Salary) && sameDay(current.SalaryEffective, updated.SalaryEffective) {
		return current, nil
	}
	if err := s.commit(ctx, func(uow *unitofwork.UnitOfWork) error {
		return s.repo.Update(uow, updated)
	}); err != nil {
		return nil, err
	}
	composables.UseLogger(ctx).WithField("employee_id", id).Info("salary updated")
	s.publish(&employee.SalaryChangedEvent{Previous: *current, Result: *updated.Clone()})
	return updated, nil
}

func (s *EmployeeService) Delete(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, func(uow *unitofwork.UnitOfWork) error {
		return s.repo.Remove(uow, id)
	}); err != nil {
		return nil, err
	}
	s.publish(&employee.DeletedEvent{Result: *current})
	return current, nil
}

func (s *EmployeeService) commit(ctx context.Context, track func(uow *unitofwork.UnitOfWork) error) error {
	db, err := useTxBeginner(ctx)
	if err != nil {
		return err
	}
	uow := unitofwork.New(db, s.audit)
	if err := track(uow); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func (s *EmployeeService) publish(event any) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
