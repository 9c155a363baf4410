package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
	"github.com/gemelli/tenantcore/modules/hrm/domain/employee"
	"github.com/gemelli/tenantcore/modules/hrm/infrastructure/persistence/models"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/tenantdb"
	"github.com/gemelli/tenantcore/pkg/unitofwork"
)

var ErrEmployeeNotFound = errors.New("employee not found")

const entityName = "employee"

const (
	selectEmployees = `
		SELECT id, full_name, company_name, salary, salary_effective, created_at, updated_at
		FROM employees`
	insertEmployee = `
		INSERT INTO employees (id, full_name, company_name, salary, salary_effective, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	updateEmployee = `
		UPDATE employees
		SET full_name = $2, company_name = $3, salary = $4, salary_effective = $5, updated_at = $6
		WHERE id = $1`
	deleteEmployee = `DELETE FROM employees WHERE id = $1`
)

type EmployeeRepository struct{}

func NewEmployeeRepository() employee.Repository {
	return &EmployeeRepository{}
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	tx, err := tenantdb.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return findEmployee(ctx, tx, id, false)
}

func (r *EmployeeRepository) List(ctx context.Context, params *employee.FindParams) ([]*employee.Employee, error) {
	tx, err := tenantdb.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := selectEmployees + " ORDER BY created_at, id"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query employees")
	}
	defer rows.Close()

	var out []*employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate employees")
	}
	return out, nil
}

func (r *EmployeeRepository) Count(ctx context.Context) (int64, error) {
	tx, err := tenantdb.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM employees").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count employees")
	}
	return count, nil
}

func (r *EmployeeRepository) Add(uow *unitofwork.UnitOfWork, e *employee.Employee) error {
	m := toDBEmployee(e)
	return uow.Track(unitofwork.Change{
		Entity: entityName,
		Kind:   record.Created,
		Key:    m.ID,
		Next:   e.Clone(),
		Apply: func(ctx context.Context, tx repo.Tx) error {
			_, err := tx.Exec(ctx, insertEmployee,
				e.ID, m.FullName, m.CompanyName, m.Salary, m.SalaryEffective, m.CreatedAt, m.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, "insert employee")
			}
			return nil
		},
	})
}

func (r *EmployeeRepository) Update(uow *unitofwork.UnitOfWork, e *employee.Employee) error {
	m := toDBEmployee(e)
	return uow.Track(unitofwork.Change{
		Entity: entityName,
		Kind:   record.Modified,
		Key:    m.ID,
		Prior:  lockedSnapshot(e.ID),
		Next:   e.Clone(),
		Apply: func(ctx context.Context, tx repo.Tx) error {
			tag, err := tx.Exec(ctx, updateEmployee,
				e.ID, m.FullName, m.CompanyName, m.Salary, m.SalaryEffective, m.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, "update employee")
			}
			if tag.RowsAffected() == 0 {
				return ErrEmployeeNotFound
			}
			return nil
		},
	})
}

func (r *EmployeeRepository) Remove(uow *unitofwork.UnitOfWork, id uuid.UUID) error {
	return uow.Track(unitofwork.Change{
		Entity: entityName,
		Kind:   record.Deleted,
		Key:    id.String(),
		Prior:  lockedSnapshot(id),
		Apply: func(ctx context.Context, tx repo.Tx) error {
			tag, err := tx.Exec(ctx, deleteEmployee, id)
			if err != nil {
				return errors.Wrap(err, "delete employee")
			}
			if tag.RowsAffected() == 0 {
				return ErrEmployeeNotFound
			}
			return nil
		},
	})
}

// lockedSnapshot re-reads the row inside the commit transaction and holds its
// lock until commit, so the recorded prior state is the one overwritten.
func lockedSnapshot(id uuid.UUID) func(ctx context.Context, tx repo.Tx) (any, error) {
	return func(ctx context.Context, tx repo.Tx) (any, error) {
		return findEmployee(ctx, tx, id, true)
	}
}

func findEmployee(ctx context.Context, tx repo.Tx, id uuid.UUID, forUpdate bool) (*employee.Employee, error) {
	query := selectEmployees + " WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	e, err := scanEmployee(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select employee")
	}
	return e, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var m models.Employee
	var id uuid.UUID
	if err := row.Scan(&id, &m.FullName, &m.CompanyName, &m.Salary, &m.SalaryEffective, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ID = id.String()
	return toDomainEmployee(&m)
}
