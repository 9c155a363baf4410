package persistence

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/gemelli/tenantcore/modules/hrm/domain/employee"
	"github.com/gemelli/tenantcore/modules/hrm/infrastructure/persistence/models"
)

func toDBEmployee(e *employee.Employee) *models.Employee {
	m := &models.Employee{
		ID:          e.ID.String(),
		FullName:    e.FullName,
		CompanyName: e.CompanyName,
		Salary:      e.Salary,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.SalaryEffective != nil {
		m.SalaryEffective = sql.NullTime{Time: *e.SalaryEffective, Valid: true}
	}
	return m
}

func toDomainEmployee(m *models.Employee) (*employee.Employee, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	e := &employee.Employee{
		ID:          id,
		FullName:    m.FullName,
		CompanyName: m.CompanyName,
		Salary:      m.Salary,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	if m.SalaryEffective.Valid {
		t := m.SalaryEffective.Time.UTC()
		e.SalaryEffective = &t
	}
	return e, nil
}
