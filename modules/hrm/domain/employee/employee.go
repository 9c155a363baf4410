package employee

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Employee is the tenant-owned record the audit trail tracks. Its JSON form is
// what audit records store as prior and new state.
type Employee struct {
	ID              uuid.UUID       `json:"id"`
	FullName        string          `json:"full_name"`
	CompanyName     string          `json:"company_name"`
	Salary          decimal.Decimal `json:"salary"`
	SalaryEffective *time.Time      `json:"salary_effective,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (e *Employee) Clone() *Employee {
	out := *e
	if e.SalaryEffective != nil {
		v := *e.SalaryEffective
		out.SalaryEffective = &v
	}
	return &out
}

// WithSalary returns a copy earning amount from the effective day onwards.
func (e *Employee) WithSalary(amount decimal.Decimal, effective time.Time, now time.Time) *Employee {
	out := e.Clone()
	out.Salary = amount
	day := truncateDay(effective)
	out.SalaryEffective = &day
	out.UpdatedAt = now.UTC()
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
