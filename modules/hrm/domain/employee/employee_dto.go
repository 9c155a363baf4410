package employee

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gemelli/tenantcore/pkg/constants"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

const DateLayout = time.DateOnly

type CreateDTO struct {
	FullName        string          `json:"full_name" validate:"required,max=255"`
	CompanyName     string          `json:"company_name" validate:"omitempty,max=255"`
	Salary          decimal.Decimal `json:"salary"`
	SalaryEffective string          `json:"salary_effective" validate:"omitempty,datetime=2006-01-02"`
}

func (d *CreateDTO) Ok() error {
	d.FullName = strings.TrimSpace(d.FullName)
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.SalaryEffective = strings.TrimSpace(d.SalaryEffective)
	if err := serrors.FromValidator(constants.Validate.Struct(d), constants.Translator); err != nil {
		return err
	}
	return checkSalary(d.Salary)
}

func (d *CreateDTO) ToEntity(now time.Time) *Employee {
	e := &Employee{
		ID:          uuid.New(),
		FullName:    d.FullName,
		CompanyName: d.CompanyName,
		Salary:      d.Salary,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if t, err := time.Parse(DateLayout, d.SalaryEffective); err == nil {
		e.SalaryEffective = &t
	}
	return e
}

type UpdateSalaryDTO struct {
	Salary        decimal.Decimal `json:"salary"`
	EffectiveFrom string          `json:"effective_from" validate:"omitempty,datetime=2006-01-02"`
}

func (d *UpdateSalaryDTO) Ok() error {
	d.EffectiveFrom = strings.TrimSpace(d.EffectiveFrom)
	if err := serrors.FromValidator(constants.Validate.Struct(d), constants.Translator); err != nil {
		return err
	}
	return checkSalary(d.Salary)
}

// Effective returns the parsed effective date, or today when none was given.
func (d *UpdateSalaryDTO) Effective(now time.Time) time.Time {
	if t, err := time.Parse(DateLayout, d.EffectiveFrom); err == nil {
		return t
	}
	return now
}

func checkSalary(v decimal.Decimal) error {
	if v.IsNegative() {
		return &serrors.ValidationError{Fields: map[string]string{"salary": "must not be negative"}}
	}
	if v.Exponent() < -2 {
		return &serrors.ValidationError{Fields: map[string]string{"salary": "at most two decimal places"}}
	}
	return nil
}
