package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID              string
	FullName        string
	CompanyName     string
	Salary          decimal.Decimal
	SalaryEffective sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
