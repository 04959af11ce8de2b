package payroll

import (
	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/policy"
)

// Calculator applies one policy table. It holds no mutable state and is safe
// for concurrent use.
type Calculator struct {
	table policy.Table
}

func NewCalculator(table policy.Table) *Calculator {
	return &Calculator{table: table}
}

func (c *Calculator) Table() policy.Table {
	return c.table
}

var hundred = decimal.NewFromInt(100)

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
