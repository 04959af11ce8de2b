package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/apperror"
)

// KiwiSaver computes the employee deduction and employer contribution.
// employeeRatePercent is clamped into the table's bounds rather than rejected.
func (c *Calculator) KiwiSaver(grossPay, employeeRatePercent decimal.Decimal, enrolled bool) (KiwiSaverResult, error) {
	if grossPay.IsNegative() {
		return KiwiSaverResult{}, fmt.Errorf("gross pay %s: %w", grossPay, apperror.ErrInvalidInput)
	}
	if !enrolled {
		return KiwiSaverResult{EmployeeDeduction: decimal.Zero, EmployerContribution: decimal.Zero}, nil
	}

	rate := c.ClampKiwiSaverRate(employeeRatePercent)
	return KiwiSaverResult{
		EmployeeDeduction:    round(grossPay.Mul(rate).Div(hundred)),
		EmployerContribution: round(grossPay.Mul(c.table.KiwiSaver.EmployerRate).Div(hundred)),
	}, nil
}

func (c *Calculator) ClampKiwiSaverRate(ratePercent decimal.Decimal) decimal.Decimal {
	ks := c.table.KiwiSaver
	return decimal.Min(decimal.Max(ratePercent, ks.MinEmployeeRate), ks.MaxEmployeeRate)
}
