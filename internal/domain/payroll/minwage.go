package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/apperror"
)

// MinimumWage compares the effective hourly rate for the period with the
// statutory rate for the employment type. The check is advisory.
func (c *Calculator) MinimumWage(grossPay decimal.Decimal, period PeriodType, employmentType EmploymentType) (MinimumWageCheck, error) {
	hours, err := period.HoursInPeriod()
	if err != nil {
		return MinimumWageCheck{}, err
	}
	if grossPay.IsNegative() {
		return MinimumWageCheck{}, fmt.Errorf("gross pay %s: %w", grossPay, apperror.ErrInvalidInput)
	}

	required := c.table.MinimumWage.Adult
	if employmentType == EmploymentTraining {
		required = c.table.MinimumWage.Training
	}
	// Compliance uses the exact rate; only the reported figure is rounded.
	effective := grossPay.Div(hours)
	return MinimumWageCheck{
		Compliant:           effective.GreaterThanOrEqual(required),
		EffectiveHourlyRate: round(effective),
		RequiredRate:        required,
	}, nil
}
