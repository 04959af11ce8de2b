package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/apperror"
)

// GrossPay returns the period's gross earnings. Salaried staff are paid the
// standard hours for the period; hourly and training staff are paid for the
// hours on their timesheets, with overtime and rate multipliers applied.
func (c *Calculator) GrossPay(employee Employee, entries []timesheet.Entry, period PeriodType) (decimal.Decimal, error) {
	if !employee.HourlyRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("hourly rate %s must be positive: %w", employee.HourlyRate, apperror.ErrInvalidInput)
	}

	switch employee.EmploymentType {
	case EmploymentSalary:
		hours, err := period.HoursInPeriod()
		if err != nil {
			return decimal.Zero, err
		}
		return round(employee.HourlyRate.Mul(hours)), nil
	case EmploymentHourly, EmploymentTraining:
		if _, err := period.PeriodsPerYear(); err != nil {
			return decimal.Zero, err
		}
		total := decimal.Zero
		for i, entry := range entries {
			pay, err := timesheet.Pay(entry, employee.HourlyRate, true)
			if err != nil {
				return decimal.Zero, fmt.Errorf("timesheet entry %d (%s): %w", i, entry.Date.Format("2006-01-02"), err)
			}
			total = total.Add(pay.Mul(timesheet.RateMultiplier(entry)))
		}
		return round(total), nil
	default:
		return decimal.Zero, fmt.Errorf("employment type %q: %w", employee.EmploymentType, apperror.ErrInvalidInput)
	}
}
