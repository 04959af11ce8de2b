package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/apperror"
)

type EmploymentType string

type PeriodType string

var (
	periodsPerYear = map[PeriodType]int64{
		PeriodWeekly:      52,
		PeriodFortnightly: 26,
		PeriodMonthly:     12,
	}
	hoursInPeriod = map[PeriodType]decimal.Decimal{
		PeriodWeekly:      decimal.NewFromInt(40),
		PeriodFortnightly: decimal.NewFromInt(80),
		PeriodMonthly:     decimal.RequireFromString("173.33"),
	}
)

// PeriodsPerYear is the annualisation divisor for the pay period.
func (p PeriodType) PeriodsPerYear() (int64, error) {
	n, ok := periodsPerYear[p]
	if !ok {
		return 0, fmt.Errorf("pay period %q: %w", p, apperror.ErrInvalidInput)
	}
	return n, nil
}

// HoursInPeriod is the standard hours assumed for one pay period.
func (p PeriodType) HoursInPeriod() (decimal.Decimal, error) {
	h, ok := hoursInPeriod[p]
	if !ok {
		return decimal.Zero, fmt.Errorf("pay period %q: %w", p, apperror.ErrInvalidInput)
	}
	return h, nil
}

type Employee struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	EmploymentType    EmploymentType  `json:"employmentType"`
	TaxCode           string          `json:"taxCode"`
	KiwiSaverEnrolled bool            `json:"kiwiSaverEnrolled"`
	KiwiSaverRate     decimal.Decimal `json:"kiwiSaverRate"`
	IRDNumber         string          `json:"irdNumber,omitempty"`
	StartDate         time.Time       `json:"startDate"`
	Status            string          `json:"status"`
}

type KiwiSaverResult struct {
	EmployeeDeduction    decimal.Decimal `json:"employeeDeduction"`
	EmployerContribution decimal.Decimal `json:"employerContribution"`
}

type ACCResult struct {
	Levy         decimal.Decimal `json:"levy"`
	YTDEarnings  decimal.Decimal `json:"ytdEarnings"`
	RemainingCap decimal.Decimal `json:"remainingCap"`
}

type MinimumWageCheck struct {
	Compliant           bool            `json:"compliant"`
	EffectiveHourlyRate decimal.Decimal `json:"effectiveHourlyRate"`
	RequiredRate        decimal.Decimal `json:"requiredRate"`
}

// Result is the payslip figures for one employee and one pay period.
type Result struct {
	GrossPay           decimal.Decimal  `json:"grossPay"`
	PAYETax            decimal.Decimal  `json:"payeTax"`
	KiwiSaverDeduction decimal.Decimal  `json:"kiwiSaverDeduction"`
	EmployerKiwiSaver  decimal.Decimal  `json:"employerKiwiSaver"`
	ACCLevy            decimal.Decimal  `json:"accLevy"`
	NetPay             decimal.Decimal  `json:"netPay"`
	ACCYearToDate      decimal.Decimal  `json:"accYearToDate"`
	MinimumWageCheck   MinimumWageCheck `json:"minimumWageCheck"`
}

// TotalDeductions is everything withheld from the employee's gross pay.
func (r Result) TotalDeductions() decimal.Decimal {
	return r.PAYETax.Add(r.KiwiSaverDeduction).Add(r.ACCLevy)
}

type Payslip struct {
	ID           string     `json:"id"`
	RunID        string     `json:"runId"`
	EmployeeID   string     `json:"employeeId"`
	EmployeeName string     `json:"employeeName"`
	TaxCode      string     `json:"taxCode"`
	Period       PeriodType `json:"period"`
	PeriodStart  time.Time  `json:"periodStart"`
	PeriodEnd    time.Time  `json:"periodEnd"`
	PayDate      time.Time  `json:"payDate"`
	LevyYear     int        `json:"levyYear"`
	Result       Result     `json:"result"`
	CreatedAt    time.Time  `json:"createdAt"`
}
