package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/apperror"
)

// Deductions runs PAYE, ACC, KiwiSaver and the minimum wage check over one
// period's gross pay. Any failing step aborts the whole calculation.
func (c *Calculator) Deductions(grossPay decimal.Decimal, employee Employee, period PeriodType, ytdEarnings decimal.Decimal) (Result, error) {
	if grossPay.IsNegative() {
		return Result{}, fmt.Errorf("gross pay %s: %w", grossPay, apperror.ErrInvalidInput)
	}
	grossPay = round(grossPay)

	tax, err := c.PeriodPAYETax(grossPay, employee.TaxCode, period)
	if err != nil {
		return Result{}, fmt.Errorf("paye: %w", err)
	}
	acc, err := c.ACCLevy(grossPay, ytdEarnings, period)
	if err != nil {
		return Result{}, fmt.Errorf("acc levy: %w", err)
	}
	ks, err := c.KiwiSaver(grossPay, employee.KiwiSaverRate, employee.KiwiSaverEnrolled)
	if err != nil {
		return Result{}, fmt.Errorf("kiwisaver: %w", err)
	}
	minWage, err := c.MinimumWage(grossPay, period, employee.EmploymentType)
	if err != nil {
		return Result{}, fmt.Errorf("minimum wage: %w", err)
	}

	net := round(grossPay.Sub(tax).Sub(ks.EmployeeDeduction).Sub(acc.Levy))
	if net.IsNegative() {
		return Result{}, fmt.Errorf("net pay %s is negative: %w", net, apperror.ErrInvalidInput)
	}

	return Result{
		GrossPay:           grossPay,
		PAYETax:            tax,
		KiwiSaverDeduction: ks.EmployeeDeduction,
		EmployerKiwiSaver:  ks.EmployerContribution,
		ACCLevy:            acc.Levy,
		NetPay:             net,
		ACCYearToDate:      acc.YTDEarnings,
		MinimumWageCheck:   minWage,
	}, nil
}

// Calculate derives gross pay from the period's timesheets and then applies
// Deductions.
func (c *Calculator) Calculate(employee Employee, entries []timesheet.Entry, period PeriodType, ytdEarnings decimal.Decimal) (Result, error) {
	gross, err := c.GrossPay(employee, entries, period)
	if err != nil {
		return Result{}, err
	}
	return c.Deductions(gross, employee, period, ytdEarnings)
}
