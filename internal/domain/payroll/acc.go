package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/apperror"
)

// ACCLevy applies the earners' levy to the part of grossPay that still fits
// under the annual maximum. It is a pure function of (grossPay, ytdEarnings);
// callers persist the returned YTD figure and reset it each levy year.
func (c *Calculator) ACCLevy(grossPay, ytdEarnings decimal.Decimal, period PeriodType) (ACCResult, error) {
	if _, err := period.PeriodsPerYear(); err != nil {
		return ACCResult{}, err
	}
	if grossPay.IsNegative() {
		return ACCResult{}, fmt.Errorf("gross pay %s: %w", grossPay, apperror.ErrInvalidInput)
	}
	if ytdEarnings.IsNegative() {
		return ACCResult{}, fmt.Errorf("ytd earnings %s: %w", ytdEarnings, apperror.ErrInvalidInput)
	}

	maxEarnings := c.table.ACC.MaxEarnings
	remainingCap := decimal.Max(decimal.Zero, maxEarnings.Sub(ytdEarnings))
	capped := decimal.Min(grossPay, remainingCap)

	return ACCResult{
		Levy:         round(capped.Mul(c.table.ACC.EarnersLevyRate)),
		YTDEarnings:  decimal.Min(ytdEarnings.Add(grossPay), maxEarnings),
		RemainingCap: remainingCap,
	}, nil
}

// LevyYear returns the ACC levy year containing date, named by the calendar
// year in which it starts on 1 April.
func LevyYear(date time.Time) int {
	if date.Month() >= time.April {
		return date.Year()
	}
	return date.Year() - 1
}
