package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/apperror"
)

const (
	fourWeeks       = 28
	fiftyTwoWeeks   = 364
	daysPerWeek     = 7
	workDaysPerWeek = 5
)

var (
	standardWeekHours = decimal.NewFromInt(40)
	standardDayHours  = decimal.NewFromInt(8)
)

// Options control which timesheet history feeds the payment rates. AsOf is
// the last day of the trailing window and defaults to the latest entry date.
type Options struct {
	IncludeOvertime bool      `json:"includeOvertime"`
	AsOf            time.Time `json:"asOf"`
}

type PaymentRates struct {
	OrdinaryWeeklyPay     decimal.Decimal `json:"ordinaryWeeklyPay"`
	AverageWeeklyEarnings decimal.Decimal `json:"averageWeeklyEarnings"`
	RelevantDailyPay      decimal.Decimal `json:"relevantDailyPay"`
}

// OrdinaryWeeklyPay is the greater of a standard 40 hour week and the
// average weekly earnings over the trailing four weeks.
func OrdinaryWeeklyPay(hourlyRate decimal.Decimal, entries []timesheet.Entry, opts Options) (decimal.Decimal, error) {
	if err := checkRate(hourlyRate); err != nil {
		return decimal.Zero, err
	}
	window := timesheet.Within(entries, asOf(entries, opts), fourWeeks)
	total, err := earnings(window, hourlyRate, opts.IncludeOvertime)
	if err != nil {
		return decimal.Zero, err
	}
	average := total.Div(decimal.NewFromInt(4))
	return round(decimal.Max(hourlyRate.Mul(standardWeekHours), average)), nil
}

// AverageWeeklyEarnings divides the trailing 52 weeks of earnings by the
// weeks elapsed since the first entry in that window, counting a partial
// week as a whole one.
func AverageWeeklyEarnings(hourlyRate decimal.Decimal, entries []timesheet.Entry, opts Options) (decimal.Decimal, error) {
	if err := checkRate(hourlyRate); err != nil {
		return decimal.Zero, err
	}
	end := asOf(entries, opts)
	window := timesheet.Within(entries, end, fiftyTwoWeeks)
	if len(window) == 0 {
		return round(hourlyRate.Mul(standardWeekHours)), nil
	}
	total, err := earnings(window, hourlyRate, opts.IncludeOvertime)
	if err != nil {
		return decimal.Zero, err
	}
	days := int(end.Sub(timesheet.Day(window[0].Date)).Hours()/24) + 1
	weeks := (days + daysPerWeek - 1) / daysPerWeek
	weeks = max(1, min(weeks, 52))
	return round(total.Div(decimal.NewFromInt(int64(weeks)))), nil
}

// RelevantDailyPay is the trailing four weeks of earnings divided by the
// number of distinct days worked.
func RelevantDailyPay(hourlyRate decimal.Decimal, entries []timesheet.Entry, opts Options) (decimal.Decimal, error) {
	if err := checkRate(hourlyRate); err != nil {
		return decimal.Zero, err
	}
	window := timesheet.Within(entries, asOf(entries, opts), fourWeeks)
	if len(window) == 0 {
		return round(hourlyRate.Mul(standardDayHours)), nil
	}
	total, err := earnings(window, hourlyRate, opts.IncludeOvertime)
	if err != nil {
		return decimal.Zero, err
	}
	days := make(map[time.Time]struct{}, len(window))
	for _, e := range window {
		days[timesheet.Day(e.Date)] = struct{}{}
	}
	return round(total.Div(decimal.NewFromInt(int64(len(days))))), nil
}

func Rates(hourlyRate decimal.Decimal, entries []timesheet.Entry, opts Options) (PaymentRates, error) {
	owp, err := OrdinaryWeeklyPay(hourlyRate, entries, opts)
	if err != nil {
		return PaymentRates{}, err
	}
	awe, err := AverageWeeklyEarnings(hourlyRate, entries, opts)
	if err != nil {
		return PaymentRates{}, err
	}
	rdp, err := RelevantDailyPay(hourlyRate, entries, opts)
	if err != nil {
		return PaymentRates{}, err
	}
	return PaymentRates{OrdinaryWeeklyPay: owp, AverageWeeklyEarnings: awe, RelevantDailyPay: rdp}, nil
}

// Cost prices workDays of annual leave at the greater of ordinary weekly pay
// and average weekly earnings.
func Cost(hourlyRate decimal.Decimal, entries []timesheet.Entry, workDays int, opts Options) (decimal.Decimal, error) {
	if workDays < 0 {
		return decimal.Zero, fmt.Errorf("work days %d: %w", workDays, apperror.ErrInvalidInput)
	}
	owp, err := OrdinaryWeeklyPay(hourlyRate, entries, opts)
	if err != nil {
		return decimal.Zero, err
	}
	awe, err := AverageWeeklyEarnings(hourlyRate, entries, opts)
	if err != nil {
		return decimal.Zero, err
	}
	daily := decimal.Max(owp, awe).Div(decimal.NewFromInt(workDaysPerWeek))
	return round(daily.Mul(decimal.NewFromInt(int64(workDays)))), nil
}

func earnings(entries []timesheet.Entry, hourlyRate decimal.Decimal, withOvertime bool) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range entries {
		pay, err := timesheet.Pay(e, hourlyRate, withOvertime)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(pay)
	}
	return total, nil
}

func asOf(entries []timesheet.Entry, opts Options) time.Time {
	if !opts.AsOf.IsZero() {
		return timesheet.Day(opts.AsOf)
	}
	return timesheet.Latest(entries)
}

func checkRate(hourlyRate decimal.Decimal) error {
	if hourlyRate.IsNegative() {
		return fmt.Errorf("hourly rate %s: %w", hourlyRate, apperror.ErrInvalidInput)
	}
	return nil
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
