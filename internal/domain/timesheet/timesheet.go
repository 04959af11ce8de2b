package timesheet

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/apperror"
)

const clockLayout = "15:04"

var defaultOvertimeRate = decimal.RequireFromString("1.5")

// Entry is one approved timesheet line. Times are wall-clock HH:MM; an end
// time earlier than the start time means the shift crossed midnight.
type Entry struct {
	Date           time.Time       `json:"date"`
	StartTime      string          `json:"startTime"`
	EndTime        string          `json:"endTime"`
	BreakMinutes   int             `json:"breakMinutes"`
	IsOvertime     bool            `json:"isOvertime,omitempty"`
	OvertimeRate   decimal.Decimal `json:"overtimeRate,omitempty"`
	RateMultiplier decimal.Decimal `json:"rateMultiplier,omitempty"`
}

// WorkedHours returns (end - start) - break in hours.
func WorkedHours(e Entry) (decimal.Decimal, error) {
	start, err := parseClock(e.StartTime)
	if err != nil {
		return decimal.Zero, fmt.Errorf("start time %q: %w", e.StartTime, apperror.ErrInvalidInput)
	}
	end, err := parseClock(e.EndTime)
	if err != nil {
		return decimal.Zero, fmt.Errorf("end time %q: %w", e.EndTime, apperror.ErrInvalidInput)
	}
	if e.BreakMinutes < 0 {
		return decimal.Zero, fmt.Errorf("break minutes %d: %w", e.BreakMinutes, apperror.ErrInvalidInput)
	}

	span := end - start
	if span < 0 {
		span += 24 * time.Hour
	}
	worked := span - time.Duration(e.BreakMinutes)*time.Minute
	if worked < 0 {
		return decimal.Zero, fmt.Errorf("break of %d minutes exceeds shift: %w", e.BreakMinutes, apperror.ErrInvalidInput)
	}
	return decimal.NewFromInt(int64(worked / time.Minute)).Div(decimal.NewFromInt(60)), nil
}

// Pay returns the earnings for an entry at hourlyRate. When withOvertime is
// set an overtime entry is paid at its overtime rate (1.5 when unset).
func Pay(e Entry, hourlyRate decimal.Decimal, withOvertime bool) (decimal.Decimal, error) {
	hours, err := WorkedHours(e)
	if err != nil {
		return decimal.Zero, err
	}
	pay := hours.Mul(hourlyRate)
	if withOvertime && e.IsOvertime {
		pay = pay.Mul(OvertimeRate(e))
	}
	return pay, nil
}

func OvertimeRate(e Entry) decimal.Decimal {
	if e.OvertimeRate.IsPositive() {
		return e.OvertimeRate
	}
	return defaultOvertimeRate
}

func RateMultiplier(e Entry) decimal.Decimal {
	if e.RateMultiplier.IsPositive() {
		return e.RateMultiplier
	}
	return decimal.NewFromInt(1)
}

// Within returns the entries whose date falls in the window of the given
// number of days ending on asOf (inclusive), sorted by date.
func Within(entries []Entry, asOf time.Time, days int) []Entry {
	end := Day(asOf)
	start := end.AddDate(0, 0, -days+1)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		d := Day(e.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Latest returns the most recent entry date, or the zero time when empty.
func Latest(entries []Entry) time.Time {
	var latest time.Time
	for _, e := range entries {
		if e.Date.After(latest) {
			latest = e.Date
		}
	}
	return Day(latest)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseClock(value string) (time.Duration, error) {
	parsed, err := time.Parse(clockLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
