package leave

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/apperror"
)

var rate = decimal.NewFromInt(25)

func shift(d time.Time, start, end string, breakMinutes int) timesheet.Entry {
	return timesheet.Entry{Date: d, StartTime: start, EndTime: end, BreakMinutes: breakMinutes}
}

// fourWeeksOfNineHourDays is Mon 4 Mar to Fri 29 Mar 2024, 9 worked hours a day.
func fourWeeksOfNineHourDays() []timesheet.Entry {
	var entries []timesheet.Entry
	for d := date(2024, time.March, 4); !d.After(date(2024, time.March, 29)); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) {
			continue
		}
		entries = append(entries, shift(d, "08:00", "17:30", 30))
	}
	return entries
}

func TestPaymentRatesFallBackWithoutHistory(t *testing.T) {
	rates, err := Rates(rate, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", rates.OrdinaryWeeklyPay.StringFixed(2))
	assert.Equal(t, "1000.00", rates.AverageWeeklyEarnings.StringFixed(2))
	assert.Equal(t, "200.00", rates.RelevantDailyPay.StringFixed(2))
}

func TestPaymentRatesFromHistory(t *testing.T) {
	entries := fourWeeksOfNineHourDays()
	require.Len(t, entries, 20)

	rates, err := Rates(rate, entries, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1125.00", rates.OrdinaryWeeklyPay.StringFixed(2))
	assert.Equal(t, "1125.00", rates.AverageWeeklyEarnings.StringFixed(2))
	assert.Equal(t, "225.00", rates.RelevantDailyPay.StringFixed(2))
}

func TestOvertimeOnlyCountsWhenIncluded(t *testing.T) {
	entries := fourWeeksOfNineHourDays()
	overtime := shift(date(2024, time.March, 23), "10:00", "14:00", 0)
	overtime.IsOvertime = true
	entries = append(entries, overtime)

	without, err := Rates(rate, entries, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1150.00", without.OrdinaryWeeklyPay.StringFixed(2))
	assert.Equal(t, "1150.00", without.AverageWeeklyEarnings.StringFixed(2))
	assert.Equal(t, "219.05", without.RelevantDailyPay.StringFixed(2))

	with, err := Rates(rate, entries, Options{IncludeOvertime: true})
	require.NoError(t, err)
	assert.Equal(t, "1162.50", with.OrdinaryWeeklyPay.StringFixed(2))
	assert.Equal(t, "1162.50", with.AverageWeeklyEarnings.StringFixed(2))
	assert.Equal(t, "221.43", with.RelevantDailyPay.StringFixed(2))
}

func TestAverageWeeklyEarningsCountsPartialWeeks(t *testing.T) {
	entries := append(fourWeeksOfNineHourDays(), shift(date(2024, time.February, 1), "09:00", "17:30", 30))

	awe, err := AverageWeeklyEarnings(rate, entries, Options{})
	require.NoError(t, err)
	// 4700 over 1 Feb to 29 Mar: 58 days is 9 started weeks.
	assert.Equal(t, "522.22", awe.StringFixed(2))

	owp, err := OrdinaryWeeklyPay(rate, entries, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1125.00", owp.StringFixed(2))
}

func TestPaymentWindowEndsAtAsOf(t *testing.T) {
	entries := fourWeeksOfNineHourDays()

	owp, err := OrdinaryWeeklyPay(rate, entries, Options{AsOf: date(2024, time.March, 8)})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", owp.StringFixed(2), "five days averaged over four weeks is below the floor")

	rdp, err := RelevantDailyPay(rate, entries, Options{AsOf: date(2024, time.March, 1)})
	require.NoError(t, err)
	assert.Equal(t, "200.00", rdp.StringFixed(2))
}

func TestCostUsesGreaterOfOWPAndAWE(t *testing.T) {
	asOf := date(2024, time.March, 31)
	var entries []timesheet.Entry
	for d := date(2024, time.February, 5); !d.After(asOf); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) {
			continue
		}
		if d.Before(date(2024, time.March, 4)) {
			entries = append(entries, shift(d, "06:00", "18:00", 0))
			continue
		}
		if d.Weekday() != time.Friday {
			entries = append(entries, shift(d, "06:00", "17:00", 0))
		}
	}

	rates, err := Rates(rate, entries, Options{AsOf: asOf})
	require.NoError(t, err)
	assert.Equal(t, "1100.00", rates.OrdinaryWeeklyPay.StringFixed(2))
	assert.Equal(t, "1300.00", rates.AverageWeeklyEarnings.StringFixed(2))
	assert.Equal(t, "275.00", rates.RelevantDailyPay.StringFixed(2))

	cost, err := Cost(rate, entries, 5, Options{AsOf: asOf})
	require.NoError(t, err)
	assert.Equal(t, "1300.00", cost.StringFixed(2))

	cost, err = Cost(rate, fourWeeksOfNineHourDays(), 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, "675.00", cost.StringFixed(2))
}

func TestPaymentRejectsBadInput(t *testing.T) {
	_, err := OrdinaryWeeklyPay(decimal.NewFromInt(-1), nil, Options{})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = Cost(rate, nil, -1, Options{})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	bad := []timesheet.Entry{shift(date(2024, time.March, 4), "9am", "17:00", 0)}
	_, err = RelevantDailyPay(rate, bad, Options{})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestOvernightShiftHours(t *testing.T) {
	entries := []timesheet.Entry{shift(date(2024, time.March, 4), "22:00", "06:00", 30)}
	rdp, err := RelevantDailyPay(rate, entries, Options{})
	require.NoError(t, err)
	assert.Equal(t, "187.50", rdp.StringFixed(2))
}
