package timesheet

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwipay/internal/platform/apperror"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWorkedHours(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"day shift", Entry{StartTime: "09:00", EndTime: "17:30", BreakMinutes: 30}, "8"},
		{"overnight", Entry{StartTime: "22:00", EndTime: "06:00", BreakMinutes: 30}, "7.5"},
		{"no break", Entry{StartTime: "08:15", EndTime: "12:00"}, "3.75"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WorkedHours(tt.entry)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestWorkedHoursRejectsBadInput(t *testing.T) {
	cases := []Entry{
		{StartTime: "9am", EndTime: "17:00"},
		{StartTime: "09:00", EndTime: "25:00"},
		{StartTime: "09:00", EndTime: "10:00", BreakMinutes: 90},
		{StartTime: "09:00", EndTime: "10:00", BreakMinutes: -5},
	}
	for _, e := range cases {
		_, err := WorkedHours(e)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	}
}

func TestPayAppliesOvertimeOnlyWhenEnabled(t *testing.T) {
	e := Entry{StartTime: "09:00", EndTime: "13:00", IsOvertime: true}
	rate := decimal.NewFromInt(20)

	base, err := Pay(e, rate, false)
	require.NoError(t, err)
	assert.Equal(t, "80", base.String())

	withOT, err := Pay(e, rate, true)
	require.NoError(t, err)
	assert.Equal(t, "120", withOT.String())

	e.OvertimeRate = decimal.NewFromInt(2)
	doubled, err := Pay(e, rate, true)
	require.NoError(t, err)
	assert.Equal(t, "160", doubled.String())
}

func TestWithinFiltersAndSorts(t *testing.T) {
	entries := []Entry{
		{Date: day(2025, 3, 20)},
		{Date: day(2025, 2, 1)},
		{Date: day(2025, 3, 1)},
		{Date: day(2025, 2, 22)},
	}

	got := Within(entries, day(2025, 3, 21), 28)
	require.Len(t, got, 3)
	assert.Equal(t, day(2025, 2, 22), got[0].Date)
	assert.Equal(t, day(2025, 3, 1), got[1].Date)
	assert.Equal(t, day(2025, 3, 20), got[2].Date)
	assert.Equal(t, day(2025, 3, 20), Latest(entries))
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "1.5", OvertimeRate(Entry{}).String())
	assert.Equal(t, "1", RateMultiplier(Entry{}).String())
	assert.Equal(t, "1.25", RateMultiplier(Entry{RateMultiplier: decimal.RequireFromString("1.25")}).String())
}
