package leave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matarikiDates map[int]time.Time

func (m matarikiDates) Matariki(year int) (time.Time, bool) {
	d, ok := m[year]
	return d, ok
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func observed(t *testing.T, holidays []Holiday, name string) time.Time {
	t.Helper()
	for _, h := range holidays {
		if h.Name == name {
			return h.Observed
		}
	}
	require.Failf(t, "holiday missing", "%s not found", name)
	return time.Time{}
}

func TestEasterSunday(t *testing.T) {
	assert.Equal(t, date(2019, time.April, 21), EasterSunday(2019))
	assert.Equal(t, date(2024, time.March, 31), EasterSunday(2024))
	assert.Equal(t, date(2025, time.April, 20), EasterSunday(2025))
}

func TestPublicHolidays2024(t *testing.T) {
	cal := NewCalendar(matarikiDates{2024: date(2024, time.June, 28)})
	holidays := cal.PublicHolidays(2024)

	require.Len(t, holidays, 11)
	assert.Equal(t, date(2024, time.March, 29), observed(t, holidays, "Good Friday"))
	assert.Equal(t, date(2024, time.April, 1), observed(t, holidays, "Easter Monday"))
	assert.Equal(t, date(2024, time.June, 3), observed(t, holidays, "King's Birthday"))
	assert.Equal(t, date(2024, time.June, 28), observed(t, holidays, "Matariki"))
	assert.Equal(t, date(2024, time.October, 28), observed(t, holidays, "Labour Day"))

	for i := 1; i < len(holidays); i++ {
		assert.False(t, holidays[i].Observed.Before(holidays[i-1].Observed), "holidays not sorted")
	}
}

func TestMondayisation(t *testing.T) {
	cal := NewCalendar(nil)

	h2021 := cal.PublicHolidays(2021)
	assert.Equal(t, date(2021, time.December, 27), observed(t, h2021, "Christmas Day"))
	assert.Equal(t, date(2021, time.December, 28), observed(t, h2021, "Boxing Day"))

	h2022 := cal.PublicHolidays(2022)
	assert.Equal(t, date(2022, time.December, 27), observed(t, h2022, "Christmas Day"))
	assert.Equal(t, date(2022, time.December, 26), observed(t, h2022, "Boxing Day"))
	assert.Equal(t, date(2022, time.January, 3), observed(t, h2022, "New Year's Day"))
	assert.Equal(t, date(2022, time.January, 4), observed(t, h2022, "Day after New Year's Day"))

	h2023 := cal.PublicHolidays(2023)
	assert.Equal(t, date(2023, time.January, 3), observed(t, h2023, "New Year's Day"))
	assert.Equal(t, date(2023, time.January, 2), observed(t, h2023, "Day after New Year's Day"))

	assert.Equal(t, date(2026, time.April, 27), observed(t, cal.PublicHolidays(2026), "ANZAC Day"))
	assert.Equal(t, date(2027, time.February, 8), observed(t, cal.PublicHolidays(2027), "Waitangi Day"))
}

func TestCalendarBetweenSpansYears(t *testing.T) {
	got := NewCalendar(nil).Between(date(2024, time.December, 20), date(2025, time.January, 10))
	names := make([]string, 0, len(got))
	for _, h := range got {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"Christmas Day", "Boxing Day", "New Year's Day", "Day after New Year's Day"}, names)
}
