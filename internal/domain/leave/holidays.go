package leave

import (
	"sort"
	"time"
)

// Holiday is a national public holiday. Observed differs from Date when the
// holiday falls on a weekend and is carried to a weekday.
type Holiday struct {
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Observed time.Time `json:"observed"`
}

// MatarikiSource supplies the gazetted Matariki date for a year.
// *policy.Registry satisfies it.
type MatarikiSource interface {
	Matariki(year int) (time.Time, bool)
}

// Calendar computes the national public holidays. Regional anniversary days
// are not included.
type Calendar struct {
	matariki MatarikiSource
}

func NewCalendar(matariki MatarikiSource) *Calendar {
	return &Calendar{matariki: matariki}
}

// PublicHolidays returns the year's holidays sorted by observed date.
func (c *Calendar) PublicHolidays(year int) []Holiday {
	date := func(m time.Month, d int) time.Time {
		return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
	}
	easter := EasterSunday(year)

	fixed := []Holiday{
		{Name: "New Year's Day", Date: date(time.January, 1)},
		{Name: "Day after New Year's Day", Date: date(time.January, 2)},
		{Name: "Waitangi Day", Date: date(time.February, 6)},
		{Name: "ANZAC Day", Date: date(time.April, 25)},
		{Name: "Christmas Day", Date: date(time.December, 25)},
		{Name: "Boxing Day", Date: date(time.December, 26)},
	}
	holidays := []Holiday{
		{Name: "Good Friday", Date: easter.AddDate(0, 0, -2)},
		{Name: "Easter Monday", Date: easter.AddDate(0, 0, 1)},
		{Name: "King's Birthday", Date: nthWeekday(year, time.June, time.Monday, 1)},
		{Name: "Labour Day", Date: nthWeekday(year, time.October, time.Monday, 4)},
	}
	if c != nil && c.matariki != nil {
		if d, ok := c.matariki.Matariki(year); ok {
			holidays = append(holidays, Holiday{Name: "Matariki", Date: day(d)})
		}
	}
	for i := range holidays {
		holidays[i].Observed = holidays[i].Date
	}

	holidays = append(holidays, mondayise(fixed, holidays)...)
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Observed.Before(holidays[j].Observed) })
	return holidays
}

// Between returns the holidays observed in [start, end].
func (c *Calendar) Between(start, end time.Time) []Holiday {
	start, end = day(start), day(end)
	var out []Holiday
	for year := start.Year(); year <= end.Year(); year++ {
		for _, h := range c.PublicHolidays(year) {
			if h.Observed.Before(start) || h.Observed.After(end) {
				continue
			}
			out = append(out, h)
		}
	}
	return out
}

func (c *Calendar) WorkDays(start, end time.Time) (int, error) {
	if _, err := CalendarDays(start, end); err != nil {
		return 0, err
	}
	return WorkDays(start, end, c.Between(start, end))
}

// mondayise places weekday holidays on their own date, then moves each
// weekend holiday to the next weekday that is not already taken. A Saturday
// Christmas is observed Monday and a Sunday Boxing Day Tuesday; the New Year
// pair behaves the same way.
func mondayise(fixed, taken []Holiday) []Holiday {
	occupied := make(map[time.Time]bool, len(fixed)+len(taken))
	for _, h := range taken {
		occupied[h.Observed] = true
	}
	out := make([]Holiday, len(fixed))
	copy(out, fixed)
	for i := range out {
		if !isWeekend(out[i].Date) {
			out[i].Observed = out[i].Date
			occupied[out[i].Date] = true
		}
	}
	for i := range out {
		if !isWeekend(out[i].Date) {
			continue
		}
		d := out[i].Date
		for isWeekend(d) || occupied[d] {
			d = d.AddDate(0, 0, 1)
		}
		out[i].Observed = d
		occupied[d] = true
	}
	return out
}

// EasterSunday uses the anonymous Gregorian computus.
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	dayOfMonth := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}
