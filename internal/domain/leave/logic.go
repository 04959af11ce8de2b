package leave

import (
	"fmt"
	"time"

	"kiwipay/internal/platform/apperror"
)

// CalendarDays returns the inclusive day count between start and end.
func CalendarDays(start, end time.Time) (int, error) {
	start, end = day(start), day(end)
	if end.Before(start) {
		return 0, fmt.Errorf("end date before start date: %w", apperror.ErrInvalidDateRange)
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// WorkDays counts the weekdays between start and end inclusive that are not
// observed public holidays.
func WorkDays(start, end time.Time, holidays []Holiday) (int, error) {
	if _, err := CalendarDays(start, end); err != nil {
		return 0, err
	}
	observed := make(map[time.Time]struct{}, len(holidays))
	for _, h := range holidays {
		observed[day(h.Observed)] = struct{}{}
	}

	count := 0
	for d := day(start); !d.After(day(end)); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) {
			continue
		}
		if _, ok := observed[d]; ok {
			continue
		}
		count++
	}
	return count, nil
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
