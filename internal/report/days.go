package report

import (
	"fmt"
	"time"
)

// Day is the length of one dataset row.
const Day = 24 * time.Hour

// StartOfDay truncates t to its UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SplitDays returns the UTC midnights in [from, to).
func SplitDays(from, to time.Time) ([]time.Time, error) {
	from = StartOfDay(from)
	to = StartOfDay(to)
	if to.Before(from) {
		return nil, fmt.Errorf("to date must be >= from date")
	}

	days := make([]time.Time, 0, int(to.Sub(from)/Day))
	for day := from; day.Before(to); day = day.Add(Day) {
		days = append(days, day)
	}
	return days, nil
}
