package calculator

import (
	"fmt"
	"time"
)

// monthStart → 1er jour du mois UTC
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// dayStart → minuit UTC du même jour
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthsBetweenInclusive(start, end time.Time) []time.Time {
	cur := monthStart(start)
	last := monthStart(end)
	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// nextMonths renvoie les n débuts de mois qui suivent after.
func nextMonths(after time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	first := monthStart(after).AddDate(0, 1, 0)
	return monthsBetweenInclusive(first, first.AddDate(0, n-1, 0))
}

// FormatMonth → "MM/YYYY"
func FormatMonth(t time.Time) string {
	return fmt.Sprintf("%02d/%04d", int(t.Month()), t.Year())
}
