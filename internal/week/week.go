package week

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the date format used for week-ending dates everywhere.
const Layout = "2006-01-02"

// Format returns a week-ending date like "2025-01-06".
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse parses "2025-01-06" into a UTC date.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty week-ending date")
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week-ending date %q: %w", s, err)
	}
	return t, nil
}

// Truncate drops the time of day, keeping the calendar date of t.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ThisMonday returns the Monday the date picker defaults to for now.
// Sunday counts as the start of the week, so a Sunday maps to the following day.
func ThisMonday(now time.Time) time.Time {
	day := Truncate(now)
	return day.AddDate(0, 0, 1-int(day.Weekday()))
}

// IsMonday reports whether t falls on a Monday.
func IsMonday(t time.Time) bool {
	return t.Weekday() == time.Monday
}
