package utils

import (
	"time"
)

// DateLayout is the canonical YYYY-MM-DD layout used in storage keys.
const DateLayout = "2006-01-02"

// FormatDate renders a time as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FloorDay truncates a time to midnight UTC.
func FloorDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthsAgo returns the day floor of now minus the given number of months.
func MonthsAgo(now time.Time, months int) time.Time {
	return FloorDay(now.AddDate(0, -months, 0))
}
