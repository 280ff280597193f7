package util

import (
	"strconv"
	"time"
)

// ParseTime tries a bare date, RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// PeriodStart truncates t to the start of its week (Monday), month or year,
// at midnight UTC. Unknown intervals behave like "month".
func PeriodStart(t time.Time, interval string) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch interval {
	case "week":
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
}

// AddMonths moves t forward by k calendar months, clamping the day to the
// last day of the target month.
func AddMonths(t time.Time, k int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, k, 0)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddInterval advances t by k weeks, months or years.
func AddInterval(t time.Time, interval string, k int) time.Time {
	switch interval {
	case "week":
		return t.AddDate(0, 0, 7*k)
	case "year":
		return AddMonths(t, 12*k)
	default:
		return AddMonths(t, k)
	}
}

// PeriodLabel renders the display label of a period start.
func PeriodLabel(t time.Time, interval string) string {
	switch interval {
	case "week":
		return "Week of " + t.Format("Jan 02, 2006")
	case "year":
		return t.Format("2006")
	default:
		return t.Format("Jan 2006")
	}
}
