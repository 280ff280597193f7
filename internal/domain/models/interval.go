package models

// Interval is the bucket width of an aggregated series.
type Interval string

const (
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// IsValid returns true if iv is a supported interval.
func (iv Interval) IsValid() bool {
	switch iv {
	case IntervalWeek, IntervalMonth, IntervalYear:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the interval used when none (or an unknown one) is given.
func DefaultInterval() Interval { return IntervalMonth }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	iv := Interval(s)
	if iv.IsValid() {
		return iv
	}
	return DefaultInterval()
}
