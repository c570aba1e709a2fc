package calendar

import "time"

// Interval is half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps treats touching intervals (a.End == b.Start) as disjoint.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func (a Interval) Contains(b Interval) bool {
	return !b.Start.Before(a.Start) && !b.End.After(a.End)
}

func (a Interval) Equal(b Interval) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

// MondayFirst maps time.Weekday (Sunday = 0) to 0..6 with Monday = 0.
func MondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
