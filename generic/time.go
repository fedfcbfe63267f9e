package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Calendar date used for periods, lessons and "today"
// =============================================================================

// TimePoint is a calendar date. The wall-clock part is always midnight UTC so
// that a date read from the local clock never shifts when it is formatted,
// compared or sent over the wire.
type TimePoint struct {
	Time time.Time
}

// DateLayout is the wire format for dates ("2025-03-01").
const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar date.
func Today() TimePoint {
	return DateOf(time.Now())
}

// DateOf drops the clock and location of t but keeps its calendar fields,
// so 2025-03-31T23:30-05:00 stays March 31.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return TimePoint{Time: t}, nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.Time.Format(DateLayout)
}

// =============================================================================
// DATE RANGE - Inclusive [Start, End] span of days
// =============================================================================

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the date is within [Start, End].
func (r DateRange) Contains(t TimePoint) bool {
	return t.AfterOrEqual(r.Start) && t.BeforeOrEqual(r.End)
}

// Intersect returns the overlap of two ranges and whether it is non-empty.
func (r DateRange) Intersect(other DateRange) (DateRange, bool) {
	start := r.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := r.End
	if other.End.Before(end) {
		end = other.End
	}
	if end.Before(start) {
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

// Days returns all days in the range.
func (r DateRange) Days() []TimePoint {
	var days []TimePoint
	for current := r.Start; current.BeforeOrEqual(r.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	// Day 0 of the next month normalizes to the last day of this one.
	return NewTimePoint(year, month+1, 0)
}
