package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD KEY - The unit of salary calculation
// =============================================================================

// PeriodKey identifies one calendar month. Salary is ALWAYS calculated for a
// whole month, never for an arbitrary range.
//
// Ordering is lexicographic on (Year, Month):
//
//	2024-12 < 2025-01 < 2025-02
type PeriodKey struct {
	Year  int
	Month time.Month
}

const periodLayout = "2006-01"

// NewPeriodKey validates month ∈ [1,12].
func NewPeriodKey(year, month int) (PeriodKey, error) {
	if month < 1 || month > 12 {
		return PeriodKey{}, fmt.Errorf("%w: month %d out of range 1-12", ErrInvalidPeriod, month)
	}
	return PeriodKey{Year: year, Month: time.Month(month)}, nil
}

// MustPeriodKey is NewPeriodKey for literals in tests and presets.
func MustPeriodKey(year, month int) PeriodKey {
	pk, err := NewPeriodKey(year, month)
	if err != nil {
		panic(err)
	}
	return pk
}

// PeriodKeyFor returns the month containing the given date.
func PeriodKeyFor(tp TimePoint) PeriodKey {
	return PeriodKey{Year: tp.Year(), Month: tp.Month()}
}

// ParsePeriodKey parses exactly "YYYY-MM", e.g. "2025-03".
func ParsePeriodKey(s string) (PeriodKey, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidPeriod, s)
	}
	return PeriodKey{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodKeyFromBounds converts a first-day/last-day pair back into a key.
// Anything other than an exact calendar month is rejected.
func PeriodKeyFromBounds(start, end string) (PeriodKey, error) {
	from, err := ParseDate(start)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: period_start %q", ErrInvalidPeriod, start)
	}
	to, err := ParseDate(end)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: period_end %q", ErrInvalidPeriod, end)
	}
	pk := PeriodKeyFor(from)
	if !from.Equal(pk.Start()) || !to.Equal(pk.End()) {
		return PeriodKey{}, fmt.Errorf("%w: %s..%s is not a calendar month", ErrInvalidPeriod, start, end)
	}
	return pk, nil
}

// Valid reports whether the month is within [1,12].
func (p PeriodKey) Valid() bool {
	return p.Month >= time.January && p.Month <= time.December
}

// Start is the first day of the month.
func (p PeriodKey) Start() TimePoint { return StartOfMonth(p.Year, p.Month) }

// End is the last day of the month.
func (p PeriodKey) End() TimePoint { return EndOfMonth(p.Year, p.Month) }

// Range returns [Start, End].
func (p PeriodKey) Range() DateRange { return DateRange{Start: p.Start(), End: p.End()} }

// Bounds returns the boundary strings sent to the collaborator. They are
// built from calendar fields, so no timezone can move them by a day.
func (p PeriodKey) Bounds() (start, end string) {
	return p.Start().String(), p.End().String()
}

// Compare returns -1, 0 or +1.
func (p PeriodKey) Compare(other PeriodKey) int {
	switch {
	case p.Year < other.Year:
		return -1
	case p.Year > other.Year:
		return 1
	case p.Month < other.Month:
		return -1
	case p.Month > other.Month:
		return 1
	}
	return 0
}

func (p PeriodKey) Before(other PeriodKey) bool { return p.Compare(other) < 0 }
func (p PeriodKey) After(other PeriodKey) bool  { return p.Compare(other) > 0 }
func (p PeriodKey) Equal(other PeriodKey) bool  { return p.Compare(other) == 0 }

// IsFuture reports whether the month starts after the month containing today.
// Past years are never future, whatever the month.
func (p PeriodKey) IsFuture(today TimePoint) bool {
	return p.After(PeriodKeyFor(today))
}

// Next returns the following month.
func (p PeriodKey) Next() PeriodKey {
	if p.Month == time.December {
		return PeriodKey{Year: p.Year + 1, Month: time.January}
	}
	return PeriodKey{Year: p.Year, Month: p.Month + 1}
}

// Previous returns the preceding month.
func (p PeriodKey) Previous() PeriodKey {
	if p.Month == time.January {
		return PeriodKey{Year: p.Year - 1, Month: time.December}
	}
	return PeriodKey{Year: p.Year, Month: p.Month - 1}
}

func (p PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
