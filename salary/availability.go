/*
availability.go - Which months may be generated next

PURPOSE:
  Given a teacher's existing calculations and today's date, decides which
  months of a year are eligible for a NEW generation and picks a default.

RULES:
  generated(year)   months that already have a calculation
  future(y, m)      y > current year, or y == current year and m > current month
  selectable(y, m)  not generated and not future
  maxMonth(year)    current month for the current year, 12 for past years,
                    0 for future years (nothing can be generated yet)

DEFAULT SELECTION:
  On open:        (current year, current month) unless already generated,
                  then FirstSelectableMonth(current year).
  On year change: keep the chosen month if it is still selectable in the new
                  year, otherwise FirstSelectableMonth(new year).

  This engine only gates the UI. The collaborator still rejects a
  non-selectable period on its own.
*/
package salary

import (
	"sort"
	"time"

	"github.com/warp/salary-engine/generic"
)

// Availability answers period questions for one teacher as of one day.
type Availability struct {
	generated map[generic.PeriodKey]bool
	today     generic.TimePoint
}

// NewAvailability indexes the periods of existing calculations.
func NewAvailability(existing []Calculation, today generic.TimePoint) *Availability {
	generated := make(map[generic.PeriodKey]bool, len(existing))
	for _, c := range existing {
		generated[c.Period] = true
	}
	return &Availability{generated: generated, today: today}
}

// Today returns the reference date.
func (a *Availability) Today() generic.TimePoint { return a.today }

// CurrentPeriod is the month containing today.
func (a *Availability) CurrentPeriod() generic.PeriodKey {
	return generic.PeriodKeyFor(a.today)
}

// GeneratedMonths returns the sorted months of year that already have a calculation.
func (a *Availability) GeneratedMonths(year int) []int {
	var months []int
	for pk := range a.generated {
		if pk.Year == year {
			months = append(months, int(pk.Month))
		}
	}
	sort.Ints(months)
	return months
}

// IsGenerated reports whether a calculation exists for (year, month).
func (a *Availability) IsGenerated(year, month int) bool {
	return a.generated[generic.PeriodKey{Year: year, Month: time.Month(month)}]
}

// IsFuture reports whether (year, month) is after the current month.
func (a *Availability) IsFuture(year, month int) bool {
	return generic.PeriodKey{Year: year, Month: time.Month(month)}.IsFuture(a.today)
}

// IsSelectable reports whether (year, month) may be generated now.
func (a *Availability) IsSelectable(year, month int) bool {
	if month < 1 || month > 12 {
		return false
	}
	return !a.IsGenerated(year, month) && !a.IsFuture(year, month)
}

// MaxMonth is the last month of year that could ever be selectable today.
func (a *Availability) MaxMonth(year int) int {
	current := a.CurrentPeriod()
	switch {
	case year == current.Year:
		return int(current.Month)
	case year > current.Year:
		return 0
	}
	return 12
}

// FirstSelectableMonth prefers the current month, then the lowest selectable
// month. When nothing is selectable it falls back to the current month and the
// caller must treat the year as exhausted.
func (a *Availability) FirstSelectableMonth(year int) int {
	currentMonth := int(a.CurrentPeriod().Month)
	maxMonth := a.MaxMonth(year)

	if currentMonth <= maxMonth && a.IsSelectable(year, currentMonth) {
		return currentMonth
	}
	for m := 1; m <= maxMonth; m++ {
		if a.IsSelectable(year, m) {
			return m
		}
	}
	return currentMonth
}

// IsYearExhausted reports whether every month up to MaxMonth is generated.
func (a *Availability) IsYearExhausted(year int) bool {
	for m := 1; m <= a.MaxMonth(year); m++ {
		if !a.IsGenerated(year, m) {
			return false
		}
	}
	return true
}

// DefaultSelection is the period a generation dialog opens on.
func (a *Availability) DefaultSelection() generic.PeriodKey {
	current := a.CurrentPeriod()
	if !a.IsGenerated(current.Year, int(current.Month)) {
		return current
	}
	return generic.PeriodKey{Year: current.Year, Month: time.Month(a.FirstSelectableMonth(current.Year))}
}

// Reselect applies the year-change policy: chosenMonth survives only if it is
// still selectable in year.
func (a *Availability) Reselect(year, chosenMonth int) generic.PeriodKey {
	if a.IsSelectable(year, chosenMonth) {
		return generic.PeriodKey{Year: year, Month: time.Month(chosenMonth)}
	}
	return generic.PeriodKey{Year: year, Month: time.Month(a.FirstSelectableMonth(year))}
}

// CheckSelectable returns a validation error on "period" when p cannot be generated.
func (a *Availability) CheckSelectable(p generic.PeriodKey) error {
	switch {
	case !p.Valid():
		return generic.NewValidationError("period", "month must be between 1 and 12")
	case a.IsGenerated(p.Year, int(p.Month)):
		return generic.NewValidationError("period", "a calculation already exists for "+p.String())
	case p.IsFuture(a.today):
		return generic.NewValidationError("period", p.String()+" is in the future")
	}
	return nil
}

// =============================================================================
// PICKER SUPPORT
// =============================================================================

// MonthOption is one entry of a month picker.
type MonthOption struct {
	Month      int
	Generated  bool
	Future     bool
	Selectable bool
}

// MonthOptions describes all twelve months of year.
func (a *Availability) MonthOptions(year int) []MonthOption {
	opts := make([]MonthOption, 0, 12)
	for m := 1; m <= 12; m++ {
		opts = append(opts, MonthOption{
			Month:      m,
			Generated:  a.IsGenerated(year, m),
			Future:     a.IsFuture(year, m),
			Selectable: a.IsSelectable(year, m),
		})
	}
	return opts
}

// SelectableYears lists the current year and back previous years, newest first.
func (a *Availability) SelectableYears(back int) []int {
	current := a.today.Year()
	years := make([]int, 0, back+1)
	for y := current; y >= current-back; y-- {
		years = append(years, y)
	}
	return years
}
