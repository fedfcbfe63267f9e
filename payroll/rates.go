package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
)

// =============================================================================
// RATE CARD - Per-lesson pay by class size
// =============================================================================

// RateTier applies to classes with MinStudents..MaxStudents active students.
// MaxStudents == 0 means no upper bound.
type RateTier struct {
	MinStudents   int
	MaxStudents   int
	RatePerLesson decimal.Decimal
	Description   string
}

// Matches reports whether the tier covers the student count.
func (t RateTier) Matches(students int) bool {
	if students < t.MinStudents {
		return false
	}
	return t.MaxStudents == 0 || students <= t.MaxStudents
}

// Describe returns the configured description or a generated one.
func (t RateTier) Describe() string {
	if t.Description != "" {
		return t.Description
	}
	if t.MaxStudents == 0 {
		return fmt.Sprintf("%d+ students: %s per lesson", t.MinStudents, generic.FormatMoney(t.RatePerLesson))
	}
	return fmt.Sprintf("%d-%d students: %s per lesson", t.MinStudents, t.MaxStudents, generic.FormatMoney(t.RatePerLesson))
}

// RateCard is configuration data. Tiers are checked in order; the first
// match wins.
type RateCard struct {
	ID    generic.RateCardID
	Name  string
	Tiers []RateTier
}

// TierFor returns the first tier covering the student count.
func (rc RateCard) TierFor(students int) (RateTier, bool) {
	for _, t := range rc.Tiers {
		if t.Matches(students) {
			return t, true
		}
	}
	return RateTier{}, false
}

// Validate checks tier bounds and rates.
func (rc RateCard) Validate() error {
	if rc.ID == "" {
		return generic.NewValidationError("id", "id is a required field")
	}
	if len(rc.Tiers) == 0 {
		return generic.NewValidationError("tiers", "at least one tier is required")
	}
	for i, t := range rc.Tiers {
		if t.MinStudents < 0 || (t.MaxStudents != 0 && t.MaxStudents < t.MinStudents) {
			return generic.NewValidationError("tiers", fmt.Sprintf("tier %d has invalid student bounds", i))
		}
		if t.RatePerLesson.IsNegative() {
			return generic.NewValidationError("tiers", fmt.Sprintf("tier %d has a negative rate", i))
		}
	}
	return nil
}
