/*
Package payroll is the reference computation/persistence collaborator.

PURPOSE:
  Owns everything the orchestration layer treats as opaque: which classes a
  teacher teaches, how many lessons fall in a month, who is enrolled, which
  rate applies, and the authoritative stored calculations.

KEY TYPES:
  Teacher       employment type and monthly base salary (roster.go)
  Class         weekly lesson days within a date range (roster.go)
  Enrollment    a student in a class, possibly not yet in effect (roster.go)
  AcademicYear  date span used to filter listings (roster.go)
  RateCard      per-lesson rates by class size (rates.go)
  Engine        salary.Collaborator over a Store (engine.go)

SEE ALSO:
  - store.go: persistence interfaces
  - store/sqlite, store/memory: implementations
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// =============================================================================
// TEACHER
// =============================================================================

type Teacher struct {
	ID               generic.TeacherID
	Name             string
	EmploymentType   salary.EmploymentType
	BaseSalaryAmount decimal.Decimal // monthly; ignored for contract teachers
	RateCardID       generic.RateCardID
	CreatedAt        time.Time
}

// =============================================================================
// CLASS
// =============================================================================

// Class is taught by one teacher on fixed weekdays between StartDate and EndDate.
type Class struct {
	ID         generic.ClassID
	Name       string
	TeacherID  generic.TeacherID
	LessonDays []time.Weekday
	StartDate  generic.TimePoint
	EndDate    *generic.TimePoint // nil = open-ended
	CreatedAt  time.Time
}

// ActiveRange returns the part of r during which the class runs.
func (c Class) ActiveRange(r generic.DateRange) (generic.DateRange, bool) {
	span := generic.DateRange{Start: c.StartDate, End: r.End}
	if c.EndDate != nil {
		span.End = *c.EndDate
	}
	return r.Intersect(span)
}

// TeachesOn reports whether the weekday is a lesson day.
func (c Class) TeachesOn(wd time.Weekday) bool {
	for _, d := range c.LessonDays {
		if d == wd {
			return true
		}
	}
	return false
}

// =============================================================================
// ENROLLMENT
// =============================================================================

type EnrollmentStatus string

const (
	EnrollmentActive            EnrollmentStatus = "active"
	EnrollmentPending           EnrollmentStatus = "pending"            // approved join, not in effect yet
	EnrollmentWithdrawalPending EnrollmentStatus = "withdrawal_pending" // still attending, leaving soon
	EnrollmentWithdrawn         EnrollmentStatus = "withdrawn"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentPending, EnrollmentWithdrawalPending, EnrollmentWithdrawn:
		return true
	}
	return false
}

type Enrollment struct {
	ID            string
	StudentID     string
	ClassID       generic.ClassID
	Status        EnrollmentStatus
	EffectiveFrom generic.TimePoint
	CreatedAt     time.Time
}

// Headcount is the enrollment picture of one class for one month.
type Headcount struct {
	Active             int
	PendingEnrollments int
	PendingWithdrawals int
}

// HasPendingChanges reports whether the count could still move.
func (h Headcount) HasPendingChanges() bool {
	return h.PendingEnrollments > 0 || h.PendingWithdrawals > 0
}

// CountEnrollments counts students attending by the end of period.
// Pending withdrawals still attend, so they are both active and pending.
func CountEnrollments(enrollments []Enrollment, period generic.PeriodKey) Headcount {
	var h Headcount
	end := period.End()
	for _, e := range enrollments {
		switch e.Status {
		case EnrollmentActive:
			if e.EffectiveFrom.BeforeOrEqual(end) {
				h.Active++
			}
		case EnrollmentWithdrawalPending:
			if e.EffectiveFrom.BeforeOrEqual(end) {
				h.Active++
			}
			h.PendingWithdrawals++
		case EnrollmentPending:
			h.PendingEnrollments++
		}
	}
	return h
}

// =============================================================================
// ACADEMIC YEAR
// =============================================================================

type AcademicYear struct {
	ID        generic.AcademicYearID
	Name      string
	StartDate generic.TimePoint
	EndDate   generic.TimePoint
}

// Covers reports whether the month starts within the academic year.
func (y AcademicYear) Covers(p generic.PeriodKey) bool {
	return generic.DateRange{Start: y.StartDate, End: y.EndDate}.Contains(p.Start())
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holiday is a school-closed day on which no lessons are counted.
type Holiday struct {
	ID        string
	Date      generic.TimePoint
	Name      string
	Recurring bool // same month/day every year
}

// Matches reports whether the holiday falls on date.
func (h Holiday) Matches(date generic.TimePoint) bool {
	if h.Recurring {
		return h.Date.Month() == date.Month() && h.Date.Day() == date.Day()
	}
	return h.Date.Equal(date)
}
