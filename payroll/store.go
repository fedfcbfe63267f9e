/*
store.go - Persistence interfaces for the collaborator

PURPOSE:
  Defines the interface between the payroll engine and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  CalculationStore  salary calculations; one per (teacher, month)
  RosterStore       teachers, classes, enrollments, academic years, holidays
  RateStore         rate cards
  AuditLog          append-only record of who did what when
  Store             all of the above

UNIQUENESS:
  CreateCalculation MUST reject a second calculation for the same
  (teacher, month) with ErrDuplicatePeriod, atomically. That is what turns a
  generate racing another session into a conflict instead of a duplicate.

NO DELETES:
  Calculations are created and then saved in place. There is no delete.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: in-memory for tests and demos
*/
package payroll

import (
	"context"
	"time"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// CalculationStore persists salary calculations.
type CalculationStore interface {
	// CreateCalculation inserts c. Returns generic.ErrDuplicatePeriod if one
	// already exists for (c.TeacherID, c.Period).
	CreateCalculation(ctx context.Context, c salary.Calculation) error

	// SaveCalculation overwrites an existing calculation (approve, reopen).
	SaveCalculation(ctx context.Context, c salary.Calculation) error

	// GetCalculation returns generic.ErrNotFound if the id doesn't exist for the teacher.
	GetCalculation(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID) (*salary.Calculation, error)

	// ListCalculations returns a teacher's calculations, newest period first.
	ListCalculations(ctx context.Context, teacherID generic.TeacherID) ([]salary.Calculation, error)
}

// RosterStore persists the data calculations are derived from.
type RosterStore interface {
	SaveTeacher(ctx context.Context, t Teacher) error
	GetTeacher(ctx context.Context, id generic.TeacherID) (*Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)

	SaveClass(ctx context.Context, c Class) error
	ClassesByTeacher(ctx context.Context, teacherID generic.TeacherID) ([]Class, error)

	SaveEnrollment(ctx context.Context, e Enrollment) error
	EnrollmentsByClass(ctx context.Context, classID generic.ClassID) ([]Enrollment, error)

	SaveAcademicYear(ctx context.Context, y AcademicYear) error
	GetAcademicYear(ctx context.Context, id generic.AcademicYearID) (*AcademicYear, error)

	SaveHoliday(ctx context.Context, h Holiday) error
	ListHolidays(ctx context.Context) ([]Holiday, error)
}

// RateStore persists rate cards.
type RateStore interface {
	SaveRateCard(ctx context.Context, rc RateCard) error
	GetRateCard(ctx context.Context, id generic.RateCardID) (*RateCard, error)
}

// =============================================================================
// AUDIT LOG - Separate from calculations, tracks who did what when
// =============================================================================

type AuditAction string

const (
	AuditGenerated AuditAction = "generated"
	AuditApproved  AuditAction = "approved"
	AuditReopened  AuditAction = "reopened"
)

// AuditEntry records one lifecycle event.
type AuditEntry struct {
	ID            string
	CalculationID generic.CalculationID
	TeacherID     generic.TeacherID
	Action        AuditAction
	FromStatus    salary.Status // empty for generated
	ToStatus      salary.Status
	Amount        string // approved amount for approvals, calculated amount for generation
	Reason        string
	At            time.Time
}

// AuditLog is append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	AuditTrail(ctx context.Context, id generic.CalculationID) ([]AuditEntry, error)
}

// Store is everything the engine needs.
type Store interface {
	CalculationStore
	RosterStore
	RateStore
	AuditLog
}
