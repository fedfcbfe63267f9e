package salary

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
)

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	Status         Status
	AcademicYearID generic.AcademicYearID
}

// Collaborator is the computation/persistence boundary. It owns the money
// arithmetic and the authoritative state; callers only decide when to ask.
//
// Implementations send the period as first/last day strings (PeriodKey.Bounds).
// Errors are *generic.ValidationError, *generic.ConflictError (DUPLICATE_PERIOD,
// INVALID_STATE, NO_RATE_CONFIG), *generic.NotFoundError or *generic.NetworkError.
type Collaborator interface {
	Generate(ctx context.Context, teacherID generic.TeacherID, period generic.PeriodKey) (*Calculation, error)

	// Approve with a nil reason when the amount equals the calculated amount.
	Approve(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID, amount decimal.Decimal, reason *string) (*Calculation, error)

	Reopen(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID, reason string) (*Calculation, error)

	Preview(ctx context.Context, teacherID generic.TeacherID, period generic.PeriodKey) (*Preview, error)

	List(ctx context.Context, teacherID generic.TeacherID, filter ListFilter) ([]Calculation, error)
}
