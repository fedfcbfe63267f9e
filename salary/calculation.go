/*
Package salary holds the rule-governed core of teacher salary handling.

COMPONENTS:
  Calculation   one generated salary figure for (teacher, month)
  Lifecycle     generate -> approve -> reopen -> approve ... (lifecycle.go)
  Availability  which months may be generated next (availability.go)
  Preview       non-committing projection for a month not yet generated (preview.go)
  Collaborator  the remote computation/persistence boundary (collaborator.go)

STATE MACHINE:

	             generate
	                │
	                ▼
	          ┌──────────┐  approve   ┌──────────┐
	          │ pending  │──────────▶│ approved │
	          └──────────┘            └──────────┘
	                                   │      ▲
	                            reopen │      │ approve
	                                   ▼      │
	                                ┌──────────┐
	                                │ reopened │
	                                └──────────┘

  No state is terminal. Nothing is ever deleted.

SEE ALSO:
  - payroll/engine.go: server-side use of the same transitions
  - orchestrator/: UI-facing callers
*/
package salary

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
)

// =============================================================================
// ENUMS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusReopened Status = "reopened"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusReopened:
		return true
	}
	return false
}

type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentContract EmploymentType = "contract"
)

func (e EmploymentType) Valid() bool {
	return e == EmploymentFullTime || e == EmploymentContract
}

// HasBaseSalary reports whether a fixed monthly base is paid on top of class pay.
func (e EmploymentType) HasBaseSalary() bool {
	return e == EmploymentFullTime
}

// =============================================================================
// CALCULATION
// =============================================================================

// Calculation is one generated salary figure for a teacher and month.
//
// EmploymentType is a copy taken at generation time. A later change to the
// teacher's contract never alters how an old calculation is read.
type Calculation struct {
	ID        generic.CalculationID
	TeacherID generic.TeacherID
	Period    generic.PeriodKey

	EmploymentType   EmploymentType
	BaseSalaryAmount decimal.Decimal
	CalculatedAmount decimal.Decimal

	// Set on approval. Kept when reopened for the audit trail, but only
	// authoritative while Status is approved (see AuthoritativeAmount).
	ApprovedAmount   *decimal.Decimal
	ApprovedAt       *time.Time
	AdjustmentReason *string

	Status       Status
	ReopenReason *string
	ReopenedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthoritativeAmount returns the figure to pay out, if any.
func (c Calculation) AuthoritativeAmount() (decimal.Decimal, bool) {
	if c.Status != StatusApproved || c.ApprovedAmount == nil {
		return decimal.Zero, false
	}
	return *c.ApprovedAmount, true
}

// IsAdjusted reports whether the approved figure differs from the calculated one.
func (c Calculation) IsAdjusted() bool {
	return c.ApprovedAmount != nil && !c.ApprovedAmount.Equal(c.CalculatedAmount)
}

// VariableAmount is the enrollment-sensitive part of the calculated amount.
func (c Calculation) VariableAmount() decimal.Decimal {
	return c.CalculatedAmount.Sub(c.BaseSalaryAmount)
}

// Validate checks the record-level invariants.
func (c Calculation) Validate() error {
	if !c.Period.Valid() {
		return generic.NewValidationError("period", "month must be between 1 and 12")
	}
	if !c.Status.Valid() {
		return generic.NewValidationError("status", "unknown status "+string(c.Status))
	}
	if c.BaseSalaryAmount.IsNegative() {
		return generic.NewValidationError("base_salary_amount", "must be zero or positive")
	}
	if c.CalculatedAmount.IsNegative() {
		return generic.NewValidationError("calculated_amount", "must be zero or positive")
	}
	if c.EmploymentType == EmploymentContract && !c.BaseSalaryAmount.IsZero() {
		return generic.NewValidationError("base_salary_amount", "contract teachers have no base salary")
	}
	if c.Status == StatusApproved && c.ApprovedAmount == nil {
		return generic.NewValidationError("approved_amount", "approved calculation without approved amount")
	}
	if c.Status == StatusPending && c.ApprovedAmount != nil {
		return generic.NewValidationError("approved_amount", "pending calculation cannot carry an approved amount")
	}
	return nil
}

// =============================================================================
// ACTIONS - What the UI may offer for a calculation
// =============================================================================

type Action string

const (
	ActionApprove Action = "approve"
	ActionReopen  Action = "reopen"
)

// AvailableActions lists the transitions legal from the current status.
func (c Calculation) AvailableActions() []Action {
	switch c.Status {
	case StatusPending, StatusReopened:
		return []Action{ActionApprove}
	case StatusApproved:
		return []Action{ActionReopen}
	}
	return nil
}

// CanApprove reports whether approve is legal from the current status.
func (c Calculation) CanApprove() bool {
	return c.Status == StatusPending || c.Status == StatusReopened
}

// CanReopen reports whether reopen is legal from the current status.
func (c Calculation) CanReopen() bool {
	return c.Status == StatusApproved
}
