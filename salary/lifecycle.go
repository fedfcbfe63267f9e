/*
lifecycle.go - Guarded transitions of a salary calculation

PURPOSE:
  Each transition takes a Calculation value and returns the next value or an
  error. Illegal transitions are an expected, user-facing outcome, so they are
  returned as *generic.ConflictError (INVALID_STATE), never panics.

GUARDS:
  generate  amounts >= 0; contract teachers carry no base salary
  approve   from pending|reopened; amount finite and >= 0;
            reason (>= 10 chars) required only when amount != calculated;
            reason dropped when amount == calculated
  reopen    from approved; reason required, 10..500 chars;
            approved amount/time kept for audit

SEE ALSO:
  - validation.go: field rules shared with the dialogs
  - payroll/engine.go: applies these against stored records
*/
package salary

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
)

// GenerateParams are the outputs of the external computation plus identity.
type GenerateParams struct {
	ID               generic.CalculationID
	TeacherID        generic.TeacherID
	Period           generic.PeriodKey
	EmploymentType   EmploymentType
	BaseSalaryAmount decimal.Decimal
	CalculatedAmount decimal.Decimal
	At               time.Time
}

// Generate creates a pending calculation.
func Generate(p GenerateParams) (Calculation, error) {
	if !p.EmploymentType.Valid() {
		return Calculation{}, generic.NewValidationError("employment_type", "must be full_time or contract")
	}
	base := p.BaseSalaryAmount
	if !p.EmploymentType.HasBaseSalary() {
		base = decimal.Zero
	}
	c := Calculation{
		ID:               p.ID,
		TeacherID:        p.TeacherID,
		Period:           p.Period,
		EmploymentType:   p.EmploymentType,
		BaseSalaryAmount: base,
		CalculatedAmount: p.CalculatedAmount,
		Status:           StatusPending,
		CreatedAt:        p.At,
		UpdatedAt:        p.At,
	}
	if err := c.Validate(); err != nil {
		return Calculation{}, err
	}
	return c, nil
}

// Approve commits amount as the payout figure.
func (c Calculation) Approve(amount decimal.Decimal, reason string, at time.Time) (Calculation, error) {
	if !c.CanApprove() {
		return c, generic.NewConflict(generic.CodeInvalidState,
			"cannot approve calculation %s in status %s", c.ID, c.Status)
	}

	in, err := ValidateApproval(c.CalculatedAmount, ApprovalInput{Amount: amount, Reason: reason})
	if err != nil {
		return c, err
	}

	next := c
	approved := in.Amount
	next.ApprovedAmount = &approved
	next.ApprovedAt = &at
	next.AdjustmentReason = nil
	if in.Reason != "" {
		r := in.Reason
		next.AdjustmentReason = &r
	}
	next.Status = StatusApproved
	next.UpdatedAt = at
	return next, nil
}

// Reopen makes an approved calculation revisable again.
func (c Calculation) Reopen(reason string, at time.Time) (Calculation, error) {
	if !c.CanReopen() {
		return c, generic.NewConflict(generic.CodeInvalidState,
			"cannot reopen calculation %s in status %s", c.ID, c.Status)
	}

	cleaned, err := ValidateReopen(reason)
	if err != nil {
		return c, err
	}

	next := c
	next.Status = StatusReopened
	next.ReopenReason = &cleaned
	next.ReopenedAt = &at
	next.UpdatedAt = at
	return next, nil
}
