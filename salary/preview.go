/*
preview.go - Non-committing salary projection

PURPOSE:
  A Preview estimates the salary for a month that has NOT been generated, so
  a reviewer can sanity-check before calling generate. It is display state
  only: never persisted, never reused for another (teacher, month).

TOTALS:
  TotalEstimated is the sum of the class estimates. For full-time teachers the
  grand total is BaseSalaryAmount + TotalEstimated, but the two are kept apart:
  the base is fixed, the estimate moves with enrollment.

WARNINGS:
  PendingChangeWarnings  classes whose pending enrollments/withdrawals could
                         change the real figure once generated. Advisory only;
                         the class keeps its best-effort estimate.
  Warnings               broader caveats (no rate config, nothing scheduled).

EMPTY SCHEDULE:
  With no classes the breakdown is empty and Display reports NothingScheduled
  instead of a zero total, so nobody reads it as a verified zero.
*/
package salary

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
)

// Warning texts produced here.
const (
	WarningNothingScheduled = "No classes are scheduled for this period"
)

// ClassEstimate is the collaborator's estimate for one class, rendered verbatim.
type ClassEstimate struct {
	ClassID                     generic.ClassID
	ClassName                   string
	ScheduledLessons            int
	ActiveStudents              int
	RateApplied                 decimal.Decimal
	RateTierDescription         string
	EstimatedAmount             decimal.Decimal
	HasPendingEnrollmentChanges bool
	PendingEnrollments          int
	PendingWithdrawals          int
}

// Preview is a projection for one teacher and month.
type Preview struct {
	TeacherID             generic.TeacherID
	Period                generic.PeriodKey
	EmploymentType        EmploymentType
	TotalEstimated        decimal.Decimal
	BaseSalaryAmount      decimal.Decimal
	ClassBreakdown        []ClassEstimate
	Warnings              []string
	PendingChangeWarnings []string
}

// PendingChangeWarning is the advisory text for a class with pending changes.
func PendingChangeWarning(ce ClassEstimate) string {
	return fmt.Sprintf("%s: %d pending enrollment(s) and %d pending withdrawal(s) may change the final amount",
		ce.ClassName, ce.PendingEnrollments, ce.PendingWithdrawals)
}

// Normalize recomputes TotalEstimated from the breakdown and fills in the
// warnings the breakdown implies. Collaborator-supplied Warnings are kept;
// PendingChangeWarnings are rebuilt from the breakdown, one per affected class.
func Normalize(p Preview) Preview {
	out := p
	out.ClassBreakdown = append([]ClassEstimate(nil), p.ClassBreakdown...)
	out.Warnings = append([]string(nil), p.Warnings...)
	out.PendingChangeWarnings = nil

	amounts := make([]decimal.Decimal, 0, len(out.ClassBreakdown))
	warned := make(map[generic.ClassID]bool)
	for i := range out.ClassBreakdown {
		ce := &out.ClassBreakdown[i]
		if ce.PendingEnrollments > 0 || ce.PendingWithdrawals > 0 {
			ce.HasPendingEnrollmentChanges = true
		}
		amounts = append(amounts, ce.EstimatedAmount)

		if !ce.HasPendingEnrollmentChanges {
			continue
		}
		if ce.ClassID != "" {
			if warned[ce.ClassID] {
				continue
			}
			warned[ce.ClassID] = true
		}
		out.PendingChangeWarnings = append(out.PendingChangeWarnings, PendingChangeWarning(*ce))
	}
	out.TotalEstimated = generic.SumDecimals(amounts...)

	if len(out.ClassBreakdown) == 0 && !contains(out.Warnings, WarningNothingScheduled) {
		out.Warnings = append(out.Warnings, WarningNothingScheduled)
	}
	if !out.EmploymentType.HasBaseSalary() && out.EmploymentType != "" {
		out.BaseSalaryAmount = decimal.Zero
	}
	return out
}

// =============================================================================
// DISPLAY
// =============================================================================

type PreviewState string

const (
	PreviewNothingScheduled PreviewState = "nothing_scheduled"
	PreviewEstimated        PreviewState = "estimated"
)

// PreviewDisplay is what a reviewer is shown.
type PreviewDisplay struct {
	State PreviewState

	BaseSalaryAmount decimal.Decimal
	VariableAmount   decimal.Decimal

	// Only meaningful when ShowGrandTotal is true (full-time with classes).
	GrandTotal     decimal.Decimal
	ShowGrandTotal bool

	Classes               []ClassEstimate
	Warnings              []string
	PendingChangeWarnings []string
}

// HasPendingChanges reports whether any class carries pending enrollment changes.
func (d PreviewDisplay) HasPendingChanges() bool {
	return len(d.PendingChangeWarnings) > 0
}

// Display derives the view for a preview.
func Display(p Preview) PreviewDisplay {
	p = Normalize(p)
	d := PreviewDisplay{
		BaseSalaryAmount:      p.BaseSalaryAmount,
		VariableAmount:        p.TotalEstimated,
		Classes:               p.ClassBreakdown,
		Warnings:              p.Warnings,
		PendingChangeWarnings: p.PendingChangeWarnings,
	}
	if len(p.ClassBreakdown) == 0 {
		d.State = PreviewNothingScheduled
		return d
	}
	d.State = PreviewEstimated
	if p.EmploymentType.HasBaseSalary() {
		d.GrandTotal = p.BaseSalaryAmount.Add(p.TotalEstimated)
		d.ShowGrandTotal = true
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
