/*
engine.go - Authoritative generate / approve / reopen / preview / list

PURPOSE:
  Engine is the server side of the salary lifecycle. It re-checks every rule
  the orchestration layer checks (a client can be stale or wrong), computes
  amounts, persists, and writes the audit trail.

REJECTIONS:
  generate  future month             -> ValidationError(period)
            month already generated  -> ConflictError DUPLICATE_PERIOD
            no usable rate card      -> ConflictError NO_RATE_CONFIG
  approve   not pending/reopened     -> ConflictError INVALID_STATE
  reopen    not approved             -> ConflictError INVALID_STATE
  any       unknown teacher/calc     -> NotFoundError

CONCURRENCY:
  Two sessions generating the same month race on the store's uniqueness
  constraint; the loser gets DUPLICATE_PERIOD. Approve/reopen are
  last-write-wins.

EXAMPLE:
  engine := payroll.NewEngine(store)
  calc, err := engine.Generate(ctx, "teacher-1", generic.MustPeriodKey(2025, 3))
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// Engine implements salary.Collaborator over a Store.
type Engine struct {
	Store  Store
	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

var _ salary.Collaborator = (*Engine)(nil)

// NewEngine creates an engine with the real clock and random UUIDs.
func NewEngine(store Store) *Engine {
	return &Engine{
		Store:  store,
		Now:    time.Now,
		NewID:  uuid.NewString,
		Logger: slog.Default(),
	}
}

func (e *Engine) today() generic.TimePoint {
	return generic.DateOf(e.Now())
}

func (e *Engine) teacher(ctx context.Context, id generic.TeacherID) (*Teacher, error) {
	t, err := e.Store.GetTeacher(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// =============================================================================
// GENERATE
// =============================================================================

// Generate computes and stores a pending calculation for the month.
func (e *Engine) Generate(ctx context.Context, teacherID generic.TeacherID, period generic.PeriodKey) (*salary.Calculation, error) {
	if !period.Valid() {
		return nil, generic.NewValidationError("period", "month must be between 1 and 12")
	}
	if period.IsFuture(e.today()) {
		return nil, generic.NewValidationError("period", period.String()+" is in the future")
	}

	teacher, err := e.teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	existing, err := e.Store.ListCalculations(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	for _, c := range existing {
		if c.Period.Equal(period) {
			return nil, generic.NewConflict(generic.CodeDuplicatePeriod,
				"a calculation for %s already exists (%s)", period, c.ID)
		}
	}

	est, err := e.estimate(ctx, *teacher, period)
	if err != nil {
		return nil, err
	}
	if !est.HasRates {
		return nil, generic.NewConflict(generic.CodeNoRateConfig,
			"teacher %s has no rate card", teacherID)
	}
	if est.Uncovered > 0 {
		return nil, generic.NewConflict(generic.CodeNoRateConfig,
			"%d class(es) have no matching rate tier for %s", est.Uncovered, period)
	}

	calc, err := salary.Generate(salary.GenerateParams{
		ID:               generic.CalculationID(e.NewID()),
		TeacherID:        teacherID,
		Period:           period,
		EmploymentType:   teacher.EmploymentType,
		BaseSalaryAmount: est.Base,
		CalculatedAmount: est.Total(),
		At:               e.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := e.Store.CreateCalculation(ctx, calc); err != nil {
		if errors.Is(err, generic.ErrDuplicatePeriod) {
			// Lost a race with another session between the check and the insert.
			return nil, generic.NewConflict(generic.CodeDuplicatePeriod,
				"a calculation for %s was generated concurrently", period)
		}
		return nil, fmt.Errorf("failed to store calculation: %w", err)
	}

	e.audit(ctx, calc, AuditGenerated, "", calc.CalculatedAmount, "")
	e.Logger.Info("salary calculation generated",
		"teacher_id", teacherID,
		"calculation_id", calc.ID,
		"period", period.String(),
		"calculated_amount", calc.CalculatedAmount.String())

	return &calc, nil
}

// =============================================================================
// APPROVE / REOPEN
// =============================================================================

// Approve commits an amount for a pending or reopened calculation.
func (e *Engine) Approve(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID, amount decimal.Decimal, reason *string) (*salary.Calculation, error) {
	calc, err := e.Store.GetCalculation(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}

	r := ""
	if reason != nil {
		r = *reason
	}
	from := calc.Status
	next, err := calc.Approve(amount, r, e.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := e.Store.SaveCalculation(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save approval: %w", err)
	}

	note := ""
	if next.AdjustmentReason != nil {
		note = *next.AdjustmentReason
	}
	e.audit(ctx, next, AuditApproved, from, *next.ApprovedAmount, note)
	e.Logger.Info("salary calculation approved",
		"teacher_id", teacherID,
		"calculation_id", id,
		"approved_amount", next.ApprovedAmount.String(),
		"adjusted", next.IsAdjusted())

	return &next, nil
}

// Reopen returns an approved calculation to a revisable state.
func (e *Engine) Reopen(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID, reason string) (*salary.Calculation, error) {
	calc, err := e.Store.GetCalculation(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}

	next, err := calc.Reopen(reason, e.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := e.Store.SaveCalculation(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save reopen: %w", err)
	}

	amount := decimal.Zero
	if next.ApprovedAmount != nil {
		amount = *next.ApprovedAmount
	}
	e.audit(ctx, next, AuditReopened, salary.StatusApproved, amount, *next.ReopenReason)
	e.Logger.Info("salary calculation reopened",
		"teacher_id", teacherID,
		"calculation_id", id)

	return &next, nil
}

// =============================================================================
// PREVIEW / LIST
// =============================================================================

// Preview estimates a month without storing anything.
func (e *Engine) Preview(ctx context.Context, teacherID generic.TeacherID, period generic.PeriodKey) (*salary.Preview, error) {
	if !period.Valid() {
		return nil, generic.NewValidationError("period", "month must be between 1 and 12")
	}
	teacher, err := e.teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	est, err := e.estimate(ctx, *teacher, period)
	if err != nil {
		return nil, err
	}

	p := salary.Normalize(salary.Preview{
		TeacherID:        teacherID,
		Period:           period,
		EmploymentType:   teacher.EmploymentType,
		BaseSalaryAmount: est.Base,
		ClassBreakdown:   est.Classes,
		Warnings:         est.Warnings,
	})
	return &p, nil
}

// List returns a teacher's calculations, newest period first.
func (e *Engine) List(ctx context.Context, teacherID generic.TeacherID, filter salary.ListFilter) ([]salary.Calculation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, generic.NewValidationError("status", "unknown status "+string(filter.Status))
	}
	if _, err := e.teacher(ctx, teacherID); err != nil {
		return nil, err
	}

	var year *AcademicYear
	if filter.AcademicYearID != "" {
		y, err := e.Store.GetAcademicYear(ctx, filter.AcademicYearID)
		if err != nil {
			return nil, err
		}
		year = y
	}

	all, err := e.Store.ListCalculations(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}

	out := make([]salary.Calculation, 0, len(all))
	for _, c := range all {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if year != nil && !year.Covers(c.Period) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// AuditTrail returns the lifecycle events of a calculation, oldest first.
func (e *Engine) AuditTrail(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID) ([]AuditEntry, error) {
	if _, err := e.Store.GetCalculation(ctx, teacherID, id); err != nil {
		return nil, err
	}
	return e.Store.AuditTrail(ctx, id)
}

// audit records an event. A failed audit write is logged, not returned: the
// calculation itself is already stored.
func (e *Engine) audit(ctx context.Context, c salary.Calculation, action AuditAction, from salary.Status, amount decimal.Decimal, reason string) {
	entry := AuditEntry{
		ID:            e.NewID(),
		CalculationID: c.ID,
		TeacherID:     c.TeacherID,
		Action:        action,
		FromStatus:    from,
		ToStatus:      c.Status,
		Amount:        amount.String(),
		Reason:        reason,
		At:            c.UpdatedAt,
	}
	if err := e.Store.AppendAudit(ctx, entry); err != nil {
		e.Logger.Error("failed to append audit entry",
			"calculation_id", c.ID,
			"action", action,
			"error", err)
	}
}
