/*
dialogs.go - Generate / Approve / Reopen dialogs

PURPOSE:
  Hold the form state of each action and gate what the user can do:

  GenerateDialog  opens on the default period, re-selects on year change,
                  refuses period changes while submitting (ErrBusy), loads
                  the preview of the selected period
  ApproveDialog   prefilled with the calculated amount; the reason field is
                  only required once the amount is changed
  ReopenDialog    reason only

  Validation errors are returned before any call is made. A dialog is Done
  after a successful submit; on failure it stays open with its input intact.
*/
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

var (
	// ErrBusy is returned when the selection changes while a submit is in flight.
	ErrBusy = errors.New("cannot change the period while a request is in progress")

	// ErrNotActionable is returned when a dialog is opened for a calculation
	// whose displayed status does not allow the action. Nothing is sent.
	ErrNotActionable = errors.New("action not available for this calculation")
)

// =============================================================================
// GENERATE
// =============================================================================

// GenerateDialog picks a period and generates it.
type GenerateDialog struct {
	session  *Session
	previews *PreviewLoader

	mu         sync.Mutex
	selected   generic.PeriodKey
	submitting bool
	done       bool
}

// OpenGenerateDialog opens the dialog on the default selection.
func (s *Session) OpenGenerateDialog() *GenerateDialog {
	return &GenerateDialog{
		session:  s,
		previews: NewPreviewLoader(s.Collaborator, s.TeacherID()),
		selected: s.Availability().DefaultSelection(),
	}
}

// Selected is the chosen period.
func (d *GenerateDialog) Selected() generic.PeriodKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Done reports whether the dialog generated its period.
func (d *GenerateDialog) Done() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Submitting reports whether a generate is in flight.
func (d *GenerateDialog) Submitting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitting
}

// Exhausted reports whether nothing can be generated in the selected year.
func (d *GenerateDialog) Exhausted() bool {
	return d.session.Availability().IsYearExhausted(d.Selected().Year)
}

// Months describes the months of the selected year for a picker.
func (d *GenerateDialog) Months() []salary.MonthOption {
	return d.session.Availability().MonthOptions(d.Selected().Year)
}

// Years lists the years offered in the picker.
func (d *GenerateDialog) Years(back int) []int {
	return d.session.Availability().SelectableYears(back)
}

// SetYear switches year, keeping the month only if it is still selectable.
func (d *GenerateDialog) SetYear(year int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitting {
		return ErrBusy
	}
	next := d.session.Availability().Reselect(year, int(d.selected.Month))
	if !next.Equal(d.selected) {
		d.previews.Clear()
	}
	d.selected = next
	return nil
}

// SetMonth switches month within the selected year.
func (d *GenerateDialog) SetMonth(month int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitting {
		return ErrBusy
	}
	next, err := generic.NewPeriodKey(d.selected.Year, month)
	if err != nil {
		return generic.NewValidationError("period", "month must be between 1 and 12")
	}
	if !next.Equal(d.selected) {
		d.previews.Clear()
	}
	d.selected = next
	return nil
}

// LoadPreview fetches the preview of the selected period. The request is
// registered under the dialog lock, so a later SetYear/SetMonth always
// supersedes it.
func (d *GenerateDialog) LoadPreview(ctx context.Context) (*salary.PreviewDisplay, error) {
	d.mu.Lock()
	req := d.previews.start(ctx, d.selected)
	d.mu.Unlock()
	return d.previews.fetch(req)
}

// Preview returns the preview currently displayed.
func (d *GenerateDialog) Preview() (*salary.Preview, bool) {
	return d.previews.Current()
}

// Submit generates the selected period.
func (d *GenerateDialog) Submit(ctx context.Context) (*salary.Calculation, error) {
	d.mu.Lock()
	if d.submitting {
		d.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	period := d.selected
	if err := d.session.Availability().CheckSelectable(period); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.submitting = true
	d.mu.Unlock()

	calc, err := d.session.Generate(ctx, period)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitting = false
	if err != nil {
		if generic.KindOf(err) == generic.KindConflict {
			// The set was refetched; move off a period that is now taken.
			d.selected = d.session.Availability().Reselect(period.Year, int(period.Month))
		}
		return nil, err
	}
	d.done = true
	d.previews.Clear()
	return calc, nil
}

// =============================================================================
// APPROVE
// =============================================================================

// ApproveDialog approves one calculation.
type ApproveDialog struct {
	session *Session
	calc    salary.Calculation

	// Amount is the typed amount, prefilled with the calculated amount.
	Amount string
	Reason string

	done bool
}

// OpenApproveDialog opens the dialog for a calculation that can be approved.
func (s *Session) OpenApproveDialog(id generic.CalculationID) (*ApproveDialog, error) {
	calc, ok := s.Calculations.Get(id)
	if !ok {
		return nil, &generic.NotFoundError{Resource: "calculation", ID: string(id)}
	}
	if !calc.CanApprove() {
		return nil, fmt.Errorf("%w: calculation %s is %s and cannot be approved", ErrNotActionable, id, calc.Status)
	}
	return &ApproveDialog{
		session: s,
		calc:    calc,
		Amount:  calc.CalculatedAmount.StringFixed(2),
	}, nil
}

// Calculation is the record being approved, as fetched.
func (d *ApproveDialog) Calculation() salary.Calculation { return d.calc }

// ReasonRequired reports whether the typed amount needs a justification.
func (d *ApproveDialog) ReasonRequired() bool {
	amount, err := salary.ParseAmount(d.Amount)
	if err != nil {
		return false
	}
	return salary.RequiresAdjustmentReason(d.calc.CalculatedAmount, amount)
}

// Done reports whether the approval went through.
func (d *ApproveDialog) Done() bool { return d.done }

// Submit validates and approves.
func (d *ApproveDialog) Submit(ctx context.Context) (*salary.Calculation, error) {
	amount, err := salary.ParseAmount(d.Amount)
	if err != nil {
		return nil, err
	}
	calc, err := d.session.Approve(ctx, d.calc.ID, amount, d.Reason)
	if err != nil {
		return nil, err
	}
	d.done = true
	return calc, nil
}

// =============================================================================
// REOPEN
// =============================================================================

// ReopenDialog reopens one approved calculation.
type ReopenDialog struct {
	session *Session
	calc    salary.Calculation

	Reason string

	done bool
}

// OpenReopenDialog opens the dialog for an approved calculation.
func (s *Session) OpenReopenDialog(id generic.CalculationID) (*ReopenDialog, error) {
	calc, ok := s.Calculations.Get(id)
	if !ok {
		return nil, &generic.NotFoundError{Resource: "calculation", ID: string(id)}
	}
	if !calc.CanReopen() {
		return nil, fmt.Errorf("%w: calculation %s is %s and cannot be reopened", ErrNotActionable, id, calc.Status)
	}
	return &ReopenDialog{session: s, calc: calc}, nil
}

// Calculation is the record being reopened, as fetched.
func (d *ReopenDialog) Calculation() salary.Calculation { return d.calc }

// Done reports whether the reopen went through.
func (d *ReopenDialog) Done() bool { return d.done }

// Submit validates and reopens.
func (d *ReopenDialog) Submit(ctx context.Context) (*salary.Calculation, error) {
	calc, err := d.session.Reopen(ctx, d.calc.ID, d.Reason)
	if err != nil {
		return nil, err
	}
	d.done = true
	return calc, nil
}
