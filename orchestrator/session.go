package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// ErrRequestInFlight is returned when a mutation is started while another one
// for the same calculation (or another generate) has not returned yet.
var ErrRequestInFlight = errors.New("a request is already in progress")

const generateKey = "generate"

// =============================================================================
// SESSION
// =============================================================================

// Session is one reviewer working on one teacher's calculations.
type Session struct {
	Collaborator salary.Collaborator
	Calculations *CalculationStore
	Now          func() time.Time
	Logger       *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewSession creates a session for teacherID. Call Load before use.
func NewSession(c salary.Collaborator, teacherID generic.TeacherID) *Session {
	return &Session{
		Collaborator: c,
		Calculations: NewCalculationStore(teacherID),
		Now:          time.Now,
		Logger:       slog.Default(),
		inFlight:     make(map[string]bool),
	}
}

// TeacherID returns the teacher the session works on.
func (s *Session) TeacherID() generic.TeacherID { return s.Calculations.TeacherID() }

// Today is the reviewer's local date.
func (s *Session) Today() generic.TimePoint { return generic.DateOf(s.Now()) }

// Load fetches the calculation set.
func (s *Session) Load(ctx context.Context) error {
	return s.Calculations.Refetch(ctx, s.Collaborator)
}

// Availability answers period questions against the current set.
func (s *Session) Availability() *salary.Availability {
	return s.Calculations.Availability(s.Today())
}

// List fetches a filtered view. It does not touch the store, which always
// holds the unfiltered set availability is computed from.
func (s *Session) List(ctx context.Context, filter salary.ListFilter) ([]salary.Calculation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, generic.NewValidationError("status", "unknown status "+string(filter.Status))
	}
	return s.Collaborator.List(ctx, s.TeacherID(), filter)
}

// Busy reports whether a mutation on the calculation is in flight.
func (s *Session) Busy(id generic.CalculationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[string(id)]
}

// Generating reports whether a generate is in flight.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[generateKey]
}

func (s *Session) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		return ErrRequestInFlight
	}
	s.inFlight[key] = true
	return nil
}

func (s *Session) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Generate creates the calculation for period after checking locally that the
// period is selectable.
func (s *Session) Generate(ctx context.Context, period generic.PeriodKey) (*salary.Calculation, error) {
	if err := s.Availability().CheckSelectable(period); err != nil {
		return nil, err
	}
	if err := s.begin(generateKey); err != nil {
		return nil, err
	}
	defer s.end(generateKey)

	calc, err := s.Collaborator.Generate(ctx, s.TeacherID(), period)
	s.settle(ctx, "generate", err)
	if err != nil {
		return nil, err
	}
	return calc, nil
}

// Approve validates amount and reason locally, then approves. The reason is
// only sent when the amount differs from the calculated one.
func (s *Session) Approve(ctx context.Context, id generic.CalculationID, amount decimal.Decimal, reason string) (*salary.Calculation, error) {
	calc, ok := s.Calculations.Get(id)
	if !ok {
		return nil, &generic.NotFoundError{Resource: "calculation", ID: string(id)}
	}
	in, err := salary.ValidateApproval(calc.CalculatedAmount, salary.ApprovalInput{Amount: amount, Reason: reason})
	if err != nil {
		return nil, err
	}
	var sent *string
	if in.Reason != "" {
		sent = &in.Reason
	}

	if err := s.begin(string(id)); err != nil {
		return nil, err
	}
	defer s.end(string(id))

	next, err := s.Collaborator.Approve(ctx, s.TeacherID(), id, in.Amount, sent)
	s.settle(ctx, "approve", err)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Reopen validates the reason locally, then reopens.
func (s *Session) Reopen(ctx context.Context, id generic.CalculationID, reason string) (*salary.Calculation, error) {
	if _, ok := s.Calculations.Get(id); !ok {
		return nil, &generic.NotFoundError{Resource: "calculation", ID: string(id)}
	}
	cleaned, err := salary.ValidateReopen(reason)
	if err != nil {
		return nil, err
	}

	if err := s.begin(string(id)); err != nil {
		return nil, err
	}
	defer s.end(string(id))

	next, err := s.Collaborator.Reopen(ctx, s.TeacherID(), id, cleaned)
	s.settle(ctx, "reopen", err)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// settle refetches after a success or a conflict. A failed refetch is logged;
// the mutation result still stands.
func (s *Session) settle(ctx context.Context, op string, err error) {
	if err != nil && generic.KindOf(err) != generic.KindConflict {
		return
	}
	if rerr := s.Calculations.Refetch(ctx, s.Collaborator); rerr != nil {
		s.Logger.Warn("failed to refetch calculations",
			"op", op,
			"teacher_id", s.TeacherID(),
			"error", rerr)
	}
}
