/*
Package orchestrator binds the salary components to user actions.

PURPOSE:
  The UI-facing layer: it decides when the collaborator may be called and what
  is shown afterwards. It never computes money itself.

KEY TYPES:
  CalculationStore  the displayed calculation set of one teacher (store.go)
  Session           mutations with the refetch discipline (session.go)
  GenerateDialog    period picker + preview + generate (dialogs.go)
  ApproveDialog     amount/reason form (dialogs.go)
  ReopenDialog      reason form (dialogs.go)
  PreviewLoader     latest-request-wins preview fetching (preview.go)
  Feedback          how an error is shown (feedback.go)

CONSISTENCY:
  Nothing is patched locally. After every successful mutation, and after every
  conflict, the whole set is refetched from the collaborator. A failed call
  leaves the displayed state exactly as it was.
*/
package orchestrator

import (
	"context"
	"sync"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// =============================================================================
// CALCULATION STORE
// =============================================================================

// CalculationStore holds one teacher's calculations as last fetched.
type CalculationStore struct {
	teacherID generic.TeacherID

	mu     sync.RWMutex
	calcs  []salary.Calculation
	loaded bool
}

// NewCalculationStore creates an empty store for a teacher.
func NewCalculationStore(teacherID generic.TeacherID) *CalculationStore {
	return &CalculationStore{teacherID: teacherID}
}

// TeacherID returns the owner of the set.
func (s *CalculationStore) TeacherID() generic.TeacherID { return s.teacherID }

// Refetch replaces the whole set with the collaborator's unfiltered list.
// On error the previous set is kept.
func (s *CalculationStore) Refetch(ctx context.Context, c salary.Collaborator) error {
	calcs, err := c.List(ctx, s.teacherID, salary.ListFilter{})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calcs = calcs
	s.loaded = true
	return nil
}

// Loaded reports whether at least one fetch succeeded.
func (s *CalculationStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// All returns a copy of the set in collaborator order (newest period first).
func (s *CalculationStore) All() []salary.Calculation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]salary.Calculation, len(s.calcs))
	copy(out, s.calcs)
	return out
}

// Get returns the calculation with id.
func (s *CalculationStore) Get(id generic.CalculationID) (salary.Calculation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.calcs {
		if c.ID == id {
			return c, true
		}
	}
	return salary.Calculation{}, false
}

// ByStatus returns the calculations in status.
func (s *CalculationStore) ByStatus(status salary.Status) []salary.Calculation {
	var out []salary.Calculation
	for _, c := range s.All() {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// Availability indexes the current set as of today.
func (s *CalculationStore) Availability(today generic.TimePoint) *salary.Availability {
	return salary.NewAvailability(s.All(), today)
}
