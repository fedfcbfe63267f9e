/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos and manual testing. Each scenario creates rate cards,
	teachers, classes and enrollments, and some generate and approve a few
	past months through the engine so the audit trail is real.

AVAILABLE SCENARIOS:

	music-school:    full-time and contract teachers, pending enrollment
	                 changes, one approved and one pending month
	no-rate-card:    a teacher without rate configuration (NO_RATE_CONFIG)
	empty-schedule:  a teacher with no classes (nothing scheduled)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create rate cards via factory
 3. Create teachers, classes, enrollments
 4. Optionally generate/approve months relative to today

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "music-school"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler type
  - factory/ratecard.go: Rate card JSON presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/factory"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
	"github.com/warp/salary-engine/salary"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "music-school",
		Name:        "Music School",
		Description: "Full-time and contract teachers, pending enrollment changes, one approved and one pending month",
	},
	{
		ID:          "no-rate-card",
		Name:        "Missing Rate Card",
		Description: "Teacher without rate configuration; generating is refused with NO_RATE_CONFIG",
	},
	{
		ID:          "empty-schedule",
		Name:        "Empty Schedule",
		Description: "Full-time teacher with no classes; preview shows nothing scheduled",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := salary.Check(req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if err := h.Load(r.Context(), req.ScenarioID); err != nil {
		if generic.IsClientError(err) {
			h.writeDomainError(w, r, err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Load resets the store and loads a scenario by ID.
func (h *Handler) Load(ctx context.Context, id string) error {
	var loader func(context.Context) error
	switch id {
	case "music-school":
		loader = h.loadMusicSchoolScenario
	case "no-rate-card":
		loader = h.loadNoRateCardScenario
	case "empty-schedule":
		loader = h.loadEmptyScheduleScenario
	default:
		return generic.NewValidationError("scenario_id", "unknown scenario "+id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	if err := loader(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", "scenario", id)
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadMusicSchoolScenario(ctx context.Context) error {
	if err := h.createRateCard(ctx, factory.StandardRateCardJSON("standard", "Standard group rates")); err != nil {
		return err
	}
	if err := h.createRateCard(ctx, factory.FlatRateCardJSON("contract-flat", "Contract flat rate", "95.00")); err != nil {
		return err
	}

	today := generic.DateOf(h.Engine.Now())
	current := generic.PeriodKeyFor(today)
	since := current.Previous().Previous().Previous().Start()

	// Academic year running September to August around today.
	ayStart := today.Year()
	if today.Month() < time.September {
		ayStart--
	}
	year := payroll.AcademicYear{
		ID:        generic.AcademicYearID(fmt.Sprintf("ay-%d", ayStart)),
		Name:      fmt.Sprintf("%d/%d", ayStart, ayStart+1),
		StartDate: generic.NewTimePoint(ayStart, time.September, 1),
		EndDate:   generic.NewTimePoint(ayStart+1, time.August, 31),
	}
	if err := h.Store.SaveAcademicYear(ctx, year); err != nil {
		return err
	}
	if err := h.Store.SaveHoliday(ctx, payroll.Holiday{
		ID:        "new-year",
		Date:      generic.NewTimePoint(2000, time.January, 1),
		Name:      "New Year's Day",
		Recurring: true,
	}); err != nil {
		return err
	}

	teachers := []payroll.Teacher{
		{
			ID:               "alice",
			Name:             "Alice Johnson",
			EmploymentType:   salary.EmploymentFullTime,
			BaseSalaryAmount: decimal.RequireFromString("3000.00"),
			RateCardID:       "standard",
		},
		{
			ID:             "bob",
			Name:           "Bob Martinez",
			EmploymentType: salary.EmploymentContract,
			RateCardID:     "contract-flat",
		},
	}
	for _, t := range teachers {
		t.CreatedAt = time.Now().UTC()
		if err := h.Store.SaveTeacher(ctx, t); err != nil {
			return err
		}
	}

	classes := []struct {
		class   payroll.Class
		active  int
		pending int
		leaving int
	}{
		{
			class: payroll.Class{
				ID: "piano-beginners", Name: "Piano Beginners", TeacherID: "alice",
				LessonDays: []time.Weekday{time.Monday, time.Wednesday},
			},
			active: 4,
		},
		{
			class: payroll.Class{
				ID: "junior-choir", Name: "Junior Choir", TeacherID: "alice",
				LessonDays: []time.Weekday{time.Friday},
			},
			active: 12, pending: 1, leaving: 1,
		},
		{
			class: payroll.Class{
				ID: "guitar-intermediate", Name: "Guitar Intermediate", TeacherID: "bob",
				LessonDays: []time.Weekday{time.Tuesday, time.Thursday},
			},
			active: 3,
		},
	}
	for _, c := range classes {
		c.class.StartDate = since
		if err := h.Store.SaveClass(ctx, c.class); err != nil {
			return err
		}
		if err := h.enroll(ctx, c.class.ID, c.active, c.pending, c.leaving, since, current.Next().Start()); err != nil {
			return err
		}
	}

	// History for Alice: two months ago approved, last month pending.
	older, err := h.Engine.Generate(ctx, "alice", current.Previous().Previous())
	if err != nil {
		return fmt.Errorf("failed to generate history: %w", err)
	}
	if _, err := h.Engine.Approve(ctx, "alice", older.ID, older.CalculatedAmount, nil); err != nil {
		return fmt.Errorf("failed to approve history: %w", err)
	}
	if _, err := h.Engine.Generate(ctx, "alice", current.Previous()); err != nil {
		return fmt.Errorf("failed to generate history: %w", err)
	}
	return nil
}

func (h *Handler) loadNoRateCardScenario(ctx context.Context) error {
	since := generic.PeriodKeyFor(generic.DateOf(h.Engine.Now())).Previous().Previous().Start()

	if err := h.Store.SaveTeacher(ctx, payroll.Teacher{
		ID:               "carol",
		Name:             "Carol Smith",
		EmploymentType:   salary.EmploymentFullTime,
		BaseSalaryAmount: decimal.RequireFromString("2800.00"),
		CreatedAt:        time.Now().UTC(),
	}); err != nil {
		return err
	}
	class := payroll.Class{
		ID: "violin", Name: "Violin", TeacherID: "carol",
		LessonDays: []time.Weekday{time.Tuesday},
		StartDate:  since,
	}
	if err := h.Store.SaveClass(ctx, class); err != nil {
		return err
	}
	return h.enroll(ctx, class.ID, 5, 0, 0, since, since)
}

func (h *Handler) loadEmptyScheduleScenario(ctx context.Context) error {
	if err := h.createRateCard(ctx, factory.StandardRateCardJSON("standard", "Standard group rates")); err != nil {
		return err
	}
	return h.Store.SaveTeacher(ctx, payroll.Teacher{
		ID:               "dan",
		Name:             "Dan Lee",
		EmploymentType:   salary.EmploymentFullTime,
		BaseSalaryAmount: decimal.RequireFromString("2500.00"),
		RateCardID:       "standard",
		CreatedAt:        time.Now().UTC(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createRateCard(ctx context.Context, jsonStr string) error {
	card, err := h.RateCards.ParseRateCard(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SaveRateCard(ctx, *card)
}

// enroll adds active students from since, plus pending joiners effective
// from joinDate and active students with a pending withdrawal.
func (h *Handler) enroll(ctx context.Context, classID generic.ClassID, active, pending, leaving int, since, joinDate generic.TimePoint) error {
	n := 0
	add := func(status payroll.EnrollmentStatus, from generic.TimePoint) error {
		n++
		return h.Store.SaveEnrollment(ctx, payroll.Enrollment{
			ID:            fmt.Sprintf("%s-e%02d", classID, n),
			StudentID:     fmt.Sprintf("%s-s%02d", classID, n),
			ClassID:       classID,
			Status:        status,
			EffectiveFrom: from,
			CreatedAt:     time.Now().UTC(),
		})
	}
	for i := 0; i < active-leaving; i++ {
		if err := add(payroll.EnrollmentActive, since); err != nil {
			return err
		}
	}
	for i := 0; i < leaving; i++ {
		if err := add(payroll.EnrollmentWithdrawalPending, since); err != nil {
			return err
		}
	}
	for i := 0; i < pending; i++ {
		if err := add(payroll.EnrollmentPending, joinDate); err != nil {
			return err
		}
	}
	return nil
}
