/*
handlers.go - HTTP API handlers for the salary lifecycle

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Teachers:
    GET    /api/teachers                         List teachers
    POST   /api/teachers                         Create or update teacher
    GET    /api/teachers/{id}                    Get teacher

  Salary calculations:
    GET    /api/teachers/{id}/salary-calculations               List (?status=&academic_year_id=)
    POST   /api/teachers/{id}/salary-calculations               Generate {period_start, period_end}
    POST   /api/teachers/{id}/salary-calculations/preview       Preview  {period_start, period_end}
    POST   /api/teachers/{id}/salary-calculations/{calcId}/approve
    POST   /api/teachers/{id}/salary-calculations/{calcId}/reopen
    GET    /api/teachers/{id}/salary-calculations/{calcId}/audit

  Roster and configuration:
    POST   /api/classes, /api/enrollments, /api/rate-cards, /api/academic-years
    GET    /api/rate-cards/{id}
    GET    /api/holidays, POST /api/holidays

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Clear all data

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: authoritative lifecycle operations
  - Store: roster and configuration writes
  - RateCards: JSON to RateCard conversion

ERROR HANDLING:
  Errors are returned as JSON {"error","code","details","fields"}:
  - 400 VALIDATION:        invalid input, "fields" names the offending inputs
  - 404 NOT_FOUND:         unknown teacher, calculation, rate card
  - 409 DUPLICATE_PERIOD:  month already generated
  - 409 INVALID_STATE:     transition not allowed from the current status
  - 422 NO_RATE_CONFIG:    nothing to compute the amount with
  - 500 INTERNAL:          everything else (logged)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/salary-engine/factory"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
	"github.com/warp/salary-engine/salary"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the API needs from persistence: the engine's store plus a
// reset for demo scenarios.
type Store interface {
	payroll.Store
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *payroll.Engine
	Store     Store
	RateCards *factory.RateCardFactory
	Logger    *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	engine := payroll.NewEngine(store)
	engine.Logger = logger
	return &Handler{
		Engine:    engine,
		Store:     store,
		RateCards: factory.NewRateCardFactory(),
		Logger:    logger,
	}
}

// Health reports whether the store answers.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

// ListTeachers returns all teachers.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.Store.ListTeachers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}

	dtos := make([]TeacherDTO, len(teachers))
	for i, t := range teachers {
		dtos[i] = toTeacherDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTeacher creates or updates a teacher.
func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req CreateTeacherRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := salary.Check(req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if req.BaseSalaryAmount.IsNegative() {
		h.writeDomainError(w, r, generic.NewValidationError("base_salary_amount", "base_salary_amount must be zero or positive"))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	teacher := payroll.Teacher{
		ID:               generic.TeacherID(req.ID),
		Name:             req.Name,
		EmploymentType:   salary.EmploymentType(req.EmploymentType),
		BaseSalaryAmount: req.BaseSalaryAmount,
		RateCardID:       generic.RateCardID(req.RateCardID),
		CreatedAt:        time.Now().UTC(),
	}
	if !teacher.EmploymentType.HasBaseSalary() {
		teacher.BaseSalaryAmount = generic.MustParseDecimal("0")
	}
	if err := h.Store.SaveTeacher(r.Context(), teacher); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save teacher", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeacherDTO(teacher))
}

// GetTeacher returns one teacher.
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	teacher, err := h.Store.GetTeacher(r.Context(), generic.TeacherID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeacherDTO(*teacher))
}

// =============================================================================
// SALARY CALCULATION HANDLERS
// =============================================================================

// ListCalculations returns a teacher's calculations, newest period first.
// GET /api/teachers/{id}/salary-calculations?status=&academic_year_id=
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	teacherID := generic.TeacherID(chi.URLParam(r, "id"))
	filter := salary.ListFilter{
		Status:         salary.Status(r.URL.Query().Get("status")),
		AcademicYearID: generic.AcademicYearID(r.URL.Query().Get("academic_year_id")),
	}

	calcs, err := h.Engine.List(r.Context(), teacherID, filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]CalculationDTO, len(calcs))
	for i, c := range calcs {
		dtos[i] = ToCalculationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateCalculation creates a pending calculation for a month.
// POST /api/teachers/{id}/salary-calculations
func (h *Handler) GenerateCalculation(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, err := req.Period()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	calc, err := h.Engine.Generate(r.Context(), generic.TeacherID(chi.URLParam(r, "id")), period)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToCalculationDTO(*calc))
}

// PreviewCalculation estimates a month without storing anything.
// POST /api/teachers/{id}/salary-calculations/preview
func (h *Handler) PreviewCalculation(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, err := req.Period()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	preview, err := h.Engine.Preview(r.Context(), generic.TeacherID(chi.URLParam(r, "id")), period)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToPreviewDTO(*preview))
}

// ApproveCalculation commits an approved amount.
// POST /api/teachers/{id}/salary-calculations/{calcId}/approve
func (h *Handler) ApproveCalculation(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ApprovedAmount == nil {
		h.writeDomainError(w, r, generic.NewValidationError("approved_amount", "approved_amount is a required field"))
		return
	}

	calc, err := h.Engine.Approve(r.Context(),
		generic.TeacherID(chi.URLParam(r, "id")),
		generic.CalculationID(chi.URLParam(r, "calcId")),
		*req.ApprovedAmount,
		req.AdjustmentReason,
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToCalculationDTO(*calc))
}

// ReopenCalculation returns an approved calculation to review.
// POST /api/teachers/{id}/salary-calculations/{calcId}/reopen
func (h *Handler) ReopenCalculation(w http.ResponseWriter, r *http.Request) {
	var req ReopenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	calc, err := h.Engine.Reopen(r.Context(),
		generic.TeacherID(chi.URLParam(r, "id")),
		generic.CalculationID(chi.URLParam(r, "calcId")),
		req.Reason,
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToCalculationDTO(*calc))
}

// GetAuditTrail returns the lifecycle events of a calculation.
// GET /api/teachers/{id}/salary-calculations/{calcId}/audit
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.AuditTrail(r.Context(),
		generic.TeacherID(chi.URLParam(r, "id")),
		generic.CalculationID(chi.URLParam(r, "calcId")),
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// CreateClass creates or updates a class.
func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := salary.Check(req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	start, _ := generic.ParseDate(req.StartDate)
	class := payroll.Class{
		ID:         generic.ClassID(req.ID),
		Name:       req.Name,
		TeacherID:  generic.TeacherID(req.TeacherID),
		LessonDays: parseWeekdays(req.LessonDays),
		StartDate:  start,
		CreatedAt:  time.Now().UTC(),
	}
	if req.EndDate != "" {
		end, _ := generic.ParseDate(req.EndDate)
		if end.Before(start) {
			h.writeDomainError(w, r, generic.NewValidationError("end_date", "end_date must not be before start_date"))
			return
		}
		class.EndDate = &end
	}
	if class.ID == "" {
		class.ID = generic.ClassID(uuid.NewString())
	}

	if _, err := h.Store.GetTeacher(r.Context(), class.TeacherID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.Store.SaveClass(r.Context(), class); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save class", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(class.ID)})
}

// CreateEnrollment creates or updates an enrollment.
func (h *Handler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	var req CreateEnrollmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := salary.Check(req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	from, _ := generic.ParseDate(req.EffectiveFrom)
	e := payroll.Enrollment{
		ID:            req.ID,
		StudentID:     req.StudentID,
		ClassID:       generic.ClassID(req.ClassID),
		Status:        payroll.EnrollmentStatus(req.Status),
		EffectiveFrom: from,
		CreatedAt:     time.Now().UTC(),
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := h.Store.SaveEnrollment(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save enrollment", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": e.ID})
}

// CreateRateCard stores a rate card from its JSON definition.
func (h *Handler) CreateRateCard(w http.ResponseWriter, r *http.Request) {
	var rj factory.RateCardJSON
	if !decodeJSON(w, r, &rj) {
		return
	}
	card, err := h.RateCards.FromJSON(rj)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.Store.SaveRateCard(r.Context(), *card); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate card", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.RateCards.ToJSON(*card))
}

// GetRateCard returns a rate card in its JSON definition form.
func (h *Handler) GetRateCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.Store.GetRateCard(r.Context(), generic.RateCardID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.RateCards.ToJSON(*card))
}

// CreateAcademicYear creates or updates an academic year.
func (h *Handler) CreateAcademicYear(w http.ResponseWriter, r *http.Request) {
	var req AcademicYearRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := salary.Check(req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	start, _ := generic.ParseDate(req.StartDate)
	end, _ := generic.ParseDate(req.EndDate)
	if end.Before(start) {
		h.writeDomainError(w, r, generic.NewValidationError("end_date", "end_date must not be before start_date"))
		return
	}
	year := payroll.AcademicYear{
		ID:        generic.AcademicYearID(req.ID),
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
	}
	if err := h.Store.SaveAcademicYear(r.Context(), year); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save academic year", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns all holidays.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{
			ID:        hol.ID,
			Date:      hol.Date.String(),
			Name:      hol.Name,
			Recurring: hol.Recurring,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday creates a new holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := salary.Check(req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	date, _ := generic.ParseDate(req.Date)
	holiday := payroll.Holiday{
		ID:        req.ID,
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:        holiday.ID,
		Date:      holiday.Date.String(),
		Name:      holiday.Name,
		Recurring: holiday.Recurring,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    generic.CodeValidation,
			Details: err.Error(),
		})
		return false
	}
	return true
}

// writeDomainError maps the error taxonomy onto HTTP.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch generic.KindOf(err) {
	case generic.KindValidation:
		resp := ErrorResponse{Error: "Validation failed", Code: generic.CodeValidation}
		var ve *generic.ValidationError
		if errors.As(err, &ve) {
			resp.Fields = ve.Fields
		} else {
			resp.Details = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, resp)

	case generic.KindConflict:
		code := ConflictCode(err)
		status := http.StatusConflict
		if code == generic.CodeNoRateConfig {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})

	case generic.KindNotFound:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: generic.CodeNotFound})

	default:
		h.Logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal error",
			Code:    generic.CodeInternal,
			Details: err.Error(),
		})
	}
}

// ConflictCode returns the machine-readable code of a conflict error.
func ConflictCode(err error) string {
	var ce *generic.ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	switch {
	case errors.Is(err, generic.ErrDuplicatePeriod):
		return generic.CodeDuplicatePeriod
	case errors.Is(err, generic.ErrInvalidState):
		return generic.CodeInvalidState
	case errors.Is(err, generic.ErrNoRateConfig):
		return generic.CodeNoRateConfig
	}
	return ""
}
