/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. The client
  package decodes the same types, so server and client cannot drift.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Teacher:      TeacherDTO, CreateTeacherRequest
  Calculation:  CalculationDTO, PeriodRequest, ApproveRequest, ReopenRequest
  Preview:      PreviewDTO, ClassEstimateDTO
  Audit:        AuditEntryDTO
  Roster:       CreateClassRequest, CreateEnrollmentRequest,
                AcademicYearRequest, HolidayRequest
  Scenarios:    ScenarioDTO, LoadScenarioRequest

MONEY:
  Amounts are decimal.Decimal, encoded as JSON strings ("3812.50") and
  accepted as strings or numbers.

PERIODS:
  A period travels as its first and last day, YYYY-MM-DD.

VALIDATION:
  Request types carry validate tags checked with salary.Check, which yields
  the same field-level ValidationError the domain uses.

SEE ALSO:
  - handlers.go: Uses these types
  - client/client.go: Decodes these types
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
	"github.com/warp/salary-engine/salary"
)

// =============================================================================
// TEACHERS
// =============================================================================

// TeacherDTO represents a teacher in API responses.
type TeacherDTO struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	EmploymentType   string          `json:"employment_type"`
	BaseSalaryAmount decimal.Decimal `json:"base_salary_amount"`
	RateCardID       string          `json:"rate_card_id,omitempty"`
	CreatedAt        string          `json:"created_at,omitempty"`
}

// CreateTeacherRequest is the request to create or update a teacher.
type CreateTeacherRequest struct {
	ID               string          `json:"id"`
	Name             string          `json:"name" validate:"required"`
	EmploymentType   string          `json:"employment_type" validate:"required,oneof=full_time contract"`
	BaseSalaryAmount decimal.Decimal `json:"base_salary_amount"`
	RateCardID       string          `json:"rate_card_id"`
}

func toTeacherDTO(t payroll.Teacher) TeacherDTO {
	dto := TeacherDTO{
		ID:               string(t.ID),
		Name:             t.Name,
		EmploymentType:   string(t.EmploymentType),
		BaseSalaryAmount: t.BaseSalaryAmount,
		RateCardID:       string(t.RateCardID),
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// CalculationDTO represents a salary calculation in API responses.
type CalculationDTO struct {
	ID               string           `json:"id"`
	TeacherID        string           `json:"teacher_id"`
	PeriodStart      string           `json:"period_start"`
	PeriodEnd        string           `json:"period_end"`
	EmploymentType   string           `json:"employment_type"`
	BaseSalaryAmount decimal.Decimal  `json:"base_salary_amount"`
	CalculatedAmount decimal.Decimal  `json:"calculated_amount"`
	ApprovedAmount   *decimal.Decimal `json:"approved_amount"`
	ApprovedAt       *string          `json:"approved_at"`
	AdjustmentReason *string          `json:"adjustment_reason"`
	Status           string           `json:"status"`
	ReopenReason     *string          `json:"reopen_reason,omitempty"`
	ReopenedAt       *string          `json:"reopened_at,omitempty"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	AvailableActions []string         `json:"available_actions"`
}

// ToCalculationDTO converts a calculation for the wire.
func ToCalculationDTO(c salary.Calculation) CalculationDTO {
	start, end := c.Period.Bounds()
	dto := CalculationDTO{
		ID:               string(c.ID),
		TeacherID:        string(c.TeacherID),
		PeriodStart:      start,
		PeriodEnd:        end,
		EmploymentType:   string(c.EmploymentType),
		BaseSalaryAmount: c.BaseSalaryAmount,
		CalculatedAmount: c.CalculatedAmount,
		ApprovedAmount:   c.ApprovedAmount,
		ApprovedAt:       formatTimePtr(c.ApprovedAt),
		AdjustmentReason: c.AdjustmentReason,
		Status:           string(c.Status),
		ReopenReason:     c.ReopenReason,
		ReopenedAt:       formatTimePtr(c.ReopenedAt),
		CreatedAt:        c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.UTC().Format(time.RFC3339),
		AvailableActions: []string{},
	}
	for _, a := range c.AvailableActions() {
		dto.AvailableActions = append(dto.AvailableActions, string(a))
	}
	return dto
}

// ToCalculation converts a wire calculation back to the domain type.
func (dto CalculationDTO) ToCalculation() (salary.Calculation, error) {
	period, err := generic.PeriodKeyFromBounds(dto.PeriodStart, dto.PeriodEnd)
	if err != nil {
		return salary.Calculation{}, fmt.Errorf("calculation %s: %w", dto.ID, err)
	}
	c := salary.Calculation{
		ID:               generic.CalculationID(dto.ID),
		TeacherID:        generic.TeacherID(dto.TeacherID),
		Period:           period,
		EmploymentType:   salary.EmploymentType(dto.EmploymentType),
		BaseSalaryAmount: dto.BaseSalaryAmount,
		CalculatedAmount: dto.CalculatedAmount,
		ApprovedAmount:   dto.ApprovedAmount,
		AdjustmentReason: dto.AdjustmentReason,
		Status:           salary.Status(dto.Status),
		ReopenReason:     dto.ReopenReason,
	}
	if c.ApprovedAt, err = parseTimePtr(dto.ApprovedAt); err != nil {
		return c, err
	}
	if c.ReopenedAt, err = parseTimePtr(dto.ReopenedAt); err != nil {
		return c, err
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, dto.CreatedAt); err != nil {
		return c, fmt.Errorf("calculation %s: bad created_at: %w", dto.ID, err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, dto.UpdatedAt); err != nil {
		return c, fmt.Errorf("calculation %s: bad updated_at: %w", dto.ID, err)
	}
	return c, nil
}

// PeriodRequest names a month by its first and last day.
type PeriodRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

// NewPeriodRequest builds the request for a month.
func NewPeriodRequest(p generic.PeriodKey) PeriodRequest {
	start, end := p.Bounds()
	return PeriodRequest{PeriodStart: start, PeriodEnd: end}
}

// Period validates the bounds and returns the month they span.
func (r PeriodRequest) Period() (generic.PeriodKey, error) {
	if err := salary.Check(r); err != nil {
		return generic.PeriodKey{}, err
	}
	p, err := generic.PeriodKeyFromBounds(r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return generic.PeriodKey{}, generic.NewValidationError("period", err.Error())
	}
	return p, nil
}

// ApproveRequest is the body of the approve action.
type ApproveRequest struct {
	ApprovedAmount   *decimal.Decimal `json:"approved_amount"`
	AdjustmentReason *string          `json:"adjustment_reason,omitempty"`
}

// ReopenRequest is the body of the reopen action.
type ReopenRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// PREVIEW
// =============================================================================

// ClassEstimateDTO is one line of a preview breakdown.
type ClassEstimateDTO struct {
	ClassID                     string          `json:"class_id"`
	ClassName                   string          `json:"class_name"`
	ScheduledLessons            int             `json:"scheduled_lessons"`
	ActiveStudents              int             `json:"active_students"`
	RateApplied                 decimal.Decimal `json:"rate_applied"`
	RateTierDescription         string          `json:"rate_tier_description"`
	EstimatedAmount             decimal.Decimal `json:"estimated_amount"`
	HasPendingEnrollmentChanges bool            `json:"has_pending_enrollment_changes"`
	PendingEnrollments          int             `json:"pending_enrollments"`
	PendingWithdrawals          int             `json:"pending_withdrawals"`
}

// PreviewDTO represents a salary preview in API responses.
type PreviewDTO struct {
	TeacherID             string             `json:"teacher_id"`
	PeriodStart           string             `json:"period_start"`
	PeriodEnd             string             `json:"period_end"`
	EmploymentType        string             `json:"employment_type"`
	TotalEstimated        decimal.Decimal    `json:"total_estimated"`
	BaseSalaryAmount      decimal.Decimal    `json:"base_salary_amount"`
	ClassBreakdown        []ClassEstimateDTO `json:"class_breakdown"`
	Warnings              []string           `json:"warnings"`
	PendingChangeWarnings []string           `json:"pending_change_warnings"`
}

// ToPreviewDTO converts a preview for the wire.
func ToPreviewDTO(p salary.Preview) PreviewDTO {
	start, end := p.Period.Bounds()
	dto := PreviewDTO{
		TeacherID:             string(p.TeacherID),
		PeriodStart:           start,
		PeriodEnd:             end,
		EmploymentType:        string(p.EmploymentType),
		TotalEstimated:        p.TotalEstimated,
		BaseSalaryAmount:      p.BaseSalaryAmount,
		ClassBreakdown:        make([]ClassEstimateDTO, 0, len(p.ClassBreakdown)),
		Warnings:              nonNil(p.Warnings),
		PendingChangeWarnings: nonNil(p.PendingChangeWarnings),
	}
	for _, ce := range p.ClassBreakdown {
		dto.ClassBreakdown = append(dto.ClassBreakdown, ClassEstimateDTO{
			ClassID:                     string(ce.ClassID),
			ClassName:                   ce.ClassName,
			ScheduledLessons:            ce.ScheduledLessons,
			ActiveStudents:              ce.ActiveStudents,
			RateApplied:                 ce.RateApplied,
			RateTierDescription:         ce.RateTierDescription,
			EstimatedAmount:             ce.EstimatedAmount,
			HasPendingEnrollmentChanges: ce.HasPendingEnrollmentChanges,
			PendingEnrollments:          ce.PendingEnrollments,
			PendingWithdrawals:          ce.PendingWithdrawals,
		})
	}
	return dto
}

// ToPreview converts a wire preview back to the domain type.
func (dto PreviewDTO) ToPreview() (salary.Preview, error) {
	period, err := generic.PeriodKeyFromBounds(dto.PeriodStart, dto.PeriodEnd)
	if err != nil {
		return salary.Preview{}, fmt.Errorf("preview: %w", err)
	}
	p := salary.Preview{
		TeacherID:             generic.TeacherID(dto.TeacherID),
		Period:                period,
		EmploymentType:        salary.EmploymentType(dto.EmploymentType),
		TotalEstimated:        dto.TotalEstimated,
		BaseSalaryAmount:      dto.BaseSalaryAmount,
		Warnings:              dto.Warnings,
		PendingChangeWarnings: dto.PendingChangeWarnings,
	}
	for _, ce := range dto.ClassBreakdown {
		p.ClassBreakdown = append(p.ClassBreakdown, salary.ClassEstimate{
			ClassID:                     generic.ClassID(ce.ClassID),
			ClassName:                   ce.ClassName,
			ScheduledLessons:            ce.ScheduledLessons,
			ActiveStudents:              ce.ActiveStudents,
			RateApplied:                 ce.RateApplied,
			RateTierDescription:         ce.RateTierDescription,
			EstimatedAmount:             ce.EstimatedAmount,
			HasPendingEnrollmentChanges: ce.HasPendingEnrollmentChanges,
			PendingEnrollments:          ce.PendingEnrollments,
			PendingWithdrawals:          ce.PendingWithdrawals,
		})
	}
	return p, nil
}

// =============================================================================
// AUDIT
// =============================================================================

// AuditEntryDTO is one lifecycle event.
type AuditEntryDTO struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason,omitempty"`
	At         string `json:"at"`
}

func toAuditEntryDTO(e payroll.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Action:     string(e.Action),
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		Amount:     e.Amount,
		Reason:     e.Reason,
		At:         e.At.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// ROSTER
// =============================================================================

// CreateClassRequest is the request to create or update a class.
type CreateClassRequest struct {
	ID         string   `json:"id"`
	Name       string   `json:"name" validate:"required"`
	TeacherID  string   `json:"teacher_id" validate:"required"`
	LessonDays []string `json:"lesson_days" validate:"required,min=1,dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	StartDate  string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// CreateEnrollmentRequest is the request to create or update an enrollment.
type CreateEnrollmentRequest struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id" validate:"required"`
	ClassID       string `json:"class_id" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=active pending withdrawal_pending withdrawn"`
	EffectiveFrom string `json:"effective_from" validate:"required,datetime=2006-01-02"`
}

// AcademicYearRequest is the request to create or update an academic year.
type AcademicYearRequest struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// HolidayRequest is the request to create a holiday.
type HolidayRequest struct {
	ID        string `json:"id"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required"`
	Recurring bool   `json:"recurring"`
}

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) []time.Weekday {
	days := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		if d, ok := weekdays[strings.ToLower(n)]; ok {
			days = append(days, d)
		}
	}
	return days
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Code    string               `json:"code,omitempty"`
	Details any                  `json:"details,omitempty"`
	Fields  []generic.FieldError `json:"fields,omitempty"`
}

// Helpers

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
