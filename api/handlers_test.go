/*
handlers_test.go - HTTP tests for the salary API

Tests for:
- Generate / list round trip and the error taxonomy on the wire
- Approve and reopen guards
- Preview payload shape
- Roster input validation
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/salary-engine/factory"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/store/sqlite"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, nil)
	h.Engine.Now = func() time.Time { return testNow }
	return h
}

func do(t *testing.T, router *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// seedTeacher creates a full-time teacher with a Mon/Wed class of three
// students through the API. March 2025 has 9 such lessons.
func seedTeacher(t *testing.T, router *chi.Mux) {
	t.Helper()
	rec := do(t, router, "POST", "/api/rate-cards", factory.StandardRateCardJSON("standard", "Standard"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, "POST", "/api/teachers", CreateTeacherRequest{
		ID:               "alice",
		Name:             "Alice",
		EmploymentType:   "full_time",
		BaseSalaryAmount: generic.MustParseDecimal("3000"),
		RateCardID:       "standard",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, "POST", "/api/classes", CreateClassRequest{
		ID:         "piano",
		Name:       "Piano",
		TeacherID:  "alice",
		LessonDays: []string{"monday", "wednesday"},
		StartDate:  "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, id := range []string{"s1", "s2", "s3"} {
		rec = do(t, router, "POST", "/api/enrollments", CreateEnrollmentRequest{
			StudentID:     id,
			ClassID:       "piano",
			Status:        "active",
			EffectiveFrom: "2025-01-01",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

const calcPath = "/api/teachers/alice/salary-calculations"

var march = PeriodRequest{PeriodStart: "2025-03-01", PeriodEnd: "2025-03-31"}

func generate(t *testing.T, router *chi.Mux) CalculationDTO {
	t.Helper()
	rec := do(t, router, "POST", calcPath, march)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dto CalculationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	return dto
}

// =============================================================================
// GENERATE / LIST
// =============================================================================

func TestGenerate_ThenListShowsPending(t *testing.T) {
	// GIVEN: a teacher with one class
	router := NewRouter(setupTestHandler(t))
	seedTeacher(t, router)

	// WHEN: generating March
	created := generate(t, router)

	// THEN: it is pending with no approved amount, and listed
	assert.Equal(t, "pending", created.Status)
	assert.Nil(t, created.ApprovedAmount)
	assert.Equal(t, "3900", created.CalculatedAmount.String())
	assert.Equal(t, []string{"approve"}, created.AvailableActions)

	rec := do(t, router, "GET", calcPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"approved_amount":null`)

	var list []CalculationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	calc, err := list[0].ToCalculation()
	require.NoError(t, err)
	assert.Equal(t, generic.MustPeriodKey(2025, 3), calc.Period)
}

func TestGenerate_Errors(t *testing.T) {
	router := NewRouter(setupTestHandler(t))
	seedTeacher(t, router)
	generate(t, router)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
		field  string
	}{
		{"duplicate", calcPath, march, http.StatusConflict, generic.CodeDuplicatePeriod, ""},
		{"future", calcPath, PeriodRequest{PeriodStart: "2025-04-01", PeriodEnd: "2025-04-30"}, http.StatusBadRequest, generic.CodeValidation, "period"},
		{"partial month", calcPath, PeriodRequest{PeriodStart: "2025-02-01", PeriodEnd: "2025-02-27"}, http.StatusBadRequest, generic.CodeValidation, "period"},
		{"missing bounds", calcPath, PeriodRequest{}, http.StatusBadRequest, generic.CodeValidation, "period_start"},
		{"malformed body", calcPath, `{"period_start":`, http.StatusBadRequest, generic.CodeValidation, ""},
		{"unknown teacher", "/api/teachers/nobody/salary-calculations", march, http.StatusNotFound, generic.CodeNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, "POST", tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			if tt.field != "" {
				require.NotEmpty(t, resp.Fields)
				assert.Equal(t, tt.field, resp.Fields[0].Field)
			}
		})
	}
}

func TestGenerate_NoRateConfig(t *testing.T) {
	router := NewRouter(setupTestHandler(t))
	rec := do(t, router, "POST", "/api/teachers", CreateTeacherRequest{
		ID: "bob", Name: "Bob", EmploymentType: "contract",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, "POST", "/api/teachers/bob/salary-calculations", march)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, generic.CodeNoRateConfig, decodeError(t, rec).Code)
}

func TestList_StatusFilter(t *testing.T) {
	router := NewRouter(setupTestHandler(t))
	seedTeacher(t, router)
	generate(t, router)

	rec := do(t, router, "GET", calcPath+"?status=approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, router, "GET", calcPath+"?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// APPROVE / REOPEN
// =============================================================================

func TestApprove_Guards(t *testing.T) {
	router := NewRouter(setupTestHandler(t))
	seedTeacher(t, router)
	calc := generate(t, router)
	approvePath := calcPath + "/" + calc.ID + "/approve"

	t.Run("adjusted amount without reason", func(t *testing.T) {
		rec := do(t, router, "POST", approvePath, `{"approved_amount": "4000"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		require.Len(t, resp.Fields, 1)
		assert.Equal(t, "adjustment_reason", resp.Fields[0].Field)
	})

	t.Run("missing amount", func(t *testing.T) {
		rec := do(t, router, "POST", approvePath, `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "approved_amount", decodeError(t, rec).Fields[0].Field)
	})

	t.Run("negative amount", func(t *testing.T) {
		rec := do(t, router, "POST", approvePath, `{"approved_amount": -1, "adjustment_reason": "Negative on purpose"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("equal amount ignores reason", func(t *testing.T) {
		rec := do(t, router, "POST", approvePath, `{"approved_amount": 3900, "adjustment_reason": "short"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var dto CalculationDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
		assert.Equal(t, "approved", dto.Status)
		assert.Nil(t, dto.AdjustmentReason)
		require.NotNil(t, dto.ApprovedAt)
		assert.Equal(t, []string{"reopen"}, dto.AvailableActions)
	})

	t.Run("approve twice", func(t *testing.T) {
		rec := do(t, router, "POST", approvePath, `{"approved_amount": "3900"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, generic.CodeInvalidState, decodeError(t, rec).Code)
	})

	t.Run("unknown calculation", func(t *testing.T) {
		rec := do(t, router, "POST", calcPath+"/nope/approve", `{"approved_amount": "3900"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReopen_ThenReapproveWithAdjustment(t *testing.T) {
	router := NewRouter(setupTestHandler(t))
	seedTeacher(t, router)
	calc := generate(t, router)
	base := calcPath + "/" + calc.ID

	rec := do(t, router, "POST", base+"/reopen", ReopenRequest{Reason: "Attendance sheet corrected"})
	require.Equal(t, http.StatusConflict, rec.Code, "pending cannot be reopened")

	rec = do(t, router, "POST", base+"/approve", `{"approved_amount": "3900"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, "POST", base+"/reopen", ReopenRequest{Reason: "too short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason", decodeError(t, rec).Fields[0].Field)

	rec = do(t, router, "POST", base+"/reopen", ReopenRequest{Reason: strings.Repeat("x", 501)})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, "POST", base+"/reopen", ReopenRequest{Reason: "Attendance sheet corrected"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reopened CalculationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reopened))
	assert.Equal(t, "reopened", reopened.Status)
	require.NotNil(t, reopened.ApprovedAmount, "kept for audit")

	rec = do(t, router, "POST", base+"/approve", `{"approved_amount": "3700", "adjustment_reason": "Two lessons were cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, "GET", base+"/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trail []AuditEntryDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trail))
	require.Len(t, trail, 4)
	assert.Equal(t, []string{"generated", "approved", "reopened", "approved"},
		[]string{trail[0].Action, trail[1].Action, trail[2].Action, trail[3].Action})
	assert.Equal(t, "Two lessons were cancelled", trail[3].Reason)
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestPreview_Payload(t *testing.T) {
	router := NewRouter(setupTestHandler(t))
	seedTeacher(t, router)

	rec := do(t, router, "POST", "/api/enrollments", CreateEnrollmentRequest{
		StudentID: "s4", ClassID: "piano", Status: "pending", EffectiveFrom: "2025-04-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, "POST", calcPath+"/preview", march)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto PreviewDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "2025-03-01", dto.PeriodStart)
	assert.Equal(t, "900", dto.TotalEstimated.String())
	assert.Equal(t, "3000", dto.BaseSalaryAmount.String())
	require.Len(t, dto.ClassBreakdown, 1)
	assert.Equal(t, 9, dto.ClassBreakdown[0].ScheduledLessons)
	assert.True(t, dto.ClassBreakdown[0].HasPendingEnrollmentChanges)
	assert.Len(t, dto.PendingChangeWarnings, 1)

	preview, err := dto.ToPreview()
	require.NoError(t, err)
	assert.Equal(t, generic.MustPeriodKey(2025, 3), preview.Period)

	// Preview does not create anything.
	rec = do(t, router, "GET", calcPath, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// =============================================================================
// ROSTER
// =============================================================================

func TestCreateClass_Validation(t *testing.T) {
	router := NewRouter(setupTestHandler(t))
	seedTeacher(t, router)

	rec := do(t, router, "POST", "/api/classes", CreateClassRequest{
		Name: "Drums", TeacherID: "alice", LessonDays: []string{"funday"}, StartDate: "2025-01-01",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, generic.CodeValidation, decodeError(t, rec).Code)

	rec = do(t, router, "POST", "/api/classes", CreateClassRequest{
		Name: "Drums", TeacherID: "ghost", LessonDays: []string{"friday"}, StartDate: "2025-01-01",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, "POST", "/api/classes", CreateClassRequest{
		Name: "Drums", TeacherID: "alice", LessonDays: []string{"friday"},
		StartDate: "2025-02-01", EndDate: "2025-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRateCard_Invalid(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	rec := do(t, router, "POST", "/api/rate-cards", `{"id":"x","tiers":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, "GET", "/api/rate-cards/x", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTeacher_ContractHasNoBase(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	rec := do(t, router, "POST", "/api/teachers", `{"name":"Bob","employment_type":"contract","base_salary_amount":"1200"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var dto TeacherDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.NotEmpty(t, dto.ID)
	assert.True(t, dto.BaseSalaryAmount.IsZero())

	rec = do(t, router, "POST", "/api/teachers", `{"name":"Eve","employment_type":"intern"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "employment_type", decodeError(t, rec).Fields[0].Field)
}

func TestHealth(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h)

	rec := do(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NoError(t, h.Store.(*sqlite.Store).Close())
	rec = do(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Store unavailable", decodeError(t, rec).Error)
}
