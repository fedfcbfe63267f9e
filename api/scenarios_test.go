/*
scenarios_test.go - Tests for demo scenario loading

Tests for:
- Loading each scenario through the API
- Generated history and computed amounts of the music-school scenario
- Error cases of the no-rate-card and empty-schedule scenarios
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

func TestListScenarios(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	rec := do(t, router, "GET", "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "music-school", list[0].ID)
}

func TestLoadScenario_MusicSchool(t *testing.T) {
	// GIVEN: today is 2025-03-15
	h := setupTestHandler(t)
	router := NewRouter(h)

	// WHEN: loading the music school
	rec := do(t, router, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "music-school"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Alice has January approved and February pending
	rec = do(t, router, "GET", "/api/teachers/alice/salary-calculations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []CalculationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	assert.Equal(t, "2025-02-01", list[0].PeriodStart)
	assert.Equal(t, "pending", list[0].Status)
	// Piano 8 lessons x 100 + Choir 4 Fridays x 160 (13 students) + base 3000
	assert.Equal(t, "4440", list[0].CalculatedAmount.String())

	assert.Equal(t, "2025-01-01", list[1].PeriodStart)
	assert.Equal(t, "approved", list[1].Status)
	// New Year's Day falls on a Wednesday and is skipped.
	assert.Equal(t, "4600", list[1].CalculatedAmount.String())
	require.NotNil(t, list[1].ApprovedAmount)

	// AND: both fall in the 2024/2025 academic year
	rec = do(t, router, "GET", "/api/teachers/alice/salary-calculations?academic_year_id=ay-2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	// AND: the current scenario is reported
	rec = do(t, router, "GET", "/api/scenarios/current", nil)
	var current ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, "music-school", current.ID)

	// AND: March can still be generated, February cannot
	rec = do(t, router, "POST", "/api/teachers/alice/salary-calculations", NewPeriodRequest(generic.MustPeriodKey(2025, 2)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(t, router, "POST", "/api/teachers/alice/salary-calculations", NewPeriodRequest(generic.MustPeriodKey(2025, 3)))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestLoadScenario_ContractTeacherPreview(t *testing.T) {
	h := setupTestHandler(t)
	require.NoError(t, h.Load(context.Background(), "music-school"))

	preview, err := h.Engine.Preview(context.Background(), "bob", generic.MustPeriodKey(2025, 2))
	require.NoError(t, err)

	// Tue/Thu in February 2025: 8 lessons at the flat 95.00.
	require.Len(t, preview.ClassBreakdown, 1)
	assert.Equal(t, 8, preview.ClassBreakdown[0].ScheduledLessons)
	assert.Equal(t, "760", preview.TotalEstimated.String())
	assert.True(t, preview.BaseSalaryAmount.IsZero())

	display := salary.Display(*preview)
	assert.Equal(t, salary.PreviewEstimated, display.State)
}

func TestLoadScenario_NoRateCard(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	rec := do(t, router, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "no-rate-card"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, "POST", "/api/teachers/carol/salary-calculations", NewPeriodRequest(generic.MustPeriodKey(2025, 2)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, generic.CodeNoRateConfig, decodeError(t, rec).Code)

	// Preview still answers, with zero amounts and a warning.
	rec = do(t, router, "POST", "/api/teachers/carol/salary-calculations/preview", NewPeriodRequest(generic.MustPeriodKey(2025, 2)))
	require.Equal(t, http.StatusOK, rec.Code)
	var dto PreviewDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.True(t, dto.TotalEstimated.IsZero())
	assert.NotEmpty(t, dto.Warnings)
}

func TestLoadScenario_EmptySchedule(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	rec := do(t, router, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "empty-schedule"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, "POST", "/api/teachers/dan/salary-calculations/preview", NewPeriodRequest(generic.MustPeriodKey(2025, 3)))
	require.Equal(t, http.StatusOK, rec.Code)
	var dto PreviewDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Empty(t, dto.ClassBreakdown)
	assert.Contains(t, dto.Warnings, salary.WarningNothingScheduled)
}

func TestLoadScenario_Unknown(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	rec := do(t, router, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "scenario_id", decodeError(t, rec).Fields[0].Field)
}

func TestResetDatabase(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h)
	require.NoError(t, h.Load(context.Background(), "music-school"))

	rec := do(t, router, "POST", "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, "GET", "/api/teachers", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
	rec = do(t, router, "GET", "/api/scenarios/current", nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}
