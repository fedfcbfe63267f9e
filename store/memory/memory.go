// Package memory provides an in-memory payroll.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
	"github.com/warp/salary-engine/salary"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	calculations map[generic.CalculationID]salary.Calculation
	byPeriod     map[periodKey]generic.CalculationID
	teachers     map[generic.TeacherID]payroll.Teacher
	classes      map[generic.ClassID]payroll.Class
	enrollments  map[string]payroll.Enrollment
	years        map[generic.AcademicYearID]payroll.AcademicYear
	holidays     map[string]payroll.Holiday
	rateCards    map[generic.RateCardID]payroll.RateCard
	audit        []payroll.AuditEntry
}

type periodKey struct {
	TeacherID generic.TeacherID
	Period    generic.PeriodKey
}

var _ payroll.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		calculations: make(map[generic.CalculationID]salary.Calculation),
		byPeriod:     make(map[periodKey]generic.CalculationID),
		teachers:     make(map[generic.TeacherID]payroll.Teacher),
		classes:      make(map[generic.ClassID]payroll.Class),
		enrollments:  make(map[string]payroll.Enrollment),
		years:        make(map[generic.AcademicYearID]payroll.AcademicYear),
		holidays:     make(map[string]payroll.Holiday),
		rateCards:    make(map[generic.RateCardID]payroll.RateCard),
	}
}

// Ping always succeeds; there is nothing to reach.
func (m *Memory) Ping(_ context.Context) error { return nil }

// Reset drops all data.
func (m *Memory) Reset(_ context.Context) error {
	fresh := New()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculations = fresh.calculations
	m.byPeriod = fresh.byPeriod
	m.teachers = fresh.teachers
	m.classes = fresh.classes
	m.enrollments = fresh.enrollments
	m.years = fresh.years
	m.holidays = fresh.holidays
	m.rateCards = fresh.rateCards
	m.audit = nil
	return nil
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// CreateCalculation checks and inserts under one lock, so concurrent
// generates for the same month cannot both succeed.
func (m *Memory) CreateCalculation(_ context.Context, c salary.Calculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := periodKey{TeacherID: c.TeacherID, Period: c.Period}
	if _, exists := m.byPeriod[k]; exists {
		return generic.ErrDuplicatePeriod
	}
	m.calculations[c.ID] = c
	m.byPeriod[k] = c.ID
	return nil
}

func (m *Memory) SaveCalculation(_ context.Context, c salary.Calculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calculations[c.ID]; !ok {
		return &generic.NotFoundError{Resource: "calculation", ID: string(c.ID)}
	}
	m.calculations[c.ID] = c
	return nil
}

func (m *Memory) GetCalculation(_ context.Context, teacherID generic.TeacherID, id generic.CalculationID) (*salary.Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.calculations[id]
	if !ok || c.TeacherID != teacherID {
		return nil, &generic.NotFoundError{Resource: "calculation", ID: string(id)}
	}
	return &c, nil
}

func (m *Memory) ListCalculations(_ context.Context, teacherID generic.TeacherID) ([]salary.Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]salary.Calculation, 0)
	for _, c := range m.calculations {
		if c.TeacherID == teacherID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period.After(result[j].Period)
	})
	return result, nil
}

// =============================================================================
// ROSTER
// =============================================================================

func (m *Memory) SaveTeacher(_ context.Context, t payroll.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[t.ID] = t
	return nil
}

func (m *Memory) GetTeacher(_ context.Context, id generic.TeacherID) (*payroll.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teachers[id]
	if !ok {
		return nil, &generic.NotFoundError{Resource: "teacher", ID: string(id)}
	}
	return &t, nil
}

func (m *Memory) ListTeachers(_ context.Context) ([]payroll.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.Teacher, 0, len(m.teachers))
	for _, t := range m.teachers {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveClass(_ context.Context, c payroll.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[c.ID] = c
	return nil
}

func (m *Memory) ClassesByTeacher(_ context.Context, teacherID generic.TeacherID) ([]payroll.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.Class
	for _, c := range m.classes {
		if c.TeacherID == teacherID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveEnrollment(_ context.Context, e payroll.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[e.ID] = e
	return nil
}

func (m *Memory) EnrollmentsByClass(_ context.Context, classID generic.ClassID) ([]payroll.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.Enrollment
	for _, e := range m.enrollments {
		if e.ClassID == classID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveAcademicYear(_ context.Context, y payroll.AcademicYear) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.years[y.ID] = y
	return nil
}

func (m *Memory) GetAcademicYear(_ context.Context, id generic.AcademicYearID) (*payroll.AcademicYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	y, ok := m.years[id]
	if !ok {
		return nil, &generic.NotFoundError{Resource: "academic year", ID: string(id)}
	}
	return &y, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h payroll.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]payroll.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// RATE CARDS
// =============================================================================

func (m *Memory) SaveRateCard(_ context.Context, rc payroll.RateCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tiers := make([]payroll.RateTier, len(rc.Tiers))
	copy(tiers, rc.Tiers)
	rc.Tiers = tiers
	m.rateCards[rc.ID] = rc
	return nil
}

func (m *Memory) GetRateCard(_ context.Context, id generic.RateCardID) (*payroll.RateCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rc, ok := m.rateCards[id]
	if !ok {
		return nil, &generic.NotFoundError{Resource: "rate card", ID: string(id)}
	}
	return &rc, nil
}

// =============================================================================
// AUDIT
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, e payroll.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) AuditTrail(_ context.Context, id generic.CalculationID) ([]payroll.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.AuditEntry
	for _, e := range m.audit {
		if e.CalculationID == id {
			result = append(result, e)
		}
	}
	return result, nil
}
