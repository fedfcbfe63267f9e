package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/salary-engine/factory"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
	"github.com/warp/salary-engine/salary"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "salary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func pending(t *testing.T, id string, period generic.PeriodKey) salary.Calculation {
	t.Helper()
	c, err := salary.Generate(salary.GenerateParams{
		ID:               generic.CalculationID(id),
		TeacherID:        "alice",
		Period:           period,
		EmploymentType:   salary.EmploymentFullTime,
		BaseSalaryAmount: decimal.RequireFromString("3000"),
		CalculatedAmount: decimal.RequireFromString("3812.50"),
		At:               time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return c
}

func TestCalculation_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := pending(t, "c1", generic.MustPeriodKey(2025, 3))
	require.NoError(t, store.CreateCalculation(ctx, c))

	got, err := store.GetCalculation(ctx, "alice", "c1")
	require.NoError(t, err)
	assert.Equal(t, c.Period, got.Period)
	assert.Equal(t, salary.StatusPending, got.Status)
	assert.True(t, got.CalculatedAmount.Equal(c.CalculatedAmount))
	assert.Nil(t, got.ApprovedAmount)
	assert.Nil(t, got.AdjustmentReason)
	assert.True(t, got.CreatedAt.Equal(c.CreatedAt))

	approved, err := got.Approve(decimal.RequireFromString("3700"), "Two lessons were cancelled", c.CreatedAt.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.SaveCalculation(ctx, approved))

	got, err = store.GetCalculation(ctx, "alice", "c1")
	require.NoError(t, err)
	assert.Equal(t, salary.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedAmount)
	assert.Equal(t, "3700", got.ApprovedAmount.String())
	require.NotNil(t, got.AdjustmentReason)
	assert.Equal(t, "Two lessons were cancelled", *got.AdjustmentReason)
	require.NotNil(t, got.ApprovedAt)

	reopened, err := got.Reopen("Attendance sheet was corrected", c.CreatedAt.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.SaveCalculation(ctx, reopened))

	got, err = store.GetCalculation(ctx, "alice", "c1")
	require.NoError(t, err)
	assert.Equal(t, salary.StatusReopened, got.Status)
	require.NotNil(t, got.ReopenReason)
	require.NotNil(t, got.ApprovedAmount, "approval kept for audit")
}

func TestCreateCalculation_DuplicatePeriod(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCalculation(ctx, pending(t, "c1", generic.MustPeriodKey(2025, 3))))

	err := store.CreateCalculation(ctx, pending(t, "c2", generic.MustPeriodKey(2025, 3)))
	assert.ErrorIs(t, err, generic.ErrDuplicatePeriod)

	require.NoError(t, store.CreateCalculation(ctx, pending(t, "c3", generic.MustPeriodKey(2025, 2))))
}

func TestCalculation_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCalculation(ctx, pending(t, "c1", generic.MustPeriodKey(2025, 3))))

	_, err := store.GetCalculation(ctx, "bob", "c1")
	assert.True(t, generic.IsNotFound(err))

	ghost := pending(t, "ghost", generic.MustPeriodKey(2025, 1))
	assert.True(t, generic.IsNotFound(store.SaveCalculation(ctx, ghost)))
}

func TestListCalculations_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, p := range []generic.PeriodKey{
		generic.MustPeriodKey(2024, 12),
		generic.MustPeriodKey(2025, 2),
		generic.MustPeriodKey(2025, 1),
	} {
		require.NoError(t, store.CreateCalculation(ctx, pending(t, string(rune('a'+i)), p)))
	}

	list, err := store.ListCalculations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2025-02", list[0].Period.String())
	assert.Equal(t, "2025-01", list[1].Period.String())
	assert.Equal(t, "2024-12", list[2].Period.String())

	empty, err := store.ListCalculations(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRoster_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card, err := factory.NewRateCardFactory().ParseRateCard(factory.StandardRateCardJSON("standard", "Standard"))
	require.NoError(t, err)
	require.NoError(t, store.SaveRateCard(ctx, *card))

	gotCard, err := store.GetRateCard(ctx, "standard")
	require.NoError(t, err)
	require.Len(t, gotCard.Tiers, 3)
	assert.Equal(t, 0, gotCard.Tiers[2].MaxStudents)
	assert.True(t, gotCard.Tiers[1].RatePerLesson.Equal(decimal.NewFromInt(130)))

	_, err = store.GetRateCard(ctx, "missing")
	assert.True(t, generic.IsNotFound(err))

	require.NoError(t, store.SaveTeacher(ctx, payroll.Teacher{
		ID:               "alice",
		Name:             "Alice",
		EmploymentType:   salary.EmploymentContract,
		BaseSalaryAmount: decimal.Zero,
		RateCardID:       "standard",
	}))
	teacher, err := store.GetTeacher(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, salary.EmploymentContract, teacher.EmploymentType)
	assert.Equal(t, generic.RateCardID("standard"), teacher.RateCardID)

	end := generic.NewTimePoint(2025, time.June, 30)
	require.NoError(t, store.SaveClass(ctx, payroll.Class{
		ID:         "piano-a",
		Name:       "Piano A",
		TeacherID:  "alice",
		LessonDays: []time.Weekday{time.Monday, time.Thursday},
		StartDate:  generic.NewTimePoint(2025, time.January, 6),
		EndDate:    &end,
	}))
	classes, err := store.ClassesByTeacher(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, []time.Weekday{time.Monday, time.Thursday}, classes[0].LessonDays)
	require.NotNil(t, classes[0].EndDate)
	assert.True(t, classes[0].EndDate.Equal(end))

	require.NoError(t, store.SaveEnrollment(ctx, payroll.Enrollment{
		ID:            "e1",
		StudentID:     "s1",
		ClassID:       "piano-a",
		Status:        payroll.EnrollmentWithdrawalPending,
		EffectiveFrom: generic.NewTimePoint(2025, time.January, 6),
	}))
	enrollments, err := store.EnrollmentsByClass(ctx, "piano-a")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, payroll.EnrollmentWithdrawalPending, enrollments[0].Status)

	require.NoError(t, store.SaveHoliday(ctx, payroll.Holiday{
		ID: "new-year", Date: generic.NewTimePoint(2025, time.January, 1), Name: "New Year", Recurring: true,
	}))
	holidays, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.True(t, holidays[0].Recurring)

	require.NoError(t, store.SaveAcademicYear(ctx, payroll.AcademicYear{
		ID:        "ay",
		Name:      "2024/25",
		StartDate: generic.NewTimePoint(2024, time.September, 1),
		EndDate:   generic.NewTimePoint(2025, time.August, 31),
	}))
	year, err := store.GetAcademicYear(ctx, "ay")
	require.NoError(t, err)
	assert.True(t, year.Covers(generic.MustPeriodKey(2025, 3)))
}

func TestAuditTrail_Ordered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendAudit(ctx, payroll.AuditEntry{
		ID: "a1", CalculationID: "c1", TeacherID: "alice",
		Action: payroll.AuditGenerated, ToStatus: salary.StatusPending, Amount: "3800", At: at,
	}))
	require.NoError(t, store.AppendAudit(ctx, payroll.AuditEntry{
		ID: "a2", CalculationID: "c1", TeacherID: "alice",
		Action: payroll.AuditApproved, FromStatus: salary.StatusPending, ToStatus: salary.StatusApproved,
		Amount: "3700", Reason: "Two lessons were cancelled", At: at.Add(time.Minute),
	}))

	trail, err := store.AuditTrail(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, payroll.AuditGenerated, trail[0].Action)
	assert.Equal(t, salary.Status(""), trail[0].FromStatus)
	assert.Equal(t, "Two lessons were cancelled", trail[1].Reason)
}

func TestEngineOverSQLite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card, err := factory.NewRateCardFactory().ParseRateCard(factory.FlatRateCardJSON("flat", "Flat", "50"))
	require.NoError(t, err)
	require.NoError(t, store.SaveRateCard(ctx, *card))
	require.NoError(t, store.SaveTeacher(ctx, payroll.Teacher{
		ID: "alice", Name: "Alice", EmploymentType: salary.EmploymentContract, RateCardID: "flat",
	}))
	require.NoError(t, store.SaveClass(ctx, payroll.Class{
		ID: "c", Name: "Choir", TeacherID: "alice",
		LessonDays: []time.Weekday{time.Friday},
		StartDate:  generic.NewTimePoint(2024, time.September, 1),
	}))

	engine := payroll.NewEngine(store)
	engine.Now = func() time.Time { return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC) }

	// Fridays in February 2025: 7, 14, 21, 28
	calc, err := engine.Generate(ctx, "alice", generic.MustPeriodKey(2025, 2))
	require.NoError(t, err)
	assert.Equal(t, "200", calc.CalculatedAmount.String())

	_, err = engine.Generate(ctx, "alice", generic.MustPeriodKey(2025, 2))
	var conflict *generic.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, generic.CodeDuplicatePeriod, conflict.Code)

	_, err = engine.Approve(ctx, "alice", calc.ID, calc.CalculatedAmount, nil)
	require.NoError(t, err)

	trail, err := engine.AuditTrail(ctx, "alice", calc.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 2)
}
