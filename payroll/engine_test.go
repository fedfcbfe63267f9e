package payroll_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/salary-engine/factory"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
	"github.com/warp/salary-engine/salary"
	"github.com/warp/salary-engine/store/memory"
)

var (
	march2025 = generic.MustPeriodKey(2025, 3)
	now       = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newFixture seeds one full-time teacher with a Mon/Wed class of three
// students and a holiday on Monday 2025-03-10, giving 8 lessons in March.
func newFixture(t *testing.T) (*payroll.Engine, *memory.Memory) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	card, err := factory.NewRateCardFactory().ParseRateCard(factory.StandardRateCardJSON("standard", "Standard"))
	require.NoError(t, err)
	require.NoError(t, store.SaveRateCard(ctx, *card))

	require.NoError(t, store.SaveTeacher(ctx, payroll.Teacher{
		ID:               "alice",
		Name:             "Alice",
		EmploymentType:   salary.EmploymentFullTime,
		BaseSalaryAmount: money("3000"),
		RateCardID:       "standard",
	}))
	require.NoError(t, store.SaveClass(ctx, payroll.Class{
		ID:         "piano-a",
		Name:       "Piano A",
		TeacherID:  "alice",
		LessonDays: []time.Weekday{time.Monday, time.Wednesday},
		StartDate:  generic.NewTimePoint(2025, time.January, 1),
	}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.SaveEnrollment(ctx, payroll.Enrollment{
			ID:            fmt.Sprintf("e%d", i),
			StudentID:     fmt.Sprintf("s%d", i),
			ClassID:       "piano-a",
			Status:        payroll.EnrollmentActive,
			EffectiveFrom: generic.NewTimePoint(2025, time.January, 1),
		}))
	}
	require.NoError(t, store.SaveHoliday(ctx, payroll.Holiday{
		ID:   "h1",
		Date: generic.NewTimePoint(2025, time.March, 10),
		Name: "Staff day",
	}))

	seq := 0
	var mu sync.Mutex
	engine := payroll.NewEngine(store)
	engine.Now = func() time.Time { return now }
	engine.NewID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return engine, store
}

func conflictCode(err error) string {
	var ce *generic.ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// =============================================================================
// LESSON COUNTING
// =============================================================================

func TestScheduledLessons(t *testing.T) {
	class := payroll.Class{
		LessonDays: []time.Weekday{time.Monday, time.Wednesday},
		StartDate:  generic.NewTimePoint(2025, time.January, 1),
	}

	assert.Equal(t, 9, payroll.ScheduledLessons(class, march2025, nil))

	holidays := []payroll.Holiday{{Date: generic.NewTimePoint(2025, time.March, 10)}}
	assert.Equal(t, 8, payroll.ScheduledLessons(class, march2025, holidays))

	t.Run("class starting mid-month", func(t *testing.T) {
		late := class
		late.StartDate = generic.NewTimePoint(2025, time.March, 20)
		// Mon 24, Wed 26, Mon 31
		assert.Equal(t, 3, payroll.ScheduledLessons(late, march2025, nil))
	})

	t.Run("class ended before month", func(t *testing.T) {
		ended := class
		end := generic.NewTimePoint(2025, time.February, 28)
		ended.EndDate = &end
		assert.Equal(t, 0, payroll.ScheduledLessons(ended, march2025, nil))
	})

	t.Run("recurring holiday", func(t *testing.T) {
		recurring := []payroll.Holiday{{Date: generic.NewTimePoint(2019, time.March, 5), Recurring: true}}
		assert.Equal(t, 8, payroll.ScheduledLessons(class, march2025, recurring))
	})
}

func TestCountEnrollments(t *testing.T) {
	jan := generic.NewTimePoint(2025, time.January, 1)
	apr := generic.NewTimePoint(2025, time.April, 1)
	hc := payroll.CountEnrollments([]payroll.Enrollment{
		{Status: payroll.EnrollmentActive, EffectiveFrom: jan},
		{Status: payroll.EnrollmentActive, EffectiveFrom: apr},
		{Status: payroll.EnrollmentWithdrawalPending, EffectiveFrom: jan},
		{Status: payroll.EnrollmentPending, EffectiveFrom: apr},
		{Status: payroll.EnrollmentWithdrawn, EffectiveFrom: jan},
	}, march2025)

	assert.Equal(t, 2, hc.Active)
	assert.Equal(t, 1, hc.PendingEnrollments)
	assert.Equal(t, 1, hc.PendingWithdrawals)
	assert.True(t, hc.HasPendingChanges())
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_CreatesPendingCalculation(t *testing.T) {
	engine, store := newFixture(t)
	ctx := context.Background()

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)

	assert.Equal(t, salary.StatusPending, calc.Status)
	assert.Nil(t, calc.ApprovedAmount)
	assert.True(t, calc.BaseSalaryAmount.Equal(money("3000")))
	// 8 lessons x 100.00 + 3000 base
	assert.True(t, calc.CalculatedAmount.Equal(money("3800")), "got %s", calc.CalculatedAmount)

	list, err := engine.List(ctx, "alice", salary.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, calc.ID, list[0].ID)

	trail, err := store.AuditTrail(ctx, calc.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, payroll.AuditGenerated, trail[0].Action)
	assert.Equal(t, "3800", trail[0].Amount)
}

func TestGenerate_ContractTeacherHasNoBase(t *testing.T) {
	engine, store := newFixture(t)
	ctx := context.Background()

	teacher, err := store.GetTeacher(ctx, "alice")
	require.NoError(t, err)
	teacher.EmploymentType = salary.EmploymentContract
	require.NoError(t, store.SaveTeacher(ctx, *teacher))

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)
	assert.True(t, calc.BaseSalaryAmount.IsZero())
	assert.True(t, calc.CalculatedAmount.Equal(money("800")))
}

func TestGenerate_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate period", func(t *testing.T) {
		engine, _ := newFixture(t)
		_, err := engine.Generate(ctx, "alice", march2025)
		require.NoError(t, err)

		_, err = engine.Generate(ctx, "alice", march2025)
		require.Error(t, err)
		assert.Equal(t, generic.CodeDuplicatePeriod, conflictCode(err))
		assert.Equal(t, generic.KindConflict, generic.KindOf(err))
	})

	t.Run("future period", func(t *testing.T) {
		engine, _ := newFixture(t)
		_, err := engine.Generate(ctx, "alice", generic.MustPeriodKey(2025, 4))
		require.Error(t, err)
		assert.Equal(t, generic.KindValidation, generic.KindOf(err))
	})

	t.Run("no rate card", func(t *testing.T) {
		engine, store := newFixture(t)
		require.NoError(t, store.SaveTeacher(ctx, payroll.Teacher{
			ID:               "bob",
			Name:             "Bob",
			EmploymentType:   salary.EmploymentFullTime,
			BaseSalaryAmount: money("2000"),
		}))
		_, err := engine.Generate(ctx, "bob", march2025)
		require.Error(t, err)
		assert.Equal(t, generic.CodeNoRateConfig, conflictCode(err))
	})

	t.Run("no tier for class size", func(t *testing.T) {
		engine, store := newFixture(t)
		require.NoError(t, store.SaveRateCard(ctx, payroll.RateCard{
			ID:    "standard",
			Name:  "Big groups only",
			Tiers: []payroll.RateTier{{MinStudents: 10, RatePerLesson: money("50")}},
		}))
		_, err := engine.Generate(ctx, "alice", march2025)
		assert.Equal(t, generic.CodeNoRateConfig, conflictCode(err))
	})

	t.Run("unknown teacher", func(t *testing.T) {
		engine, _ := newFixture(t)
		_, err := engine.Generate(ctx, "nobody", march2025)
		assert.True(t, generic.IsNotFound(err))
	})
}

func TestGenerate_ConcurrentSessionsOneWins(t *testing.T) {
	engine, _ := newFixture(t)
	ctx := context.Background()

	const sessions = 8
	errs := make([]error, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Generate(ctx, "alice", march2025)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, generic.CodeDuplicatePeriod, conflictCode(err))
	}
	assert.Equal(t, 1, wins)

	list, err := engine.List(ctx, "alice", salary.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// =============================================================================
// APPROVE / REOPEN
// =============================================================================

func TestApprove_AsCalculated(t *testing.T) {
	engine, _ := newFixture(t)
	ctx := context.Background()

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)

	approved, err := engine.Approve(ctx, "alice", calc.ID, calc.CalculatedAmount, nil)
	require.NoError(t, err)
	assert.Equal(t, salary.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAmount)
	assert.True(t, approved.ApprovedAmount.Equal(money("3800")))
	assert.Nil(t, approved.AdjustmentReason)
}

func TestApprove_AdjustedNeedsReason(t *testing.T) {
	engine, _ := newFixture(t)
	ctx := context.Background()

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)

	_, err = engine.Approve(ctx, "alice", calc.ID, money("3700"), nil)
	require.Error(t, err)
	var ve *generic.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("adjustment_reason"))

	// Nothing was written.
	list, err := engine.List(ctx, "alice", salary.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, salary.StatusPending, list[0].Status)

	reason := "Two lessons were cancelled"
	approved, err := engine.Approve(ctx, "alice", calc.ID, money("3700"), &reason)
	require.NoError(t, err)
	require.NotNil(t, approved.AdjustmentReason)
	assert.Equal(t, reason, *approved.AdjustmentReason)
	assert.True(t, approved.IsAdjusted())
}

func TestApprove_InvalidState(t *testing.T) {
	engine, _ := newFixture(t)
	ctx := context.Background()

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)
	_, err = engine.Approve(ctx, "alice", calc.ID, calc.CalculatedAmount, nil)
	require.NoError(t, err)

	_, err = engine.Approve(ctx, "alice", calc.ID, calc.CalculatedAmount, nil)
	assert.Equal(t, generic.CodeInvalidState, conflictCode(err))
}

func TestApprove_WrongTeacherIsNotFound(t *testing.T) {
	engine, _ := newFixture(t)
	ctx := context.Background()

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)

	_, err = engine.Approve(ctx, "someone-else", calc.ID, calc.CalculatedAmount, nil)
	assert.True(t, generic.IsNotFound(err))
}

func TestReopenAndReapprove(t *testing.T) {
	engine, store := newFixture(t)
	ctx := context.Background()

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)
	_, err = engine.Approve(ctx, "alice", calc.ID, calc.CalculatedAmount, nil)
	require.NoError(t, err)

	_, err = engine.Reopen(ctx, "alice", calc.ID, "too short")
	require.Error(t, err)
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))

	reopened, err := engine.Reopen(ctx, "alice", calc.ID, "Attendance sheet was corrected")
	require.NoError(t, err)
	assert.Equal(t, salary.StatusReopened, reopened.Status)
	_, authoritative := reopened.AuthoritativeAmount()
	assert.False(t, authoritative)

	_, err = engine.Reopen(ctx, "alice", calc.ID, "Attendance sheet was corrected")
	assert.Equal(t, generic.CodeInvalidState, conflictCode(err))

	reason := "Corrected attendance for week two"
	final, err := engine.Approve(ctx, "alice", calc.ID, money("3600"), &reason)
	require.NoError(t, err)
	assert.Equal(t, salary.StatusApproved, final.Status)

	trail, err := store.AuditTrail(ctx, calc.ID)
	require.NoError(t, err)
	require.Len(t, trail, 4)
	assert.Equal(t, payroll.AuditReopened, trail[2].Action)
	assert.Equal(t, salary.StatusReopened, trail[3].FromStatus)
	assert.Equal(t, "3600", trail[3].Amount)
}

// =============================================================================
// PREVIEW / LIST
// =============================================================================

func TestPreview_MatchesGenerate(t *testing.T) {
	engine, _ := newFixture(t)
	ctx := context.Background()

	preview, err := engine.Preview(ctx, "alice", march2025)
	require.NoError(t, err)
	require.Len(t, preview.ClassBreakdown, 1)

	ce := preview.ClassBreakdown[0]
	assert.Equal(t, "Piano A", ce.ClassName)
	assert.Equal(t, 8, ce.ScheduledLessons)
	assert.Equal(t, 3, ce.ActiveStudents)
	assert.Equal(t, "0-5 students: 100.00 per lesson", ce.RateTierDescription)
	assert.True(t, preview.TotalEstimated.Equal(money("800")))

	calc, err := engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)
	assert.True(t, calc.CalculatedAmount.Equal(preview.BaseSalaryAmount.Add(preview.TotalEstimated)))
}

func TestPreview_PendingEnrollmentWarns(t *testing.T) {
	engine, store := newFixture(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEnrollment(ctx, payroll.Enrollment{
		ID:            "e-new",
		StudentID:     "s-new",
		ClassID:       "piano-a",
		Status:        payroll.EnrollmentPending,
		EffectiveFrom: generic.NewTimePoint(2025, time.April, 1),
	}))

	preview, err := engine.Preview(ctx, "alice", march2025)
	require.NoError(t, err)
	require.Len(t, preview.ClassBreakdown, 1)
	assert.True(t, preview.ClassBreakdown[0].HasPendingEnrollmentChanges)
	assert.Equal(t, 3, preview.ClassBreakdown[0].ActiveStudents)
	assert.Equal(t, []string{
		"Piano A: 1 pending enrollment(s) and 0 pending withdrawal(s) may change the final amount",
	}, preview.PendingChangeWarnings)
}

func TestPreview_NothingScheduled(t *testing.T) {
	engine, store := newFixture(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTeacher(ctx, payroll.Teacher{
		ID:               "carol",
		Name:             "Carol",
		EmploymentType:   salary.EmploymentFullTime,
		BaseSalaryAmount: money("2500"),
		RateCardID:       "standard",
	}))

	preview, err := engine.Preview(ctx, "carol", march2025)
	require.NoError(t, err)
	assert.Empty(t, preview.ClassBreakdown)
	assert.Contains(t, preview.Warnings, salary.WarningNothingScheduled)
	assert.Equal(t, salary.PreviewNothingScheduled, salary.Display(*preview).State)
}

func TestList_Filters(t *testing.T) {
	engine, store := newFixture(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAcademicYear(ctx, payroll.AcademicYear{
		ID:        "ay-2024",
		Name:      "2024/25",
		StartDate: generic.NewTimePoint(2024, time.September, 1),
		EndDate:   generic.NewTimePoint(2025, time.February, 28),
	}))

	jan, err := engine.Generate(ctx, "alice", generic.MustPeriodKey(2025, 1))
	require.NoError(t, err)
	_, err = engine.Generate(ctx, "alice", march2025)
	require.NoError(t, err)
	_, err = engine.Approve(ctx, "alice", jan.ID, jan.CalculatedAmount, nil)
	require.NoError(t, err)

	all, err := engine.List(ctx, "alice", salary.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, march2025, all[0].Period, "newest first")

	approved, err := engine.List(ctx, "alice", salary.ListFilter{Status: salary.StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, jan.ID, approved[0].ID)

	inYear, err := engine.List(ctx, "alice", salary.ListFilter{AcademicYearID: "ay-2024"})
	require.NoError(t, err)
	require.Len(t, inYear, 1)
	assert.Equal(t, jan.ID, inYear[0].ID)

	_, err = engine.List(ctx, "alice", salary.ListFilter{Status: "bogus"})
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))

	// Listing twice without mutation yields the same set.
	again, err := engine.List(ctx, "alice", salary.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, all, again)
}
