/*
compute.go - Class-by-class salary estimate for one month

PURPOSE:
  Shared by generate and preview so the two can never disagree for the same
  inputs. Preview returns the breakdown; generate keeps only the totals.

PER CLASS:
  lessons   lesson weekdays inside the month and the class's own date range,
            minus holidays
  students  active enrollments in effect by the last day of the month
  rate      first tier of the teacher's rate card covering the student count
  amount    rate × lessons

  Classes with no lesson in the month are not part of the breakdown.
*/
package payroll

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// Warning texts.
const (
	WarningNoRateCard = "No rate configuration is assigned to this teacher; class amounts are shown as zero"
)

// Estimate is the computed breakdown before it is shaped into a preview or
// a calculation.
type Estimate struct {
	Teacher   Teacher
	Period    generic.PeriodKey
	Classes   []salary.ClassEstimate
	Variable  decimal.Decimal
	Base      decimal.Decimal
	Warnings  []string
	HasRates  bool
	Uncovered int // classes with no matching tier
}

// Total is base plus variable pay.
func (e Estimate) Total() decimal.Decimal {
	return e.Base.Add(e.Variable)
}

// ScheduledLessons counts lesson days of class within period, skipping holidays.
func ScheduledLessons(class Class, period generic.PeriodKey, holidays []Holiday) int {
	span, ok := class.ActiveRange(period.Range())
	if !ok {
		return 0
	}
	lessons := 0
	for _, day := range span.Days() {
		if !class.TeachesOn(day.Weekday()) || isHoliday(holidays, day) {
			continue
		}
		lessons++
	}
	return lessons
}

func isHoliday(holidays []Holiday, day generic.TimePoint) bool {
	for _, h := range holidays {
		if h.Matches(day) {
			return true
		}
	}
	return false
}

// estimate builds the breakdown for a teacher and month.
func (e *Engine) estimate(ctx context.Context, teacher Teacher, period generic.PeriodKey) (*Estimate, error) {
	est := &Estimate{
		Teacher:  teacher,
		Period:   period,
		Variable: decimal.Zero,
		Base:     decimal.Zero,
	}
	if teacher.EmploymentType.HasBaseSalary() {
		est.Base = teacher.BaseSalaryAmount
	}

	var card *RateCard
	if teacher.RateCardID != "" {
		rc, err := e.Store.GetRateCard(ctx, teacher.RateCardID)
		if err != nil && !generic.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load rate card: %w", err)
		}
		card = rc
	}
	est.HasRates = card != nil
	if !est.HasRates {
		est.Warnings = append(est.Warnings, WarningNoRateCard)
	}

	classes, err := e.Store.ClassesByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load classes: %w", err)
	}
	holidays, err := e.Store.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })

	for _, class := range classes {
		lessons := ScheduledLessons(class, period, holidays)
		if lessons == 0 {
			continue
		}

		enrollments, err := e.Store.EnrollmentsByClass(ctx, class.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load enrollments for %s: %w", class.ID, err)
		}
		hc := CountEnrollments(enrollments, period)

		ce := salary.ClassEstimate{
			ClassID:                     class.ID,
			ClassName:                   class.Name,
			ScheduledLessons:            lessons,
			ActiveStudents:              hc.Active,
			RateApplied:                 decimal.Zero,
			EstimatedAmount:             decimal.Zero,
			HasPendingEnrollmentChanges: hc.HasPendingChanges(),
			PendingEnrollments:          hc.PendingEnrollments,
			PendingWithdrawals:          hc.PendingWithdrawals,
		}

		if card != nil {
			if tier, ok := card.TierFor(hc.Active); ok {
				ce.RateApplied = tier.RatePerLesson
				ce.RateTierDescription = tier.Describe()
				ce.EstimatedAmount = tier.RatePerLesson.Mul(decimal.NewFromInt(int64(lessons)))
			} else {
				est.Uncovered++
				ce.RateTierDescription = fmt.Sprintf("no tier of %q covers %d students", card.Name, hc.Active)
				est.Warnings = append(est.Warnings,
					fmt.Sprintf("%s: no rate tier covers %d active students", class.Name, hc.Active))
			}
		}

		est.Variable = est.Variable.Add(ce.EstimatedAmount)
		est.Classes = append(est.Classes, ce)
	}

	return est, nil
}
