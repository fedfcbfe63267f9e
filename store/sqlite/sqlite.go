/*
Package sqlite provides a SQLite-backed implementation of payroll.Store.

PURPOSE:
  Persists teachers, classes, enrollments, rate cards, holidays, academic
  years, salary calculations and their audit trail. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  salary_calculations: one row per (teacher, year, month)
  salary_audit:        append-only lifecycle events
  teachers, classes, enrollments, academic_years, holidays, rate_cards

UNIQUENESS:
  idx_salary_calculations_period enforces one calculation per teacher and
  month. A second insert fails with a constraint error that is mapped to
  generic.ErrDuplicatePeriod, so two sessions racing to generate the same
  month cannot both win.

MONEY:
  Amounts are stored as TEXT decimal strings and read back with
  shopspring/decimal. Never REAL.

DATES:
  Calendar dates as YYYY-MM-DD, timestamps as RFC3339 UTC.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/salary.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := payroll.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/factory"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
	"github.com/warp/salary-engine/salary"
)

// Store implements payroll.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ payroll.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		employment_type TEXT NOT NULL,
		base_salary_amount TEXT NOT NULL DEFAULT '0',
		rate_card_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rate_cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tiers_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		teacher_id TEXT NOT NULL,
		lesson_days_json TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_classes_teacher ON classes(teacher_id);

	CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		class_id TEXT NOT NULL,
		status TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_enrollments_class ON enrollments(class_id);

	CREATE TABLE IF NOT EXISTS academic_years (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring INTEGER NOT NULL DEFAULT 0
	);

	-- Salary calculations (one per teacher and month)
	CREATE TABLE IF NOT EXISTS salary_calculations (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		period_year INTEGER NOT NULL,
		period_month INTEGER NOT NULL CHECK (period_month BETWEEN 1 AND 12),
		employment_type TEXT NOT NULL,
		base_salary_amount TEXT NOT NULL,
		calculated_amount TEXT NOT NULL,
		approved_amount TEXT,
		approved_at TEXT,
		adjustment_reason TEXT,
		status TEXT NOT NULL,
		reopen_reason TEXT,
		reopened_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_salary_calculations_period
		ON salary_calculations(teacher_id, period_year, period_month);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS salary_audit (
		id TEXT PRIMARY KEY,
		calculation_id TEXT NOT NULL,
		teacher_id TEXT NOT NULL,
		action TEXT NOT NULL,
		from_status TEXT,
		to_status TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_salary_audit_calculation ON salary_audit(calculation_id, at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SALARY CALCULATIONS (payroll.CalculationStore)
// =============================================================================

const calculationColumns = `id, teacher_id, period_year, period_month, employment_type,
	base_salary_amount, calculated_amount, approved_amount, approved_at, adjustment_reason,
	status, reopen_reason, reopened_at, created_at, updated_at`

// CreateCalculation inserts a new calculation.
func (s *Store) CreateCalculation(ctx context.Context, c salary.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO salary_calculations (` + calculationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, calculationArgs(c)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicatePeriod
		}
		return fmt.Errorf("failed to insert calculation: %w", err)
	}
	return nil
}

// SaveCalculation updates the mutable columns of an existing calculation.
func (s *Store) SaveCalculation(ctx context.Context, c salary.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE salary_calculations SET
			approved_amount = ?,
			approved_at = ?,
			adjustment_reason = ?,
			status = ?,
			reopen_reason = ?,
			reopened_at = ?,
			updated_at = ?
		WHERE id = ? AND teacher_id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		nullDecimal(c.ApprovedAmount),
		nullTime(c.ApprovedAt),
		nullStringPtr(c.AdjustmentReason),
		string(c.Status),
		nullStringPtr(c.ReopenReason),
		nullTime(c.ReopenedAt),
		formatTime(c.UpdatedAt),
		string(c.ID),
		string(c.TeacherID),
	)
	if err != nil {
		return fmt.Errorf("failed to update calculation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.NotFoundError{Resource: "calculation", ID: string(c.ID)}
	}
	return nil
}

// GetCalculation retrieves a calculation by ID for a teacher.
func (s *Store) GetCalculation(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID) (*salary.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+calculationColumns+` FROM salary_calculations WHERE id = ? AND teacher_id = ?`,
		string(id), string(teacherID),
	)
	c, err := scanCalculation(row)
	if err == sql.ErrNoRows {
		return nil, &generic.NotFoundError{Resource: "calculation", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCalculations returns a teacher's calculations, newest period first.
func (s *Store) ListCalculations(ctx context.Context, teacherID generic.TeacherID) ([]salary.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+calculationColumns+` FROM salary_calculations
		 WHERE teacher_id = ?
		 ORDER BY period_year DESC, period_month DESC`,
		string(teacherID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]salary.Calculation, 0)
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func calculationArgs(c salary.Calculation) []any {
	return []any{
		string(c.ID),
		string(c.TeacherID),
		c.Period.Year,
		int(c.Period.Month),
		string(c.EmploymentType),
		c.BaseSalaryAmount.String(),
		c.CalculatedAmount.String(),
		nullDecimal(c.ApprovedAmount),
		nullTime(c.ApprovedAt),
		nullStringPtr(c.AdjustmentReason),
		string(c.Status),
		nullStringPtr(c.ReopenReason),
		nullTime(c.ReopenedAt),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row scanner) (salary.Calculation, error) {
	var (
		c                          salary.Calculation
		id, teacherID, employment  string
		year, month                int
		base, calculated           string
		approvedAmount, approvedAt sql.NullString
		adjustmentReason           sql.NullString
		status                     string
		reopenReason, reopenedAt   sql.NullString
		createdAt, updatedAt       string
	)

	err := row.Scan(&id, &teacherID, &year, &month, &employment,
		&base, &calculated, &approvedAmount, &approvedAt, &adjustmentReason,
		&status, &reopenReason, &reopenedAt, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}

	period, err := generic.NewPeriodKey(year, month)
	if err != nil {
		return c, fmt.Errorf("calculation %s: %w", id, err)
	}

	c.ID = generic.CalculationID(id)
	c.TeacherID = generic.TeacherID(teacherID)
	c.Period = period
	c.EmploymentType = salary.EmploymentType(employment)
	if c.BaseSalaryAmount, err = decimal.NewFromString(base); err != nil {
		return c, fmt.Errorf("calculation %s: bad base salary: %w", id, err)
	}
	if c.CalculatedAmount, err = decimal.NewFromString(calculated); err != nil {
		return c, fmt.Errorf("calculation %s: bad calculated amount: %w", id, err)
	}
	if approvedAmount.Valid {
		d, err := decimal.NewFromString(approvedAmount.String)
		if err != nil {
			return c, fmt.Errorf("calculation %s: bad approved amount: %w", id, err)
		}
		c.ApprovedAmount = &d
	}
	c.ApprovedAt = parseTimePtr(approvedAt)
	c.AdjustmentReason = stringPtr(adjustmentReason)
	c.Status = salary.Status(status)
	c.ReopenReason = stringPtr(reopenReason)
	c.ReopenedAt = parseTimePtr(reopenedAt)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return c, nil
}

// =============================================================================
// AUDIT (payroll.AuditLog)
// =============================================================================

// AppendAudit records a lifecycle event. Append-only.
func (s *Store) AppendAudit(ctx context.Context, e payroll.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salary_audit (id, calculation_id, teacher_id, action, from_status, to_status, amount, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		string(e.CalculationID),
		string(e.TeacherID),
		string(e.Action),
		nullString(string(e.FromStatus)),
		string(e.ToStatus),
		e.Amount,
		nullString(e.Reason),
		formatTime(e.At),
	)
	return err
}

// AuditTrail returns the events of a calculation, oldest first.
func (s *Store) AuditTrail(ctx context.Context, id generic.CalculationID) ([]payroll.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, calculation_id, teacher_id, action, from_status, to_status, amount, reason, at
		FROM salary_audit WHERE calculation_id = ? ORDER BY at, rowid`,
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []payroll.AuditEntry
	for rows.Next() {
		var (
			e                         payroll.AuditEntry
			calcID, teacherID, action string
			from, reason              sql.NullString
			to, at                    string
		)
		if err := rows.Scan(&e.ID, &calcID, &teacherID, &action, &from, &to, &e.Amount, &reason, &at); err != nil {
			return nil, err
		}
		e.CalculationID = generic.CalculationID(calcID)
		e.TeacherID = generic.TeacherID(teacherID)
		e.Action = payroll.AuditAction(action)
		e.FromStatus = salary.Status(from.String)
		e.ToStatus = salary.Status(to)
		e.Reason = reason.String
		e.At, _ = time.Parse(time.RFC3339, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TEACHERS
// =============================================================================

// SaveTeacher saves a teacher.
func (s *Store) SaveTeacher(ctx context.Context, t payroll.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO teachers (id, name, employment_type, base_salary_amount, rate_card_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			employment_type = excluded.employment_type,
			base_salary_amount = excluded.base_salary_amount,
			rate_card_id = excluded.rate_card_id
	`

	_, err := s.db.ExecContext(ctx, query,
		string(t.ID), t.Name, string(t.EmploymentType),
		t.BaseSalaryAmount.String(),
		nullString(string(t.RateCardID)),
		formatTime(t.CreatedAt),
	)
	return err
}

// GetTeacher retrieves a teacher by ID.
func (s *Store) GetTeacher(ctx context.Context, id generic.TeacherID) (*payroll.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := scanTeacher(s.db.QueryRowContext(ctx,
		"SELECT id, name, employment_type, base_salary_amount, rate_card_id, created_at FROM teachers WHERE id = ?",
		string(id),
	))
	if err == sql.ErrNoRows {
		return nil, &generic.NotFoundError{Resource: "teacher", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTeachers returns all teachers.
func (s *Store) ListTeachers(ctx context.Context) ([]payroll.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, employment_type, base_salary_amount, rate_card_id, created_at FROM teachers ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teachers := make([]payroll.Teacher, 0)
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

func scanTeacher(row scanner) (payroll.Teacher, error) {
	var (
		t                        payroll.Teacher
		id, employment, base, at string
		rateCard                 sql.NullString
	)
	if err := row.Scan(&id, &t.Name, &employment, &base, &rateCard, &at); err != nil {
		return t, err
	}
	t.ID = generic.TeacherID(id)
	t.EmploymentType = salary.EmploymentType(employment)
	t.RateCardID = generic.RateCardID(rateCard.String)
	t.BaseSalaryAmount = decimal.RequireFromString(base)
	t.CreatedAt, _ = time.Parse(time.RFC3339, at)
	return t, nil
}

// =============================================================================
// CLASSES AND ENROLLMENTS
// =============================================================================

// SaveClass saves a class.
func (s *Store) SaveClass(ctx context.Context, c payroll.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := make([]int, 0, len(c.LessonDays))
	for _, d := range c.LessonDays {
		days = append(days, int(d))
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return err
	}
	var end sql.NullString
	if c.EndDate != nil {
		end = sql.NullString{String: c.EndDate.String(), Valid: true}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, teacher_id, lesson_days_json, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			teacher_id = excluded.teacher_id,
			lesson_days_json = excluded.lesson_days_json,
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		string(c.ID), c.Name, string(c.TeacherID), string(daysJSON),
		c.StartDate.String(), end, formatTime(c.CreatedAt),
	)
	return err
}

// ClassesByTeacher returns the classes a teacher teaches.
func (s *Store) ClassesByTeacher(ctx context.Context, teacherID generic.TeacherID) ([]payroll.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, teacher_id, lesson_days_json, start_date, end_date, created_at
		FROM classes WHERE teacher_id = ? ORDER BY id`,
		string(teacherID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []payroll.Class
	for rows.Next() {
		var (
			c                                payroll.Class
			id, teacher, daysJSON, start, at string
			end                              sql.NullString
		)
		if err := rows.Scan(&id, &c.Name, &teacher, &daysJSON, &start, &end, &at); err != nil {
			return nil, err
		}
		var days []int
		if err := json.Unmarshal([]byte(daysJSON), &days); err != nil {
			return nil, fmt.Errorf("class %s: bad lesson days: %w", id, err)
		}
		for _, d := range days {
			c.LessonDays = append(c.LessonDays, time.Weekday(d))
		}
		c.ID = generic.ClassID(id)
		c.TeacherID = generic.TeacherID(teacher)
		if c.StartDate, err = generic.ParseDate(start); err != nil {
			return nil, fmt.Errorf("class %s: %w", id, err)
		}
		if end.Valid {
			d, err := generic.ParseDate(end.String)
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", id, err)
			}
			c.EndDate = &d
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, at)
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// SaveEnrollment saves an enrollment.
func (s *Store) SaveEnrollment(ctx context.Context, e payroll.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollments (id, student_id, class_id, status, effective_from, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			effective_from = excluded.effective_from`,
		e.ID, e.StudentID, string(e.ClassID), string(e.Status),
		e.EffectiveFrom.String(), formatTime(e.CreatedAt),
	)
	return err
}

// EnrollmentsByClass returns all enrollments of a class, any status.
func (s *Store) EnrollmentsByClass(ctx context.Context, classID generic.ClassID) ([]payroll.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, class_id, status, effective_from, created_at
		FROM enrollments WHERE class_id = ? ORDER BY id`,
		string(classID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []payroll.Enrollment
	for rows.Next() {
		var (
			e                       payroll.Enrollment
			class, status, from, at string
		)
		if err := rows.Scan(&e.ID, &e.StudentID, &class, &status, &from, &at); err != nil {
			return nil, err
		}
		e.ClassID = generic.ClassID(class)
		e.Status = payroll.EnrollmentStatus(status)
		if e.EffectiveFrom, err = generic.ParseDate(from); err != nil {
			return nil, fmt.Errorf("enrollment %s: %w", e.ID, err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, at)
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// =============================================================================
// ACADEMIC YEARS AND HOLIDAYS
// =============================================================================

// SaveAcademicYear saves an academic year.
func (s *Store) SaveAcademicYear(ctx context.Context, y payroll.AcademicYear) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO academic_years (id, name, start_date, end_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		string(y.ID), y.Name, y.StartDate.String(), y.EndDate.String(),
	)
	return err
}

// GetAcademicYear retrieves an academic year by ID.
func (s *Store) GetAcademicYear(ctx context.Context, id generic.AcademicYearID) (*payroll.AcademicYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var y payroll.AcademicYear
	var yid, start, end string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, start_date, end_date FROM academic_years WHERE id = ?",
		string(id),
	).Scan(&yid, &y.Name, &start, &end)
	if err == sql.ErrNoRows {
		return nil, &generic.NotFoundError{Resource: "academic year", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}

	y.ID = generic.AcademicYearID(yid)
	if y.StartDate, err = generic.ParseDate(start); err != nil {
		return nil, err
	}
	if y.EndDate, err = generic.ParseDate(end); err != nil {
		return nil, err
	}
	return &y, nil
}

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h payroll.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, recurring)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			recurring = excluded.recurring`,
		h.ID, h.Date.String(), h.Name, h.Recurring,
	)
	return err
}

// ListHolidays returns every holiday, recurring ones included.
func (s *Store) ListHolidays(ctx context.Context) ([]payroll.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, date, name, recurring FROM holidays ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []payroll.Holiday
	for rows.Next() {
		var h payroll.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// RATE CARDS (payroll.RateStore)
// =============================================================================

// SaveRateCard stores the tiers in the same JSON shape the API accepts.
func (s *Store) SaveRateCard(ctx context.Context, rc payroll.RateCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tiersJSON, err := json.Marshal(factory.TiersToJSON(rc.Tiers))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_cards (id, name, tiers_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tiers_json = excluded.tiers_json,
			updated_at = excluded.updated_at`,
		string(rc.ID), rc.Name, string(tiersJSON), formatTime(time.Now()),
	)
	return err
}

// GetRateCard retrieves a rate card by ID.
func (s *Store) GetRateCard(ctx context.Context, id generic.RateCardID) (*payroll.RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rc payroll.RateCard
	var rid, tiersJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, tiers_json FROM rate_cards WHERE id = ?",
		string(id),
	).Scan(&rid, &rc.Name, &tiersJSON)
	if err == sql.ErrNoRows {
		return nil, &generic.NotFoundError{Resource: "rate card", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}

	var tiers []factory.TierJSON
	if err := json.Unmarshal([]byte(tiersJSON), &tiers); err != nil {
		return nil, fmt.Errorf("rate card %s: bad tiers: %w", id, err)
	}
	rc.ID = generic.RateCardID(rid)
	rc.Tiers = factory.ParseTiers(tiers)
	return &rc, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"salary_audit", "salary_calculations", "enrollments", "classes",
		"teachers", "rate_cards", "academic_years", "holidays",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
