/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists everything around the payroll engine: employees and their
  eligibility state, attendance, leave, salary configuration, company
  deduction rules, holidays, payslip revisions and payroll run records.
  The engine packages never touch the database; this package loads their
  inputs and stores their outputs.

INTERFACES IMPLEMENTED:
  payroll.PayslipStore:    Payslip revisions with supersede semantics
  payroll.InputSource:     Via PayrollSource (structure + attendance + leave)
  generic.HolidayCalendar: Company and global holidays

REVISIONS:
  Payslips are never updated in place:
  - A save with the same input digest as the latest revision is a no-op
  - Otherwise a new revision is inserted and the previous one is marked
    superseded, in one transaction

KEY TABLES:
  employees:         Employee records with verification status and active flag
  attendance:        One row per (employee, date)
  leaves:            Leave requests with status
  salary_structures: JSON salary configuration, effective-dated
  deduction_rules:   JSON company-wide deduction rules, ordered
  holidays:          Company-specific and global holidays
  payslips:          Payslip revisions
  payroll_runs:      Batch run records

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - payroll/store.go:        PayslipStore contract
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/eligibility"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

// ErrDuplicate is returned when a unique key already exists.
var ErrDuplicate = errors.New("record already exists")

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		company_id TEXT NOT NULL DEFAULT '',
		hire_date TEXT NOT NULL,
		verification TEXT NOT NULL DEFAULT 'not_submitted',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Attendance: at most one row per employee and civil date
	CREATE TABLE IF NOT EXISTS attendance (
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		raw_check_in TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	-- Leaves
	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_employee_range
		ON leaves(employee_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_leaves_status
		ON leaves(status);

	-- Salary structures (JSON, effective-dated)
	CREATE TABLE IF NOT EXISTS salary_structures (
		employee_id TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, effective_from)
	);

	-- Company-wide deduction rules (JSON)
	CREATE TABLE IF NOT EXISTS deduction_rules (
		code TEXT PRIMARY KEY,
		position INTEGER NOT NULL DEFAULT 0,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Holidays (company-specific and global)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_company_date
		ON holidays(company_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(company_id, date, name);

	-- Payslip revisions
	-- IDs derive from the input digest, so a revision that restores an older
	-- input repeats an older ID; the key is the revision, not the ID.
	CREATE TABLE IF NOT EXISTS payslips (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		revision INTEGER NOT NULL,
		id TEXT NOT NULL,
		input_digest TEXT NOT NULL,
		net_pay INTEGER NOT NULL,
		superseded BOOLEAN NOT NULL DEFAULT FALSE,
		payslip_json TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year, month, revision)
	);

	CREATE INDEX IF NOT EXISTS idx_payslips_id
		ON payslips(id);

	-- Payroll runs
	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		requested INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		errors_json TEXT,
		triggered_by TEXT NOT NULL DEFAULT 'manual',
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_period
		ON payroll_runs(year, month);
	CREATE INDEX IF NOT EXISTS idx_payroll_runs_status
		ON payroll_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee represents an employee record.
type Employee struct {
	ID           string
	Name         string
	Email        string
	CompanyID    string
	HireDate     time.Time
	Verification eligibility.Status
	Active       bool
	CreatedAt    time.Time
}

// Eligibility returns what the gate needs to decide on this employee.
func (e Employee) Eligibility() eligibility.State {
	return eligibility.State{Verification: e.Verification, Active: e.Active}
}

// SaveEmployee creates or updates an employee. Verification status is only
// written on insert; use UpdateVerification to move it.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emp.Verification == "" {
		emp.Verification = eligibility.NotSubmitted
	}

	query := `
		INSERT INTO employees (id, name, email, company_id, hire_date, verification, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			company_id = excluded.company_id,
			hire_date = excluded.hire_date,
			active = excluded.active
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email, emp.CompanyID,
		emp.HireDate.Format(time.RFC3339),
		string(emp.Verification), emp.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID. Returns nil, nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getEmployee(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const employeeColumns = "id, name, email, company_id, hire_date, verification, active, created_at"

func getEmployee(ctx context.Context, q queryer, id string) (*Employee, error) {
	row := q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (Employee, error) {
	var emp Employee
	var email sql.NullString
	var hireDate, createdAt, verification string
	if err := row.Scan(&emp.ID, &emp.Name, &email, &emp.CompanyID, &hireDate, &verification, &emp.Active, &createdAt); err != nil {
		return Employee{}, err
	}
	emp.Email = email.String
	emp.Verification = eligibility.Status(verification)
	emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.queryEmployees(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY name")
}

// ListActiveEmployeeIDs returns the IDs payroll runs cover by default.
func (s *Store) ListActiveEmployeeIDs(ctx context.Context) ([]generic.EmployeeID, error) {
	emps, err := s.queryEmployees(ctx, "SELECT "+employeeColumns+" FROM employees WHERE active = TRUE ORDER BY id")
	if err != nil {
		return nil, err
	}
	ids := make([]generic.EmployeeID, len(emps))
	for i, e := range emps {
		ids[i] = generic.EmployeeID(e.ID)
	}
	return ids, nil
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// UpdateVerification applies a review event to the employee's verification
// status and returns the new status.
func (s *Store) UpdateVerification(ctx context.Context, id string, ev eligibility.Event) (eligibility.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next eligibility.Status
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		emp, err := getEmployee(ctx, tx, id)
		if err != nil {
			return err
		}
		if emp == nil {
			return generic.ErrEmployeeNotFound
		}
		next, err = eligibility.Transition(emp.Verification, ev)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE employees SET verification = ? WHERE id = ?", string(next), id)
		return err
	})
	return next, err
}

// SetActive flips the employee's active flag.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE employees SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	return requireRow(res, generic.ErrEmployeeNotFound)
}

// DeleteEmployee removes an employee.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	return err
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

// SaveAttendance upserts the single record of (employee, date).
func (s *Store) SaveAttendance(ctx context.Context, r attendance.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance (employee_id, date, check_in, check_out, raw_check_in, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			raw_check_in = excluded.raw_check_in,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(r.EmployeeID), r.Date.String(),
		formatInstant(r.CheckIn), formatInstant(r.CheckOut),
		nullString(r.RawCheckIn),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetAttendance returns the record of (employee, date), or nil, nil.
func (s *Store) GetAttendance(ctx context.Context, emp generic.EmployeeID, date generic.TimePoint) (*attendance.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT employee_id, date, check_in, check_out, raw_check_in
		FROM attendance WHERE employee_id = ? AND date = ?
	`, string(emp), date.String())

	r, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListAttendance returns the employee's records inside the period, by date.
func (s *Store) ListAttendance(ctx context.Context, emp generic.EmployeeID, period generic.Period) ([]attendance.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listAttendance(ctx, s.db, emp, period)
}

func listAttendance(ctx context.Context, q queryer, emp generic.EmployeeID, period generic.Period) ([]attendance.AttendanceRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT employee_id, date, check_in, check_out, raw_check_in
		FROM attendance
		WHERE employee_id = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC
	`, string(emp), period.Start.String(), period.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendance.AttendanceRecord
	for rows.Next() {
		r, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanAttendance(row scanner) (attendance.AttendanceRecord, error) {
	var r attendance.AttendanceRecord
	var emp, date string
	var checkIn, checkOut, raw sql.NullString
	if err := row.Scan(&emp, &date, &checkIn, &checkOut, &raw); err != nil {
		return r, err
	}
	r.EmployeeID = generic.EmployeeID(emp)
	r.Date, _ = generic.ParseDate(date)
	r.CheckIn = parseInstant(checkIn)
	r.CheckOut = parseInstant(checkOut)
	r.RawCheckIn = raw.String
	return r, nil
}

// =============================================================================
// LEAVE STORE
// =============================================================================

const leaveColumns = "id, employee_id, start_date, end_date, leave_type, status, reason"

// SaveLeave creates or replaces a leave record.
func (s *Store) SaveLeave(ctx context.Context, l attendance.LeaveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveLeave(ctx, s.db, l)
}

func saveLeave(ctx context.Context, q queryer, l attendance.LeaveRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO leaves (id, employee_id, start_date, end_date, leave_type, status, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			leave_type = excluded.leave_type,
			status = excluded.status,
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		l.ID, string(l.EmployeeID), l.Start.String(), l.End.String(),
		string(l.Type), string(l.Status), nullString(l.Reason), now, now,
	)
	return err
}

// GetLeave returns a leave by ID, or nil, nil.
func (s *Store) GetLeave(ctx context.Context, id string) (*attendance.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getLeave(ctx, s.db, id)
}

func getLeave(ctx context.Context, q queryer, id string) (*attendance.LeaveRecord, error) {
	l, err := scanLeave(q.QueryRowContext(ctx, "SELECT "+leaveColumns+" FROM leaves WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLeaves returns the employee's leaves of any status that overlap the period.
func (s *Store) ListLeaves(ctx context.Context, emp generic.EmployeeID, period generic.Period) ([]attendance.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listLeaves(ctx, s.db, `
		SELECT `+leaveColumns+` FROM leaves
		WHERE employee_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC
	`, string(emp), period.End.String(), period.Start.String())
}

// GetPendingLeaves returns every leave awaiting a decision.
func (s *Store) GetPendingLeaves(ctx context.Context) ([]attendance.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listLeaves(ctx, s.db,
		"SELECT "+leaveColumns+" FROM leaves WHERE status = ? ORDER BY start_date ASC, id ASC",
		string(attendance.LeavePending))
}

func listLeaves(ctx context.Context, q queryer, query string, args ...any) ([]attendance.LeaveRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendance.LeaveRecord
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLeave(row scanner) (attendance.LeaveRecord, error) {
	var l attendance.LeaveRecord
	var emp, start, end, typ, status string
	var reason sql.NullString
	if err := row.Scan(&l.ID, &emp, &start, &end, &typ, &status, &reason); err != nil {
		return l, err
	}
	l.EmployeeID = generic.EmployeeID(emp)
	l.Start, _ = generic.ParseDate(start)
	l.End, _ = generic.ParseDate(end)
	l.Type = attendance.LeaveType(typ)
	l.Status = attendance.LeaveStatus(status)
	l.Reason = reason.String
	return l, nil
}

// DecideLeave approves or rejects a pending leave. Approval is refused with an
// *attendance.OverlappingLeaveError when it would overlap another approved leave
// of the same employee; the check and the update share one transaction.
func (s *Store) DecideLeave(ctx context.Context, id string, status attendance.LeaveStatus) (*attendance.LeaveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var decided *attendance.LeaveRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		l, err := getLeave(ctx, tx, id)
		if err != nil {
			return err
		}
		if l == nil {
			return fmt.Errorf("leave %s: %w", id, ErrNotFound)
		}
		if l.Status != attendance.LeavePending {
			return fmt.Errorf("leave %s is already %s: %w", id, l.Status, ErrConflict)
		}

		if status == attendance.LeaveApproved {
			approved, err := listLeaves(ctx, tx,
				"SELECT "+leaveColumns+" FROM leaves WHERE employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
				string(l.EmployeeID), string(attendance.LeaveApproved), l.End.String(), l.Start.String())
			if err != nil {
				return err
			}
			if err := attendance.CheckApproval(*l, approved); err != nil {
				return err
			}
		}

		l.Status = status
		decided = l
		return saveLeave(ctx, tx, *l)
	})
	return decided, err
}

// =============================================================================
// SALARY STRUCTURES
// =============================================================================

// SalaryRecord is a stored salary configuration.
type SalaryRecord struct {
	EmployeeID    string
	EffectiveFrom generic.TimePoint
	ConfigJSON    string
	CreatedAt     time.Time
}

// SaveSalaryStructure stores the JSON configuration effective from a date.
// Saving again for the same date replaces it.
func (s *Store) SaveSalaryStructure(ctx context.Context, r SalaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO salary_structures (employee_id, effective_from, config_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(employee_id, effective_from) DO UPDATE SET
			config_json = excluded.config_json
	`
	_, err := s.db.ExecContext(ctx, query,
		r.EmployeeID, r.EffectiveFrom.String(), r.ConfigJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetSalaryStructure returns the configuration in force on the date, or nil, nil.
func (s *Store) GetSalaryStructure(ctx context.Context, emp string, on generic.TimePoint) (*SalaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r SalaryRecord
	var from, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT employee_id, effective_from, config_json, created_at
		FROM salary_structures
		WHERE employee_id = ? AND effective_from <= ?
		ORDER BY effective_from DESC
		LIMIT 1
	`, emp, on.String()).Scan(&r.EmployeeID, &from, &r.ConfigJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.EffectiveFrom, _ = generic.ParseDate(from)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// =============================================================================
// DEDUCTION RULES
// =============================================================================

// RuleRecord is a stored company-wide deduction rule.
type RuleRecord struct {
	Code       string
	Position   int
	ConfigJSON string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaveDeductionRule creates or updates a rule.
func (s *Store) SaveDeductionRule(ctx context.Context, r RuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO deduction_rules (code, position, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			position = excluded.position,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, r.Code, r.Position, r.ConfigJSON, now, now)
	return err
}

// ListDeductionRules returns rules in evaluation order.
func (s *Store) ListDeductionRules(ctx context.Context) ([]RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, position, config_json, created_at, updated_at FROM deduction_rules ORDER BY position ASC, code ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RuleRecord
	for rows.Next() {
		var r RuleRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&r.Code, &r.Position, &r.ConfigJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteDeductionRule removes a rule.
func (s *Store) DeleteDeductionRule(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM deduction_rules WHERE code = ?", code)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Errorf("rule %s: %w", code, ErrNotFound))
}

// =============================================================================
// HOLIDAY CALENDAR IMPLEMENTATION
// =============================================================================

var _ generic.HolidayCalendar = (*Store)(nil)

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, company_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.CompanyID,
		h.Date.String(),
		h.Name,
		h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// GetHolidays returns all holidays for a company in a given year.
// Includes both company-specific and global holidays.
func (s *Store) GetHolidays(companyID string, year int) []generic.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (recurring = TRUE OR strftime('%Y', date) = ?)
		ORDER BY date ASC
	`

	rows, err := s.db.Query(query, companyID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			continue
		}
		// If recurring, adjust year
		if h.Recurring {
			h.Date = generic.NewTimePoint(year, h.Date.Month(), h.Date.Day())
		}
		holidays = append(holidays, h)
	}

	return holidays
}

// IsHoliday checks if a date is a holiday for the given company.
func (s *Store) IsHoliday(companyID string, date generic.TimePoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (
			(recurring = FALSE AND date = ?)
			OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
		  )
	`

	var count int
	err := s.db.QueryRow(query, companyID, date.String(), date.Time.Format("01-02")).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// GetAllHolidays returns all holidays (for admin UI).
func (s *Store) GetAllHolidays(ctx context.Context, companyID string) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE company_id = ? OR company_id = ''
		ORDER BY date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}

	return holidays, rows.Err()
}

func scanHoliday(row scanner) (generic.Holiday, error) {
	var h generic.Holiday
	var dateStr string
	if err := row.Scan(&h.ID, &h.CompanyID, &dateStr, &h.Name, &h.Recurring); err != nil {
		return h, err
	}
	d, err := generic.ParseDate(dateStr)
	if err != nil {
		return h, err
	}
	h.Date = d
	return h, nil
}

// HolidaySnapshot copies the holidays of the years a period touches, so a
// payroll run reads one consistent calendar instead of querying per day.
func (s *Store) HolidaySnapshot(companyID string, period generic.Period) generic.StaticHolidays {
	var out generic.StaticHolidays
	for y := period.Start.Year(); y <= period.End.Year(); y++ {
		for _, h := range s.GetHolidays(companyID, y) {
			h.Recurring = false
			out = append(out, h)
		}
	}
	return out
}

// =============================================================================
// PAYSLIP STORE (payroll.PayslipStore interface)
// =============================================================================

var _ payroll.PayslipStore = (*Store)(nil)

// SavePayslip writes a new revision unless the latest one has the same digest.
func (s *Store) SavePayslip(ctx context.Context, p *payroll.Payslip) (payroll.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result payroll.SaveResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var latestID, latestDigest string
		var latestRev int
		err := tx.QueryRowContext(ctx, `
			SELECT id, input_digest, revision FROM payslips
			WHERE employee_id = ? AND year = ? AND month = ?
			ORDER BY revision DESC LIMIT 1
		`, string(p.EmployeeID), p.Period.Year, int(p.Period.Month)).Scan(&latestID, &latestDigest, &latestRev)

		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return err
		case latestDigest == p.InputDigest:
			p.Revision = latestRev
			result = payroll.SaveResult{Revision: latestRev, Unchanged: true}
			return nil
		}

		p.Revision = latestRev + 1
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode payslip: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payslips (employee_id, year, month, revision, id, input_digest, net_pay,
				payslip_json, generated_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, string(p.EmployeeID), p.Period.Year, int(p.Period.Month), p.Revision,
			p.ID, p.InputDigest, int64(p.NetPay), string(body),
			p.GeneratedAt.UTC().Format(time.RFC3339Nano),
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("payslip %s revision %d: %w", p.ID, p.Revision, ErrDuplicate)
			}
			return fmt.Errorf("failed to insert payslip: %w", err)
		}

		if latestID != "" {
			if _, err := tx.ExecContext(ctx,
				"UPDATE payslips SET superseded = TRUE WHERE employee_id = ? AND year = ? AND month = ? AND revision = ?",
				string(p.EmployeeID), p.Period.Year, int(p.Period.Month), latestRev,
			); err != nil {
				return err
			}
			result.SupersededID = latestID
		}
		result.Revision = p.Revision
		return nil
	})
	if err != nil {
		return payroll.SaveResult{}, err
	}
	return result, nil
}

// GetPayslip returns the latest revision for the period.
func (s *Store) GetPayslip(ctx context.Context, emp generic.EmployeeID, period generic.PayPeriod) (*payroll.Payslip, error) {
	slips, err := s.queryPayslips(ctx, `
		SELECT payslip_json FROM payslips
		WHERE employee_id = ? AND year = ? AND month = ? AND superseded = FALSE
	`, string(emp), period.Year, int(period.Month))
	if err != nil {
		return nil, err
	}
	if len(slips) == 0 {
		return nil, fmt.Errorf("%s %s: %w", emp, period, generic.ErrPayslipNotFound)
	}
	return slips[0], nil
}

// ListRevisions returns every revision, oldest first.
func (s *Store) ListRevisions(ctx context.Context, emp generic.EmployeeID, period generic.PayPeriod) ([]*payroll.Payslip, error) {
	return s.queryPayslips(ctx, `
		SELECT payslip_json FROM payslips
		WHERE employee_id = ? AND year = ? AND month = ?
		ORDER BY revision ASC
	`, string(emp), period.Year, int(period.Month))
}

// ListPayslips returns the latest revision of each period, newest period first.
func (s *Store) ListPayslips(ctx context.Context, emp generic.EmployeeID) ([]*payroll.Payslip, error) {
	return s.queryPayslips(ctx, `
		SELECT payslip_json FROM payslips
		WHERE employee_id = ? AND superseded = FALSE
		ORDER BY year DESC, month DESC
	`, string(emp))
}

func (s *Store) queryPayslips(ctx context.Context, query string, args ...any) ([]*payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*payroll.Payslip
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var p payroll.Payslip
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("failed to decode payslip: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// =============================================================================
// PAYROLL RUNS STORE
// =============================================================================

// PayrollRun records one batch run.
type PayrollRun struct {
	ID          string
	Period      generic.PayPeriod
	Status      string // running, completed, partial, failed
	Trigger     string // manual, scheduler
	Requested   int
	Succeeded   int
	Failed      int
	Errors      map[generic.EmployeeID]string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// SavePayrollRun creates or updates a run record.
func (s *Store) SavePayrollRun(ctx context.Context, r PayrollRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_runs (id, year, month, status, requested, succeeded, failed,
			errors_json, triggered_by, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			requested = excluded.requested,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			errors_json = excluded.errors_json,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	errorsJSON, err := json.Marshal(r.Errors)
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Period.Year, int(r.Period.Month), r.Status,
		r.Requested, r.Succeeded, r.Failed, string(errorsJSON), r.Trigger,
		formatInstant(r.StartedAt), formatInstant(r.CompletedAt),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetPayrollRuns returns runs, newest first, optionally filtered by status.
func (s *Store) GetPayrollRuns(ctx context.Context, status string) ([]PayrollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, year, month, status, triggered_by, requested, succeeded, failed,
			errors_json, started_at, completed_at, created_at
		FROM payroll_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []PayrollRun
	for rows.Next() {
		var r PayrollRun
		var month int
		var errorsJSON, startedAt, completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(
			&r.ID, &r.Period.Year, &month, &r.Status, &r.Trigger,
			&r.Requested, &r.Succeeded, &r.Failed,
			&errorsJSON, &startedAt, &completedAt, &createdAt,
		); err != nil {
			return nil, err
		}
		r.Period.Month = time.Month(month)
		if errorsJSON.Valid {
			_ = json.Unmarshal([]byte(errorsJSON.String), &r.Errors)
		}
		r.StartedAt = parseInstant(startedAt)
		r.CompletedAt = parseInstant(completedAt)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// IsPayrollComplete reports whether a completed run exists for the period.
func (s *Store) IsPayrollComplete(ctx context.Context, period generic.PayPeriod) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payroll_runs WHERE year = ? AND month = ? AND status = 'completed'",
		period.Year, int(period.Month),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payroll_runs", "payslips", "deduction_rules", "salary_structures",
		"leaves", "attendance", "holidays", "employees"}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}
	return nil
}

// Helper functions

var (
	// ErrNotFound is returned for records without a domain-specific sentinel.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a record is not in a state the change needs.
	ErrConflict = errors.New("record state conflict")
)

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func parseInstant(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
