/*
Package sqlite provides a SQLite-backed schedule.TxRepository.

PURPOSE:
  Persists settings, employees, requests and schedules with database/sql
  and go-sqlite3. The same SQL runs against *sql.DB and *sql.Tx through the
  querier interface, so WithTx hands fn a repository bound to one
  transaction.

KEY TABLES:
  settings:           one JSON document per establishment
  employees:          scalar columns + JSON for overrides and history
  permanent_requests: one row per request, days/cycle as JSON
  time_off_requests:  one row per request, explicit dates as JSON
  schedules:          one row per (establishment, week), UNIQUE
  shifts:             owned by schedules, replaced wholesale on save

AGGREGATE WRITES:
  SaveSchedule upserts the schedule row, deletes its shifts and inserts the
  new ones in a single transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection, which
  also keeps ":memory:" databases alive across calls.

USAGE:
  store, err := sqlite.New("./data/shifts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - schedule/store.go: Repository contract
  - store/memory: In-memory implementation for testing
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

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// Store implements schedule.TxRepository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is the subset of *sql.DB and *sql.Tx the queries need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		establishment_id TEXT PRIMARY KEY,
		settings_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		establishment_id TEXT NOT NULL,
		name TEXT NOT NULL,
		initials TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		weekly_hours INTEGER NOT NULL,
		seniority_date TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		hours_debt TEXT NOT NULL DEFAULT '0',
		overrides_json TEXT NOT NULL DEFAULT '[]',
		history_json TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_establishment
		ON employees(establishment_id);

	CREATE TABLE IF NOT EXISTS permanent_requests (
		id TEXT PRIMARY KEY,
		establishment_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		type TEXT NOT NULL,
		days_json TEXT NOT NULL DEFAULT '[]',
		value INTEGER NOT NULL DEFAULT 0,
		cycle_json TEXT NOT NULL DEFAULT '[]',
		reference_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_permanent_requests_establishment
		ON permanent_requests(establishment_id);

	CREATE TABLE IF NOT EXISTS time_off_requests (
		id TEXT PRIMARY KEY,
		establishment_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		type TEXT NOT NULL,
		dates_json TEXT NOT NULL DEFAULT '[]',
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_off_establishment
		ON time_off_requests(establishment_id);

	-- One schedule per establishment week
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		establishment_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		status TEXT NOT NULL,
		approval_status TEXT NOT NULL,
		modification_status TEXT NOT NULL,
		supervisor_notes TEXT NOT NULL DEFAULT '',
		applied_debt_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(establishment_id, week_start)
	);

	CREATE TABLE IF NOT EXISTS shifts (
		schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		morning_end_time TEXT NOT NULL DEFAULT '',
		afternoon_start_time TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		is_opening BOOLEAN NOT NULL DEFAULT FALSE,
		is_closing BOOLEAN NOT NULL DEFAULT FALSE,
		is_individual_meeting BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (schedule_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_schedule_position
		ON shifts(schedule_id, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context, establishmentID string) (schedule.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.GetSettings(ctx, establishmentID)
}

func (s *Store) SaveSettings(ctx context.Context, establishmentID string, settings schedule.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo{s.db}.SaveSettings(ctx, establishmentID, settings)
}

func (s *Store) ListEstablishments(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.ListEstablishments(ctx)
}

func (s *Store) ListEmployees(ctx context.Context, establishmentID string) ([]schedule.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.ListEmployees(ctx, establishmentID)
}

func (s *Store) GetEmployee(ctx context.Context, id string) (schedule.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.GetEmployee(ctx, id)
}

func (s *Store) SaveEmployee(ctx context.Context, employee schedule.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo{s.db}.SaveEmployee(ctx, employee)
}

func (s *Store) ListPermanentRequests(ctx context.Context, establishmentID string) ([]schedule.PermanentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.ListPermanentRequests(ctx, establishmentID)
}

func (s *Store) SavePermanentRequest(ctx context.Context, establishmentID string, request schedule.PermanentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo{s.db}.SavePermanentRequest(ctx, establishmentID, request)
}

func (s *Store) ListTimeOffRequests(ctx context.Context, establishmentID string) ([]schedule.TimeOffRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.ListTimeOffRequests(ctx, establishmentID)
}

func (s *Store) SaveTimeOffRequest(ctx context.Context, establishmentID string, request schedule.TimeOffRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo{s.db}.SaveTimeOffRequest(ctx, establishmentID, request)
}

func (s *Store) FindSchedule(ctx context.Context, establishmentID string, weekStart calendar.Date) (*schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.FindSchedule(ctx, establishmentID, weekStart)
}

func (s *Store) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo{s.db}.GetSchedule(ctx, id)
}

// SaveSchedule writes the schedule and its shifts in one transaction.
func (s *Store) SaveSchedule(ctx context.Context, sch *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := (repo{sqlTx}).SaveSchedule(ctx, sch); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo{s.db}.DeleteSchedule(ctx, id)
}

// =============================================================================
// TRANSACTIONAL STORE (schedule.TxRepository interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repo schedule.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(repo{sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Reset clears all data (for testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"shifts", "schedules", "time_off_requests", "permanent_requests", "employees", "settings"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// QUERIES - unlocked, bound to a *sql.DB or *sql.Tx
// =============================================================================

type repo struct {
	q querier
}

func (r repo) GetSettings(ctx context.Context, establishmentID string) (schedule.Settings, error) {
	var raw string
	err := r.q.QueryRowContext(ctx,
		"SELECT settings_json FROM settings WHERE establishment_id = ?", establishmentID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.Settings{}, fmt.Errorf("%w: settings for establishment %s", schedule.ErrNotFound, establishmentID)
	}
	if err != nil {
		return schedule.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	var settings schedule.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return schedule.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

func (r repo) SaveSettings(ctx context.Context, establishmentID string, settings schedule.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO settings (establishment_id, settings_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(establishment_id) DO UPDATE SET
			settings_json = excluded.settings_json,
			updated_at = excluded.updated_at
	`, establishmentID, string(raw), now())
	return err
}

// ListEstablishments returns every establishment with settings or staff.
func (r repo) ListEstablishments(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT establishment_id FROM settings
		UNION
		SELECT establishment_id FROM employees
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list establishments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Employees
// -----------------------------------------------------------------------------

const employeeColumns = `id, establishment_id, name, initials, category, weekly_hours,
	seniority_date, birth_date, active, hours_debt, overrides_json, history_json`

func (r repo) ListEmployees(ctx context.Context, establishmentID string) ([]schedule.Employee, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE establishment_id = ? ORDER BY name, id",
		establishmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []schedule.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r repo) GetEmployee(ctx context.Context, id string) (schedule.Employee, error) {
	e, err := scanEmployee(r.q.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.Employee{}, fmt.Errorf("%w: employee %s", schedule.ErrNotFound, id)
	}
	return e, err
}

func (r repo) SaveEmployee(ctx context.Context, e schedule.Employee) error {
	overrides, err := json.Marshal(nonNil(e.HoursOverrides))
	if err != nil {
		return err
	}
	history, err := json.Marshal(nonNil(e.History))
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			establishment_id = excluded.establishment_id,
			name = excluded.name,
			initials = excluded.initials,
			category = excluded.category,
			weekly_hours = excluded.weekly_hours,
			seniority_date = excluded.seniority_date,
			birth_date = excluded.birth_date,
			active = excluded.active,
			hours_debt = excluded.hours_debt,
			overrides_json = excluded.overrides_json,
			history_json = excluded.history_json,
			updated_at = excluded.updated_at
	`,
		e.ID, e.EstablishmentID, e.Name, e.Initials, string(e.Category), e.WeeklyHours,
		formatDate(e.SeniorityDate), formatDate(e.BirthDate), e.Active, e.HoursDebt.String(),
		string(overrides), string(history), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (schedule.Employee, error) {
	var e schedule.Employee
	var category, seniority, birth, debt, overrides, history string
	err := row.Scan(&e.ID, &e.EstablishmentID, &e.Name, &e.Initials, &category, &e.WeeklyHours,
		&seniority, &birth, &e.Active, &debt, &overrides, &history)
	if err != nil {
		return e, err
	}
	e.Category = schedule.Category(category)
	if e.SeniorityDate, err = parseDate(seniority); err != nil {
		return e, err
	}
	if e.BirthDate, err = parseDate(birth); err != nil {
		return e, err
	}
	if e.HoursDebt, err = decimal.NewFromString(debt); err != nil {
		return e, fmt.Errorf("invalid hours debt for employee %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(overrides), &e.HoursOverrides); err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(history), &e.History); err != nil {
		return e, err
	}
	if len(e.HoursOverrides) == 0 {
		e.HoursOverrides = nil
	}
	if len(e.History) == 0 {
		e.History = nil
	}
	return e, nil
}

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

func (r repo) ListPermanentRequests(ctx context.Context, establishmentID string) ([]schedule.PermanentRequest, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, employee_id, type, days_json, value, cycle_json, reference_date
		FROM permanent_requests
		WHERE establishment_id = ?
		ORDER BY created_at, id
	`, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permanent requests: %w", err)
	}
	defer rows.Close()

	var out []schedule.PermanentRequest
	for rows.Next() {
		var req schedule.PermanentRequest
		var typ, days, cycle, ref string
		if err := rows.Scan(&req.ID, &req.EmployeeID, &typ, &days, &req.Value, &cycle, &ref); err != nil {
			return nil, err
		}
		req.Type = schedule.PermanentRequestType(typ)
		if err := json.Unmarshal([]byte(days), &req.Days); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cycle), &req.CycleWeeks); err != nil {
			return nil, err
		}
		if req.ReferenceDate, err = parseDate(ref); err != nil {
			return nil, err
		}
		if len(req.Days) == 0 {
			req.Days = nil
		}
		if len(req.CycleWeeks) == 0 {
			req.CycleWeeks = nil
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r repo) SavePermanentRequest(ctx context.Context, establishmentID string, req schedule.PermanentRequest) error {
	days, err := json.Marshal(nonNil(req.Days))
	if err != nil {
		return err
	}
	cycle, err := json.Marshal(nonNil(req.CycleWeeks))
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO permanent_requests
		(id, establishment_id, employee_id, type, days_json, value, cycle_json, reference_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			days_json = excluded.days_json,
			value = excluded.value,
			cycle_json = excluded.cycle_json,
			reference_date = excluded.reference_date
	`, req.ID, establishmentID, req.EmployeeID, string(req.Type), string(days), req.Value,
		string(cycle), formatDate(req.ReferenceDate), now())
	if err != nil {
		return fmt.Errorf("failed to save permanent request: %w", err)
	}
	return nil
}

func (r repo) ListTimeOffRequests(ctx context.Context, establishmentID string) ([]schedule.TimeOffRequest, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, employee_id, type, dates_json, start_date, end_date
		FROM time_off_requests
		WHERE establishment_id = ?
		ORDER BY created_at, id
	`, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query time-off requests: %w", err)
	}
	defer rows.Close()

	var out []schedule.TimeOffRequest
	for rows.Next() {
		var req schedule.TimeOffRequest
		var typ, dates, start, end string
		if err := rows.Scan(&req.ID, &req.EmployeeID, &typ, &dates, &start, &end); err != nil {
			return nil, err
		}
		req.Type = schedule.TimeOffType(typ)
		if err := json.Unmarshal([]byte(dates), &req.Dates); err != nil {
			return nil, err
		}
		if len(req.Dates) == 0 {
			req.Dates = nil
		}
		if req.StartDate, err = parseDate(start); err != nil {
			return nil, err
		}
		if req.EndDate, err = parseDate(end); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r repo) SaveTimeOffRequest(ctx context.Context, establishmentID string, req schedule.TimeOffRequest) error {
	dates, err := json.Marshal(nonNil(req.Dates))
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO time_off_requests
		(id, establishment_id, employee_id, type, dates_json, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			dates_json = excluded.dates_json,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`, req.ID, establishmentID, req.EmployeeID, string(req.Type), string(dates),
		formatDate(req.StartDate), formatDate(req.EndDate), now())
	if err != nil {
		return fmt.Errorf("failed to save time-off request: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Schedules
// -----------------------------------------------------------------------------

const scheduleColumns = `id, establishment_id, week_start, status, approval_status,
	modification_status, supervisor_notes, applied_debt_json, created_at, updated_at`

// FindSchedule returns (nil, nil) when the week has none.
func (r repo) FindSchedule(ctx context.Context, establishmentID string, weekStart calendar.Date) (*schedule.Schedule, error) {
	sch, err := r.loadSchedule(ctx,
		"SELECT "+scheduleColumns+" FROM schedules WHERE establishment_id = ? AND week_start = ?",
		establishmentID, calendar.WeekStart(weekStart).String(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sch, err
}

func (r repo) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	sch, err := r.loadSchedule(ctx, "SELECT "+scheduleColumns+" FROM schedules WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: schedule %s", schedule.ErrNotFound, id)
	}
	return sch, err
}

func (r repo) loadSchedule(ctx context.Context, query string, args ...any) (*schedule.Schedule, error) {
	var sch schedule.Schedule
	var week, status, approval, modification, applied, created, updated string
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&sch.ID, &sch.EstablishmentID, &week, &status, &approval, &modification,
		&sch.SupervisorNotes, &applied, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	sch.Status = schedule.Status(status)
	sch.ApprovalStatus = schedule.ApprovalStatus(approval)
	sch.ModificationStatus = schedule.ModificationStatus(modification)
	if sch.WeekStartDate, err = parseDate(week); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(applied), &sch.AppliedDebt); err != nil {
		return nil, fmt.Errorf("failed to decode applied debt: %w", err)
	}
	if len(sch.AppliedDebt) == 0 {
		sch.AppliedDebt = nil
	}
	sch.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sch.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)

	if sch.Shifts, err = r.loadShifts(ctx, sch.ID); err != nil {
		return nil, err
	}
	return &sch, nil
}

func (r repo) loadShifts(ctx context.Context, scheduleID string) ([]schedule.Shift, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, employee_id, date, type, start_time, end_time, morning_end_time,
		       afternoon_start_time, role, is_opening, is_closing, is_individual_meeting
		FROM shifts
		WHERE schedule_id = ?
		ORDER BY position
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var out []schedule.Shift
	for rows.Next() {
		var sh schedule.Shift
		var date, typ, role string
		if err := rows.Scan(&sh.ID, &sh.EmployeeID, &date, &typ, &sh.StartTime, &sh.EndTime,
			&sh.MorningEndTime, &sh.AfternoonStartTime, &role,
			&sh.IsOpening, &sh.IsClosing, &sh.IsIndividualMeeting); err != nil {
			return nil, err
		}
		if sh.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		sh.Type = schedule.ShiftType(typ)
		sh.Role = schedule.Role(role)
		out = append(out, sh)
	}
	return out, rows.Err()
}

// SaveSchedule upserts the row and replaces every shift. Callers provide
// the transaction.
func (r repo) SaveSchedule(ctx context.Context, sch *schedule.Schedule) error {
	applied, err := json.Marshal(sch.AppliedDebt)
	if err != nil {
		return err
	}
	if sch.AppliedDebt == nil {
		applied = []byte("{}")
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			approval_status = excluded.approval_status,
			modification_status = excluded.modification_status,
			supervisor_notes = excluded.supervisor_notes,
			applied_debt_json = excluded.applied_debt_json,
			updated_at = excluded.updated_at
	`,
		sch.ID, sch.EstablishmentID, sch.WeekStartDate.String(), string(sch.Status),
		string(sch.ApprovalStatus), string(sch.ModificationStatus), sch.SupervisorNotes,
		string(applied), formatTime(sch.CreatedAt), formatTime(sch.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return r.alreadyExists(ctx, sch)
		}
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, "DELETE FROM shifts WHERE schedule_id = ?", sch.ID); err != nil {
		return fmt.Errorf("failed to clear shifts: %w", err)
	}
	for i, sh := range sch.Shifts {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO shifts
			(schedule_id, id, position, employee_id, date, type, start_time, end_time,
			 morning_end_time, afternoon_start_time, role, is_opening, is_closing, is_individual_meeting)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sch.ID, sh.ID, i, sh.EmployeeID, sh.Date.String(), string(sh.Type), sh.StartTime, sh.EndTime,
			sh.MorningEndTime, sh.AfternoonStartTime, string(sh.Role), sh.IsOpening, sh.IsClosing, sh.IsIndividualMeeting)
		if err != nil {
			return fmt.Errorf("failed to save shift %s: %w", sh.ID, err)
		}
	}
	return nil
}

func (r repo) alreadyExists(ctx context.Context, sch *schedule.Schedule) error {
	var existing string
	_ = r.q.QueryRowContext(ctx,
		"SELECT id FROM schedules WHERE establishment_id = ? AND week_start = ?",
		sch.EstablishmentID, sch.WeekStartDate.String(),
	).Scan(&existing)
	return &schedule.AlreadyExistsError{
		EstablishmentID: sch.EstablishmentID,
		WeekStart:       sch.WeekStartDate,
		ScheduleID:      existing,
	}
}

func (r repo) DeleteSchedule(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: schedule %s", schedule.ErrNotFound, id)
	}
	return nil
}

// =============================================================================
// Helper functions
// =============================================================================

func now() string { return formatTime(time.Now().UTC()) }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatDate(d calendar.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) (calendar.Date, error) {
	if s == "" {
		return calendar.Date{}, nil
	}
	return calendar.ParseDate(s)
}

// nonNil keeps JSON columns as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
