/*
Package sqlite provides a SQLite-backed implementation of leave.TxStore.

PURPOSE:
  Persists employees, leave requests, roles and locations in a single
  SQLite file (or ":memory:" for tests and demos).

KEY TABLES:
  employees:       Roster and balances (decimals stored as TEXT)
  leave_requests:  One row per request; end_date NULL for hours_off
  roles:           Reference data, unique name (case-insensitive)
  locations:       Reference data, unique name (case-insensitive)

INDEXES:
  - idx_requests_employee_status: Overlap validation (hot path)
  - idx_requests_status_window:   Approved-in-window query for availability
  - idx_employees_location:       Roster filtered by location

DATE STORAGE:
  Dates are "2006-01-02" strings, so range predicates compare
  lexicographically. Timestamps are RFC3339 in UTC.

CONCURRENCY:
  Uses sync.RWMutex around the connection pool; WithTx holds the write
  lock for the whole transaction. SQLITE_BUSY / SQLITE_LOCKED surface as
  leave.ErrConflict so the lifecycle manager can retry.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  mgr := leave.NewManager(store)

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation of the same contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewFromDB wraps an already-migrated database handle.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_roles_name
		ON roles(name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_name
		ON locations(name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		role_id TEXT,
		location_id TEXT,
		days_available TEXT NOT NULL DEFAULT '0',
		hours_available TEXT NOT NULL DEFAULT '0',
		annual_days TEXT NOT NULL DEFAULT '0',
		annual_hours TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_employees_location
		ON employees(location_id);
	CREATE INDEX IF NOT EXISTS idx_employees_role
		ON employees(role_id);

	-- Requests are not tied to employees by a foreign key: deleting an
	-- employee leaves their history in place.
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('days_off', 'hours_off', 'sick_leave')),
		start_date TEXT NOT NULL,
		end_date TEXT,
		hours_requested INTEGER,
		status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'denied')),
		notes TEXT,
		created_at TEXT NOT NULL,
		processed_by TEXT,
		processed_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_requests_employee_status
		ON leave_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_status_window
		ON leave_requests(status, start_date, end_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes every row. Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"leave_requests", "employees", "roles", "locations"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// QUERIER - shared by Store and txStore
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, type, start_date, end_date, hours_requested,
	status, notes, created_at, processed_by, processed_at`

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func (s *Store) QueryRequests(ctx context.Context, q leave.RequestQuery) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryRequests(ctx, s.db, q)
}

func (s *Store) SaveRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRequest(ctx, s.db, r)
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRow(ctx, s.db, "leave_requests", "request", id)
}

func getRequest(ctx context.Context, db querier, id string) (*leave.LeaveRequest, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, mapErr(rows.Err())
	}
	r, err := scanRequest(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func queryRequests(ctx context.Context, db querier, q leave.RequestQuery) ([]leave.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)
	if q.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, q.EmployeeID)
	}
	if len(q.Statuses) > 0 {
		marks := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if len(q.Types) > 0 {
		marks := make([]string, len(q.Types))
		for i, t := range q.Types {
			marks[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "type IN ("+strings.Join(marks, ", ")+")")
	}
	if q.LocationID != "" {
		where = append(where, "employee_id IN (SELECT id FROM employees WHERE location_id = ?)")
		args = append(args, q.LocationID)
	}
	if q.Window != nil {
		where = append(where, "start_date <= ? AND COALESCE(end_date, start_date) >= ?")
		args = append(args, q.Window.End.String(), q.Window.Start.String())
	}

	query := "SELECT " + requestColumns + " FROM leave_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}

func saveRequest(ctx context.Context, db querier, r leave.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			type = excluded.type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			hours_requested = excluded.hours_requested,
			status = excluded.status,
			notes = excluded.notes,
			processed_by = excluded.processed_by,
			processed_at = excluded.processed_at
	`

	var endDate sql.NullString
	if r.EndDate != nil {
		endDate = sql.NullString{String: r.EndDate.String(), Valid: true}
	}
	var hours sql.NullInt64
	if r.HoursRequested != nil {
		hours = sql.NullInt64{Int64: int64(*r.HoursRequested), Valid: true}
	}
	var processedAt sql.NullString
	if r.ProcessedAt != nil {
		processedAt = sql.NullString{String: r.ProcessedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		r.ID, r.EmployeeID, string(r.Type), r.StartDate.String(), endDate, hours,
		string(r.Status), nullString(r.Notes), r.CreatedAt.UTC().Format(time.RFC3339),
		nullString(r.ProcessedBy), processedAt,
	)
	return mapErr(err)
}

func scanRequest(rows *sql.Rows) (leave.LeaveRequest, error) {
	var (
		r                                   leave.LeaveRequest
		typ, status, startDate, createdAt   string
		endDate, notes, processedBy, procAt sql.NullString
		hours                               sql.NullInt64
	)
	err := rows.Scan(&r.ID, &r.EmployeeID, &typ, &startDate, &endDate, &hours,
		&status, &notes, &createdAt, &processedBy, &procAt)
	if err != nil {
		return r, err
	}

	r.Type = leave.RequestType(typ)
	r.Status = leave.Status(status)
	r.Notes = notes.String
	r.ProcessedBy = processedBy.String
	if r.StartDate, err = leave.ParseDate(startDate); err != nil {
		return r, err
	}
	if endDate.Valid {
		d, err := leave.ParseDate(endDate.String)
		if err != nil {
			return r, err
		}
		r.EndDate = &d
	}
	if hours.Valid {
		h := int(hours.Int64)
		r.HoursRequested = &h
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return r, fmt.Errorf("request %s created_at: %w", r.ID, err)
	}
	if procAt.Valid {
		t, err := time.Parse(time.RFC3339, procAt.String)
		if err != nil {
			return r, fmt.Errorf("request %s processed_at: %w", r.ID, err)
		}
		r.ProcessedAt = &t
	}
	return r, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, first_name, last_name, email, role_id, location_id,
	days_available, hours_available, annual_days, annual_hours, created_at`

func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

func (s *Store) ListEmployees(ctx context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployees(ctx, s.db, f)
}

func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEmployee(ctx, s.db, e)
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRow(ctx, s.db, "employees", "employee", id)
}

func getEmployee(ctx context.Context, db querier, id string) (*leave.Employee, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, mapErr(rows.Err())
	}
	e, err := scanEmployee(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func listEmployees(ctx context.Context, db querier, f leave.EmployeeFilter) ([]leave.Employee, error) {
	var (
		where []string
		args  []any
	)
	if f.LocationID != "" {
		where = append(where, "location_id = ?")
		args = append(args, f.LocationID)
	}
	if f.RoleID != "" {
		where = append(where, "role_id = ?")
		args = append(args, f.RoleID)
	}
	query := "SELECT " + employeeColumns + " FROM employees"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func saveEmployee(ctx context.Context, db querier, e leave.Employee) error {
	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			role_id = excluded.role_id,
			location_id = excluded.location_id,
			days_available = excluded.days_available,
			hours_available = excluded.hours_available,
			annual_days = excluded.annual_days,
			annual_hours = excluded.annual_hours
	`
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.ExecContext(ctx, query,
		e.ID, e.FirstName, e.LastName, e.Email,
		nullString(e.RoleID), nullString(e.LocationID),
		e.DaysAvailable.String(), e.HoursAvailable.String(),
		e.AnnualDays.String(), e.AnnualHours.String(),
		createdAt.UTC().Format(time.RFC3339),
	)
	return mapErr(err)
}

func scanEmployee(rows *sql.Rows) (leave.Employee, error) {
	var (
		e                              leave.Employee
		roleID, locationID             sql.NullString
		days, hours, annDays, annHours string
		createdAt                      string
	)
	err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &roleID, &locationID,
		&days, &hours, &annDays, &annHours, &createdAt)
	if err != nil {
		return e, err
	}
	e.RoleID = roleID.String
	e.LocationID = locationID.String
	for _, f := range []struct {
		column string
		raw    string
		dst    *decimal.Decimal
	}{
		{"days_available", days, &e.DaysAvailable},
		{"hours_available", hours, &e.HoursAvailable},
		{"annual_days", annDays, &e.AnnualDays},
		{"annual_hours", annHours, &e.AnnualHours},
	} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return e, fmt.Errorf("employee %s %s: %w", e.ID, f.column, err)
		}
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return e, fmt.Errorf("employee %s created_at: %w", e.ID, err)
	}
	return e, nil
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (s *Store) GetRole(ctx context.Context, id string) (*leave.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, name, err := getNamed(ctx, s.db, "roles", id)
	if err != nil || id == "" {
		return nil, err
	}
	return &leave.Role{ID: id, Name: name}, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]leave.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Role
	err := listNamed(ctx, s.db, "roles", func(id, name string) {
		out = append(out, leave.Role{ID: id, Name: name})
	})
	return out, err
}

func (s *Store) SaveRole(ctx context.Context, r leave.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveNamed(ctx, s.db, "roles", r.ID, r.Name)
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRow(ctx, s.db, "roles", "role", id)
}

func (s *Store) GetLocation(ctx context.Context, id string) (*leave.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, name, err := getNamed(ctx, s.db, "locations", id)
	if err != nil || id == "" {
		return nil, err
	}
	return &leave.Location{ID: id, Name: name}, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]leave.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Location
	err := listNamed(ctx, s.db, "locations", func(id, name string) {
		out = append(out, leave.Location{ID: id, Name: name})
	})
	return out, err
}

func (s *Store) SaveLocation(ctx context.Context, l leave.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveNamed(ctx, s.db, "locations", l.ID, l.Name)
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRow(ctx, s.db, "locations", "location", id)
}

// Table names below are compile-time constants, never user input.

func getNamed(ctx context.Context, db querier, table, id string) (string, string, error) {
	var gotID, name string
	err := db.QueryRowContext(ctx, "SELECT id, name FROM "+table+" WHERE id = ?", id).Scan(&gotID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	return gotID, name, mapErr(err)
}

func listNamed(ctx context.Context, db querier, table string, fn func(id, name string)) error {
	rows, err := db.QueryContext(ctx, "SELECT id, name FROM "+table+" ORDER BY name")
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		fn(id, name)
	}
	return mapErr(rows.Err())
}

func saveNamed(ctx context.Context, db querier, table, id, name string) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO "+table+" (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name",
		id, name)
	return mapErr(err)
}

func deleteRow(ctx context.Context, db querier, table, kind, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &leave.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapErr(err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return mapErr(sqlTx.Commit())
}

// txStore runs every operation on one *sql.Tx. The parent lock is held.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) QueryRequests(ctx context.Context, q leave.RequestQuery) ([]leave.LeaveRequest, error) {
	return queryRequests(ctx, ts.tx, q)
}

func (ts *txStore) SaveRequest(ctx context.Context, r leave.LeaveRequest) error {
	return saveRequest(ctx, ts.tx, r)
}

func (ts *txStore) DeleteRequest(ctx context.Context, id string) error {
	return deleteRow(ctx, ts.tx, "leave_requests", "request", id)
}

func (ts *txStore) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) ListEmployees(ctx context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	return listEmployees(ctx, ts.tx, f)
}

func (ts *txStore) SaveEmployee(ctx context.Context, e leave.Employee) error {
	return saveEmployee(ctx, ts.tx, e)
}

func (ts *txStore) DeleteEmployee(ctx context.Context, id string) error {
	return deleteRow(ctx, ts.tx, "employees", "employee", id)
}

func (ts *txStore) GetRole(ctx context.Context, id string) (*leave.Role, error) {
	id, name, err := getNamed(ctx, ts.tx, "roles", id)
	if err != nil || id == "" {
		return nil, err
	}
	return &leave.Role{ID: id, Name: name}, nil
}

func (ts *txStore) ListRoles(ctx context.Context) ([]leave.Role, error) {
	var out []leave.Role
	err := listNamed(ctx, ts.tx, "roles", func(id, name string) {
		out = append(out, leave.Role{ID: id, Name: name})
	})
	return out, err
}

func (ts *txStore) SaveRole(ctx context.Context, r leave.Role) error {
	return saveNamed(ctx, ts.tx, "roles", r.ID, r.Name)
}

func (ts *txStore) DeleteRole(ctx context.Context, id string) error {
	return deleteRow(ctx, ts.tx, "roles", "role", id)
}

func (ts *txStore) GetLocation(ctx context.Context, id string) (*leave.Location, error) {
	id, name, err := getNamed(ctx, ts.tx, "locations", id)
	if err != nil || id == "" {
		return nil, err
	}
	return &leave.Location{ID: id, Name: name}, nil
}

func (ts *txStore) ListLocations(ctx context.Context) ([]leave.Location, error) {
	var out []leave.Location
	err := listNamed(ctx, ts.tx, "locations", func(id, name string) {
		out = append(out, leave.Location{ID: id, Name: name})
	})
	return out, err
}

func (ts *txStore) SaveLocation(ctx context.Context, l leave.Location) error {
	return saveNamed(ctx, ts.tx, "locations", l.ID, l.Name)
}

func (ts *txStore) DeleteLocation(ctx context.Context, id string) error {
	return deleteRow(ctx, ts.tx, "locations", "location", id)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// mapErr translates driver errors into the leave error taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch {
		case se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %v", leave.ErrConflict, err)
		case se.ExtendedCode == sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %v", leave.ErrDuplicateName, err)
		}
	}
	return err
}
