/*
Package postgres provides a PostgreSQL-backed implementation of leave.TxStore.

PURPOSE:
  Same contract as store/sqlite, for deployments that already run
  PostgreSQL. Uses a pgxpool connection pool.

TRANSACTIONS:
  WithTx runs at SERIALIZABLE isolation. Two approvals racing on the same
  request or employee make one of them fail with SQLSTATE 40001, which is
  reported as leave.ErrConflict and retried by the lifecycle manager.

TYPES:
  Balances are NUMERIC and travel as text so shopspring/decimal keeps full
  precision. Dates are DATE and travel as "2006-01-02" text.

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/sqlite: SQLite implementation
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Pool settings.
const (
	maxConns = 25
	minConns = 2
)

// Store implements leave.TxStore using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New connects to dsn, verifies the connection and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = maxConns
	config.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_roles_name ON roles (LOWER(name));

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_name ON locations (LOWER(name));

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		role_id TEXT,
		location_id TEXT,
		days_available NUMERIC NOT NULL DEFAULT 0 CHECK (days_available >= 0),
		hours_available NUMERIC NOT NULL DEFAULT 0 CHECK (hours_available >= 0),
		annual_days NUMERIC NOT NULL DEFAULT 0,
		annual_hours NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_employees_location ON employees (location_id);
	CREATE INDEX IF NOT EXISTS idx_employees_role ON employees (role_id);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('days_off', 'hours_off', 'sick_leave')),
		start_date DATE NOT NULL,
		end_date DATE,
		hours_requested INTEGER CHECK (hours_requested BETWEEN 1 AND 8),
		status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'denied')),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		processed_by TEXT,
		processed_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_requests_employee_status ON leave_requests (employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_status_window ON leave_requests (status, start_date, end_date);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Reset deletes every row.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE leave_requests, employees, roles, locations")
	return mapErr(err)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn inside a serializable transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapErr(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&view{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapErr(err))
	}
	return nil
}

// view implements leave.Store on a pool or a transaction.
type view struct {
	q querier
}

func (s *Store) v() *view { return &view{q: s.pool} }

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return s.v().GetRequest(ctx, id)
}

func (s *Store) QueryRequests(ctx context.Context, q leave.RequestQuery) ([]leave.LeaveRequest, error) {
	return s.v().QueryRequests(ctx, q)
}

func (s *Store) SaveRequest(ctx context.Context, r leave.LeaveRequest) error {
	return s.v().SaveRequest(ctx, r)
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	return s.v().DeleteRequest(ctx, id)
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	return s.v().GetEmployee(ctx, id)
}

func (s *Store) ListEmployees(ctx context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	return s.v().ListEmployees(ctx, f)
}

func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	return s.v().SaveEmployee(ctx, e)
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	return s.v().DeleteEmployee(ctx, id)
}

func (s *Store) GetRole(ctx context.Context, id string) (*leave.Role, error) {
	return s.v().GetRole(ctx, id)
}

func (s *Store) ListRoles(ctx context.Context) ([]leave.Role, error) {
	return s.v().ListRoles(ctx)
}

func (s *Store) SaveRole(ctx context.Context, r leave.Role) error {
	return s.v().SaveRole(ctx, r)
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	return s.v().DeleteRole(ctx, id)
}

func (s *Store) GetLocation(ctx context.Context, id string) (*leave.Location, error) {
	return s.v().GetLocation(ctx, id)
}

func (s *Store) ListLocations(ctx context.Context) ([]leave.Location, error) {
	return s.v().ListLocations(ctx)
}

func (s *Store) SaveLocation(ctx context.Context, l leave.Location) error {
	return s.v().SaveLocation(ctx, l)
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	return s.v().DeleteLocation(ctx, id)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, type, start_date::text, end_date::text, hours_requested,
	status, notes, created_at, processed_by, processed_at`

func (v *view) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	rows, err := v.q.Query(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = $1", id)
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

func (v *view) QueryRequests(ctx context.Context, q leave.RequestQuery) ([]leave.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)
	arg := func(a any) string {
		args = append(args, a)
		return "$" + strconv.Itoa(len(args))
	}
	if q.EmployeeID != "" {
		where = append(where, "employee_id = "+arg(q.EmployeeID))
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		where = append(where, "type = ANY("+arg(types)+")")
	}
	if q.LocationID != "" {
		where = append(where, "employee_id IN (SELECT id FROM employees WHERE location_id = "+arg(q.LocationID)+")")
	}
	if q.Window != nil {
		where = append(where,
			"start_date <= "+arg(q.Window.End.String())+"::text::date",
			"COALESCE(end_date, start_date) >= "+arg(q.Window.Start.String())+"::text::date")
	}

	query := "SELECT " + requestColumns + " FROM leave_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, id"

	rows, err := v.q.Query(ctx, query, args...)
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

func (v *view) SaveRequest(ctx context.Context, r leave.LeaveRequest) error {
	var endDate *string
	if r.EndDate != nil {
		s := r.EndDate.String()
		endDate = &s
	}
	_, err := v.q.Exec(ctx, `
		INSERT INTO leave_requests (id, employee_id, type, start_date, end_date, hours_requested,
			status, notes, created_at, processed_by, processed_at)
		VALUES ($1, $2, $3, $4::text::date, $5::text::date, $6, $7, NULLIF($8, ''), $9, NULLIF($10, ''), $11)
		ON CONFLICT (id) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			type = EXCLUDED.type,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			hours_requested = EXCLUDED.hours_requested,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			processed_by = EXCLUDED.processed_by,
			processed_at = EXCLUDED.processed_at`,
		r.ID, r.EmployeeID, string(r.Type), r.StartDate.String(), endDate, r.HoursRequested,
		string(r.Status), r.Notes, r.CreatedAt.UTC(), r.ProcessedBy, r.ProcessedAt,
	)
	return mapErr(err)
}

func (v *view) DeleteRequest(ctx context.Context, id string) error {
	return v.deleteRow(ctx, "leave_requests", "request", id)
}

func scanRequest(rows pgx.Rows) (leave.LeaveRequest, error) {
	var (
		r                     leave.LeaveRequest
		typ, status, start    string
		end, notes, processed *string
	)
	err := rows.Scan(&r.ID, &r.EmployeeID, &typ, &start, &end, &r.HoursRequested,
		&status, &notes, &r.CreatedAt, &processed, &r.ProcessedAt)
	if err != nil {
		return r, err
	}
	r.Type = leave.RequestType(typ)
	r.Status = leave.Status(status)
	if notes != nil {
		r.Notes = *notes
	}
	if processed != nil {
		r.ProcessedBy = *processed
	}
	if r.StartDate, err = leave.ParseDate(start); err != nil {
		return r, err
	}
	if end != nil {
		d, err := leave.ParseDate(*end)
		if err != nil {
			return r, err
		}
		r.EndDate = &d
	}
	return r, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, first_name, last_name, email, role_id, location_id,
	days_available::text, hours_available::text, annual_days::text, annual_hours::text, created_at`

func (v *view) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	rows, err := v.q.Query(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", id)
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

func (v *view) ListEmployees(ctx context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees" +
		" WHERE ($1 = '' OR location_id = $1) AND ($2 = '' OR role_id = $2) ORDER BY id"
	rows, err := v.q.Query(ctx, query, f.LocationID, f.RoleID)
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

func (v *view) SaveEmployee(ctx context.Context, e leave.Employee) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := v.q.Exec(ctx, `
		INSERT INTO employees (id, first_name, last_name, email, role_id, location_id,
			days_available, hours_available, annual_days, annual_hours, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''),
			$7::text::numeric, $8::text::numeric, $9::text::numeric, $10::text::numeric, $11)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			role_id = EXCLUDED.role_id,
			location_id = EXCLUDED.location_id,
			days_available = EXCLUDED.days_available,
			hours_available = EXCLUDED.hours_available,
			annual_days = EXCLUDED.annual_days,
			annual_hours = EXCLUDED.annual_hours`,
		e.ID, e.FirstName, e.LastName, e.Email, e.RoleID, e.LocationID,
		e.DaysAvailable.String(), e.HoursAvailable.String(),
		e.AnnualDays.String(), e.AnnualHours.String(), createdAt.UTC(),
	)
	return mapErr(err)
}

func (v *view) DeleteEmployee(ctx context.Context, id string) error {
	return v.deleteRow(ctx, "employees", "employee", id)
}

func scanEmployee(rows pgx.Rows) (leave.Employee, error) {
	var (
		e                              leave.Employee
		roleID, locationID             *string
		days, hours, annDays, annHours string
	)
	err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &roleID, &locationID,
		&days, &hours, &annDays, &annHours, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	if roleID != nil {
		e.RoleID = *roleID
	}
	if locationID != nil {
		e.LocationID = *locationID
	}
	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{days, &e.DaysAvailable},
		{hours, &e.HoursAvailable},
		{annDays, &e.AnnualDays},
		{annHours, &e.AnnualHours},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return e, fmt.Errorf("parse balance %q: %w", f.src, err)
		}
		*f.dst = d
	}
	return e, nil
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (v *view) GetRole(ctx context.Context, id string) (*leave.Role, error) {
	var r leave.Role
	ok, err := v.getNamed(ctx, "roles", id, &r.ID, &r.Name)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

func (v *view) ListRoles(ctx context.Context) ([]leave.Role, error) {
	var out []leave.Role
	err := v.listNamed(ctx, "roles", func(id, name string) {
		out = append(out, leave.Role{ID: id, Name: name})
	})
	return out, err
}

func (v *view) SaveRole(ctx context.Context, r leave.Role) error {
	return v.saveNamed(ctx, "roles", r.ID, r.Name)
}

func (v *view) DeleteRole(ctx context.Context, id string) error {
	return v.deleteRow(ctx, "roles", "role", id)
}

func (v *view) GetLocation(ctx context.Context, id string) (*leave.Location, error) {
	var l leave.Location
	ok, err := v.getNamed(ctx, "locations", id, &l.ID, &l.Name)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

func (v *view) ListLocations(ctx context.Context) ([]leave.Location, error) {
	var out []leave.Location
	err := v.listNamed(ctx, "locations", func(id, name string) {
		out = append(out, leave.Location{ID: id, Name: name})
	})
	return out, err
}

func (v *view) SaveLocation(ctx context.Context, l leave.Location) error {
	return v.saveNamed(ctx, "locations", l.ID, l.Name)
}

func (v *view) DeleteLocation(ctx context.Context, id string) error {
	return v.deleteRow(ctx, "locations", "location", id)
}

// Table names below are constants from this file, never user input.

func (v *view) getNamed(ctx context.Context, table, id string, dstID, dstName *string) (bool, error) {
	err := v.q.QueryRow(ctx, "SELECT id, name FROM "+table+" WHERE id = $1", id).Scan(dstID, dstName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (v *view) listNamed(ctx context.Context, table string, fn func(id, name string)) error {
	rows, err := v.q.Query(ctx, "SELECT id, name FROM "+table+" ORDER BY name")
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

func (v *view) saveNamed(ctx context.Context, table, id, name string) error {
	_, err := v.q.Exec(ctx,
		"INSERT INTO "+table+" (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name",
		id, name)
	return mapErr(err)
}

func (v *view) deleteRow(ctx context.Context, table, kind, id string) error {
	tag, err := v.q.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return &leave.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// mapErr translates PostgreSQL errors into the leave error taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", leave.ErrConflict, err)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %v", leave.ErrDuplicateName, err)
		}
	}
	return err
}
