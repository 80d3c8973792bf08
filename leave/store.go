/*
store.go - Persistence interface for leave records

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  never issues SQL; it asks the Store for records and hands back records
  to persist.

KEY INTERFACES:
  RequestStore:   Leave requests (query by employee/status/type/location/window,
                  save, delete)
  EmployeeStore:  Roster with balances
  ReferenceStore: Roles and locations
  Store:          All of the above
  TxStore:        Store + WithTx for atomic multi-record writes

NOT-FOUND CONTRACT:
  Get* methods return (nil, nil) when the record doesn't exist. Delete*
  methods return an error wrapping ErrNotFound. Save* methods insert or
  overwrite.

ATOMICITY:
  Approve writes the request and the employee balance inside WithTx.
  If fn returns an error nothing is persisted. Implementations that detect
  contention return an error wrapping ErrConflict so callers can retry.

IMPLEMENTATIONS:
  - leave/store/memory.go: In-memory, snapshot rollback, fault injection
  - store/sqlite/sqlite.go: SQLite via database/sql
  - store/postgres/postgres.go: PostgreSQL via pgx

SEE ALSO:
  - lifecycle.go: The only caller of WithTx
*/
package leave

import "context"

// =============================================================================
// QUERIES
// =============================================================================

// RequestQuery selects leave requests. Zero-valued fields don't filter.
type RequestQuery struct {
	EmployeeID string
	Statuses   []Status
	Types      []RequestType
	// LocationID keeps only requests of employees currently assigned to
	// the location. Requests of deleted employees never match it.
	LocationID string
	// Window keeps only requests whose range overlaps it.
	Window *Range
}

// Matches reports whether r satisfies q's request-level fields. Stores that
// can't express the query natively filter with this and MatchesEmployee.
func (q RequestQuery) Matches(r LeaveRequest) bool {
	if q.EmployeeID != "" && r.EmployeeID != q.EmployeeID {
		return false
	}
	if len(q.Statuses) > 0 && !contains(q.Statuses, r.Status) {
		return false
	}
	if len(q.Types) > 0 && !contains(q.Types, r.Type) {
		return false
	}
	if q.Window != nil && !r.Range().Overlaps(*q.Window) {
		return false
	}
	return true
}

// MatchesEmployee reports whether a request owned by e satisfies the
// location filter. e is nil when the employee no longer exists.
func (q RequestQuery) MatchesEmployee(e *Employee) bool {
	if q.LocationID == "" {
		return true
	}
	return e != nil && e.LocationID == q.LocationID
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// EmployeeFilter selects employees. Zero-valued fields don't filter.
type EmployeeFilter struct {
	LocationID string
	RoleID     string
}

// Matches reports whether e satisfies f.
func (f EmployeeFilter) Matches(e Employee) bool {
	if f.LocationID != "" && e.LocationID != f.LocationID {
		return false
	}
	if f.RoleID != "" && e.RoleID != f.RoleID {
		return false
	}
	return true
}

// =============================================================================
// STORE
// =============================================================================

// RequestStore persists leave requests.
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)
	QueryRequests(ctx context.Context, q RequestQuery) ([]LeaveRequest, error)
	SaveRequest(ctx context.Context, r LeaveRequest) error
	DeleteRequest(ctx context.Context, id string) error
}

// EmployeeStore persists the roster.
type EmployeeStore interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context, f EmployeeFilter) ([]Employee, error)
	SaveEmployee(ctx context.Context, e Employee) error
	DeleteEmployee(ctx context.Context, id string) error
}

// ReferenceStore persists roles and locations.
type ReferenceStore interface {
	GetRole(ctx context.Context, id string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	SaveRole(ctx context.Context, r Role) error
	DeleteRole(ctx context.Context, id string) error

	GetLocation(ctx context.Context, id string) (*Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	SaveLocation(ctx context.Context, l Location) error
	DeleteLocation(ctx context.Context, id string) error
}

// Store is the full record store.
type Store interface {
	RequestStore
	EmployeeStore
	ReferenceStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
