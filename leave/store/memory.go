// Package store provides in-process Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements leave.TxStore in process memory. WithTx is simulated
// with a snapshot that is restored when fn fails.
type Memory struct {
	mu        sync.Mutex
	requests  map[string]leave.LeaveRequest
	employees map[string]leave.Employee
	roles     map[string]leave.Role
	locations map[string]leave.Location

	faults map[string]*fault
}

type fault struct {
	err       error
	remaining int // <= 0 means every call
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		requests:  make(map[string]leave.LeaveRequest),
		employees: make(map[string]leave.Employee),
		roles:     make(map[string]leave.Role),
		locations: make(map[string]leave.Location),
		faults:    make(map[string]*fault),
	}
}

// FailOn makes the named operation ("SaveEmployee", "QueryRequests",
// "WithTx", ...) return err. times <= 0 fails every call; otherwise the
// fault clears after that many failures.
func (m *Memory) FailOn(op string, err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = &fault{err: err, remaining: times}
}

// ClearFaults removes every injected fault.
func (m *Memory) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = make(map[string]*fault)
}

// Reset drops all records.
func (m *Memory) Reset(context.Context) error {
	return m.locked("Reset", func() error {
		m.restore(memorySnapshot{
			requests:  make(map[string]leave.LeaveRequest),
			employees: make(map[string]leave.Employee),
			roles:     make(map[string]leave.Role),
			locations: make(map[string]leave.Location),
		})
		return nil
	})
}

// faultLocked must be called with mu held.
func (m *Memory) faultLocked(op string) error {
	f, ok := m.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(m.faults, op)
		}
	}
	return fmt.Errorf("%s: %w", op, f.err)
}

// locked runs fn under the lock after consulting injected faults.
func (m *Memory) locked(op string, fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultLocked(op); err != nil {
		return err
	}
	return fn()
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) GetRequest(_ context.Context, id string) (r *leave.LeaveRequest, err error) {
	err = m.locked("GetRequest", func() error { r = m.getRequestLocked(id); return nil })
	return r, err
}

func (m *Memory) QueryRequests(_ context.Context, q leave.RequestQuery) (rs []leave.LeaveRequest, err error) {
	err = m.locked("QueryRequests", func() error { rs = m.queryRequestsLocked(q); return nil })
	return rs, err
}

func (m *Memory) SaveRequest(_ context.Context, r leave.LeaveRequest) error {
	return m.locked("SaveRequest", func() error { m.requests[r.ID] = r; return nil })
}

func (m *Memory) DeleteRequest(_ context.Context, id string) error {
	return m.locked("DeleteRequest", func() error { return m.deleteRequestLocked(id) })
}

func (m *Memory) getRequestLocked(id string) *leave.LeaveRequest {
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	return &r
}

func (m *Memory) queryRequestsLocked(q leave.RequestQuery) []leave.LeaveRequest {
	var out []leave.LeaveRequest
	for _, r := range m.requests {
		if !q.Matches(r) {
			continue
		}
		if q.LocationID != "" && !q.MatchesEmployee(m.getEmployeeLocked(r.EmployeeID)) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) deleteRequestLocked(id string) error {
	if _, ok := m.requests[id]; !ok {
		return &leave.NotFoundError{Kind: "request", ID: id}
	}
	delete(m.requests, id)
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id string) (e *leave.Employee, err error) {
	err = m.locked("GetEmployee", func() error { e = m.getEmployeeLocked(id); return nil })
	return e, err
}

func (m *Memory) ListEmployees(_ context.Context, f leave.EmployeeFilter) (es []leave.Employee, err error) {
	err = m.locked("ListEmployees", func() error { es = m.listEmployeesLocked(f); return nil })
	return es, err
}

func (m *Memory) SaveEmployee(_ context.Context, e leave.Employee) error {
	return m.locked("SaveEmployee", func() error { m.employees[e.ID] = e; return nil })
}

func (m *Memory) DeleteEmployee(_ context.Context, id string) error {
	return m.locked("DeleteEmployee", func() error { return m.deleteEmployeeLocked(id) })
}

func (m *Memory) getEmployeeLocked(id string) *leave.Employee {
	e, ok := m.employees[id]
	if !ok {
		return nil
	}
	return &e
}

func (m *Memory) listEmployeesLocked(f leave.EmployeeFilter) []leave.Employee {
	var out []leave.Employee
	for _, e := range m.employees {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) deleteEmployeeLocked(id string) error {
	if _, ok := m.employees[id]; !ok {
		return &leave.NotFoundError{Kind: "employee", ID: id}
	}
	delete(m.employees, id)
	return nil
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (m *Memory) GetRole(_ context.Context, id string) (r *leave.Role, err error) {
	err = m.locked("GetRole", func() error {
		if v, ok := m.roles[id]; ok {
			r = &v
		}
		return nil
	})
	return r, err
}

func (m *Memory) ListRoles(_ context.Context) (rs []leave.Role, err error) {
	err = m.locked("ListRoles", func() error {
		for _, r := range m.roles {
			rs = append(rs, r)
		}
		sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
		return nil
	})
	return rs, err
}

func (m *Memory) SaveRole(_ context.Context, r leave.Role) error {
	return m.locked("SaveRole", func() error { m.roles[r.ID] = r; return nil })
}

func (m *Memory) DeleteRole(_ context.Context, id string) error {
	return m.locked("DeleteRole", func() error {
		if _, ok := m.roles[id]; !ok {
			return &leave.NotFoundError{Kind: "role", ID: id}
		}
		delete(m.roles, id)
		return nil
	})
}

func (m *Memory) GetLocation(_ context.Context, id string) (l *leave.Location, err error) {
	err = m.locked("GetLocation", func() error {
		if v, ok := m.locations[id]; ok {
			l = &v
		}
		return nil
	})
	return l, err
}

func (m *Memory) ListLocations(_ context.Context) (ls []leave.Location, err error) {
	err = m.locked("ListLocations", func() error {
		for _, l := range m.locations {
			ls = append(ls, l)
		}
		sort.Slice(ls, func(i, j int) bool { return ls[i].Name < ls[j].Name })
		return nil
	})
	return ls, err
}

func (m *Memory) SaveLocation(_ context.Context, l leave.Location) error {
	return m.locked("SaveLocation", func() error { m.locations[l.ID] = l; return nil })
}

func (m *Memory) DeleteLocation(_ context.Context, id string) error {
	return m.locked("DeleteLocation", func() error {
		if _, ok := m.locations[id]; !ok {
			return &leave.NotFoundError{Kind: "location", ID: id}
		}
		delete(m.locations, id)
		return nil
	})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The store stays locked for the duration of fn, so transactions are
// serialized against every other caller.
func (m *Memory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.faultLocked("WithTx"); err != nil {
		return err
	}

	snapshot := m.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	requests  map[string]leave.LeaveRequest
	employees map[string]leave.Employee
	roles     map[string]leave.Role
	locations map[string]leave.Location
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		requests:  make(map[string]leave.LeaveRequest, len(m.requests)),
		employees: make(map[string]leave.Employee, len(m.employees)),
		roles:     make(map[string]leave.Role, len(m.roles)),
		locations: make(map[string]leave.Location, len(m.locations)),
	}
	for k, v := range m.requests {
		s.requests[k] = v
	}
	for k, v := range m.employees {
		s.employees[k] = v
	}
	for k, v := range m.roles {
		s.roles[k] = v
	}
	for k, v := range m.locations {
		s.locations[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.requests = s.requests
	m.employees = s.employees
	m.roles = s.roles
	m.locations = s.locations
}

// txMemoryView runs against the parent's maps while the parent lock is held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	if err := tv.parent.faultLocked("GetRequest"); err != nil {
		return nil, err
	}
	return tv.parent.getRequestLocked(id), nil
}

func (tv *txMemoryView) QueryRequests(_ context.Context, q leave.RequestQuery) ([]leave.LeaveRequest, error) {
	if err := tv.parent.faultLocked("QueryRequests"); err != nil {
		return nil, err
	}
	return tv.parent.queryRequestsLocked(q), nil
}

func (tv *txMemoryView) SaveRequest(_ context.Context, r leave.LeaveRequest) error {
	if err := tv.parent.faultLocked("SaveRequest"); err != nil {
		return err
	}
	tv.parent.requests[r.ID] = r
	return nil
}

func (tv *txMemoryView) DeleteRequest(_ context.Context, id string) error {
	if err := tv.parent.faultLocked("DeleteRequest"); err != nil {
		return err
	}
	return tv.parent.deleteRequestLocked(id)
}

func (tv *txMemoryView) GetEmployee(_ context.Context, id string) (*leave.Employee, error) {
	if err := tv.parent.faultLocked("GetEmployee"); err != nil {
		return nil, err
	}
	return tv.parent.getEmployeeLocked(id), nil
}

func (tv *txMemoryView) ListEmployees(_ context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	if err := tv.parent.faultLocked("ListEmployees"); err != nil {
		return nil, err
	}
	return tv.parent.listEmployeesLocked(f), nil
}

func (tv *txMemoryView) SaveEmployee(_ context.Context, e leave.Employee) error {
	if err := tv.parent.faultLocked("SaveEmployee"); err != nil {
		return err
	}
	tv.parent.employees[e.ID] = e
	return nil
}

func (tv *txMemoryView) DeleteEmployee(_ context.Context, id string) error {
	if err := tv.parent.faultLocked("DeleteEmployee"); err != nil {
		return err
	}
	return tv.parent.deleteEmployeeLocked(id)
}

func (tv *txMemoryView) GetRole(_ context.Context, id string) (*leave.Role, error) {
	if r, ok := tv.parent.roles[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (tv *txMemoryView) ListRoles(_ context.Context) ([]leave.Role, error) {
	var rs []leave.Role
	for _, r := range tv.parent.roles {
		rs = append(rs, r)
	}
	return rs, nil
}

func (tv *txMemoryView) SaveRole(_ context.Context, r leave.Role) error {
	tv.parent.roles[r.ID] = r
	return nil
}

func (tv *txMemoryView) DeleteRole(_ context.Context, id string) error {
	delete(tv.parent.roles, id)
	return nil
}

func (tv *txMemoryView) GetLocation(_ context.Context, id string) (*leave.Location, error) {
	if l, ok := tv.parent.locations[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (tv *txMemoryView) ListLocations(_ context.Context) ([]leave.Location, error) {
	var ls []leave.Location
	for _, l := range tv.parent.locations {
		ls = append(ls, l)
	}
	return ls, nil
}

func (tv *txMemoryView) SaveLocation(_ context.Context, l leave.Location) error {
	tv.parent.locations[l.ID] = l
	return nil
}

func (tv *txMemoryView) DeleteLocation(_ context.Context, id string) error {
	delete(tv.parent.locations, id)
	return nil
}
