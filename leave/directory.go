/*
directory.go - Employees, roles and locations

PURPOSE:
  Manages the roster and the reference data it points at. Balances are
  written here only when an employee is created or updated by an admin;
  approval is the only other writer.

GUARDS:
  - Creating with an id that is already taken fails with ErrAlreadyExists
  - Role and location names are unique, ignoring case
  - An employee with pending requests cannot be deleted
  - A role or location assigned to anyone cannot be deleted

SEE ALSO:
  - lifecycle.go: Balance debits on approve
  - store.go: EmployeeStore, ReferenceStore
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Directory manages employees and the role/location reference data they
// point at. Deletes are refused while other records still depend on the
// target.
type Directory struct {
	store Store
	newID func() string
}

// NewDirectory returns a Directory over store.
func NewDirectory(store Store) *Directory {
	return &Directory{store: store, newID: uuid.NewString}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// GetEmployee returns the employee with the given id.
func (d *Directory) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	e, err := d.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, storeErr("get employee", err)
	}
	if e == nil {
		return nil, &NotFoundError{Kind: "employee", ID: id}
	}
	return e, nil
}

// ListEmployees returns the employees matching f.
func (d *Directory) ListEmployees(ctx context.Context, f EmployeeFilter) ([]Employee, error) {
	es, err := d.store.ListEmployees(ctx, f)
	if err != nil {
		return nil, storeErr("list employees", err)
	}
	return es, nil
}

// CreateEmployee validates e, assigns an id when missing and stores it.
// A caller-supplied id must not belong to an existing employee.
func (d *Directory) CreateEmployee(ctx context.Context, e Employee) (*Employee, error) {
	if e.ID == "" {
		e.ID = d.newID()
	} else {
		cur, err := d.store.GetEmployee(ctx, e.ID)
		if err != nil {
			return nil, storeErr("get employee", err)
		}
		if cur != nil {
			return nil, fmt.Errorf("employee %q: %w", e.ID, ErrAlreadyExists)
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := d.checkEmployee(ctx, e); err != nil {
		return nil, err
	}
	if err := d.store.SaveEmployee(ctx, e); err != nil {
		return nil, storeErr("save employee", err)
	}
	return &e, nil
}

// UpdateEmployee overwrites an existing employee.
func (d *Directory) UpdateEmployee(ctx context.Context, e Employee) (*Employee, error) {
	cur, err := d.GetEmployee(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if err := d.checkEmployee(ctx, e); err != nil {
		return nil, err
	}
	e.CreatedAt = cur.CreatedAt
	if err := d.store.SaveEmployee(ctx, e); err != nil {
		return nil, storeErr("save employee", err)
	}
	return &e, nil
}

// DeleteEmployee removes an employee that has no pending requests.
// Their other requests are left in place.
func (d *Directory) DeleteEmployee(ctx context.Context, id string) error {
	if _, err := d.GetEmployee(ctx, id); err != nil {
		return err
	}
	pending, err := d.store.QueryRequests(ctx, RequestQuery{
		EmployeeID: id,
		Statuses:   []Status{StatusPending},
	})
	if err != nil {
		return storeErr("query requests", err)
	}
	if len(pending) > 0 {
		return &InUseError{Kind: "employee", ID: id, Reason: "employee has pending time-off requests"}
	}
	return storeErr("delete employee", d.store.DeleteEmployee(ctx, id))
}

func (d *Directory) checkEmployee(ctx context.Context, e Employee) error {
	switch {
	case strings.TrimSpace(e.FirstName) == "":
		return &ValidationError{Field: "first_name", Reason: "first name is required"}
	case strings.TrimSpace(e.LastName) == "":
		return &ValidationError{Field: "last_name", Reason: "last name is required"}
	case !strings.Contains(e.Email, "@"):
		return &ValidationError{Field: "email", Reason: "a valid email is required"}
	}

	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"days_available", e.DaysAvailable},
		{"hours_available", e.HoursAvailable},
		{"annual_days", e.AnnualDays},
		{"annual_hours", e.AnnualHours},
	} {
		if f.value.IsNegative() {
			return &ValidationError{Field: f.name, Reason: "must not be negative"}
		}
	}

	if e.RoleID != "" {
		r, err := d.store.GetRole(ctx, e.RoleID)
		if err != nil {
			return storeErr("get role", err)
		}
		if r == nil {
			return &ValidationError{Field: "role_id", Reason: "unknown role " + e.RoleID}
		}
	}
	if e.LocationID != "" {
		l, err := d.store.GetLocation(ctx, e.LocationID)
		if err != nil {
			return storeErr("get location", err)
		}
		if l == nil {
			return &ValidationError{Field: "location_id", Reason: "unknown location " + e.LocationID}
		}
	}
	return nil
}

// =============================================================================
// ROLES
// =============================================================================

// ListRoles returns every role.
func (d *Directory) ListRoles(ctx context.Context) ([]Role, error) {
	rs, err := d.store.ListRoles(ctx)
	return rs, storeErr("list roles", err)
}

// SaveRole creates or renames a role. Names are unique, ignoring case.
func (d *Directory) SaveRole(ctx context.Context, r Role) (*Role, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "role name is required"}
	}
	existing, err := d.store.ListRoles(ctx)
	if err != nil {
		return nil, storeErr("list roles", err)
	}
	for _, o := range existing {
		if o.ID != r.ID && strings.EqualFold(o.Name, r.Name) {
			return nil, ErrDuplicateName
		}
	}
	if r.ID == "" {
		r.ID = d.newID()
	}
	if err := d.store.SaveRole(ctx, r); err != nil {
		return nil, storeErr("save role", err)
	}
	return &r, nil
}

// DeleteRole removes a role nobody is assigned to.
func (d *Directory) DeleteRole(ctx context.Context, id string) error {
	assigned, err := d.store.ListEmployees(ctx, EmployeeFilter{RoleID: id})
	if err != nil {
		return storeErr("list employees", err)
	}
	if len(assigned) > 0 {
		return &InUseError{Kind: "role", ID: id, Reason: "role is assigned to employees"}
	}
	return storeErr("delete role", d.store.DeleteRole(ctx, id))
}

// =============================================================================
// LOCATIONS
// =============================================================================

// ListLocations returns every location.
func (d *Directory) ListLocations(ctx context.Context) ([]Location, error) {
	ls, err := d.store.ListLocations(ctx)
	return ls, storeErr("list locations", err)
}

// SaveLocation creates or renames a location. Names are unique, ignoring case.
func (d *Directory) SaveLocation(ctx context.Context, l Location) (*Location, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "location name is required"}
	}
	existing, err := d.store.ListLocations(ctx)
	if err != nil {
		return nil, storeErr("list locations", err)
	}
	for _, o := range existing {
		if o.ID != l.ID && strings.EqualFold(o.Name, l.Name) {
			return nil, ErrDuplicateName
		}
	}
	if l.ID == "" {
		l.ID = d.newID()
	}
	if err := d.store.SaveLocation(ctx, l); err != nil {
		return nil, storeErr("save location", err)
	}
	return &l, nil
}

// DeleteLocation removes a location nobody is assigned to.
func (d *Directory) DeleteLocation(ctx context.Context, id string) error {
	assigned, err := d.store.ListEmployees(ctx, EmployeeFilter{LocationID: id})
	if err != nil {
		return storeErr("list employees", err)
	}
	if len(assigned) > 0 {
		return &InUseError{Kind: "location", ID: id, Reason: "location is assigned to employees"}
	}
	return storeErr("delete location", d.store.DeleteLocation(ctx, id))
}
