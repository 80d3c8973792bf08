/*
types.go - Core records of the leave domain

PURPOSE:
  Defines the records the engine reads and writes: employees with their
  leave balances, leave requests, and the role/location reference data
  employees point at by id.

KEY CONCEPTS:
  RequestType:  days_off | hours_off | sick_leave
  Status:       pending | approved | denied
  Balances:     DaysAvailable / HoursAvailable are current and mutable.
                AnnualDays / AnnualHours are contractual totals.

OWNERSHIP:
  The lifecycle manager only ever writes DaysAvailable and HoursAvailable,
  and only from approve. Every other employee field belongs to the
  directory operations in directory.go.

SEE ALSO:
  - request.go: Request ranges, debits and day coverage
  - errors.go: Error taxonomy
*/
package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST TYPE & STATUS
// =============================================================================

// RequestType distinguishes whole-day leave from partial-day leave.
type RequestType string

const (
	TypeDaysOff   RequestType = "days_off"
	TypeHoursOff  RequestType = "hours_off"
	TypeSickLeave RequestType = "sick_leave"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case TypeDaysOff, TypeHoursOff, TypeSickLeave:
		return true
	}
	return false
}

// UsesHours reports whether requests of this type debit hoursAvailable.
func (t RequestType) UsesHours() bool { return t == TypeHoursOff }

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// ActiveStatuses are the statuses that take part in overlap checks.
var ActiveStatuses = []Status{StatusPending, StatusApproved}

// Hour limits for a single hours_off request.
const (
	MinHoursRequested = 1
	MaxHoursRequested = 8
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a member of the roster together with their leave balances.
type Employee struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	RoleID     string
	LocationID string

	DaysAvailable  decimal.Decimal
	HoursAvailable decimal.Decimal
	AnnualDays     decimal.Decimal
	AnnualHours    decimal.Decimal

	CreatedAt time.Time
}

// FullName returns "First Last".
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Balance returns the balance field debited by requests of type t.
func (e Employee) Balance(t RequestType) decimal.Decimal {
	if t.UsesHours() {
		return e.HoursAvailable
	}
	return e.DaysAvailable
}

// WithBalance returns a copy of e with the balance field for t set to v.
func (e Employee) WithBalance(t RequestType, v decimal.Decimal) Employee {
	if t.UsesHours() {
		e.HoursAvailable = v
	} else {
		e.DaysAvailable = v
	}
	return e
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// LeaveRequest is a single time-off request.
// EndDate is set iff Type is days_off or sick_leave.
// HoursRequested is set iff Type is hours_off.
type LeaveRequest struct {
	ID             string
	EmployeeID     string
	Type           RequestType
	StartDate      Date
	EndDate        *Date
	HoursRequested *int
	Status         Status
	Notes          string
	CreatedAt      time.Time
	ProcessedBy    string
	ProcessedAt    *time.Time
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// Role is a job role employees are assigned to.
type Role struct {
	ID   string
	Name string
}

// Location is a workplace employees are assigned to.
type Location struct {
	ID   string
	Name string
}

// AllLocationsName labels reports that are not filtered by location.
const AllLocationsName = "All Locations"
