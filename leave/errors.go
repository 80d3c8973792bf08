/*
errors.go - Error taxonomy for the leave engine

PURPOSE:
  All error types in one place. Callers branch on the sentinels with
  errors.Is; the structured types carry the details a caller needs to
  build a message.

ERROR CATEGORIES:
  1. Validation - malformed input, overlapping ranges
  2. Not found  - missing request, employee, role or location
  3. Conflict   - transaction contention, records still in use, taken ids
  4. Store      - collaborator failures (I/O, driver errors)

USAGE:
    req, err := mgr.Create(ctx, empID, draft)
    switch {
    case errors.Is(err, leave.ErrOverlap):
        // tell the user they already have leave on those days
    case leave.IsNotFound(err):
        // 404
    }

SEE ALSO:
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for any rejected input, overlaps included.
	ErrValidation = errors.New("validation failed")

	// ErrOverlap is returned when a range overlaps an existing pending or
	// approved request of the same employee.
	ErrOverlap = errors.New("overlapping leave request")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when concurrent writers collide.
	ErrConflict = errors.New("conflicting concurrent modification")

	// ErrInUse is returned when a delete is blocked by dependent records.
	ErrInUse = errors.New("record in use")

	// ErrAlreadyExists is returned when a create names an id that is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDuplicateName is returned when a role or location name is taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrStore is returned when the record store fails.
	ErrStore = errors.New("store failure")
)

// OverlapReason is the user-facing message for ErrOverlap.
const OverlapReason = "You already have a request for this date range"

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// OverlapError reports the request that a candidate range collides with.
type OverlapError struct {
	EmployeeID string
	Range      Range
	ExistingID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %s overlaps request %s", OverlapReason, e.Range, e.ExistingID)
}

func (e *OverlapError) Unwrap() []error {
	return []error{ErrOverlap, ErrValidation}
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "request", "employee", "role", "location"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError is returned once retries on a contended write are exhausted.
type ConflictError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: conflict after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() []error {
	return []error{ErrConflict, e.Err}
}

// InUseError explains why a delete was refused.
type InUseError struct {
	Kind   string
	ID     string
	Reason string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("cannot delete %s %q: %s", e.Kind, e.ID, e.Reason)
}

func (e *InUseError) Unwrap() error {
	return ErrInUse
}

// StoreError wraps a failure from the record store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

// storeErr wraps err as a StoreError unless it already carries a domain
// meaning (not found, conflict, duplicate name).
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicateName) || errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateName)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
