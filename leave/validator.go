/*
validator.go - Overlap validation for leave requests

PURPOSE:
  Rejects a candidate range that overlaps one of the employee's pending or
  approved requests. Denied requests never block.

RULES:
  - Ranges are inclusive; touching endpoints overlap
  - hours_off occupies its single day
  - excludeID skips the request being edited

FAILURE:
  If existing requests cannot be read, validation fails closed: the
  verdict is invalid with a retry message.

SEE ALSO:
  - date.go: Range.Overlaps
  - lifecycle.go: Create and Edit call Check
*/
package leave

import (
	"context"
	"errors"
)

// Verdict is the outcome of validating a candidate range.
type Verdict struct {
	Valid  bool
	Reason string
	// ConflictID is the request the candidate collided with, if any.
	ConflictID string
}

// Validator rejects candidate ranges that overlap an employee's pending or
// approved requests. The check is day-granular: two hours_off requests on
// the same day collide regardless of remaining hours.
type Validator struct {
	requests RequestStore
}

// NewValidator returns a Validator reading from rs.
func NewValidator(rs RequestStore) *Validator {
	return &Validator{requests: rs}
}

// Check returns nil when candidate is free, an *OverlapError when it
// collides, or a store error when existing requests could not be read.
// excludeID skips one request, so an edit doesn't collide with itself.
func (v *Validator) Check(ctx context.Context, employeeID string, candidate Range, excludeID string) error {
	return checkOverlap(ctx, v.requests, employeeID, candidate, excludeID)
}

// Validate is Check reduced to an accept/reject verdict. Read failures
// reject.
func (v *Validator) Validate(ctx context.Context, employeeID string, candidate Range, excludeID string) Verdict {
	return verdictOf(v.Check(ctx, employeeID, candidate, excludeID))
}

func checkOverlap(ctx context.Context, rs RequestStore, employeeID string, candidate Range, excludeID string) error {
	existing, err := rs.QueryRequests(ctx, RequestQuery{
		EmployeeID: employeeID,
		Statuses:   ActiveStatuses,
	})
	if err != nil {
		return storeErr("query requests", err)
	}

	for _, r := range existing {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if r.Range().Overlaps(candidate) {
			return &OverlapError{EmployeeID: employeeID, Range: candidate, ExistingID: r.ID}
		}
	}
	return nil
}

func verdictOf(err error) Verdict {
	if err == nil {
		return Verdict{Valid: true}
	}
	var overlap *OverlapError
	switch {
	case errors.As(err, &overlap):
		return Verdict{Reason: OverlapReason, ConflictID: overlap.ExistingID}
	case IsClientError(err):
		return Verdict{Reason: err.Error()}
	default:
		return Verdict{Reason: "Unable to verify existing requests, please try again"}
	}
}
