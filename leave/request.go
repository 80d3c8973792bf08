/*
request.go - Request shape, ranges, debits and day coverage

PURPOSE:
  Everything that can be derived from a single LeaveRequest without
  touching the store:

    Range()     the inclusive window of days the request occupies
    Debit()     how much approving it takes from the balance
    CoversDay() whether the request puts its employee on leave on a day

  CoversDay is the single day-coverage predicate. The availability grid,
  the "today" dashboard figure and the employee calendar all go through it.

DRAFTS:
  RequestDraft is the user-editable part of a request (type, dates, hours,
  notes). Create and edit both take a draft, check its shape, and then
  normalize it so that fields belonging to the other type are cleared.

SEE ALSO:
  - validator.go: Overlap checks built on Range()
  - lifecycle.go: Applies Debit() on approve
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Range returns the inclusive window the request occupies.
// hours_off requests (and malformed requests without an end) cover their
// start day only.
func (r LeaveRequest) Range() Range {
	if r.Type == TypeHoursOff || r.EndDate == nil {
		return SingleDay(r.StartDate)
	}
	return Range{Start: r.StartDate, End: *r.EndDate}
}

// Debit returns the balance amount consumed when the request is approved:
// the requested hours for hours_off, otherwise the inclusive day count.
func (r LeaveRequest) Debit() decimal.Decimal {
	if r.Type == TypeHoursOff {
		if r.HoursRequested == nil {
			return decimal.Zero
		}
		return decimal.NewFromInt(int64(*r.HoursRequested))
	}
	return decimal.NewFromInt(int64(r.Range().Len()))
}

// CoversDay reports whether request r puts its employee on leave on day d.
func CoversDay(r LeaveRequest, d Date) bool {
	return r.Range().Contains(d)
}

// ApplyDebit subtracts debit from balance, flooring at zero.
func ApplyDebit(balance, debit decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, balance.Sub(debit))
}

// =============================================================================
// DRAFT
// =============================================================================

// RequestDraft holds the user-supplied fields of a request.
type RequestDraft struct {
	Type           RequestType
	StartDate      Date
	EndDate        *Date
	HoursRequested *int
	Notes          string
}

// Check validates the draft's shape: known type, end date present iff the
// type is day-based and not before the start, hours within 1..8 for
// hours_off.
func (d RequestDraft) Check() error {
	if !d.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown request type %q", d.Type)}
	}
	if d.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "start date is required"}
	}

	if d.Type == TypeHoursOff {
		if d.HoursRequested == nil {
			return &ValidationError{Field: "hours_requested", Reason: "hours are required for hours_off"}
		}
		if h := *d.HoursRequested; h < MinHoursRequested || h > MaxHoursRequested {
			return &ValidationError{
				Field:  "hours_requested",
				Reason: fmt.Sprintf("hours must be between %d and %d, got %d", MinHoursRequested, MaxHoursRequested, h),
			}
		}
		return nil
	}

	if d.EndDate == nil {
		return &ValidationError{Field: "end_date", Reason: fmt.Sprintf("end date is required for %s", d.Type)}
	}
	if d.EndDate.Before(d.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "end date must not be before start date"}
	}
	return nil
}

// Range returns the window the draft would occupy.
func (d RequestDraft) Range() Range {
	return d.normalized().apply(LeaveRequest{}).Range()
}

// normalized drops the fields that don't belong to the draft's type.
func (d RequestDraft) normalized() RequestDraft {
	if d.Type == TypeHoursOff {
		d.EndDate = nil
	} else {
		d.HoursRequested = nil
	}
	return d
}

// apply copies the draft's fields onto r.
func (d RequestDraft) apply(r LeaveRequest) LeaveRequest {
	r.Type = d.Type
	r.StartDate = d.StartDate
	r.EndDate = d.EndDate
	r.HoursRequested = d.HoursRequested
	r.Notes = d.Notes
	return r
}

// DraftOf returns the editable fields of r.
func DraftOf(r LeaveRequest) RequestDraft {
	return RequestDraft{
		Type:           r.Type,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		HoursRequested: r.HoursRequested,
		Notes:          r.Notes,
	}
}
