/*
stats.go - Dashboard counters and the employee calendar

PURPOSE:
  Read-only summaries for the admin dashboard and the per-employee month
  view. Nothing here writes.

SEE ALSO:
  - availability.go: Staffing per day
  - api/handlers.go: GetStats, GetCalendar, GetPendingCount
*/
package leave

import (
	"context"
)

// CalendarEvent marks one day of an employee's calendar.
type CalendarEvent struct {
	RequestID string
	Type      RequestType
	Status    Status
	// Hours is set for hours_off requests.
	Hours *int
}

// Stats answers the dashboard counters and the employee calendar.
type Stats struct {
	store Store
}

// NewStats returns Stats reading from store.
func NewStats(store Store) *Stats {
	return &Stats{store: store}
}

// PendingCount returns the number of pending requests across all employees.
func (s *Stats) PendingCount(ctx context.Context) (int, error) {
	return s.countRequests(ctx, RequestQuery{Statuses: []Status{StatusPending}})
}

// PendingCountForEmployee returns the number of pending requests of one employee.
func (s *Stats) PendingCountForEmployee(ctx context.Context, employeeID string) (int, error) {
	return s.countRequests(ctx, RequestQuery{EmployeeID: employeeID, Statuses: []Status{StatusPending}})
}

// EmployeeCount returns the size of the roster.
func (s *Stats) EmployeeCount(ctx context.Context) (int, error) {
	es, err := s.store.ListEmployees(ctx, EmployeeFilter{})
	if err != nil {
		return 0, storeErr("list employees", err)
	}
	return len(es), nil
}

// CalendarEvents maps each day of month on which the employee has a pending
// or approved request to that request. When two requests cover the same
// day the one created later wins.
func (s *Stats) CalendarEvents(ctx context.Context, employeeID string, month Month) (map[Date]CalendarEvent, error) {
	window := month.Range()
	rs, err := s.store.QueryRequests(ctx, RequestQuery{
		EmployeeID: employeeID,
		Statuses:   ActiveStatuses,
		Window:     &window,
	})
	if err != nil {
		return nil, storeErr("query requests", err)
	}

	events := make(map[Date]CalendarEvent)
	created := make(map[Date]LeaveRequest)
	for _, r := range rs {
		clipped, ok := r.Range().Clip(window)
		if !ok {
			continue
		}
		for _, d := range clipped.Days() {
			if prev, seen := created[d]; seen && prev.CreatedAt.After(r.CreatedAt) {
				continue
			}
			created[d] = r
			ev := CalendarEvent{RequestID: r.ID, Type: r.Type, Status: r.Status}
			if r.Type == TypeHoursOff {
				ev.Hours = r.HoursRequested
			}
			events[d] = ev
		}
	}
	return events, nil
}

func (s *Stats) countRequests(ctx context.Context, q RequestQuery) (int, error) {
	rs, err := s.store.QueryRequests(ctx, q)
	if err != nil {
		return 0, storeErr("query requests", err)
	}
	return len(rs), nil
}
