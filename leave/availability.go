/*
availability.go - Staffing levels per day

PURPOSE:
  Answers "how many people are at work on each day of this month" from the
  roster and the approved requests, optionally for a single location.

ALGORITHM (per call):
  1. total    = |employees|, filtered by location
  2. approved = approved requests overlapping the month (one query)
  3. for each day d of the month:
       onLeave(d)    = |{r in approved : CoversDay(r, d) and r's employee
                         is in the filtered roster when a filter is set}|
       available(d)  = max(0, total - onLeave(d))
       percentage(d) = round(100 * available / total), 0 when total = 0

SHORTAGES:
  Days with percentage <= ShortageThreshold, ascending by date, at most
  ShortageLimit of them. This is a short "worst offenders" list, not a full
  calendar of understaffed days.

FAILURE:
  Any read failure fails the whole call. No partial grids.

COMPLEXITY:
  O(days x approved). Fine for a team roster; a large organization wants
  a per-day index instead.

SEE ALSO:
  - request.go: CoversDay
*/
package leave

import (
	"context"
	"math"
	"sort"
	"time"
)

// Shortage report bounds.
const (
	ShortageThreshold = 50
	ShortageLimit     = 5
)

// DayAvailability is the staffing level on one day.
type DayAvailability struct {
	Date           Date
	TotalEmployees int
	AvailableStaff int
	Percentage     int
}

// Shortage is an understaffed day.
type Shortage struct {
	DayAvailability
	EmployeesShort int
	LocationName   string
}

// TodayStats is the staffing level on the current day.
type TodayStats struct {
	DayAvailability
	OnLeave int
}

// Aggregator computes availability from a Store. It never writes.
type Aggregator struct {
	store Store
	now   func() time.Time
}

// NewAggregator returns an Aggregator reading from store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// WithClock returns a copy of a that uses now for "today".
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	cp := *a
	cp.now = now
	return &cp
}

// Availability returns one entry per day of month.
func (a *Aggregator) Availability(ctx context.Context, month Month, locationID string) ([]DayAvailability, error) {
	snap, err := a.load(ctx, month.Range(), locationID)
	if err != nil {
		return nil, err
	}

	days := month.Range().Days()
	out := make([]DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, snap.day(d))
	}
	return out, nil
}

// ShortageDays returns up to ShortageLimit days of month whose availability
// percentage is at or below ShortageThreshold, earliest first.
func (a *Aggregator) ShortageDays(ctx context.Context, month Month, locationID string) ([]Shortage, error) {
	days, err := a.Availability(ctx, month, locationID)
	if err != nil {
		return nil, err
	}
	name, err := a.locationName(ctx, locationID)
	if err != nil {
		return nil, err
	}

	var out []Shortage
	for _, d := range days {
		if d.Percentage > ShortageThreshold {
			continue
		}
		out = append(out, Shortage{
			DayAvailability: d,
			EmployeesShort:  d.TotalEmployees - d.AvailableStaff,
			LocationName:    name,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	if len(out) > ShortageLimit {
		out = out[:ShortageLimit]
	}
	return out, nil
}

// Today returns the staffing level for the current day.
func (a *Aggregator) Today(ctx context.Context, locationID string) (TodayStats, error) {
	today := DateOf(a.now())
	snap, err := a.load(ctx, SingleDay(today), locationID)
	if err != nil {
		return TodayStats{}, err
	}
	day := snap.day(today)
	return TodayStats{DayAvailability: day, OnLeave: snap.onLeave(today)}, nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// snapshot is the data one aggregation call works on.
type snapshot struct {
	total    int
	approved []LeaveRequest
	// roster is nil when no location filter is set.
	roster map[string]struct{}
}

func (a *Aggregator) load(ctx context.Context, window Range, locationID string) (*snapshot, error) {
	employees, err := a.store.ListEmployees(ctx, EmployeeFilter{LocationID: locationID})
	if err != nil {
		return nil, storeErr("list employees", err)
	}
	approved, err := a.store.QueryRequests(ctx, RequestQuery{
		Statuses: []Status{StatusApproved},
		Window:   &window,
	})
	if err != nil {
		return nil, storeErr("query approved requests", err)
	}

	snap := &snapshot{total: len(employees), approved: approved}
	if locationID != "" {
		snap.roster = make(map[string]struct{}, len(employees))
		for _, e := range employees {
			snap.roster[e.ID] = struct{}{}
		}
	}
	return snap, nil
}

func (s *snapshot) onLeave(d Date) int {
	n := 0
	for _, r := range s.approved {
		if !CoversDay(r, d) {
			continue
		}
		if s.roster != nil {
			if _, ok := s.roster[r.EmployeeID]; !ok {
				continue
			}
		}
		n++
	}
	return n
}

func (s *snapshot) day(d Date) DayAvailability {
	available := s.total - s.onLeave(d)
	if available < 0 {
		available = 0
	}
	return DayAvailability{
		Date:           d,
		TotalEmployees: s.total,
		AvailableStaff: available,
		Percentage:     Percentage(available, s.total),
	}
}

// Percentage returns round(100 * available / total), or 0 when total is 0.
func Percentage(available, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(available) / float64(total)))
}

func (a *Aggregator) locationName(ctx context.Context, locationID string) (string, error) {
	if locationID == "" {
		return AllLocationsName, nil
	}
	loc, err := a.store.GetLocation(ctx, locationID)
	if err != nil {
		return "", storeErr("get location", err)
	}
	if loc == nil {
		return locationID, nil
	}
	return loc.Name, nil
}
