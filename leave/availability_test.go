package leave_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

type roster struct {
	mem *store.Memory
	seq int
}

func newRoster() *roster { return &roster{mem: store.NewMemory()} }

func (r *roster) add(t *testing.T, n int, location string) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		r.seq++
		ids[i] = fmt.Sprintf("e%02d", r.seq)
		require.NoError(t, r.mem.SaveEmployee(context.Background(), leave.Employee{
			ID: ids[i], FirstName: "E", LastName: ids[i], Email: ids[i] + "@example.com", LocationID: location,
		}))
	}
	return ids
}

func (r *roster) leave(t *testing.T, employee string, status leave.Status, start, end string) {
	t.Helper()
	r.seq++
	e := leave.MustParseDate(end)
	require.NoError(t, r.mem.SaveRequest(context.Background(), leave.LeaveRequest{
		ID: fmt.Sprintf("r%02d", r.seq), EmployeeID: employee, Type: leave.TypeDaysOff,
		StartDate: leave.MustParseDate(start), EndDate: &e, Status: status,
	}))
}

func TestAvailability_SevenOfTen(t *testing.T) {
	// GIVEN 10 employees, 3 with approved leave covering 2024-08-05
	r := newRoster()
	ids := r.add(t, 10, "")
	r.leave(t, ids[0], leave.StatusApproved, "2024-08-05", "2024-08-05")
	r.leave(t, ids[1], leave.StatusApproved, "2024-08-01", "2024-08-09")
	r.leave(t, ids[2], leave.StatusApproved, "2024-07-29", "2024-08-05")
	r.leave(t, ids[3], leave.StatusPending, "2024-08-05", "2024-08-05")
	r.leave(t, ids[4], leave.StatusDenied, "2024-08-05", "2024-08-05")

	// WHEN computing August
	days, err := leave.NewAggregator(r.mem).Availability(context.Background(), leave.Month{Year: 2024, Month: time.August}, "")

	// THEN Aug 5 is 7 of 10
	require.NoError(t, err)
	require.Len(t, days, 31)
	assert.Equal(t, "2024-08-01", days[0].Date.String())
	aug5 := days[4]
	assert.Equal(t, "2024-08-05", aug5.Date.String())
	assert.Equal(t, 10, aug5.TotalEmployees)
	assert.Equal(t, 7, aug5.AvailableStaff)
	assert.Equal(t, 70, aug5.Percentage)
	assert.Equal(t, 90, days[5].Percentage)
	assert.Equal(t, 100, days[30].Percentage)
}

func TestAvailability_EmptyLocation_AllZero(t *testing.T) {
	r := newRoster()
	r.add(t, 3, "berlin")

	days, err := leave.NewAggregator(r.mem).Availability(context.Background(), leave.Month{Year: 2024, Month: time.February}, "x")

	require.NoError(t, err)
	require.Len(t, days, 29)
	for _, d := range days {
		assert.Equal(t, 0, d.TotalEmployees)
		assert.Equal(t, 0, d.AvailableStaff)
		assert.Equal(t, 0, d.Percentage)
	}
}

func TestAvailability_LocationFilterCountsOnlyItsEmployees(t *testing.T) {
	r := newRoster()
	berlin := r.add(t, 2, "berlin")
	lisbon := r.add(t, 2, "lisbon")
	r.leave(t, berlin[0], leave.StatusApproved, "2024-08-05", "2024-08-05")
	r.leave(t, lisbon[0], leave.StatusApproved, "2024-08-05", "2024-08-05")
	r.leave(t, lisbon[1], leave.StatusApproved, "2024-08-05", "2024-08-05")

	days, err := leave.NewAggregator(r.mem).Availability(context.Background(), leave.Month{Year: 2024, Month: time.August}, "berlin")

	require.NoError(t, err)
	assert.Equal(t, 1, days[4].AvailableStaff)
	assert.Equal(t, 50, days[4].Percentage)
}

func TestAvailability_OnLeaveNeverExceedsRoster(t *testing.T) {
	// GIVEN a deleted employee whose approved leave is still on record
	r := newRoster()
	ids := r.add(t, 1, "")
	r.leave(t, ids[0], leave.StatusApproved, "2024-08-05", "2024-08-05")
	r.leave(t, "deleted", leave.StatusApproved, "2024-08-05", "2024-08-05")

	days, err := leave.NewAggregator(r.mem).Availability(context.Background(), leave.Month{Year: 2024, Month: time.August}, "")

	// THEN available staff floors at zero
	require.NoError(t, err)
	assert.Equal(t, 0, days[4].AvailableStaff)
	assert.Equal(t, 0, days[4].Percentage)
}

func TestAvailability_FetchFailure_FailsWhole(t *testing.T) {
	r := newRoster()
	r.add(t, 2, "")
	r.mem.FailOn("QueryRequests", errors.New("offline"), 1)

	days, err := leave.NewAggregator(r.mem).Availability(context.Background(), leave.Month{Year: 2024, Month: time.August}, "")

	require.ErrorIs(t, err, leave.ErrStore)
	assert.Nil(t, days)
}

func TestShortageDays_BoundedSortedAndThresholded(t *testing.T) {
	// GIVEN 2 employees and one of them off for most of August
	r := newRoster()
	ids := r.add(t, 2, "")
	r.leave(t, ids[0], leave.StatusApproved, "2024-08-10", "2024-08-25")
	r.leave(t, ids[1], leave.StatusApproved, "2024-08-03", "2024-08-03")

	// WHEN listing shortages
	shortages, err := leave.NewAggregator(r.mem).ShortageDays(context.Background(), leave.Month{Year: 2024, Month: time.August}, "")

	// THEN the first five days at <= 50% come back in date order
	require.NoError(t, err)
	require.Len(t, shortages, leave.ShortageLimit)
	want := []string{"2024-08-03", "2024-08-10", "2024-08-11", "2024-08-12", "2024-08-13"}
	for i, s := range shortages {
		assert.Equal(t, want[i], s.Date.String())
		assert.LessOrEqual(t, s.Percentage, leave.ShortageThreshold)
		assert.Equal(t, 1, s.EmployeesShort)
		assert.Equal(t, leave.AllLocationsName, s.LocationName)
	}
}

func TestShortageDays_AboveThresholdExcluded(t *testing.T) {
	r := newRoster()
	ids := r.add(t, 3, "")
	r.leave(t, ids[0], leave.StatusApproved, "2024-08-05", "2024-08-05")

	shortages, err := leave.NewAggregator(r.mem).ShortageDays(context.Background(), leave.Month{Year: 2024, Month: time.August}, "")

	require.NoError(t, err)
	assert.Empty(t, shortages, "67%% is not a shortage")
}

func TestShortageDays_LocationName(t *testing.T) {
	r := newRoster()
	require.NoError(t, r.mem.SaveLocation(context.Background(), leave.Location{ID: "hq", Name: "Headquarters"}))
	ids := r.add(t, 1, "hq")
	r.leave(t, ids[0], leave.StatusApproved, "2024-08-05", "2024-08-05")
	agg := leave.NewAggregator(r.mem)
	aug := leave.Month{Year: 2024, Month: time.August}

	named, err := agg.ShortageDays(context.Background(), aug, "hq")
	require.NoError(t, err)
	require.NotEmpty(t, named)
	assert.Equal(t, "Headquarters", named[0].LocationName)

	unnamed, err := agg.ShortageDays(context.Background(), aug, "gone")
	require.NoError(t, err)
	require.NotEmpty(t, unnamed)
	assert.Equal(t, "gone", unnamed[0].LocationName)
}

func TestToday_MatchesAvailability(t *testing.T) {
	r := newRoster()
	ids := r.add(t, 4, "")
	r.leave(t, ids[0], leave.StatusApproved, "2024-08-01", "2024-08-07")
	r.leave(t, ids[1], leave.StatusApproved, "2024-08-05", "2024-08-05")
	clock := func() time.Time { return time.Date(2024, 8, 5, 15, 0, 0, 0, time.UTC) }
	agg := leave.NewAggregator(r.mem).WithClock(clock)

	today, err := agg.Today(context.Background(), "")
	require.NoError(t, err)
	days, err := agg.Availability(context.Background(), leave.Month{Year: 2024, Month: time.August}, "")
	require.NoError(t, err)

	assert.Equal(t, "2024-08-05", today.Date.String())
	assert.Equal(t, 2, today.OnLeave)
	assert.Equal(t, days[4], today.DayAvailability)
}
