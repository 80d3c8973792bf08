package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

// newTestStore connects to LEAVE_TEST_POSTGRES_DSN, skipping when unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LEAVE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEAVE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, leave.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, leave.ErrConflict},
		{"unique violation", &pgconn.PgError{Code: "23505"}, leave.ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapErr(tt.err), tt.want)
		})
	}

	plain := errors.New("boom")
	assert.Equal(t, plain, mapErr(plain))
	assert.NoError(t, mapErr(nil))
}

func TestStore_ApproveDebitsInOneTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEmployee(ctx, leave.Employee{
		ID: "e1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		DaysAvailable: decimal.RequireFromString("2.5"), HoursAvailable: decimal.NewFromInt(8),
	}))
	end := leave.MustParseDate("2024-03-06")
	require.NoError(t, s.SaveRequest(ctx, leave.LeaveRequest{
		ID: "r1", EmployeeID: "e1", Type: leave.TypeDaysOff,
		StartDate: leave.MustParseDate("2024-03-04"), EndDate: &end, Status: leave.StatusPending,
	}))

	approved, err := leave.NewManager(s).Approve(ctx, "r1", "mgr")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)

	e, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, e.DaysAvailable.IsZero(), "debit floors at zero, got %s", e.DaysAvailable)
}

func TestStore_QueryRequestsWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hours := 2
	require.NoError(t, s.SaveRequest(ctx, leave.LeaveRequest{
		ID: "h1", EmployeeID: "e1", Type: leave.TypeHoursOff,
		StartDate: leave.MustParseDate("2024-03-15"), HoursRequested: &hours, Status: leave.StatusApproved,
	}))
	march := leave.MustParseDate("2024-03-01").MonthOf().Range()

	rs, err := s.QueryRequests(ctx, leave.RequestQuery{Statuses: []leave.Status{leave.StatusApproved}, Window: &march})

	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 2, *rs[0].HoursRequested)
}

func TestStore_QueryRequestsTypeAndLocation(t *testing.T) {
	// GIVEN requests from a Berlin employee, a Lisbon employee and a deleted one
	s := newTestStore(t)
	ctx := context.Background()
	for id, loc := range map[string]string{"e1": "berlin", "e2": "lisbon"} {
		require.NoError(t, s.SaveEmployee(ctx, leave.Employee{
			ID: id, FirstName: id, LastName: "Test", Email: id + "@example.com", LocationID: loc,
		}))
	}
	hours := 2
	for _, r := range []leave.LeaveRequest{
		{ID: "a", EmployeeID: "e1", Type: leave.TypeDaysOff, StartDate: leave.MustParseDate("2024-03-04"), Status: leave.StatusPending},
		{ID: "b", EmployeeID: "e2", Type: leave.TypeHoursOff, StartDate: leave.MustParseDate("2024-03-05"), HoursRequested: &hours, Status: leave.StatusPending},
		{ID: "c", EmployeeID: "e2", Type: leave.TypeSickLeave, StartDate: leave.MustParseDate("2024-03-06"), Status: leave.StatusApproved},
		{ID: "d", EmployeeID: "gone", Type: leave.TypeSickLeave, StartDate: leave.MustParseDate("2024-03-07"), Status: leave.StatusApproved},
	} {
		end := r.StartDate
		if r.HoursRequested == nil {
			r.EndDate = &end
		}
		require.NoError(t, s.SaveRequest(ctx, r))
	}

	ids := func(q leave.RequestQuery) []string {
		rs, err := s.QueryRequests(ctx, q)
		require.NoError(t, err)
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	// THEN type and location filter server-side
	assert.Equal(t, []string{"c", "d"}, ids(leave.RequestQuery{Types: []leave.RequestType{leave.TypeSickLeave}}))
	assert.Equal(t, []string{"b", "c"}, ids(leave.RequestQuery{LocationID: "lisbon"}))
	assert.Equal(t, []string{"c"}, ids(leave.RequestQuery{LocationID: "lisbon", Types: []leave.RequestType{leave.TypeSickLeave}}))
	assert.Empty(t, ids(leave.RequestQuery{LocationID: "porto"}))
}

func TestStore_DeleteMissing(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.DeleteRequest(context.Background(), "nope"), leave.ErrNotFound)
}
