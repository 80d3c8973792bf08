package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

func datePtr(s string) *leave.Date {
	d := leave.MustParseDate(s)
	return &d
}

func TestStore_RequestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	processed := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	days := leave.LeaveRequest{
		ID: "r1", EmployeeID: "e1", Type: leave.TypeDaysOff,
		StartDate: leave.MustParseDate("2024-03-04"), EndDate: datePtr("2024-03-06"),
		Status: leave.StatusApproved, Notes: "trip", CreatedAt: processed.Add(-time.Hour),
		ProcessedBy: "mgr", ProcessedAt: &processed,
	}
	hours := leave.LeaveRequest{
		ID: "r2", EmployeeID: "e1", Type: leave.TypeHoursOff,
		StartDate: leave.MustParseDate("2024-03-10"), HoursRequested: intPtr(3),
		Status: leave.StatusPending, CreatedAt: processed,
	}
	require.NoError(t, s.SaveRequest(ctx, days))
	require.NoError(t, s.SaveRequest(ctx, hours))

	got, err := s.GetRequest(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-06", got.EndDate.String())
	assert.Nil(t, got.HoursRequested)
	assert.Equal(t, "mgr", got.ProcessedBy)
	assert.True(t, processed.Equal(*got.ProcessedAt))

	got, err = s.GetRequest(ctx, "r2")
	require.NoError(t, err)
	assert.Nil(t, got.EndDate)
	assert.Equal(t, 3, *got.HoursRequested)

	missing, err := s.GetRequest(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_QueryRequests_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, r := range []leave.LeaveRequest{
		{ID: "a", EmployeeID: "e1", Type: leave.TypeDaysOff, StartDate: leave.MustParseDate("2024-02-27"), EndDate: datePtr("2024-03-02"), Status: leave.StatusApproved},
		{ID: "b", EmployeeID: "e1", Type: leave.TypeHoursOff, StartDate: leave.MustParseDate("2024-03-15"), HoursRequested: intPtr(2), Status: leave.StatusPending},
		{ID: "c", EmployeeID: "e2", Type: leave.TypeSickLeave, StartDate: leave.MustParseDate("2024-04-01"), EndDate: datePtr("2024-04-02"), Status: leave.StatusApproved},
		{ID: "d", EmployeeID: "e2", Type: leave.TypeDaysOff, StartDate: leave.MustParseDate("2024-03-20"), EndDate: datePtr("2024-03-20"), Status: leave.StatusDenied},
		{ID: "e", EmployeeID: "gone", Type: leave.TypeDaysOff, StartDate: leave.MustParseDate("2024-05-01"), EndDate: datePtr("2024-05-01"), Status: leave.StatusApproved},
	} {
		require.NoError(t, s.SaveRequest(ctx, r))
	}
	for id, loc := range map[string]string{"e1": "berlin", "e2": "lisbon"} {
		require.NoError(t, s.SaveEmployee(ctx, leave.Employee{
			ID: id, FirstName: id, LastName: "Test", Email: id + "@example.com", LocationID: loc,
		}))
	}
	march := leave.NewDate(2024, time.March, 1).MonthOf().Range()

	tests := []struct {
		name string
		q    leave.RequestQuery
		want []string
	}{
		{"all", leave.RequestQuery{}, []string{"a", "b", "d", "c", "e"}},
		{"employee", leave.RequestQuery{EmployeeID: "e2"}, []string{"d", "c"}},
		{"active", leave.RequestQuery{Statuses: leave.ActiveStatuses}, []string{"a", "b", "c", "e"}},
		{"approved in march", leave.RequestQuery{Statuses: []leave.Status{leave.StatusApproved}, Window: &march}, []string{"a"}},
		{"window catches hours_off", leave.RequestQuery{EmployeeID: "e1", Window: &march}, []string{"a", "b"}},
		{"one type", leave.RequestQuery{Types: []leave.RequestType{leave.TypeDaysOff}}, []string{"a", "d", "e"}},
		{"two types", leave.RequestQuery{Types: []leave.RequestType{leave.TypeHoursOff, leave.TypeSickLeave}}, []string{"b", "c"}},
		{"location", leave.RequestQuery{LocationID: "lisbon"}, []string{"d", "c"}},
		{"location type and window", leave.RequestQuery{LocationID: "lisbon", Types: []leave.RequestType{leave.TypeDaysOff}, Window: &march}, []string{"d"}},
		{"unknown location", leave.RequestQuery{LocationID: "porto"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := s.QueryRequests(ctx, tt.q)
			require.NoError(t, err)

			ids := make([]string, len(rs))
			for i, r := range rs {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_CorruptTimestamp_Fails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO leave_requests (`+requestColumns+`)
		VALUES ('r1', 'e1', 'days_off', '2024-03-04', '2024-03-04', NULL, 'pending', NULL, 'yesterday', NULL, NULL)`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO employees (`+employeeColumns+`)
		VALUES ('e1', 'Ada', 'Lovelace', 'ada@example.com', NULL, NULL, 'lots', '8', '0', '0', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = s.GetRequest(ctx, "r1")
	assert.ErrorContains(t, err, "created_at")

	_, err = s.GetEmployee(ctx, "e1")
	assert.ErrorContains(t, err, "days_available")
}

func TestStore_EmployeeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveLocation(ctx, leave.Location{ID: "berlin", Name: "Berlin"}))

	e := leave.Employee{
		ID: "e1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		LocationID: "berlin", DaysAvailable: decimal.RequireFromString("12.5"),
		HoursAvailable: decimal.NewFromInt(8),
	}
	require.NoError(t, s.SaveEmployee(ctx, e))

	got, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.DaysAvailable))
	assert.Empty(t, got.RoleID)

	inBerlin, err := s.ListEmployees(ctx, leave.EmployeeFilter{LocationID: "berlin"})
	require.NoError(t, err)
	assert.Len(t, inBerlin, 1)

	require.NoError(t, s.DeleteEmployee(ctx, "e1"))
	assert.ErrorIs(t, s.DeleteEmployee(ctx, "e1"), leave.ErrNotFound)
}

func TestStore_DuplicateRoleName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRole(ctx, leave.Role{ID: "r1", Name: "Engineer"}))

	err := s.SaveRole(ctx, leave.Role{ID: "r2", Name: "ENGINEER"})

	assert.ErrorIs(t, err, leave.ErrDuplicateName)
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx leave.Store) error {
		require.NoError(t, tx.SaveRole(ctx, leave.Role{ID: "r1", Name: "Temp"}))
		return errors.New("abort")
	})
	require.Error(t, err)

	role, err := s.GetRole(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, role)
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveLocation(ctx, leave.Location{ID: "l1", Name: "Lisbon"}))

	require.NoError(t, s.Reset(ctx))

	ls, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, ls)
}

func TestApprove_EmployeeWriteFails_RollsBack(t *testing.T) {
	// GIVEN a database that fails the balance write
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM leave_requests WHERE id = \?`).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "employee_id", "type", "start_date", "end_date", "hours_requested",
			"status", "notes", "created_at", "processed_by", "processed_at",
		}).AddRow("req-1", "emp-1", "days_off", "2024-03-04", "2024-03-06", nil,
			"pending", nil, "2024-03-01T09:00:00Z", nil, nil))
	mock.ExpectQuery(`SELECT .+ FROM employees WHERE id = \?`).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "first_name", "last_name", "email", "role_id", "location_id",
			"days_available", "hours_available", "annual_days", "annual_hours", "created_at",
		}).AddRow("emp-1", "Ada", "Lovelace", "ada@example.com", nil, nil,
			"10", "8", "25", "40", "2024-01-01T00:00:00Z"))
	mock.ExpectExec(`INSERT INTO leave_requests`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO employees`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	mgr := leave.NewManager(NewFromDB(db))

	// WHEN approving
	_, err = mgr.Approve(context.Background(), "req-1", "mgr")

	// THEN the error surfaces as a store failure and the transaction is rolled back
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
