package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func request(id, employee string, status leave.Status, start, end string) leave.LeaveRequest {
	e := leave.MustParseDate(end)
	return leave.LeaveRequest{
		ID: id, EmployeeID: employee, Type: leave.TypeDaysOff, Status: status,
		StartDate: leave.MustParseDate(start), EndDate: &e,
	}
}

func TestMemory_QueryRequests_FiltersAndSorts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, r := range []leave.LeaveRequest{
		request("c", "ana", leave.StatusApproved, "2024-06-10", "2024-06-12"),
		request("b", "ana", leave.StatusPending, "2024-06-01", "2024-06-02"),
		request("a", "ana", leave.StatusDenied, "2024-06-10", "2024-06-10"),
		request("d", "bo", leave.StatusPending, "2024-06-11", "2024-06-11"),
	} {
		require.NoError(t, m.SaveRequest(ctx, r))
	}
	sick := request("e", "gone", leave.StatusApproved, "2024-06-20", "2024-06-20")
	sick.Type = leave.TypeSickLeave
	require.NoError(t, m.SaveRequest(ctx, sick))
	require.NoError(t, m.SaveEmployee(ctx, leave.Employee{ID: "ana", LocationID: "porto"}))
	require.NoError(t, m.SaveEmployee(ctx, leave.Employee{ID: "bo", LocationID: "lisbon"}))
	window := leave.Range{Start: leave.MustParseDate("2024-06-12"), End: leave.MustParseDate("2024-06-30")}

	tests := []struct {
		name string
		q    leave.RequestQuery
		want []string
	}{
		{"everything by start then id", leave.RequestQuery{}, []string{"b", "a", "c", "d", "e"}},
		{"one employee", leave.RequestQuery{EmployeeID: "bo"}, []string{"d"}},
		{"active statuses", leave.RequestQuery{Statuses: leave.ActiveStatuses}, []string{"b", "c", "d", "e"}},
		{"window touches end date", leave.RequestQuery{Window: &window}, []string{"c", "e"}},
		{"type", leave.RequestQuery{Types: []leave.RequestType{leave.TypeSickLeave}}, []string{"e"}},
		{"location", leave.RequestQuery{LocationID: "porto"}, []string{"b", "a", "c"}},
		{"location and status", leave.RequestQuery{LocationID: "porto", Statuses: []leave.Status{leave.StatusApproved}}, []string{"c"}},
		{"unknown location", leave.RequestQuery{LocationID: "madrid"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := m.QueryRequests(ctx, tt.q)
			require.NoError(t, err)

			var ids []string
			for _, r := range rs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemory_GetMissing_ReturnsNil(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	r, err := m.GetRequest(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, r)

	e, err := m.GetEmployee(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, e)

	assert.ErrorIs(t, m.DeleteRequest(ctx, "nope"), leave.ErrNotFound)
	assert.ErrorIs(t, m.DeleteEmployee(ctx, "nope"), leave.ErrNotFound)
	assert.ErrorIs(t, m.DeleteRole(ctx, "nope"), leave.ErrNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveRequest(ctx, request("a", "ana", leave.StatusPending, "2024-06-01", "2024-06-01")))

	r, err := m.GetRequest(ctx, "a")
	require.NoError(t, err)
	r.Status = leave.StatusApproved

	again, err := m.GetRequest(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, again.Status)
}

func TestMemory_FailOn_Counts(t *testing.T) {
	// GIVEN a fault that fires twice
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")
	m.FailOn("ListEmployees", boom, 2)

	// WHEN calling three times
	_, err1 := m.ListEmployees(ctx, leave.EmployeeFilter{})
	_, err2 := m.ListEmployees(ctx, leave.EmployeeFilter{})
	_, err3 := m.ListEmployees(ctx, leave.EmployeeFilter{})

	// THEN only the first two fail, naming the operation
	assert.ErrorIs(t, err1, boom)
	assert.Contains(t, err1.Error(), "ListEmployees")
	assert.ErrorIs(t, err2, boom)
	assert.NoError(t, err3)
}

func TestMemory_FailOn_ZeroMeansAlways(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.FailOn("SaveRole", leave.ErrConflict, 0)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, m.SaveRole(ctx, leave.Role{ID: "r", Name: "R"}), leave.ErrConflict)
	}

	m.ClearFaults()
	assert.NoError(t, m.SaveRole(ctx, leave.Role{ID: "r", Name: "R"}))
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN a stored request and employee
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveRequest(ctx, request("a", "ana", leave.StatusPending, "2024-06-01", "2024-06-01")))
	require.NoError(t, m.SaveEmployee(ctx, leave.Employee{ID: "ana", FirstName: "Ana"}))

	// WHEN a transaction writes both and then fails
	err := m.WithTx(ctx, func(tx leave.Store) error {
		r, err := tx.GetRequest(ctx, "a")
		if err != nil {
			return err
		}
		r.Status = leave.StatusApproved
		if err := tx.SaveRequest(ctx, *r); err != nil {
			return err
		}
		if err := tx.DeleteEmployee(ctx, "ana"); err != nil {
			return err
		}
		return errors.New("abort")
	})

	// THEN nothing it wrote survives
	require.EqualError(t, err, "abort")
	r, _ := m.GetRequest(ctx, "a")
	assert.Equal(t, leave.StatusPending, r.Status)
	e, _ := m.GetEmployee(ctx, "ana")
	assert.NotNil(t, e)
}

func TestMemory_WithTx_Commits(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.WithTx(ctx, func(tx leave.Store) error {
		return tx.SaveLocation(ctx, leave.Location{ID: "hq", Name: "HQ"})
	})

	require.NoError(t, err)
	l, err := m.GetLocation(ctx, "hq")
	require.NoError(t, err)
	assert.Equal(t, "HQ", l.Name)
}

func TestMemory_WithTx_Fault(t *testing.T) {
	m := NewMemory()
	m.FailOn("WithTx", leave.ErrConflict, 1)
	called := false

	err := m.WithTx(context.Background(), func(leave.Store) error { called = true; return nil })

	assert.ErrorIs(t, err, leave.ErrConflict)
	assert.False(t, called)
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveEmployee(ctx, leave.Employee{ID: "ana"}))
	require.NoError(t, m.SaveRole(ctx, leave.Role{ID: "r", Name: "R"}))
	require.NoError(t, m.SaveRequest(ctx, request("a", "ana", leave.StatusPending, "2024-06-01", "2024-06-01")))

	require.NoError(t, m.Reset(ctx))

	es, _ := m.ListEmployees(ctx, leave.EmployeeFilter{})
	rs, _ := m.QueryRequests(ctx, leave.RequestQuery{})
	roles, _ := m.ListRoles(ctx)
	assert.Empty(t, es)
	assert.Empty(t, rs)
	assert.Empty(t, roles)
}
