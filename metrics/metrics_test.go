package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/leave-engine/leave"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeOK},
		{"validation", &leave.ValidationError{Field: "type"}, OutcomeValidation},
		{"overlap", &leave.OverlapError{}, OutcomeValidation},
		{"not found", &leave.NotFoundError{Kind: "request"}, OutcomeNotFound},
		{"conflict", &leave.ConflictError{Err: leave.ErrConflict}, OutcomeConflict},
		{"in use", &leave.InUseError{}, OutcomeInUse},
		{"other", errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestRecorder_OperationDone_CountsOverlapRejection(t *testing.T) {
	// GIVEN the current counter values
	r := NewRecorder()
	ops := testutil.ToFloat64(operationsTotal.WithLabelValues("create", OutcomeValidation))
	overlaps := testutil.ToFloat64(validationRejections.WithLabelValues("overlap"))

	// WHEN an overlap rejection is reported
	r.OperationDone("create", &leave.OverlapError{}, time.Millisecond)

	// THEN both counters move by one
	assert.Equal(t, ops+1, testutil.ToFloat64(operationsTotal.WithLabelValues("create", OutcomeValidation)))
	assert.Equal(t, overlaps+1, testutil.ToFloat64(validationRejections.WithLabelValues("overlap")))
}

func TestRecorder_BalanceDebited_SplitsByUnit(t *testing.T) {
	// GIVEN current debit totals
	r := NewRecorder()
	days := testutil.ToFloat64(balanceDebit.WithLabelValues("days"))
	hours := testutil.ToFloat64(balanceDebit.WithLabelValues("hours"))

	// WHEN debiting both kinds
	r.BalanceDebited(leave.TypeDaysOff, decimal.NewFromInt(3))
	r.BalanceDebited(leave.TypeHoursOff, decimal.NewFromInt(4))

	// THEN each lands on its own unit
	assert.Equal(t, days+3, testutil.ToFloat64(balanceDebit.WithLabelValues("days")))
	assert.Equal(t, hours+4, testutil.ToFloat64(balanceDebit.WithLabelValues("hours")))
}

func TestGauges_Set(t *testing.T) {
	SetShortageDays("Berlin", 4)
	SetAvailabilityToday("Berlin", 75)

	assert.Equal(t, float64(4), testutil.ToFloat64(shortageDays.WithLabelValues("Berlin")))
	assert.Equal(t, float64(75), testutil.ToFloat64(availabilityToday.WithLabelValues("Berlin")))
}
