/*
metrics.go - Prometheus instrumentation for the leave service

PURPOSE:
  Package-level collectors registered on the default registry, plus a
  Recorder that plugs into leave.Manager as its Observer.

METRICS:
  leave_operations_total{operation,outcome}
  leave_operation_duration_seconds{operation}
  leave_validation_rejections_total{reason}
  leave_balance_debit_total{unit}
  leave_events_published_total{outcome}
  leave_shortage_days{location}
  leave_availability_today_percent{location}

SEE ALSO:
  - api/server.go: Exposes /metrics
  - api/scheduler.go: Updates the shortage gauges
*/
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeConflict   = "conflict"
	OutcomeInUse      = "in_use"
	OutcomeError      = "error"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_operations_total",
			Help: "Lifecycle operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leave_operation_duration_seconds",
			Help:    "Lifecycle operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	validationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_validation_rejections_total",
			Help: "Rejected create/edit submissions by reason",
		},
		[]string{"reason"},
	)

	balanceDebit = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_balance_debit_total",
			Help: "Balance debited on approval, in days or hours",
		},
		[]string{"unit"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_events_published_total",
			Help: "Change events handed to the broker by outcome",
		},
		[]string{"outcome"},
	)

	shortageDays = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leave_shortage_days",
			Help: "Shortage days reported for the current month",
		},
		[]string{"location"},
	)

	availabilityToday = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leave_availability_today_percent",
			Help: "Percentage of staff available today",
		},
		[]string{"location"},
	)
)

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, leave.ErrValidation), errors.Is(err, leave.ErrDuplicateName):
		return OutcomeValidation
	case errors.Is(err, leave.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, leave.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, leave.ErrInUse):
		return OutcomeInUse
	default:
		return OutcomeError
	}
}

// Recorder implements leave.Observer.
type Recorder struct{}

// NewRecorder returns a Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// OperationDone counts the operation and its latency.
func (Recorder) OperationDone(op string, err error, elapsed time.Duration) {
	operationsTotal.WithLabelValues(op, Outcome(err)).Inc()
	operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	switch {
	case errors.Is(err, leave.ErrOverlap):
		validationRejections.WithLabelValues("overlap").Inc()
	case errors.Is(err, leave.ErrValidation):
		validationRejections.WithLabelValues("invalid_input").Inc()
	}
}

// BalanceDebited adds amount to the debit counter for t's unit.
func (Recorder) BalanceDebited(t leave.RequestType, amount decimal.Decimal) {
	unit := "days"
	if t.UsesHours() {
		unit = "hours"
	}
	balanceDebit.WithLabelValues(unit).Add(amount.InexactFloat64())
}

// EventPublished counts a publish attempt.
func EventPublished(err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	eventsPublished.WithLabelValues(outcome).Inc()
}

// SetShortageDays records the shortage day count for a location label.
func SetShortageDays(location string, n int) {
	shortageDays.WithLabelValues(location).Set(float64(n))
}

// SetAvailabilityToday records today's availability percentage.
func SetAvailabilityToday(location string, pct int) {
	availabilityToday.WithLabelValues(location).Set(float64(pct))
}
