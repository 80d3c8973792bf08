/*
scheduler.go - Periodic shortage monitor

PURPOSE:
  Recomputes the current month's shortage report and today's staffing for
  the whole company and for every location, publishes them as Prometheus
  gauges and logs locations that are short.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - A failing location is logged and skipped; the others still update

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the monitor is active (default: true)

USAGE:
  monitor := NewShortageMonitor(aggregator, store, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - leave/availability.go: ShortageDays, Today
  - metrics/metrics.go: Gauges
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/logging"
	"github.com/warp/leave-engine/metrics"
)

// LocationReport is one location's result from a monitor run.
type LocationReport struct {
	LocationID   string
	LocationName string
	Shortages    []leave.Shortage
	Today        leave.TodayStats
}

// ShortageMonitor periodically checks staffing levels.
type ShortageMonitor struct {
	Aggregator    *leave.Aggregator
	Locations     leave.ReferenceStore
	CheckInterval time.Duration
	Enabled       bool

	logger *slog.Logger
	now    func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewShortageMonitor creates a new monitor.
func NewShortageMonitor(agg *leave.Aggregator, locations leave.ReferenceStore, logger *slog.Logger) *ShortageMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShortageMonitor{
		Aggregator:    agg,
		Locations:     locations,
		CheckInterval: time.Hour,
		Enabled:       true,
		logger:        logging.WithComponent(logger, "shortage-monitor"),
		now:           time.Now,
	}
}

// Start begins the monitor.
func (m *ShortageMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled || m.CheckInterval <= 0 {
		m.logger.Info("disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)

	go m.run()

	m.logger.Info("started", "interval", m.CheckInterval.String())
}

// Stop stops the monitor and waits for an in-flight check.
func (m *ShortageMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stop)
		m.wg.Wait()
		m.ticker = nil
		m.logger.Info("stopped")
	}
}

func (m *ShortageMonitor) run() {
	defer m.wg.Done()

	m.RunNow(context.Background())

	for {
		select {
		case <-m.ticker.C:
			m.RunNow(context.Background())
		case <-m.stop:
			return
		}
	}
}

// RunNow performs one check and returns the per-location results, the
// company-wide one first.
func (m *ShortageMonitor) RunNow(ctx context.Context) []LocationReport {
	locations, err := m.Locations.ListLocations(ctx)
	if err != nil {
		m.logger.Error("list locations failed", "error", err)
		return nil
	}

	targets := make([]leave.Location, 0, len(locations)+1)
	targets = append(targets, leave.Location{Name: leave.AllLocationsName})
	targets = append(targets, locations...)

	agg := m.Aggregator.WithClock(m.now)
	month := leave.DateOf(m.now()).MonthOf()

	var reports []LocationReport
	for _, loc := range targets {
		shortages, err := agg.ShortageDays(ctx, month, loc.ID)
		if err != nil {
			m.logger.Error("shortage check failed", "location", loc.Name, "error", err)
			continue
		}
		today, err := agg.Today(ctx, loc.ID)
		if err != nil {
			m.logger.Error("today check failed", "location", loc.Name, "error", err)
			continue
		}

		metrics.SetShortageDays(loc.Name, len(shortages))
		metrics.SetAvailabilityToday(loc.Name, today.Percentage)
		if len(shortages) > 0 {
			m.logger.Warn("staff shortage detected",
				"location", loc.Name,
				"month", month.String(),
				"days", len(shortages),
				"first", shortages[0].Date.String(),
				"lowest_percentage", lowest(shortages))
		}

		reports = append(reports, LocationReport{
			LocationID:   loc.ID,
			LocationName: loc.Name,
			Shortages:    shortages,
			Today:        today,
		})
	}
	return reports
}

// GetNextRunTime returns when the next scheduled check will occur.
func (m *ShortageMonitor) GetNextRunTime() time.Time {
	return m.now().Add(m.CheckInterval)
}

func lowest(ss []leave.Shortage) int {
	low := ss[0].Percentage
	for _, s := range ss[1:] {
		if s.Percentage < low {
			low = s.Percentage
		}
	}
	return low
}
