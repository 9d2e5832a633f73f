// Package monitor keeps the station list and active flood warnings current
// and fans warning changes out to downstream sinks.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-monitor-service/internal/adapter/floodapi"
	"github.com/couchcryptid/flood-monitor-service/internal/domain"
	"github.com/couchcryptid/flood-monitor-service/internal/observability"
)

// ErrStationNotFound is returned for a station notation the monitor does not know.
var ErrStationNotFound = errors.New("station not found")

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Source reads stations, warnings, and measures from the flood-monitoring API.
type Source interface {
	FetchStations(ctx context.Context, status string) ([]domain.Station, error)
	FetchWarnings(ctx context.Context) ([]domain.Warning, error)
	FetchMeasures(ctx context.Context, notation string) ([]domain.Measure, error)
}

// PolygonFetcher downloads flood area boundaries.
type PolygonFetcher interface {
	FetchPolygon(ctx context.Context, polygonURL string) (domain.MultiPolygon, error)
}

// Publisher emits warning changes downstream.
type Publisher interface {
	PublishChanges(ctx context.Context, changes []domain.WarningChange) error
}

// Store persists snapshots between restarts.
type Store interface {
	SaveStations(ctx context.Context, stations []domain.Station) error
	SaveWarnings(ctx context.Context, warnings []domain.Warning, changes []domain.WarningChange) error
	LoadWarnings(ctx context.Context) ([]domain.Warning, error)
}

// Options tunes the refresh loop.
type Options struct {
	StationStatus      string
	RefreshInterval    time.Duration
	PolygonConcurrency int
}

// Monitor runs the station load and the aligned warning refresh loop.
type Monitor struct {
	source    Source
	polygons  PolygonFetcher
	publisher Publisher
	store     Store
	state     *State
	opts      Options
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Monitor. publisher and store may be nil.
func New(source Source, polygons PolygonFetcher, publisher Publisher, store Store, state *State, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Monitor {
	return &Monitor{
		source:    source,
		polygons:  polygons,
		publisher: publisher,
		store:     store,
		state:     state,
		opts:      opts,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
}

// SetClock swaps the clock driving backoff and scheduling. Call before Run.
func (m *Monitor) SetClock(c clockwork.Clock) {
	m.clock = c
}

// State returns the snapshot the monitor writes to.
func (m *Monitor) State() *State {
	return m.state
}

// CheckReadiness returns nil once stations are loaded and at least one warning
// refresh has succeeded. A store that supports Ping must also respond.
func (m *Monitor) CheckReadiness(ctx context.Context) error {
	if !m.state.StationsLoaded() {
		return errors.New("stations not loaded yet")
	}
	if !m.ready.Load() {
		return errors.New("no successful warning refresh yet")
	}
	if p, ok := m.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("store unreachable: %w", err)
		}
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Run loads stations, refreshes warnings immediately, then refreshes again at
// every interval boundary until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		"station_status", m.opts.StationStatus,
		"refresh_interval", m.opts.RefreshInterval,
	)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	if !m.loadStations(ctx) {
		m.logger.Info("monitor stopping", "reason", ctx.Err())
		return nil
	}
	m.restoreWarnings(ctx)

	for {
		if err := m.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			m.logger.Error("warning refresh failed", "error", err)
		}

		delay := domain.NextRefreshDelay(m.clock.Now(), m.opts.RefreshInterval)
		m.logger.Debug("next refresh scheduled", "in", delay)
		if !sleepWithContext(ctx, m.clock, delay) {
			break
		}
	}

	m.logger.Info("monitor stopping", "reason", ctx.Err())
	return nil
}

// loadStations fetches the station list, retrying with exponential backoff.
// Returns false if ctx was cancelled first.
func (m *Monitor) loadStations(ctx context.Context) bool {
	backoff := initialBackoff
	for {
		stations, err := m.source.FetchStations(ctx, m.opts.StationStatus)
		if err == nil {
			m.state.SetStations(stations, m.clock.Now().UTC())
			m.metrics.StationsLoaded.Set(float64(len(stations)))
			m.logger.Info("stations loaded", "count", len(stations))
			m.saveStations(ctx, stations)
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		m.logger.Error("load stations failed", "error", err, "retry_in", backoff)
		if !sleepWithContext(ctx, m.clock, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (m *Monitor) saveStations(ctx context.Context, stations []domain.Station) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveStations(ctx, stations); err != nil {
		m.metrics.StoreErrors.Inc()
		m.logger.Error("save stations failed", "error", err)
	}
}

// restoreWarnings seeds the previous warning list from the store so the first
// refresh after a restart only reports real changes.
func (m *Monitor) restoreWarnings(ctx context.Context) {
	if m.store == nil {
		return
	}
	warnings, err := m.store.LoadWarnings(ctx)
	if err != nil {
		m.metrics.StoreErrors.Inc()
		m.logger.Warn("restore warnings failed", "error", err)
		return
	}
	if len(warnings) == 0 {
		return
	}
	domain.SortBySeverity(warnings)
	m.state.SetWarnings(warnings, time.Time{})
	m.metrics.ActiveWarnings.Set(float64(len(warnings)))
	m.logger.Info("warnings restored", "count", len(warnings))
}

// Refresh fetches warnings and their polygons. When any warning was raised,
// updated, or cleared, or a polygon missing last time is now attached, it
// publishes the changes, saves the snapshot, and replaces the state.
func (m *Monitor) Refresh(ctx context.Context) error {
	start := m.clock.Now()

	fetched, err := m.source.FetchWarnings(ctx)
	if err != nil {
		m.metrics.Refreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("fetch warnings: %w", err)
	}

	next, err := floodapi.AttachPolygons(ctx, m.polygons, fetched, m.opts.PolygonConcurrency, m.logger)
	if err != nil {
		m.metrics.Refreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("attach polygons: %w", err)
	}
	domain.SortBySeverity(next)

	now := m.clock.Now().UTC()
	defer func() {
		m.ready.Store(true)
		m.metrics.RefreshDuration.Observe(m.clock.Since(start).Seconds())
	}()

	prev, _ := m.state.Warnings()
	attached := domain.CarryPolygons(prev, next)
	changes := domain.DiffWarnings(prev, next, now)
	if len(changes) == 0 && attached == 0 {
		m.state.MarkChecked(now)
		m.metrics.Refreshes.WithLabelValues("unchanged").Inc()
		m.logger.Debug("warnings unchanged", "count", len(next))
		return nil
	}

	m.publish(ctx, changes)
	m.saveWarnings(ctx, next, changes)

	m.state.SetWarnings(next, now)
	m.metrics.ActiveWarnings.Set(float64(len(next)))
	m.metrics.Refreshes.WithLabelValues("changed").Inc()
	m.logger.Info("warnings updated", "count", len(next), "changes", len(changes), "polygons_attached", attached)
	return nil
}

func (m *Monitor) publish(ctx context.Context, changes []domain.WarningChange) {
	if m.publisher == nil || len(changes) == 0 {
		return
	}
	if err := m.publisher.PublishChanges(ctx, changes); err != nil {
		m.metrics.PublishErrors.Inc()
		m.logger.Error("publish warning changes failed", "error", err, "changes", len(changes))
		return
	}
	m.metrics.EventsPublished.Add(float64(len(changes)))
}

func (m *Monitor) saveWarnings(ctx context.Context, warnings []domain.Warning, changes []domain.WarningChange) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveWarnings(ctx, warnings, changes); err != nil {
		m.metrics.StoreErrors.Inc()
		m.logger.Error("save warnings failed", "error", err)
	}
}

// Measures fetches the latest measures for a station and caches them on the
// station in State.
func (m *Monitor) Measures(ctx context.Context, notation string) ([]domain.Measure, error) {
	if _, ok := m.state.Station(notation); !ok {
		return nil, ErrStationNotFound
	}
	measures, err := m.source.FetchMeasures(ctx, notation)
	if err != nil {
		return nil, fmt.Errorf("fetch measures: %w", err)
	}
	m.state.SetMeasures(notation, measures)
	return measures, nil
}

// sleepWithContext is retry.SleepWithContext driven by the monitor's clock.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
