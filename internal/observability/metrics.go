package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor.
type Metrics struct {
	MonitorRunning prometheus.Gauge

	// Upstream flood-monitoring API.
	APIRequests  *prometheus.CounterVec   // labels: endpoint={stations,floods,measures,polygon}, outcome={success,error}
	APIDuration  *prometheus.HistogramVec // labels: endpoint
	PolygonCache *prometheus.CounterVec   // labels: result={hit,miss}

	// Refresh cycle.
	Refreshes       *prometheus.CounterVec // labels: outcome={changed,unchanged,error}
	RefreshDuration prometheus.Histogram
	ActiveWarnings  prometheus.Gauge
	StationsLoaded  prometheus.Gauge

	// Downstream sinks.
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
	StoreErrors     prometheus.Counter
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MonitorRunning,
		m.APIRequests,
		m.APIDuration,
		m.PolygonCache,
		m.Refreshes,
		m.RefreshDuration,
		m.ActiveWarnings,
		m.StationsLoaded,
		m.EventsPublished,
		m.PublishErrors,
		m.StoreErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewUnregisteredMetrics creates metrics that are never exported, for
// one-shot command-line tools.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 while the refresh loop is active, 0 when shut down.",
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Flood-monitoring API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Flood-monitoring API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		PolygonCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polygon_cache_total",
			Help:      "Flood area polygon cache lookups by result.",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Warning refresh cycles by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete warning refresh including polygon downloads.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ActiveWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_warnings",
			Help:      "Number of flood warnings currently in force.",
		}),
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_loaded",
			Help:      "Number of monitoring stations held in memory.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total warning change events written to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed attempts to publish warning changes.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total failed snapshot writes to Postgres.",
		}),
	}
}
