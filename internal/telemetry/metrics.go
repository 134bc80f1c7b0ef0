package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gateDenials     *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	liveViews       prometheus.Gauge
	snapshotTraders prometheus.Gauge
	breakerState    prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderboard_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leaderboard_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		gateDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderboard_gate_denials_total",
				Help: "Actions denied because no wallet was connected",
			},
			[]string{"action"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderboard_refreshes_total",
				Help: "Snapshot load attempts by result",
			},
			[]string{"result"},
		),
		liveViews: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leaderboard_views",
				Help: "Number of live view instances",
			},
		),
		snapshotTraders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leaderboard_snapshot_traders",
				Help: "Traders in the current snapshot",
			},
		),
		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leaderboard_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCounter,
		m.requestDuration,
		m.gateDenials,
		m.refreshes,
		m.liveViews,
		m.snapshotTraders,
		m.breakerState,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestCounter.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// GateDenied counts a denied action.
func (m *Metrics) GateDenied(action string) {
	if m == nil {
		return
	}
	m.gateDenials.WithLabelValues(action).Inc()
}

// ObserveRefresh records a snapshot load. traders is ignored on failure.
func (m *Metrics) ObserveRefresh(traders int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.refreshes.WithLabelValues("failure").Inc()
		return
	}
	m.refreshes.WithLabelValues("success").Inc()
	m.snapshotTraders.Set(float64(traders))
}

// SetViews sets the live view gauge.
func (m *Metrics) SetViews(n int) {
	if m == nil {
		return
	}
	m.liveViews.Set(float64(n))
}

// SetBreakerState sets the breaker gauge.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}
