// Package metrics provides Prometheus metrics for the poll loop
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcomes recorded by RecordCycle.
const (
	OutcomeOK         = "ok"
	OutcomeSkipped    = "skipped"
	OutcomeSuppressed = "suppressed"
	OutcomeAuthError  = "auth_error"
	OutcomeError      = "error"
)

// PollMetrics contains Prometheus metrics for poll cycles
type PollMetrics struct {
	cycles        *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	newMarkers    *prometheus.CounterVec
	truncated     *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	badgeCount    prometheus.Gauge

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewPollMetrics creates and registers poll metrics on registry
func NewPollMetrics(registry prometheus.Registerer) (*PollMetrics, error) {
	m := newPollMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func newPollMetrics() *PollMetrics {
	m := &PollMetrics{}

	m.cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repowatch_poll_cycles_total",
			Help: "Total number of poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	m.fetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repowatch_fetch_errors_total",
			Help: "Total number of failed category fetches",
		},
		[]string{"category"},
	)

	m.newMarkers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repowatch_new_markers_total",
			Help: "Total number of notification markers added",
		},
		[]string{"category"},
	)

	m.truncated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repowatch_truncated_fetches_total",
			Help: "Fetches whose collection spans more than the first page",
		},
		[]string{"category"},
	)

	m.cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repowatch_poll_cycle_duration_seconds",
			Help:    "Duration of completed poll cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.badgeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "repowatch_badge_count",
			Help: "Current number of unacknowledged notification markers",
		},
	)

	m.collectors = []prometheus.Collector{
		m.cycles,
		m.fetchErrors,
		m.newMarkers,
		m.truncated,
		m.cycleDuration,
		m.badgeCount,
	}

	return m
}

// Describe implements the Collector interface
func (m *PollMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PollMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordCycle records a finished cycle and, when it completed, its duration
func (m *PollMetrics) RecordCycle(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.cycleDuration.Observe(seconds)
	}
}

// RecordFetchError records a failed fetch
func (m *PollMetrics) RecordFetchError(category string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(category).Inc()
}

// RecordNewMarkers records markers appended to the notification store
func (m *PollMetrics) RecordNewMarkers(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.newMarkers.WithLabelValues(category).Add(float64(n))
}

// RecordTruncated records a fetch that only examined the first page
func (m *PollMetrics) RecordTruncated(category string) {
	if m == nil {
		return
	}
	m.truncated.WithLabelValues(category).Inc()
}

// BadgeGauge returns the gauge mirroring the published badge count
func (m *PollMetrics) BadgeGauge() prometheus.Gauge {
	return m.badgeCount
}
