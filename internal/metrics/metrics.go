// Package metrics holds the Prometheus metrics for reminder runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the reminder dispatcher.
// A nil *Metrics is valid and records nothing, so callers never have to
// guard instrumentation sites.
type Metrics struct {
	RemindersSentTotal    *prometheus.CounterVec
	DispatchFailuresTotal *prometheus.CounterVec
	RowsProcessedTotal    prometheus.Counter
	RowsSkippedTotal      *prometheus.CounterVec
	RunDurationSeconds    prometheus.Histogram
	LastRunTimestamp      prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance with all metrics registered on a private
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RemindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gasbot_reminders_sent_total",
				Help: "Total number of successfully dispatched reminders",
			},
			[]string{"target"},
		),
		DispatchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gasbot_dispatch_failures_total",
				Help: "Total number of reminder dispatch failures",
			},
			[]string{"target"},
		),
		RowsProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gasbot_rows_processed_total",
				Help: "Total number of data rows examined",
			},
		),
		RowsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gasbot_rows_skipped_total",
				Help: "Total number of rows skipped, by reason",
			},
			[]string{"reason"},
		),
		RunDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gasbot_run_duration_seconds",
				Help:    "Duration of reminder runs",
				Buckets: prometheus.DefBuckets,
			},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gasbot_last_run_timestamp_seconds",
				Help: "Unix timestamp of the last completed run",
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RemindersSentTotal,
		m.DispatchFailuresTotal,
		m.RowsProcessedTotal,
		m.RowsSkippedTotal,
		m.RunDurationSeconds,
		m.LastRunTimestamp,
	)

	return m
}

// Registry returns the private registry backing the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ReminderSent increments the sent counter for a target.
func (m *Metrics) ReminderSent(target string) {
	if m == nil {
		return
	}
	m.RemindersSentTotal.WithLabelValues(target).Inc()
}

// DispatchFailed increments the failure counter for a target.
func (m *Metrics) DispatchFailed(target string) {
	if m == nil {
		return
	}
	m.DispatchFailuresTotal.WithLabelValues(target).Inc()
}

// RowProcessed counts one examined data row.
func (m *Metrics) RowProcessed() {
	if m == nil {
		return
	}
	m.RowsProcessedTotal.Inc()
}

// RowSkipped counts one skipped row with its reason.
func (m *Metrics) RowSkipped(reason string) {
	if m == nil {
		return
	}
	m.RowsSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveRun records a completed run's duration and timestamp.
func (m *Metrics) ObserveRun(started time.Time, d time.Duration) {
	if m == nil {
		return
	}
	m.RunDurationSeconds.Observe(d.Seconds())
	m.LastRunTimestamp.Set(float64(started.Unix()))
}
