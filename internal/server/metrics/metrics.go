// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "divkeeper"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginAttempts *prometheus.CounterVec

	MigrationsApplied prometheus.Counter
	BackfillRows      *prometheus.CounterVec

	SnapshotOperations *prometheus.CounterVec
	SnapshotDuration   *prometheus.HistogramVec
	SnapshotRows       *prometheus.CounterVec

	PriceLookups *prometheus.CounterVec
}

// New registers every collector on a private registry together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),

		MigrationsApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_steps_applied_total",
			Help:      "Schema steps applied since start",
		}),
		BackfillRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_rows_total",
			Help:      "Rows changed by the ownership backfill",
		}, []string{"step"}),

		SnapshotOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_operations_total",
			Help:      "Snapshot exports and imports by outcome",
		}, []string{"direction", "outcome"}),
		SnapshotDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Duration of snapshot exports and imports",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
		SnapshotRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_rows_total",
			Help:      "Rows written or skipped by snapshot operations",
		}, []string{"direction", "kind"}),

		PriceLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookups_total",
			Help:      "Quote lookups by outcome",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// TrackSnapshot returns a function that records the outcome and duration
// of one snapshot operation.
func (m *Metrics) TrackSnapshot(direction string) func(err *error) {
	start := time.Now()
	return func(err *error) {
		outcome := "ok"
		if err != nil && *err != nil {
			outcome = "error"
		}
		m.SnapshotOperations.WithLabelValues(direction, outcome).Inc()
		m.SnapshotDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
	}
}

// RecordSnapshotRows adds the row counts of a finished operation.
func (m *Metrics) RecordSnapshotRows(direction string, stocks, dividends, skipped int) {
	m.SnapshotRows.WithLabelValues(direction, "stocks").Add(float64(stocks))
	m.SnapshotRows.WithLabelValues(direction, "dividends").Add(float64(dividends))
	m.SnapshotRows.WithLabelValues(direction, "skipped").Add(float64(skipped))
}

// RecordPriceLookup counts one lookup as found, missing or error.
func (m *Metrics) RecordPriceLookup(found bool, err error) {
	switch {
	case err != nil:
		m.PriceLookups.WithLabelValues("error").Inc()
	case found:
		m.PriceLookups.WithLabelValues("found").Inc()
	default:
		m.PriceLookups.WithLabelValues("missing").Inc()
	}
}
