// Package telemetry provides application-level observability for the
// organization access console.
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<OAC_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is intended to be scraped by a Prometheus
// server and is not part of the Gin router.
//
// HTTP metrics use c.FullPath() (route template such as
// /organization/:organizationId/logs) rather than the raw request URL to
// prevent unbounded label cardinality from user-supplied path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Audit pipeline metrics.
//
// AuditEventsRecorded counts events persisted to the audit_logs table.
// AuditRecordFailures counts events that could not be persisted; recording is
// fail-open, so this counter is the only signal that events are being lost.
// AuditEventsShipped counts events delivered to all configured external
// shippers.
//
// Example PromQL queries:
//   - Loss rate:           rate(audit_record_failures_total[5m])
//   - Shipping lag signal: rate(audit_events_recorded_total[5m]) - rate(audit_events_shipped_total[5m])
//   - Alert expression:    increase(audit_record_failures_total[10m]) > 0
var (
	AuditEventsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_recorded_total",
			Help: "Total number of audit events persisted to the database.",
		},
	)

	AuditRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_record_failures_total",
			Help: "Total number of audit events that failed to persist and were dropped.",
		},
	)

	AuditEventsShipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_shipped_total",
			Help: "Total number of audit events delivered to all configured external shippers.",
		},
	)
)

// AuditQueryDuration observes the latency of audit log list and stats queries.
// These are the heaviest read paths in the application (ILIKE search over
// details JSON, grouped aggregates), so they get their own histogram separate
// from the HTTP-level one.
var AuditQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "audit_query_duration_seconds",
		Help:    "Duration of audit log list and stats database queries, by query kind.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// DBOpenConnections tracks the number of open connections currently held by
// the sql.DB connection pool. It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of
// sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates the
// DBOpenConnections gauge. The goroutine exits when the database becomes
// unreachable, which happens automatically when the application shuts down
// and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
