// Package metrics exposes Prometheus instrumentation for the reading tracker.
// Collectors register on the default registry at init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sessions
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readtrack_sessions_started_total",
			Help: "Reading sessions started, labeled by whether an open session was resumed",
		},
		[]string{"outcome"}, // "created", "resumed"
	)

	SessionsEnded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readtrack_sessions_ended_total",
			Help: "Reading sessions closed by the client",
		},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readtrack_session_duration_seconds",
			Help:    "Duration of closed reading sessions",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400},
		},
	)

	// Heartbeats
	Heartbeats = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readtrack_heartbeats_total",
			Help: "Progress heartbeats processed",
		},
		[]string{"result"}, // "ok", "rejected", "error"
	)

	HeartbeatDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readtrack_heartbeat_duration_seconds",
			Help:    "Time spent applying a heartbeat, including the store transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	BooksCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readtrack_books_completed_total",
			Help: "Progress records that crossed the completion threshold",
		},
	)

	// Store
	StoreConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readtrack_store_conflicts_total",
			Help: "Transactions rejected because a concurrent writer touched the same records",
		},
		[]string{"operation"},
	)

	// Analytics
	DashboardDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readtrack_dashboard_duration_seconds",
			Help:    "Time to assemble a dashboard",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"period"},
	)

	DashboardDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readtrack_dashboard_degraded_total",
			Help: "Dashboards replaced by the zero value after a section failed",
		},
		[]string{"period"},
	)

	BookViewsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readtrack_book_views_recorded_total",
			Help: "Book opens appended to the view log",
		},
	)

	// Search feed
	SearchEventsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readtrack_search_events_recorded_total",
			Help: "Non-empty search queries appended to the event log",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "readtrack_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readtrack_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// HTTP
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readtrack_rate_limit_hits_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"}, // "ip", "heartbeat"
	)
)
