// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch scopes reported by the data window store.
const (
	ScopeInitial    = "initial"
	ScopeForeground = "foreground"
	ScopePrefetch   = "prefetch"
	ScopeSearch     = "search"
)

// Fetch outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Query Engine Metrics
	EngineQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_queries_total",
			Help: "Grouped queries served by the engine, by result",
		},
		[]string{"result"}, // hit, miss, shared, error
	)

	ResponseCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_entries",
			Help: "Current number of cached query results",
		},
	)

	// Data Window Metrics
	WindowFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datawindow_fetches_total",
			Help: "Data window fetches by scope and outcome",
		},
		[]string{"scope", "outcome"},
	)

	WindowFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datawindow_fetch_duration_seconds",
			Help:    "Duration of data window fetches in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"scope"},
	)

	WindowEvictedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datawindow_evicted_rows_total",
			Help: "Rows dropped from the head of data window buffers",
		},
	)

	WindowDedupSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datawindow_dedup_skips_total",
			Help: "Range requests skipped because the rows were already loaded",
		},
	)

	// Grid Session Metrics
	GridSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grid_sessions_active",
			Help: "Current number of connected grid sessions",
		},
	)

	GridFramesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_frames_published_total",
			Help: "Total number of render frames sent to grid clients",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received by type",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, errorType(err)).Inc()
	}
}

// errorType maps an error to a low-cardinality label.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		msg := err.Error()
		if len(msg) > 50 {
			msg = msg[:50]
		}
		return msg
	}
}

// RecordWindowFetch records one data window fetch.
func RecordWindowFetch(scope, outcome string, duration time.Duration) {
	WindowFetches.WithLabelValues(scope, outcome).Inc()
	if outcome != OutcomeSuperseded {
		WindowFetchDuration.WithLabelValues(scope).Observe(duration.Seconds())
	}
}

// RecordEviction records rows dropped from a data window buffer.
func RecordEviction(rows int) {
	if rows > 0 {
		WindowEvictedRows.Add(float64(rows))
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
