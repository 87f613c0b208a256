// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package metrics provides Prometheus instrumentation for Gridscope.

Collectors are registered on the default registry through promauto and are
exposed at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Database:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table,error_type}

Query engine:
  - engine_queries_total{result}: result is hit, miss, shared or error
  - response_cache_entries

Data window:
  - datawindow_fetches_total{scope,outcome}: scope is initial, foreground,
    prefetch or search; outcome is success, error or superseded
  - datawindow_fetch_duration_seconds{scope}
  - datawindow_evicted_rows_total
  - datawindow_dedup_skips_total

Grid sessions:
  - grid_sessions_active
  - grid_frames_published_total
  - websocket_messages_received_total{type}
  - websocket_errors_total{error_type}

HTTP API:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests

Circuit breaker:
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}
*/
package metrics
