// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses, with metadata
// for observability and caching information.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"columns": ["region"], "rows": [["EMEA"]], "total_rows": 1},
//	  "metadata": {
//	    "timestamp": "2026-01-12T12:00:00Z",
//	    "query_time_ms": 12,
//	    "cached": false
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "limit must be between 1 and 10000"
//	  },
//	  "metadata": {"timestamp": "2026-01-12T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability and performance tracking.
//
// Query time tracking:
//   - Cached responses: Cached is true, QueryTimeMS is the original execution time
//   - Fresh queries: QueryTimeMS shows actual DuckDB execution time
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - INVALID_QUERY: Unknown column or otherwise unanswerable query
//   - DATABASE_ERROR: Query execution failure
//   - SERVICE_UNAVAILABLE: Query engine circuit breaker is open
//   - NOT_FOUND: Resource doesn't exist
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface so decoded API errors can be returned directly.
func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	DatabaseOnline bool    `json:"database_online"`
	ActiveSessions int     `json:"active_sessions"`
	Uptime         float64 `json:"uptime_seconds"`
}
