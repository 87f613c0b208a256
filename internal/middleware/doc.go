// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package middleware provides HTTP middleware for the Gridscope API.

All middleware uses the func(http.Handler) http.Handler shape so it plugs
straight into chi's r.Use:

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count, duration and in-flight gauge, labeled
    by chi route pattern
  - PerformanceMonitor: sliding-window latency percentiles per endpoint
    and slow request logging

The response writer wrapper passes Hijack through, so every middleware here
is safe in front of the WebSocket grid endpoint.

Example:

	perfMon := middleware.NewPerformanceMonitor(1000, time.Second)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Use(perfMon.Middleware)
	    r.Post("/query", handler.Query)
	})

	stats := perfMon.GetStats() // p50/p95/p99 per endpoint
*/
package middleware
