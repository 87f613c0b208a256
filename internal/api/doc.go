// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package api provides the HTTP layer for Gridscope.

It serves the stateless query API used by scripts and by remote Gridscope
instances (see internal/client), and upgrades grid WebSocket sessions handled
by internal/websocket.

Key Components:

  - Router: chi route table and middleware stack
  - Handler: request handlers
  - ChiMiddleware: CORS and httprate rate limiters
  - Response helpers: the {status, data, metadata, error} envelope

Endpoints:

	GET  /api/v1/health              health summary
	GET  /api/v1/health/live         liveness probe
	GET  /api/v1/health/ready        readiness probe (503 when not ready)
	GET  /api/v1/metadata            dimension and metric catalog
	POST /api/v1/query               one page of a grouped query
	GET  /api/v1/filters/{column}/values
	GET  /api/v1/search?q=&limit=&columns=
	GET  /api/v1/performance         per-route latency of recent requests
	GET  /api/v1/cache/stats
	POST /api/v1/cache/invalidate    drops cached results, notifies sessions
	GET  /api/v1/grid/ws             grid WebSocket session
	GET  /metrics                    Prometheus
	GET  /swagger/*                  Swagger UI and doc.json

Error Mapping:

Engine failures are mapped by cause. Malformed queries (unknown column,
invalid filter) answer 400 INVALID_QUERY, an open circuit breaker answers 503
SERVICE_UNAVAILABLE with Retry-After, 4xx answers from a remote engine are
passed through, and anything else is logged and answered 500 DATABASE_ERROR.

Usage Example:

	handler := api.NewHandler(engineService, db, hub, cfg)
	chiMw := api.NewChiMiddlewareFromSecurity(
	    cfg.Security.CORSOrigins,
	    cfg.Security.RateLimitReqs,
	    cfg.Security.RateLimitWindow,
	    cfg.Security.RateLimitDisabled,
	)
	srv := &http.Server{Handler: api.NewRouter(handler, chiMw).SetupChi()}
*/
package api
