// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package engine is the query service shared by the HTTP API and every grid
// session.
//
// Service implements the data window collaborator interfaces
// (QueryExecutor, MetadataProvider, SearchProvider, FilterValueProvider) on
// top of a Backend, either *database.DB or a remote *client.Client:
//
//	svc := engine.New(db, cfg.Cache, cfg.Engine)
//	result, err := svc.ExecuteQuery(ctx, req)
//
// Query results are cached in an LRU+TTL cache keyed by the full request,
// identical in-flight requests share one backend call (singleflight), and
// backend failures trip a circuit breaker. While the breaker is open calls
// fail fast with ErrUnavailable. Errors caused by the request itself
// (unknown columns, canceled contexts, 4xx from a remote engine) never count
// against the breaker.
package engine
