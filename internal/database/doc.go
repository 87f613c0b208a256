// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package database serves grouped grid queries from an embedded DuckDB
// database.
//
// # Overview
//
// The dataset is a single table. On startup New either loads it from a
// source file (CSV, Parquet or JSON, by extension), seeds a generated sales
// table, or uses a table already present in a persistent database file. The
// table schema is then classified into dimensions (grouping columns) and
// metrics (numeric columns aggregated with SUM).
//
// # Files
//
//   - database.go: lifecycle (open, initialize, close, ping, metadata)
//   - database_connection.go: connection pool and error classification
//   - database_utils.go: profiling, context timeouts, typed row scanning
//   - dataset.go: source file loading and demo data seeding
//   - metadata.go: schema introspection into models.DatasetMetadata
//   - grid_query.go: ExecuteQuery, FilterValues, Search
//   - values.go: conversion of DuckDB values into grid cell types
//
// SQL text is produced by the query subpackage; this package only executes
// it.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	result, err := db.ExecuteQuery(ctx, models.QueryRequest{
//	    Dimensions: []string{"region", "country"},
//	    Metrics:    []string{"revenue"},
//	    Limit:      2000,
//	})
//
// # Thread Safety
//
// DB is safe for concurrent use. The page and count statements of one query
// run concurrently on pooled connections.
//
// # Environment Variables
//
//   - ENABLE_QUERY_PROFILING=true: enable DuckDB detailed profiling
package database
