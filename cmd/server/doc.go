// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package main is the entry point for the Gridscope server.

Gridscope serves an interactive grid over a single DuckDB table: clients scroll
through millions of rows, group and filter them, and the server keeps each
session's loaded window bounded while fetching batches on demand.

# Application Architecture

The server runs its long-lived components under a Suture v4 supervisor tree:

	RootSupervisor ("gridscope")
	├── EngineSupervisor ("engine-layer")
	│   └── Cache janitor (drops expired query results)
	├── SessionSupervisor ("session-layer")
	│   └── Grid hub (WebSocket grid sessions)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Backend: embedded DuckDB, or a remote Gridscope API when ENGINE_REMOTE_URL is set
 4. Query engine: result cache, singleflight and circuit breaker over the backend
 5. Grid hub: one data window and viewport per WebSocket session
 6. HTTP server: chi router with request ID, CORS, rate limit and metrics middleware
 7. Supervisor tree: starts everything and waits for SIGINT/SIGTERM

# Configuration

Configuration is loaded via Koanf v2 (environment > config.yaml > defaults):

	# Server
	HTTP_PORT=3858
	HTTP_HOST=0.0.0.0
	LOG_LEVEL=info              # trace, debug, info, warn, error
	LOG_FORMAT=json             # json or console

	# Dataset
	DUCKDB_PATH=                # empty for in-memory
	DATASET_TABLE=sales
	DATASET_SOURCE=data.parquet # CSV or Parquet, optional
	SEED_DEMO_DATA=true

	# Grid sessions
	GRID_BATCH_SIZE=2000
	GRID_MAX_ROWS=10000
	GRID_MAX_SESSIONS=0         # 0 = unlimited

	# Remote engine (optional)
	ENGINE_REMOTE_URL=http://other-host:3858

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops accepting
connections and drains in-flight requests within HTTP_SHUTDOWN_TIMEOUT, the
grid hub closes every session with a close frame, and the database is
closed last.

# Example Usage

	export DATASET_SOURCE=/data/trips.parquet
	export DATASET_TABLE=trips
	export CORS_ORIGINS=https://grid.example.com
	./gridscope
*/
package main
