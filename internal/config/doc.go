// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package config provides centralized configuration management for Gridscope.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file (config.yaml, /etc/gridscope/config.yaml, or CONFIG_PATH), then
environment variables. Only the environment variables listed in the mapping
table are read.

# Configuration Structure

  - ServerConfig: HTTP listener (host, port, timeouts, environment)
  - APIConfig: page size limits of the stateless query endpoint
  - DatabaseConfig: DuckDB settings and the dataset table definition
  - GridConfig: per-session data window and viewport behaviour
  - CacheConfig: query result cache capacity and TTL
  - EngineConfig: query timeout, circuit breaker, optional remote engine
  - SecurityConfig: CORS origins and HTTP rate limiting
  - LoggingConfig: zerolog level and format

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:3858)
  - HTTP_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
  - ENVIRONMENT: development, staging, production

Dataset:
  - DUCKDB_PATH: database file, empty for in-memory
  - DUCKDB_MAX_MEMORY, DUCKDB_THREADS
  - DATASET_TABLE (default: sales), DATASET_SOURCE (CSV or Parquet file)
  - SEED_DEMO_DATA, DEMO_ROWS
  - DATASET_DIMENSIONS, DATASET_METRICS, DATASET_GROUPABLE: comma-separated

Grid:
  - GRID_BATCH_SIZE (default: 2000), GRID_MAX_ROWS (default: 10000)
  - GRID_PREFETCH_THRESHOLD (default: 0.7), GRID_BOTTOM_THRESHOLD_PX (default: 200)
  - GRID_ROW_HEIGHT, GRID_OVERSCAN, GRID_FRAME_INTERVAL
  - GRID_GROUPABLE_COLUMNS, GRID_SUGGEST_LIMIT
  - GRID_MAX_SESSIONS, GRID_COMMAND_RATE, GRID_COMMAND_BURST

Engine and cache:
  - ENGINE_REMOTE_URL, ENGINE_TIMEOUT
  - ENGINE_BREAKER_MAX_REQUESTS, ENGINE_BREAKER_INTERVAL,
    ENGINE_BREAKER_TIMEOUT, ENGINE_BREAKER_FAILURE_THRESHOLD
  - CACHE_CAPACITY (0 disables), CACHE_TTL

Security and logging:
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("Listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
*/
package config
