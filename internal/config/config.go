// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting via environment variables
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(&cfg.Database)
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Database DatabaseConfig `koanf:"database"`
	Grid     GridConfig     `koanf:"grid"`
	Cache    CacheConfig    `koanf:"cache"`
	Engine   EngineConfig   `koanf:"engine"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// APIConfig holds API pagination settings for the stateless query endpoint.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// DatabaseConfig holds DuckDB settings and the dataset definition.
//
// The dataset is a single table. When Source is set the table is created from
// the file (CSV or Parquet, by extension) on startup. When SeedDemoData is set
// and the table does not exist, a generated sales dataset is created instead.
//
// Dimensions and Metrics restrict the exposed columns. When empty they are
// inferred from the table schema: numeric columns become metrics, everything
// else a dimension.
type DatabaseConfig struct {
	Path         string   `koanf:"path"`       // "" or ":memory:" for an in-memory database
	MaxMemory    string   `koanf:"max_memory"` // DuckDB memory_limit, e.g. "2GB"
	Threads      int      `koanf:"threads"`    // 0 = use NumCPU
	Table        string   `koanf:"table"`
	Source       string   `koanf:"source"`
	SeedDemoData bool     `koanf:"seed_demo_data"`
	DemoRows     int      `koanf:"demo_rows"`
	Dimensions   []string `koanf:"dimensions"`
	Metrics      []string `koanf:"metrics"`
	Groupable    []string `koanf:"groupable"`
}

// GridConfig holds per-session data window and viewport settings.
type GridConfig struct {
	BatchSize         int           `koanf:"batch_size"`
	MaxRows           int           `koanf:"max_rows"`
	SuggestLimit      int           `koanf:"suggest_limit"`
	PrefetchThreshold float64       `koanf:"prefetch_threshold"`
	BottomThresholdPx float64       `koanf:"bottom_threshold_px"`
	RowHeight         float64       `koanf:"row_height"`
	Overscan          int           `koanf:"overscan"`
	FrameInterval     time.Duration `koanf:"frame_interval"`
	GroupableColumns  []string      `koanf:"groupable_columns"`

	// MaxSessions caps concurrent grid sessions. 0 means unlimited.
	MaxSessions int `koanf:"max_sessions"`
	// CommandRate and CommandBurst throttle non-scroll session commands.
	CommandRate  float64 `koanf:"command_rate"`
	CommandBurst int     `koanf:"command_burst"`
}

// CacheConfig holds query result cache settings.
type CacheConfig struct {
	Capacity int           `koanf:"capacity"` // 0 disables caching
	TTL      time.Duration `koanf:"ttl"`
}

// EngineConfig holds query engine settings.
//
// When RemoteURL is set, grid sessions query another Gridscope API over HTTP
// instead of the local database.
type EngineConfig struct {
	RemoteURL               string        `koanf:"remote_url"`
	Timeout                 time.Duration `koanf:"timeout"`
	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests"`
	BreakerInterval         time.Duration `koanf:"breaker_interval"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
}

// IsRemote reports whether queries go to a remote engine.
func (e *EngineConfig) IsRemote() bool {
	return e.RemoteURL != ""
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources in order of precedence:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
