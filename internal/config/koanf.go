// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/gridscope/config.yaml",
	"/etc/gridscope/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3858,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		API: APIConfig{
			DefaultPageSize: 100,
			MaxPageSize:     10000,
		},
		Database: DatabaseConfig{
			Path:         "",
			MaxMemory:    "2GB",
			Threads:      0,
			Table:        "sales",
			SeedDemoData: true,
			DemoRows:     50000,
		},
		Grid: GridConfig{
			BatchSize:         2000,
			MaxRows:           10000,
			SuggestLimit:      10,
			PrefetchThreshold: 0.7,
			BottomThresholdPx: 200,
			RowHeight:         32,
			Overscan:          10,
			FrameInterval:     16 * time.Millisecond,
			MaxSessions:       0,
			CommandRate:       20,
			CommandBurst:      40,
		},
		Cache: CacheConfig{
			Capacity: 1000,
			TTL:      5 * time.Minute,
		},
		Engine: EngineConfig{
			RemoteURL:               "",
			Timeout:                 30 * time.Second,
			BreakerMaxRequests:      3,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	return loadFrom(findConfigFile())
}

// loadFrom loads configuration with an explicit config file path. An empty
// path skips the file layer.
func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// GRID_BATCH_SIZE -> grid.batch_size
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"database.dimensions",
	"database.metrics",
	"database.groupable",
	"grid.groupable_columns",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// API mappings
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Database mappings
	"duckdb_path":        "database.path",
	"duckdb_max_memory":  "database.max_memory",
	"duckdb_threads":     "database.threads",
	"dataset_table":      "database.table",
	"dataset_source":     "database.source",
	"seed_demo_data":     "database.seed_demo_data",
	"demo_rows":          "database.demo_rows",
	"dataset_dimensions": "database.dimensions",
	"dataset_metrics":    "database.metrics",
	"dataset_groupable":  "database.groupable",

	// Grid mappings
	"grid_batch_size":          "grid.batch_size",
	"grid_max_rows":            "grid.max_rows",
	"grid_suggest_limit":       "grid.suggest_limit",
	"grid_prefetch_threshold":  "grid.prefetch_threshold",
	"grid_bottom_threshold_px": "grid.bottom_threshold_px",
	"grid_row_height":          "grid.row_height",
	"grid_overscan":            "grid.overscan",
	"grid_frame_interval":      "grid.frame_interval",
	"grid_groupable_columns":   "grid.groupable_columns",
	"grid_max_sessions":        "grid.max_sessions",
	"grid_command_rate":        "grid.command_rate",
	"grid_command_burst":       "grid.command_burst",

	// Cache mappings
	"cache_capacity": "cache.capacity",
	"cache_ttl":      "cache.ttl",

	// Engine mappings
	"engine_remote_url":                "engine.remote_url",
	"engine_timeout":                   "engine.timeout",
	"engine_breaker_max_requests":      "engine.breaker_max_requests",
	"engine_breaker_interval":          "engine.breaker_interval",
	"engine_breaker_timeout":           "engine.breaker_timeout",
	"engine_breaker_failure_threshold": "engine.breaker_failure_threshold",

	// Security mappings
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - GRID_MAX_ROWS -> grid.max_rows
//
// Unmapped keys return "" and are skipped, so unrelated environment
// variables never pollute the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
