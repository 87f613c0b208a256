// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/c2h5oh/datasize"
)

// minMaxMemory is the smallest DuckDB memory_limit accepted.
const minMaxMemory = 64 * datasize.MB

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateGrid(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validEnvironments defines the allowed environment modes
var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

// validateAPI validates API pagination limits
func (c *Config) validateAPI() error {
	if c.API.MaxPageSize < 1 {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be at least 1")
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be between 1 and API_MAX_PAGE_SIZE (%d)", c.API.MaxPageSize)
	}
	return nil
}

// identifierPattern matches plain SQL identifiers accepted for the dataset
// table and column overrides.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateDatabase validates the dataset definition
func (c *Config) validateDatabase() error {
	if c.Engine.IsRemote() {
		return nil // the local database is not opened in remote mode
	}
	if !identifierPattern.MatchString(c.Database.Table) {
		return fmt.Errorf("DATASET_TABLE must be a plain identifier, got %q", c.Database.Table)
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	if c.Database.MaxMemory != "" {
		size, err := datasize.ParseString(c.Database.MaxMemory)
		if err != nil {
			return fmt.Errorf("DUCKDB_MAX_MEMORY must be a size such as 2GB, got %q: %w", c.Database.MaxMemory, err)
		}
		if size < minMaxMemory {
			return fmt.Errorf("DUCKDB_MAX_MEMORY must be at least %s, got %s", minMaxMemory.HumanReadable(), size.HumanReadable())
		}
	}
	if c.Database.SeedDemoData && c.Database.Source == "" && c.Database.DemoRows < 1 {
		return fmt.Errorf("DEMO_ROWS must be at least 1 when SEED_DEMO_DATA=true")
	}
	for _, list := range [][]string{c.Database.Dimensions, c.Database.Metrics, c.Database.Groupable} {
		for _, name := range list {
			if !identifierPattern.MatchString(name) {
				return fmt.Errorf("dataset column %q is not a plain identifier", name)
			}
		}
	}
	return nil
}

// validateGrid validates data window and viewport settings
func (c *Config) validateGrid() error {
	g := &c.Grid
	if g.BatchSize < 1 {
		return fmt.Errorf("GRID_BATCH_SIZE must be at least 1")
	}
	if g.MaxRows < g.BatchSize {
		return fmt.Errorf("GRID_MAX_ROWS (%d) must be at least GRID_BATCH_SIZE (%d)", g.MaxRows, g.BatchSize)
	}
	if g.PrefetchThreshold <= 0 || g.PrefetchThreshold > 1 {
		return fmt.Errorf("GRID_PREFETCH_THRESHOLD must be in (0, 1]")
	}
	if g.BottomThresholdPx < 0 {
		return fmt.Errorf("GRID_BOTTOM_THRESHOLD_PX must not be negative")
	}
	if g.RowHeight <= 0 {
		return fmt.Errorf("GRID_ROW_HEIGHT must be positive")
	}
	if g.Overscan < 0 {
		return fmt.Errorf("GRID_OVERSCAN must not be negative")
	}
	if g.FrameInterval < time.Millisecond {
		return fmt.Errorf("GRID_FRAME_INTERVAL must be at least 1ms")
	}
	if g.MaxSessions < 0 {
		return fmt.Errorf("GRID_MAX_SESSIONS must not be negative")
	}
	if g.CommandRate <= 0 || g.CommandBurst < 1 {
		return fmt.Errorf("GRID_COMMAND_RATE must be positive and GRID_COMMAND_BURST at least 1")
	}
	return nil
}

// validateCache validates cache settings
func (c *Config) validateCache() error {
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("CACHE_CAPACITY must not be negative")
	}
	if c.Cache.Capacity > 0 && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when caching is enabled")
	}
	return nil
}

// validateEngine validates query engine settings
func (c *Config) validateEngine() error {
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive")
	}
	if c.Engine.BreakerFailureThreshold < 1 {
		return fmt.Errorf("ENGINE_BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	if c.Engine.BreakerTimeout <= 0 {
		return fmt.Errorf("ENGINE_BREAKER_TIMEOUT must be positive")
	}
	if c.Engine.IsRemote() {
		if err := validateHTTPURL(c.Engine.RemoteURL, "ENGINE_REMOTE_URL"); err != nil {
			return fmt.Errorf("ENGINE_REMOTE_URL is invalid: %w", err)
		}
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateCORS rejects wildcard CORS in production.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
