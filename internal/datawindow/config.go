// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package datawindow

import (
	"errors"
	"fmt"
)

// Defaults for Config.
const (
	DefaultBatchSize    = 2000
	DefaultMaxRows      = 10000
	DefaultSuggestLimit = 10
)

// Config controls batch sizing, eviction and grouping of a Store.
type Config struct {
	// BatchSize is the number of rows requested per fetch.
	BatchSize int

	// MaxRows is the buffer ceiling. Rows beyond it are evicted from the head.
	MaxRows int

	// Groupable is the allow-list of dimensions that may render merged spans.
	// Empty means the dataset's own groupable list is used.
	Groupable []string

	// SuggestLimit caps autocomplete results.
	SuggestLimit int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:    DefaultBatchSize,
		MaxRows:      DefaultMaxRows,
		SuggestLimit: DefaultSuggestLimit,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.MaxRows < c.BatchSize {
		errs = append(errs, fmt.Errorf("max rows (%d) must be at least the batch size (%d)", c.MaxRows, c.BatchSize))
	}
	if c.SuggestLimit < 0 {
		errs = append(errs, fmt.Errorf("suggest limit must not be negative, got %d", c.SuggestLimit))
	}
	return errors.Join(errs...)
}
