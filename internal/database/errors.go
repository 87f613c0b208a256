// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/gridscope/internal/database/query"
	"github.com/tomtom215/gridscope/internal/logging"
)

var (
	// ErrDatasetMissing is returned when the dataset table cannot be found or created.
	ErrDatasetMissing = errors.New("dataset table not available")

	// ErrUnavailable wraps failures caused by a lost database connection.
	ErrUnavailable = errors.New("database unavailable")
)

// IsInvalidQuery reports whether err was caused by a malformed request
// (unknown column, bad filter, bad page) rather than by the database.
func IsInvalidQuery(err error) bool {
	return errors.Is(err, query.ErrUnknownColumn) ||
		errors.Is(err, query.ErrDuplicateColumn) ||
		errors.Is(err, query.ErrNoColumns) ||
		errors.Is(err, query.ErrInvalidFilter) ||
		errors.Is(err, query.ErrInvalidComparison) ||
		errors.Is(err, query.ErrInvalidPage)
}

// closeWithLog closes a resource and logs any error
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
