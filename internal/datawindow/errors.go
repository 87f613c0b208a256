// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package datawindow

import (
	"context"
	"errors"
)

var (
	// ErrSuperseded marks a fetch whose result was discarded because a newer
	// request of the same scope or a structural change replaced it.
	ErrSuperseded = errors.New("datawindow: request superseded")

	// ErrNonContiguous is returned when a range starts past the end of the buffer.
	ErrNonContiguous = errors.New("datawindow: range is not contiguous with buffer")

	// ErrEvicted is returned when a range starts before the evicted head.
	ErrEvicted = errors.New("datawindow: range was evicted")

	// ErrNotReady is returned by range requests before the initial load completed.
	ErrNotReady = errors.New("datawindow: initial load has not completed")

	// ErrUnknownColumn is returned when a query names a column the dataset lacks.
	ErrUnknownColumn = errors.New("datawindow: unknown column")

	// ErrSchemaMismatch is returned when a response does not match the buffered columns.
	ErrSchemaMismatch = errors.New("datawindow: result schema mismatch")

	// ErrNoSearchProvider is returned by Suggest when no search collaborator is configured.
	ErrNoSearchProvider = errors.New("datawindow: no search provider")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("datawindow: store closed")
)

// IsSuperseded reports whether err means the request was cancelled or
// replaced and must be ignored.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled)
}
