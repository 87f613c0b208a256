// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package datawindow implements the per-session data window store.

A Store owns the loaded row buffer of one grid session: the full fetched
columns (every metric of the dataset), the visible projection (selected
dimensions then selected metrics), the loaded-range tracker, and the row
group layout computed over the projection.

# States

	EMPTY -> LOADING_INITIAL -> READY
	READY -> LOADING_MORE -> READY
	READY -> PREFETCHING -> READY

Any structural change (dimensions, filters, sort, search text or comparison)
returns the store to EMPTY and clears the buffer, tracker and layout.
Changing only the visible metrics re-projects the buffer without a fetch.

# Cancellation Scopes

Fetches run in one of three scopes: foreground (initial load and load-more),
prefetch, and search autocomplete. Starting a request cancels only the
previous request of the same scope. A response is applied only when its scope
token is still current and no structural change happened while it was in
flight; otherwise the caller receives ErrSuperseded, which is never an error
worth surfacing.

# Eviction

When the buffer grows past Config.MaxRows the oldest rows are dropped from the
head. Buffer index i then corresponds to server offset i+Evicted. The tail,
which holds the most recently fetched rows, is never dropped.

# Thread Safety

All methods are safe for concurrent use. The store mutex guards state
transitions only; collaborator calls run outside the lock.
*/
package datawindow
