// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package datawindow

import (
	"context"

	"github.com/tomtom215/gridscope/internal/models"
)

// QueryExecutor runs grouped queries. It must return up to req.Limit rows
// and fewer only when the result is exhausted.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)
}

// MetadataProvider describes the dataset's dimensions and metrics.
type MetadataProvider interface {
	GetMetadata(ctx context.Context) (*models.DatasetMetadata, error)
}

// SearchProvider returns autocomplete suggestions.
type SearchProvider interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResults, error)
}

// FilterValueProvider returns the distinct values of a dimension column.
type FilterValueProvider interface {
	FilterValues(ctx context.Context, column string, limit int) (*models.FilterValues, error)
}
