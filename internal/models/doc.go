// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package models defines the data structures shared across Gridscope.

This package is the single source of truth for the shapes that cross package
boundaries: the grouped query request, the columnar query result, dataset
metadata, filter-value and search-autocomplete results, and the standard API
response envelope.

Key Components:

  - QueryRequest: dimensions, metrics, filters, sort, paging, search and comparison
  - QueryResult: canonical columnar result (columns, column types, rows)
  - DatasetMetadata: dimension and metric catalog consumed at session start
  - FilterValues / SearchResults: autocomplete collaborator result shapes
  - APIResponse / APIError / Metadata: HTTP envelope

Columnar Results:

Every query answer is carried as a QueryResult. Row-object renditions
(one map per row) exist only at the HTTP boundary via QueryResult.RowObjects
and are never used internally.

	result := &models.QueryResult{
	    Columns:     []string{"region", "revenue"},
	    ColumnTypes: []string{"VARCHAR", "DOUBLE"},
	    Rows:        [][]any{{"EMEA", 1200.5}, {"APAC", 980.0}},
	    TotalRows:   2,
	}

Thread Safety:

Models are plain data. Values handed between goroutines must not be mutated
after being shared; use Clone where a private copy is needed.
*/
package models
