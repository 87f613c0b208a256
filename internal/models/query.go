// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package models

import (
	"slices"
)

// Filter operators accepted by the query engine.
const (
	FilterOpIn       = "in"
	FilterOpNotIn    = "not_in"
	FilterOpEq       = "eq"
	FilterOpNeq      = "neq"
	FilterOpContains = "contains"
)

// Comparison operators applied to aggregated metrics.
const (
	CompareGT  = "gt"
	CompareGTE = "gte"
	CompareLT  = "lt"
	CompareLTE = "lte"
	CompareEQ  = "eq"
)

// Filter restricts a dimension column to (or away from) a set of values.
type Filter struct {
	Column   string   `json:"column" validate:"column"`
	Operator string   `json:"operator" validate:"omitempty,oneof=in not_in eq neq contains"`
	Values   []string `json:"values" validate:"min=1,max=1000"`
}

// SortKey orders the grouped result by a dimension or metric column.
type SortKey struct {
	Column string `json:"column" validate:"column"`
	Desc   bool   `json:"desc"`
}

// Comparison keeps only groups whose aggregated metric satisfies the operator.
// It is applied after aggregation (SQL HAVING).
type Comparison struct {
	Metric   string  `json:"metric" validate:"column"`
	Operator string  `json:"operator" validate:"required,oneof=gt gte lt lte eq"`
	Value    float64 `json:"value"`
}

// QueryRequest is the grouped query sent to the query execution collaborator.
//
// Dimensions and Metrics are column names from DatasetMetadata. Offset/Limit
// page through the grouped result in a stable order.
type QueryRequest struct {
	Dimensions []string    `json:"dimensions" validate:"max=32,dive,column"`
	Metrics    []string    `json:"metrics" validate:"max=64,dive,column"`
	Filters    []Filter    `json:"filters,omitempty" validate:"max=64,dive"`
	Sort       []SortKey   `json:"sort,omitempty" validate:"max=16,dive"`
	Offset     int         `json:"offset" validate:"min=0"`
	Limit      int         `json:"limit" validate:"min=1"`
	Search     string      `json:"search,omitempty" validate:"max=200"`
	Comparison *Comparison `json:"comparison,omitempty"`
}

// QueryResult is the canonical columnar answer to a QueryRequest.
//
// Every row has exactly len(Columns) cells. Cells are string, int64, float64,
// bool or nil.
type QueryResult struct {
	Columns     []string `json:"columns"`
	ColumnTypes []string `json:"column_types"`
	Rows        [][]any  `json:"rows"`
	TotalRows   int      `json:"total_rows"`
	QueryTimeMs int64    `json:"query_time_ms"`
	Cached      bool     `json:"cached"`
}

// ColumnIndex returns the position of name in Columns, or -1.
func (r *QueryResult) ColumnIndex(name string) int {
	return slices.Index(r.Columns, name)
}

// Clone returns a copy whose slices do not alias r. Row cells are scalars,
// so copying the row slices is sufficient.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	out := &QueryResult{
		Columns:     slices.Clone(r.Columns),
		ColumnTypes: slices.Clone(r.ColumnTypes),
		Rows:        make([][]any, len(r.Rows)),
		TotalRows:   r.TotalRows,
		QueryTimeMs: r.QueryTimeMs,
		Cached:      r.Cached,
	}
	for i, row := range r.Rows {
		out.Rows[i] = slices.Clone(row)
	}
	return out
}

// RowObjects converts the columnar rows into one map per row.
// Only the HTTP layer uses this shape (format=objects).
func (r *QueryResult) RowObjects() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		obj := make(map[string]any, len(r.Columns))
		for c, name := range r.Columns {
			if c < len(row) {
				obj[name] = row[c]
			}
		}
		out[i] = obj
	}
	return out
}
