// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package models

import "slices"

// Dimension describes a column usable for grouping.
type Dimension struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Metric describes a numeric column aggregated per dimension combination.
type Metric struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Aggregation string `json:"aggregation"`
}

// DatasetMetadata is the dimension and metric catalog of the dataset.
// Groupable lists the dimensions allowed to render merged row spans.
type DatasetMetadata struct {
	Table      string      `json:"table"`
	Dimensions []Dimension `json:"dimensions"`
	Metrics    []Metric    `json:"metrics"`
	Groupable  []string    `json:"groupable"`
}

// Clone returns a deep copy of the catalog.
func (m *DatasetMetadata) Clone() *DatasetMetadata {
	if m == nil {
		return nil
	}
	return &DatasetMetadata{
		Table:      m.Table,
		Dimensions: slices.Clone(m.Dimensions),
		Metrics:    slices.Clone(m.Metrics),
		Groupable:  slices.Clone(m.Groupable),
	}
}

// DimensionNames returns the dimension names in catalog order.
func (m *DatasetMetadata) DimensionNames() []string {
	names := make([]string, len(m.Dimensions))
	for i, d := range m.Dimensions {
		names[i] = d.Name
	}
	return names
}

// MetricNames returns the metric names in catalog order.
func (m *DatasetMetadata) MetricNames() []string {
	names := make([]string, len(m.Metrics))
	for i, d := range m.Metrics {
		names[i] = d.Name
	}
	return names
}

// IsDimension reports whether name is a dimension column.
func (m *DatasetMetadata) IsDimension(name string) bool {
	for _, d := range m.Dimensions {
		if d.Name == name {
			return true
		}
	}
	return false
}

// IsMetric reports whether name is a metric column.
func (m *DatasetMetadata) IsMetric(name string) bool {
	for _, d := range m.Metrics {
		if d.Name == name {
			return true
		}
	}
	return false
}

// FilterValues lists the distinct values of one dimension column.
type FilterValues struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// SearchRequest asks for autocomplete suggestions across dimension columns.
type SearchRequest struct {
	Text    string   `json:"text" validate:"required,max=200"`
	Columns []string `json:"columns,omitempty" validate:"max=32,dive,column"`
	Limit   int      `json:"limit" validate:"min=0,max=100"`
}

// SearchResult is one autocomplete suggestion.
type SearchResult struct {
	Column string `json:"column"`
	Value  string `json:"value"`
	Label  string `json:"label"`
}

// SearchResults wraps the autocomplete suggestions.
type SearchResults struct {
	Results []SearchResult `json:"results"`
}
