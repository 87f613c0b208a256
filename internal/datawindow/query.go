// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package datawindow

import (
	"fmt"
	"slices"

	"github.com/tomtom215/gridscope/internal/models"
)

// Query is the grid configuration of a session. Metrics holds the visible
// metrics; every dataset metric is fetched regardless.
type Query struct {
	Dimensions []string           `json:"dimensions"`
	Metrics    []string           `json:"metrics"`
	Filters    []models.Filter    `json:"filters,omitempty"`
	Sort       []models.SortKey   `json:"sort,omitempty"`
	Search     string             `json:"search,omitempty"`
	Comparison *models.Comparison `json:"comparison,omitempty"`
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := Query{
		Dimensions: slices.Clone(q.Dimensions),
		Metrics:    slices.Clone(q.Metrics),
		Sort:       slices.Clone(q.Sort),
		Search:     q.Search,
	}
	if q.Filters != nil {
		out.Filters = make([]models.Filter, len(q.Filters))
		for i, f := range q.Filters {
			f.Values = slices.Clone(f.Values)
			out.Filters[i] = f
		}
	}
	if q.Comparison != nil {
		c := *q.Comparison
		out.Comparison = &c
	}
	return out
}

// StructurallyEqual reports whether q and o select the same grouped rows.
// Visible metrics do not take part.
func (q Query) StructurallyEqual(o Query) bool {
	if !slices.Equal(q.Dimensions, o.Dimensions) || q.Search != o.Search || !slices.Equal(q.Sort, o.Sort) {
		return false
	}
	if !slices.EqualFunc(q.Filters, o.Filters, func(a, b models.Filter) bool {
		return a.Column == b.Column && a.Operator == b.Operator && slices.Equal(a.Values, b.Values)
	}) {
		return false
	}
	switch {
	case q.Comparison == nil && o.Comparison == nil:
		return true
	case q.Comparison == nil || o.Comparison == nil:
		return false
	default:
		return *q.Comparison == *o.Comparison
	}
}

// validate checks every referenced column against the dataset catalog.
func (q Query) validate(meta *models.DatasetMetadata) error {
	for _, d := range q.Dimensions {
		if !meta.IsDimension(d) {
			return fmt.Errorf("%w: dimension %q", ErrUnknownColumn, d)
		}
	}
	for _, m := range q.Metrics {
		if !meta.IsMetric(m) {
			return fmt.Errorf("%w: metric %q", ErrUnknownColumn, m)
		}
	}
	for _, f := range q.Filters {
		if !meta.IsDimension(f.Column) {
			return fmt.Errorf("%w: filter column %q", ErrUnknownColumn, f.Column)
		}
	}
	for _, s := range q.Sort {
		if !meta.IsDimension(s.Column) && !meta.IsMetric(s.Column) {
			return fmt.Errorf("%w: sort column %q", ErrUnknownColumn, s.Column)
		}
	}
	if q.Comparison != nil && !meta.IsMetric(q.Comparison.Metric) {
		return fmt.Errorf("%w: comparison metric %q", ErrUnknownColumn, q.Comparison.Metric)
	}
	return nil
}
