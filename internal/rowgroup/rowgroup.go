// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package rowgroup computes merged-cell (row span) layouts for grouped tables.
//
// For every groupable dimension column, consecutive rows sharing the same
// value form a run. A run in a child column never crosses a boundary of any
// groupable column to its left, so nested groups always sit inside their
// parent group:
//
//	region  country  revenue
//	EMEA    DE       10        <- region run [0,3), country run [0,2)
//	EMEA    DE       12
//	EMEA    FR        8        <- country run [2,3)
//	APAC    DE        4        <- new region run; DE does not merge with row 1
//
// Layouts are immutable once computed and safe for concurrent reads.
package rowgroup

import (
	"errors"
	"fmt"
)

var (
	// ErrNotGroupable is returned when a requested column is not an
	// ascending dimension column index.
	ErrNotGroupable = errors.New("rowgroup: column is not groupable")

	// ErrRaggedRow is returned when a row is too short for a groupable column.
	ErrRaggedRow = errors.New("rowgroup: row shorter than groupable column")
)

// Span is a merged cell covering Rows rows starting at StartRow in column Col.
// Only runs longer than one row produce a Span.
type Span struct {
	StartRow int `json:"start_row"`
	Col      int `json:"col"`
	Rows     int `json:"span"`
}

// Group is the run a given cell belongs to. Every row of a groupable column
// belongs to exactly one Group, including single-row runs.
type Group struct {
	Value    any `json:"value"`
	StartRow int `json:"start_row"`
	RowCount int `json:"row_count"`
}

// EndRow returns the exclusive end row of the group.
func (g Group) EndRow() int {
	return g.StartRow + g.RowCount
}

// Layout is the result of Compute over a row buffer.
type Layout struct {
	rowCount  int
	groupable []int
	spans     []Span
	// runs[c][i] is the index into groups[c] for row i.
	runs   map[int][]int
	groups map[int][]Group
}

// Empty returns a layout with no groupable columns. Every cell renders with span 1.
func Empty(rowCount int) *Layout {
	return &Layout{rowCount: rowCount}
}

func validateColumns(groupable []int, dimensionCount int) error {
	prev := -1
	for _, c := range groupable {
		if c < 0 || c >= dimensionCount {
			return fmt.Errorf("%w: index %d outside %d dimension columns", ErrNotGroupable, c, dimensionCount)
		}
		if c <= prev {
			return fmt.Errorf("%w: indices must be strictly ascending, got %d after %d", ErrNotGroupable, c, prev)
		}
		prev = c
	}
	return nil
}

// Compute builds the group layout for rows. groupable lists the column
// indices to group, strictly ascending; every index must address one of the
// leading dimensionCount columns.
//
// Runs are computed left to right. A run in column c breaks when the value in
// c changes, when any groupable column left of c starts a new run, or at the
// end of the buffer. The cost is O(len(rows) * len(groupable)).
func Compute(rows [][]any, groupable []int, dimensionCount int) (*Layout, error) {
	if err := validateColumns(groupable, dimensionCount); err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(groupable) == 0 {
		return Empty(len(rows)), nil
	}

	last := groupable[len(groupable)-1]
	for i, row := range rows {
		if len(row) <= last {
			return nil, fmt.Errorf("%w: row %d has %d cells, need %d", ErrRaggedRow, i, len(row), last+1)
		}
	}

	l := &Layout{
		rowCount:  len(rows),
		groupable: append([]int(nil), groupable...),
		runs:      make(map[int][]int, len(groupable)),
		groups:    make(map[int][]Group, len(groupable)),
	}

	// parentBreak[i] is true when some column already processed starts a
	// new run at row i.
	parentBreak := make([]bool, len(rows))
	parentBreak[0] = true

	for _, c := range groupable {
		runIdx := make([]int, len(rows))
		var groups []Group

		runStart := 0
		flush := func(end int) {
			g := Group{Value: rows[runStart][c], StartRow: runStart, RowCount: end - runStart}
			idx := len(groups)
			groups = append(groups, g)
			for r := runStart; r < end; r++ {
				runIdx[r] = idx
			}
			if g.RowCount > 1 {
				l.spans = append(l.spans, Span{StartRow: runStart, Col: c, Rows: g.RowCount})
			}
		}

		for i := 1; i < len(rows); i++ {
			if parentBreak[i] || !Equal(rows[i][c], rows[runStart][c]) {
				flush(i)
				runStart = i
				parentBreak[i] = true
			}
		}
		flush(len(rows))

		l.runs[c] = runIdx
		l.groups[c] = groups
	}

	return l, nil
}

// RowCount returns the number of rows the layout was computed over.
func (l *Layout) RowCount() int {
	return l.rowCount
}

// Groupable returns the grouped column indices in ascending order.
func (l *Layout) Groupable() []int {
	return append([]int(nil), l.groupable...)
}

// IsGroupable reports whether col participates in grouping.
func (l *Layout) IsGroupable(col int) bool {
	_, ok := l.runs[col]
	return ok
}

// Spans returns the recorded multi-row spans ordered by column, then start row.
func (l *Layout) Spans() []Span {
	return append([]Span(nil), l.spans...)
}

// Groups returns every run of col in row order.
func (l *Layout) Groups(col int) []Group {
	return append([]Group(nil), l.groups[col]...)
}

// GroupOf returns the run containing (row, col). The second result is false
// when col is not grouped or row is out of range.
func (l *Layout) GroupOf(row, col int) (Group, bool) {
	runIdx, ok := l.runs[col]
	if !ok || row < 0 || row >= len(runIdx) {
		return Group{}, false
	}
	return l.groups[col][runIdx[row]], true
}

// ShouldRenderLabel reports whether the cell at (row, col) carries the label
// of its group. Cells of ungrouped columns always render.
func (l *Layout) ShouldRenderLabel(row, col int) bool {
	g, ok := l.GroupOf(row, col)
	if !ok {
		return true
	}
	return g.StartRow == row
}

// StickyLabelRow returns the row at which the label of the group containing
// (row, col) is drawn when the viewport starts at viewportTopRow. The top row
// is clamped into the group, so a partially scrolled group keeps its label
// on its first visible row.
func (l *Layout) StickyLabelRow(col, row, viewportTopRow int) int {
	g, ok := l.GroupOf(row, col)
	if !ok {
		return row
	}
	return min(max(viewportTopRow, g.StartRow), g.EndRow()-1)
}

// RowSpanPixels returns the rendered height of the cell at (row, col): the
// full run height at the run's first row, 0 for cells hidden inside a run and
// rowHeight for ungrouped cells.
func (l *Layout) RowSpanPixels(row, col int, rowHeight float64) float64 {
	g, ok := l.GroupOf(row, col)
	if !ok {
		return rowHeight
	}
	if g.StartRow != row {
		return 0
	}
	return float64(g.RowCount) * rowHeight
}

// RowSpan returns the row span of the cell at (row, col) in rows. Hidden
// cells report 0.
func (l *Layout) RowSpan(row, col int) int {
	g, ok := l.GroupOf(row, col)
	if !ok {
		return 1
	}
	if g.StartRow != row {
		return 0
	}
	return g.RowCount
}
