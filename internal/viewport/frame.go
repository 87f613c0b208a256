// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package viewport

import (
	"github.com/tomtom215/gridscope/internal/datawindow"
	"github.com/tomtom215/gridscope/internal/rowgroup"
	"github.com/tomtom215/gridscope/internal/virtualize"
)

// Cell is one rendered cell.
//
// Span is the number of rendered rows the cell covers. Cells covered by a
// merged cell above them have Span 0 and are not drawn. Label is true on the
// first row of a group.
type Cell struct {
	Value    any     `json:"value"`
	Span     int     `json:"span"`
	HeightPx float64 `json:"height_px"`
	Label    bool    `json:"label,omitempty"`
}

// Row is one rendered row. Index is the buffer index.
type Row struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

// StickyLabel is the floating label of a grouped column for the group under
// the viewport top.
type StickyLabel struct {
	Col        int `json:"col"`
	Row        int `json:"row"`
	Value      any `json:"value"`
	GroupStart int `json:"group_start"`
	GroupEnd   int `json:"group_end"`
}

// Frame is everything a renderer needs to draw one viewport state.
type Frame struct {
	Window          virtualize.Window `json:"window"`
	ScrollTop       float64           `json:"scroll_top"`
	ContainerHeight float64           `json:"container_height"`
	RowHeight       float64           `json:"row_height"`
	Columns         []string          `json:"columns"`
	ColumnTypes     []string          `json:"column_types"`
	DimensionCount  int               `json:"dimension_count"`
	Rows            []Row             `json:"rows"`
	StickyLabels    []StickyLabel     `json:"sticky_labels,omitempty"`
	TotalRows       int               `json:"total_rows"`
	BufferLength    int               `json:"buffer_length"`
	Evicted         int               `json:"evicted"`
	Loading         bool              `json:"loading"`
	Prefetching     bool              `json:"prefetching"`
	HasMore         bool              `json:"has_more"`
	State           datawindow.State  `json:"state"`
	Error           string            `json:"error,omitempty"`
}

// render builds the frame for st over snap. The layout must have been
// computed over snap.Data.
//
//nolint:gocritic // Snapshot is a read-only value
func (c *Controller) render(st scrollState, snap datawindow.Snapshot, layout *rowgroup.Layout) (Frame, error) {
	params := virtualize.Params{
		ScrollTop:       st.scrollTop,
		ContainerHeight: st.containerHeight,
		RowHeight:       c.cfg.RowHeight,
		TotalRows:       len(snap.Data),
		Overscan:        c.cfg.Overscan,
	}
	w, err := virtualize.Compute(params)
	if err != nil {
		return Frame{}, err
	}

	f := Frame{
		Window:          w,
		ScrollTop:       st.scrollTop,
		ContainerHeight: st.containerHeight,
		RowHeight:       c.cfg.RowHeight,
		Columns:         snap.Columns,
		ColumnTypes:     snap.ColumnTypes,
		DimensionCount:  snap.DimensionCount,
		Rows:            make([]Row, 0, w.Len()),
		TotalRows:       snap.TotalRows,
		BufferLength:    snap.BufferLength,
		Evicted:         snap.Evicted,
		Loading:         snap.Loading,
		Prefetching:     snap.Prefetching,
		HasMore:         snap.HasMore,
		State:           snap.State,
	}
	if snap.Error != nil {
		f.Error = snap.Error.Error()
	}

	for i := w.StartIndex; i < w.EndIndex; i++ {
		src := snap.Data[i]
		cells := make([]Cell, len(src))
		for col, v := range src {
			cells[col] = c.cell(layout, w, i, col, v)
		}
		f.Rows = append(f.Rows, Row{Index: i, Cells: cells})
	}

	top, _, err := virtualize.VisibleRange(params)
	if err != nil {
		return Frame{}, err
	}
	if top < len(snap.Data) {
		for _, col := range layout.Groupable() {
			g, ok := layout.GroupOf(top, col)
			if !ok {
				continue
			}
			f.StickyLabels = append(f.StickyLabels, StickyLabel{
				Col:        col,
				Row:        layout.StickyLabelRow(col, top, top),
				Value:      g.Value,
				GroupStart: g.StartRow,
				GroupEnd:   g.EndRow(),
			})
		}
	}
	return f, nil
}

// cell computes the rendered span of (row, col) clipped to the window. The
// first rendered row of a group that started above the window carries the
// merged cell for the rest of the group.
func (c *Controller) cell(layout *rowgroup.Layout, w virtualize.Window, row, col int, v any) Cell {
	g, ok := layout.GroupOf(row, col)
	if !ok {
		return Cell{Value: v, Span: 1, HeightPx: c.cfg.RowHeight}
	}
	if row != g.StartRow && row != w.StartIndex {
		return Cell{Value: v}
	}
	span := min(g.EndRow(), w.EndIndex) - row
	return Cell{
		Value:    v,
		Span:     span,
		HeightPx: float64(span) * c.cfg.RowHeight,
		Label:    layout.ShouldRenderLabel(row, col),
	}
}
