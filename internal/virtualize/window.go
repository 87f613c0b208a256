// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package virtualize computes which rows of a fixed-row-height list must be
// rendered for a given scroll position.
//
// Only the rows intersecting the viewport, plus an overscan margin on each
// side, are rendered. The surrounding space is represented by OffsetTop
// (padding above the first rendered row) and TotalHeight (full scrollable
// height).
//
// Compute is pure and safe for concurrent use. Coalescer throttles how often
// Compute runs while the user scrolls.
package virtualize

import (
	"errors"
	"fmt"
	"math"
)

// DefaultOverscan is the number of extra rows rendered above and below the viewport.
const DefaultOverscan = 10

// ErrInvalidGeometry is returned when row height is not positive or overscan is negative.
var ErrInvalidGeometry = errors.New("virtualize: invalid geometry")

// Params is the scroll state fed to Compute. Pixel values are float64 so
// fractional device pixels survive.
type Params struct {
	ScrollTop       float64 `json:"scroll_top"`
	ContainerHeight float64 `json:"container_height"`
	RowHeight       float64 `json:"row_height"`
	TotalRows       int     `json:"total_rows"`
	Overscan        int     `json:"overscan"`
}

// Window is the render range for one frame. Rows [StartIndex, EndIndex) are rendered.
type Window struct {
	StartIndex  int     `json:"start_index"`
	EndIndex    int     `json:"end_index"`
	OffsetTop   float64 `json:"offset_top"`
	TotalHeight float64 `json:"total_height"`
}

// Len returns the number of rows in the window.
func (w Window) Len() int {
	return w.EndIndex - w.StartIndex
}

// Empty reports whether the window renders no rows.
func (w Window) Empty() bool {
	return w.EndIndex <= w.StartIndex
}

func validate(p Params) error {
	if p.RowHeight <= 0 || !finite(p.RowHeight) {
		return fmt.Errorf("%w: row height %v", ErrInvalidGeometry, p.RowHeight)
	}
	if !finite(p.ScrollTop) || !finite(p.ContainerHeight) {
		return fmt.Errorf("%w: scroll top %v, container height %v", ErrInvalidGeometry, p.ScrollTop, p.ContainerHeight)
	}
	if p.Overscan < 0 {
		return fmt.Errorf("%w: overscan %d", ErrInvalidGeometry, p.Overscan)
	}
	return nil
}

// Compute returns the render window for p.
//
//	start = max(0, floor(scrollTop/rowHeight) - overscan)
//	end   = min(totalRows, ceil((scrollTop+containerHeight)/rowHeight) + overscan)
//
// A negative scrollTop is treated as 0 and start never exceeds end. A
// non-positive container height yields an empty window.
func Compute(p Params) (Window, error) {
	if err := validate(p); err != nil {
		return Window{}, err
	}

	total := max(p.TotalRows, 0)
	w := Window{TotalHeight: float64(total) * p.RowHeight}
	if total == 0 || p.ContainerHeight <= 0 {
		return w, nil
	}

	// Clamp before converting: a huge scrollTop overflows int.
	scrollTop := max(p.ScrollTop, 0)
	limit := float64(total)
	over := float64(p.Overscan)
	end := min(math.Ceil((scrollTop+p.ContainerHeight)/p.RowHeight)+over, limit)
	start := min(max(math.Floor(scrollTop/p.RowHeight)-over, 0), end)

	w.StartIndex = int(start)
	w.EndIndex = int(end)
	w.OffsetTop = start * p.RowHeight
	return w, nil
}

// VisibleRange returns the rows whose pixel span intersects the viewport,
// without overscan. The result is clamped to [0, TotalRows].
func VisibleRange(p Params) (start, end int, err error) {
	p.Overscan = 0
	w, err := Compute(p)
	if err != nil {
		return 0, 0, err
	}
	return w.StartIndex, w.EndIndex, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Progress returns how far the viewport bottom has travelled through the
// scrollable height, in [0, 1]. An empty list reports 0.
func Progress(scrollTop, containerHeight, totalHeight float64) float64 {
	if totalHeight <= 0 {
		return 0
	}
	p := (max(scrollTop, 0) + max(containerHeight, 0)) / totalHeight
	return min(max(p, 0), 1)
}

// DistanceFromBottom returns the remaining scrollable pixels below the viewport.
func DistanceFromBottom(scrollTop, containerHeight, totalHeight float64) float64 {
	return max(totalHeight-(max(scrollTop, 0)+max(containerHeight, 0)), 0)
}
