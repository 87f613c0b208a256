// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package rangeset tracks which row ranges of a result set are already loaded.
//
// Ranges are closed-open [Start, End) and are kept sorted, merged and
// non-empty. The tracker is used by the data window store to avoid issuing a
// fetch for rows it already holds, and is shifted down when head rows are
// evicted from the buffer.
//
// A Tracker is not safe for concurrent use; the owner serializes access.
package rangeset

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidRange is returned by Add when end <= start.
var ErrInvalidRange = errors.New("rangeset: invalid range")

// Range is a closed-open interval of row indices.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether [start, end) lies entirely inside r.
func (r Range) Contains(start, end int) bool {
	return r.Start <= start && end <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Tracker holds the merged set of loaded ranges.
type Tracker struct {
	ranges []Range
}

// New creates a tracker seeded with the given ranges. Invalid ranges are
// skipped.
func New(ranges ...Range) *Tracker {
	t := &Tracker{}
	t.Reset(ranges...)
	return t
}

// IsLoaded reports whether some tracked range fully contains
// [offset, offset+limit). A non-positive limit or a negative offset is never
// loaded.
func (t *Tracker) IsLoaded(offset, limit int) bool {
	if limit <= 0 || offset < 0 {
		return false
	}
	end := offset + limit
	// First range whose End >= end is the only candidate that can contain it.
	i, _ := slices.BinarySearchFunc(t.ranges, end, func(r Range, target int) int {
		if r.End < target {
			return -1
		}
		if r.End > target {
			return 1
		}
		return 0
	})
	if i >= len(t.ranges) {
		return false
	}
	return t.ranges[i].Contains(offset, end)
}

// Add inserts [start, end) and merges it with touching or overlapping ranges.
// Adding an already-covered range leaves the set unchanged.
func (t *Tracker) Add(start, end int) error {
	if end <= start {
		return fmt.Errorf("%w: [%d,%d)", ErrInvalidRange, start, end)
	}

	ranges := append(t.ranges, Range{Start: start, End: end})
	slices.SortFunc(ranges, func(a, b Range) int {
		return a.Start - b.Start
	})

	merged := ranges[:1]
	for _, cur := range ranges[1:] {
		prev := &merged[len(merged)-1]
		if cur.Start <= prev.End {
			prev.End = max(prev.End, cur.End)
			continue
		}
		merged = append(merged, cur)
	}
	t.ranges = merged
	return nil
}

// Shift moves every range down by delta, clamping at zero and dropping
// ranges that become empty. Used after delta rows were evicted from the head.
func (t *Tracker) Shift(delta int) {
	if delta == 0 || len(t.ranges) == 0 {
		return
	}
	out := t.ranges[:0]
	for _, r := range t.ranges {
		r.Start = max(0, r.Start-delta)
		r.End = max(0, r.End-delta)
		if r.End > r.Start {
			out = append(out, r)
		}
	}
	t.ranges = out
}

// Reset replaces the tracked set with ranges, merging them. Invalid ranges
// are dropped.
func (t *Tracker) Reset(ranges ...Range) {
	t.ranges = nil
	for _, r := range ranges {
		_ = t.Add(r.Start, r.End) //nolint:errcheck // invalid seeds are skipped
	}
}

// Ranges returns a copy of the tracked ranges in ascending order.
func (t *Tracker) Ranges() []Range {
	return slices.Clone(t.ranges)
}

// Len returns the number of disjoint ranges.
func (t *Tracker) Len() int {
	return len(t.ranges)
}

// Covered returns the total number of rows covered.
func (t *Tracker) Covered() int {
	n := 0
	for _, r := range t.ranges {
		n += r.Len()
	}
	return n
}
