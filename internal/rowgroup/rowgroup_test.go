// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package rowgroup

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestCompute_SimpleRun(t *testing.T) {
	rows := [][]any{
		{"A", int64(1)},
		{"A", int64(2)},
		{"B", int64(3)},
	}
	l, err := Compute(rows, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	wantSpans := []Span{{StartRow: 0, Col: 0, Rows: 2}}
	if got := l.Spans(); !slices.Equal(got, wantSpans) {
		t.Errorf("Spans() = %v, want %v", got, wantSpans)
	}

	g, ok := l.GroupOf(2, 0)
	if !ok {
		t.Fatal("GroupOf(2, 0) not found")
	}
	if g.Value != "B" || g.StartRow != 2 || g.RowCount != 1 {
		t.Errorf("GroupOf(2, 0) = %+v, want {B 2 1}", g)
	}
}

func TestCompute_ValueChangeBreaksRun(t *testing.T) {
	rows := [][]any{
		{"A", int64(1)},
		{"B", int64(2)},
		{"B", int64(3)},
	}
	l, err := Compute(rows, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	g, _ := l.GroupOf(0, 0)
	if g.RowCount != 1 {
		t.Errorf("row 0 group = %+v, want single-row run", g)
	}
	want := []Span{{StartRow: 1, Col: 0, Rows: 2}}
	if got := l.Spans(); !slices.Equal(got, want) {
		t.Errorf("Spans() = %v, want %v", got, want)
	}
}

func TestCompute_ChildNeverCrossesParent(t *testing.T) {
	rows := [][]any{
		{"A", "X"},
		{"A", "Y"},
		{"B", "X"},
	}
	l, err := Compute(rows, []int{0, 1}, 2)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	for _, s := range l.Spans() {
		if s.Col == 1 {
			t.Errorf("unexpected column-1 span %+v", s)
		}
	}
	g0, _ := l.GroupOf(0, 1)
	g2, _ := l.GroupOf(2, 1)
	if g0.StartRow == g2.StartRow {
		t.Errorf("row 2 merged with row 0 in column 1: %+v %+v", g0, g2)
	}
}

func TestCompute_EqualChildAcrossParentBoundary(t *testing.T) {
	rows := [][]any{
		{"EMEA", "DE", 10.0},
		{"EMEA", "DE", 12.0},
		{"EMEA", "FR", 8.0},
		{"APAC", "FR", 4.0},
		{"APAC", "FR", 5.0},
	}
	l, err := Compute(rows, []int{0, 1}, 2)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	want := []Span{
		{StartRow: 0, Col: 0, Rows: 3},
		{StartRow: 3, Col: 0, Rows: 2},
		{StartRow: 0, Col: 1, Rows: 2},
		{StartRow: 3, Col: 1, Rows: 2},
	}
	if got := l.Spans(); !slices.Equal(got, want) {
		t.Errorf("Spans() = %v, want %v", got, want)
	}

	// Each child run lies within its parent run.
	for row := range rows {
		parent, _ := l.GroupOf(row, 0)
		child, _ := l.GroupOf(row, 1)
		if child.StartRow < parent.StartRow || child.EndRow() > parent.EndRow() {
			t.Errorf("row %d: child %+v escapes parent %+v", row, child, parent)
		}
	}
}

func TestCompute_NonAdjacentParent(t *testing.T) {
	// Column 1 is not groupable, so it never breaks column 2 runs.
	rows := [][]any{
		{"A", "p", "X"},
		{"A", "q", "X"},
		{"B", "q", "X"},
	}
	l, err := Compute(rows, []int{0, 2}, 3)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	g, _ := l.GroupOf(1, 2)
	if g.StartRow != 0 || g.RowCount != 2 {
		t.Errorf("GroupOf(1, 2) = %+v, want run [0,2)", g)
	}
	if l.IsGroupable(1) {
		t.Error("column 1 reported groupable")
	}
}

func TestCompute_NilAndNumericEquality(t *testing.T) {
	rows := [][]any{
		{nil, 1.0},
		{nil, 2.0},
		{int64(3), 3.0},
		{3.0, 4.0},
		{"3", 5.0},
	}
	l, err := Compute(rows, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	want := []Span{
		{StartRow: 0, Col: 0, Rows: 2},
		{StartRow: 2, Col: 0, Rows: 2},
	}
	if got := l.Spans(); !slices.Equal(got, want) {
		t.Errorf("Spans() = %v, want %v", got, want)
	}
}

func TestCompute_LargeIntegerKeys(t *testing.T) {
	rows := [][]any{
		{int64(9007199254740992), 1.0},
		{int64(9007199254740993), 2.0},
		{int64(9007199254740993), 3.0},
	}
	l, err := Compute(rows, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	want := []Span{{StartRow: 1, Col: 0, Rows: 2}}
	if got := l.Spans(); !slices.Equal(got, want) {
		t.Errorf("Spans() = %v, want %v", got, want)
	}
}

func TestCompute_Empty(t *testing.T) {
	l, err := Compute(nil, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(l.Spans()) != 0 {
		t.Errorf("Spans() = %v, want none", l.Spans())
	}

	rows := [][]any{{"A"}, {"A"}}
	l, err = Compute(rows, nil, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if l.RowSpan(1, 0) != 1 || !l.ShouldRenderLabel(1, 0) {
		t.Error("ungrouped layout must default to span 1 with labels")
	}
}

func TestCompute_InvalidColumns(t *testing.T) {
	rows := [][]any{{"A", 1.0}}
	tests := []struct {
		name      string
		groupable []int
		dims      int
		wantErr   error
	}{
		{"metric column", []int{1}, 1, ErrNotGroupable},
		{"negative", []int{-1}, 1, ErrNotGroupable},
		{"descending", []int{1, 0}, 2, ErrNotGroupable},
		{"duplicate", []int{0, 0}, 2, ErrNotGroupable},
		{"ragged", []int{2}, 3, ErrRaggedRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(rows, tt.groupable, tt.dims)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLayout_LabelsAndPixels(t *testing.T) {
	rows := [][]any{{"A"}, {"A"}, {"A"}, {"B"}}
	l, err := Compute(rows, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	tests := []struct {
		row        int
		wantLabel  bool
		wantPixels float64
		wantSpan   int
	}{
		{0, true, 90, 3},
		{1, false, 0, 0},
		{2, false, 0, 0},
		{3, true, 30, 1},
	}
	for _, tt := range tests {
		if got := l.ShouldRenderLabel(tt.row, 0); got != tt.wantLabel {
			t.Errorf("ShouldRenderLabel(%d) = %v, want %v", tt.row, got, tt.wantLabel)
		}
		if got := l.RowSpanPixels(tt.row, 0, 30); got != tt.wantPixels {
			t.Errorf("RowSpanPixels(%d) = %v, want %v", tt.row, got, tt.wantPixels)
		}
		if got := l.RowSpan(tt.row, 0); got != tt.wantSpan {
			t.Errorf("RowSpan(%d) = %v, want %v", tt.row, got, tt.wantSpan)
		}
	}

	// Column 5 is not grouped.
	if got := l.RowSpanPixels(1, 5, 30); got != 30 {
		t.Errorf("ungrouped RowSpanPixels = %v, want 30", got)
	}
}

func TestLayout_StickyLabelRow(t *testing.T) {
	rows := [][]any{{"A"}, {"A"}, {"A"}, {"A"}, {"B"}, {"B"}}
	l, err := Compute(rows, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	tests := []struct {
		row, top, want int
	}{
		{0, 0, 0}, // group fully visible: label at run start
		{2, 2, 2}, // scrolled into group: label floats to viewport top
		{1, 3, 3}, // last row of group still visible
		{0, 5, 3}, // viewport past group: clamp to last row
		{4, 1, 4}, // group below viewport top: label at run start
	}
	for _, tt := range tests {
		if got := l.StickyLabelRow(0, tt.row, tt.top); got != tt.want {
			t.Errorf("StickyLabelRow(row=%d, top=%d) = %d, want %d", tt.row, tt.top, got, tt.want)
		}
	}
}

func TestLayout_GroupOfOutOfRange(t *testing.T) {
	l, err := Compute([][]any{{"A"}}, []int{0}, 1)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if _, ok := l.GroupOf(5, 0); ok {
		t.Error("GroupOf beyond buffer returned ok")
	}
	if _, ok := l.GroupOf(-1, 0); ok {
		t.Error("GroupOf negative row returned ok")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{nil, nil, true},
		{nil, "", false},
		{"", nil, false},
		{"a", "a", true},
		{"a", "b", false},
		{int64(2), 2.0, true},
		{2.0, int64(2), true},
		{int64(2), "2", false},
		{true, true, true},
		{true, false, false},
		{true, int64(1), false},
		{int64(9007199254740992), int64(9007199254740993), false},
		{int64(9007199254740993), int64(9007199254740993), true},
		{int64(9007199254740993), 9007199254740992.0, false},
		{int64(9007199254740992), 9007199254740992.0, true},
		{int64(math.MaxInt64), float64(math.MaxInt64), false},
		{int64(-1), uint64(math.MaxUint64), false},
		{int32(7), uint8(7), true},
		{uint64(math.MaxUint64), uint64(math.MaxUint64 - 1), false},
		{uint64(1 << 60), float64(1 << 60), true},
		{int64(2), 2.5, false},
		{math.NaN(), math.NaN(), false},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
