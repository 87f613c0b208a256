// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package viewport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/gridscope/internal/datawindow"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/models"
	"github.com/tomtom215/gridscope/internal/rowgroup"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// fakeWindow is a scripted data window. Fetches block on gate when it is set.
type fakeWindow struct {
	mu        sync.Mutex
	rows      int
	hasMore   bool
	prefetchN int
	moreN     int
	fetchErr  error
	gate      chan struct{}
	gen       uint64
}

func (f *fakeWindow) View() (datawindow.Snapshot, *rowgroup.Layout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := make([][]any, f.rows)
	for i := range data {
		data[i] = []any{fmt.Sprintf("g%d", i/10), float64(i)}
	}
	layout, _ := rowgroup.Compute(data, []int{0}, 1)
	return datawindow.Snapshot{
		Columns:        []string{"group", "value"},
		ColumnTypes:    []string{"VARCHAR", "DOUBLE"},
		Data:           data,
		TotalRows:      100000,
		BufferLength:   f.rows,
		HasMore:        f.hasMore,
		State:          datawindow.StateReady,
		Epoch:          f.rows,
		Generation:     f.gen,
		DimensionCount: 1,
	}, layout
}

func (f *fakeWindow) SetQuery(datawindow.Query) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	return true, nil
}

func (f *fakeWindow) SetVisibleMetrics([]string) error { return nil }
func (f *fakeWindow) LoadInitial(context.Context) error { return nil }
func (f *fakeWindow) Retry(context.Context) error { return nil }

func (f *fakeWindow) fetch(ctx context.Context, counter *int) error {
	f.mu.Lock()
	*counter++
	gate, err := f.gate, f.fetchErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.rows += 100
	f.mu.Unlock()
	return nil
}

func (f *fakeWindow) Prefetch(ctx context.Context) error { return f.fetch(ctx, &f.prefetchN) }
func (f *fakeWindow) LoadMore(ctx context.Context) error { return f.fetch(ctx, &f.moreN) }

func (f *fakeWindow) counts() (prefetch, more int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefetchN, f.moreN
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *frameRecorder) sink(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *frameRecorder) last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RowHeight = 10
	cfg.Overscan = 2
	return cfg
}

func newTestController(t *testing.T, cfg Config, win Window) (*Controller, *frameRecorder) {
	t.Helper()
	rec := &frameRecorder{}
	c, err := New(context.Background(), cfg, win, rec.sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c, rec
}

func TestController_FrameContents(t *testing.T) {
	win := &fakeWindow{rows: 100, hasMore: false}
	c, rec := newTestController(t, testConfig(), win)

	c.OnScroll(55, 50)
	if !c.Flush() {
		t.Fatal("Flush() = false")
	}
	f := rec.last()

	// floor(55/10)-2 = 3, ceil(105/10)+2 = 13
	if f.Window.StartIndex != 3 || f.Window.EndIndex != 13 || f.Window.TotalHeight != 1000 {
		t.Fatalf("window = %+v", f.Window)
	}
	if len(f.Rows) != 10 || f.Rows[0].Index != 3 {
		t.Fatalf("rows = %d starting at %d", len(f.Rows), f.Rows[0].Index)
	}

	// Row 3 is inside group g0 [0,10) but first in the window: it carries the
	// merged cell down to row 9.
	first := f.Rows[0].Cells[0]
	if first.Span != 7 || first.HeightPx != 70 || first.Label {
		t.Errorf("first grouped cell = %+v", first)
	}
	if hidden := f.Rows[1].Cells[0]; hidden.Span != 0 {
		t.Errorf("covered cell = %+v, want span 0", hidden)
	}
	// Row 10 starts g1 and is clipped at the window end (13).
	if g1 := f.Rows[7].Cells[0]; g1.Span != 3 || !g1.Label || g1.Value != "g1" {
		t.Errorf("g1 cell = %+v", g1)
	}
	if metric := f.Rows[0].Cells[1]; metric.Span != 1 || metric.Value != 3.0 {
		t.Errorf("metric cell = %+v", metric)
	}

	if len(f.StickyLabels) != 1 {
		t.Fatalf("sticky labels = %+v", f.StickyLabels)
	}
	sl := f.StickyLabels[0]
	if sl.Row != 5 || sl.Value != "g0" || sl.GroupStart != 0 || sl.GroupEnd != 10 {
		t.Errorf("sticky label = %+v", sl)
	}
}

func TestController_CoalescesScrolls(t *testing.T) {
	win := &fakeWindow{rows: 100}
	c, rec := newTestController(t, testConfig(), win)

	for _, top := range []float64{0, 100, 200, 300} {
		c.OnScroll(top, 50)
	}
	c.Flush()
	if rec.count() != 1 {
		t.Fatalf("frames = %d, want 1", rec.count())
	}
	if got := rec.last().ScrollTop; got != 300 {
		t.Errorf("frame scrollTop = %v, want latest 300", got)
	}
	if c.Flush() {
		t.Error("second Flush() published without a scroll")
	}
}

func TestController_ProgressTriggerFiresOncePerEpoch(t *testing.T) {
	win := &fakeWindow{rows: 100, hasMore: true, gate: make(chan struct{})}
	c, _ := newTestController(t, testConfig(), win)

	// totalHeight 1000: (650+100)/1000 = 0.75 >= 0.7
	for i := 0; i < 5; i++ {
		c.OnScroll(650+float64(i), 100)
		c.Flush()
	}
	waitFor(t, func() bool { p, _ := win.counts(); return p == 1 })
	if p, m := win.counts(); p != 1 || m != 0 {
		t.Fatalf("prefetch=%d loadMore=%d, want 1/0", p, m)
	}

	close(win.gate)
	c.wg.Wait()

	// New epoch: 200 rows, totalHeight 2000. (1350+100)/2000 = 0.725.
	win.mu.Lock()
	win.gate = nil
	win.mu.Unlock()
	c.OnScroll(1350, 100)
	c.Flush()
	c.wg.Wait()
	if p, _ := win.counts(); p != 2 {
		t.Errorf("prefetch count = %d after new epoch, want 2", p)
	}
}

func TestController_BelowThresholdDoesNothing(t *testing.T) {
	win := &fakeWindow{rows: 100, hasMore: true}
	c, _ := newTestController(t, testConfig(), win)

	c.OnScroll(100, 100) // progress 0.2, 800px from bottom
	c.Flush()
	c.wg.Wait()
	if p, m := win.counts(); p != 0 || m != 0 {
		t.Errorf("prefetch=%d loadMore=%d, want none", p, m)
	}
}

func TestController_DistanceFallback(t *testing.T) {
	win := &fakeWindow{rows: 100, hasMore: true}
	cfg := testConfig()
	cfg.PrefetchThreshold = 0.95
	c, _ := newTestController(t, cfg, win)

	// progress (750+100)/1000 = 0.85 < 0.95, distance 150 < 200
	c.OnScroll(750, 100)
	c.Flush()
	c.wg.Wait()
	if p, m := win.counts(); p != 0 || m != 1 {
		t.Errorf("prefetch=%d loadMore=%d, want 0/1", p, m)
	}
}

func TestController_NoMoreData(t *testing.T) {
	win := &fakeWindow{rows: 100, hasMore: false}
	c, _ := newTestController(t, testConfig(), win)

	c.OnScroll(900, 100)
	c.Flush()
	c.wg.Wait()
	if p, m := win.counts(); p != 0 || m != 0 {
		t.Errorf("prefetch=%d loadMore=%d without more data", p, m)
	}
}

func TestController_FailureRearms(t *testing.T) {
	win := &fakeWindow{rows: 100, hasMore: true, fetchErr: errors.New("boom")}
	c, _ := newTestController(t, testConfig(), win)

	c.OnScroll(700, 100)
	c.Flush()
	c.wg.Wait()
	c.OnScroll(710, 100)
	c.Flush()
	c.wg.Wait()

	if p, _ := win.counts(); p != 2 {
		t.Errorf("prefetch count = %d, want 2 (guard re-armed after failure)", p)
	}
}

func TestController_ConfigureResetsScroll(t *testing.T) {
	win := &fakeWindow{rows: 100}
	c, rec := newTestController(t, testConfig(), win)

	c.OnScroll(500, 100)
	c.Flush()
	if err := c.Configure(context.Background(), datawindow.Query{Dimensions: []string{"group"}}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if got := rec.last().ScrollTop; got != 0 {
		t.Errorf("scrollTop after reset = %v, want 0", got)
	}
}

func TestController_WithStore(t *testing.T) {
	meta := &models.DatasetMetadata{
		Dimensions: []models.Dimension{{Name: "region"}},
		Metrics:    []models.Metric{{Name: "revenue", Aggregation: "sum"}},
		Groupable:  []string{"region"},
	}
	exec := execFunc(func(_ context.Context, req models.QueryRequest) (*models.QueryResult, error) {
		res := &models.QueryResult{
			Columns:     []string{"region", "revenue"},
			ColumnTypes: []string{"VARCHAR", "DOUBLE"},
			TotalRows:   1000,
		}
		for i := req.Offset; i < min(req.Offset+req.Limit, 1000); i++ {
			res.Rows = append(res.Rows, []any{fmt.Sprintf("r%d", i/50), float64(i)})
		}
		return res, nil
	})
	store, err := datawindow.New(datawindow.Config{BatchSize: 100, MaxRows: 1000}, exec, meta)
	if err != nil {
		t.Fatalf("datawindow.New() error = %v", err)
	}
	defer store.Close()

	c, rec := newTestController(t, testConfig(), store)
	ctx := context.Background()
	if err := c.Configure(ctx, datawindow.Query{Dimensions: []string{"region"}, Metrics: []string{"revenue"}}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if f := rec.last(); f.BufferLength != 100 || !f.HasMore {
		t.Fatalf("after configure: %+v", f)
	}

	// 100 rows * 10px; scroll to 75% progress.
	c.OnScroll(650, 100)
	c.Flush()
	waitFor(t, func() bool { return store.Snapshot().BufferLength == 200 })
	c.wg.Wait()

	if f := rec.last(); f.BufferLength < 200 {
		t.Errorf("last frame buffer = %d, want >= 200", f.BufferLength)
	}
}

// At the MaxRows ceiling every prefetch evicts as many head rows as it
// appends. The controller must follow the eviction, otherwise the unchanged
// scroll position re-triggers a prefetch on every new epoch.
func TestController_EvictionShiftsScroll(t *testing.T) {
	meta := &models.DatasetMetadata{
		Dimensions: []models.Dimension{{Name: "region"}},
		Metrics:    []models.Metric{{Name: "revenue", Aggregation: "sum"}},
		Groupable:  []string{"region"},
	}
	var calls atomic.Int32
	exec := execFunc(func(_ context.Context, req models.QueryRequest) (*models.QueryResult, error) {
		calls.Add(1)
		res := &models.QueryResult{
			Columns:     []string{"region", "revenue"},
			ColumnTypes: []string{"VARCHAR", "DOUBLE"},
			TotalRows:   100000,
		}
		for i := req.Offset; i < min(req.Offset+req.Limit, 100000); i++ {
			res.Rows = append(res.Rows, []any{fmt.Sprintf("r%d", i/50), float64(i)})
		}
		return res, nil
	})
	store, err := datawindow.New(datawindow.Config{BatchSize: 100, MaxRows: 300}, exec, meta)
	if err != nil {
		t.Fatalf("datawindow.New() error = %v", err)
	}
	defer store.Close()

	c, rec := newTestController(t, testConfig(), store)
	ctx := context.Background()
	if err := c.Configure(ctx, datawindow.Query{Dimensions: []string{"region"}, Metrics: []string{"revenue"}}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	for range 2 {
		if err := c.LoadMore(ctx); err != nil {
			t.Fatalf("LoadMore() error = %v", err)
		}
	}
	if got := store.Snapshot().BufferLength; got != 300 {
		t.Fatalf("buffer = %d, want 300", got)
	}

	// 300 rows * 10px; bottom at 80% progress.
	c.OnScroll(2300, 100)
	c.Flush()
	waitFor(t, func() bool { return store.Snapshot().Evicted == 100 })
	time.Sleep(50 * time.Millisecond)
	c.wg.Wait()

	if got := calls.Load(); got != 4 {
		t.Errorf("queries = %d, want 4 (configure, 2 load more, 1 prefetch)", got)
	}
	snap := store.Snapshot()
	if snap.Evicted != 100 || snap.BufferLength != 300 {
		t.Errorf("evicted = %d, buffer = %d, want 100 and 300", snap.Evicted, snap.BufferLength)
	}
	f := rec.last()
	if f.ScrollTop != 1300 {
		t.Errorf("frame scrollTop = %v, want 1300", f.ScrollTop)
	}
	// Row 230 of the dataset is still the first visible row.
	if len(f.Rows) == 0 || f.Window.StartIndex != 128 {
		t.Fatalf("frame window = %+v", f.Window)
	}
	if got := f.Rows[2].Cells[1].Value; got != float64(230) {
		t.Errorf("first visible revenue = %v, want 230", got)
	}

	// A renderer still on the pre-eviction frame reports its old position.
	c.OnScrollAt(2310, 100, 0)
	c.Flush()
	c.wg.Wait()
	if got := rec.last().ScrollTop; got != 1310 {
		t.Errorf("scrollTop from stale frame = %v, want 1310", got)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("queries after stale scroll = %d, want 4", got)
	}
}

func TestController_ExtremeScrollPositions(t *testing.T) {
	win := &fakeWindow{rows: 100}
	c, rec := newTestController(t, testConfig(), win)

	c.OnScroll(1e21, 100)
	c.Flush()
	f := rec.last()
	if f.Window.StartIndex != 100 || f.Window.EndIndex != 100 || len(f.Rows) != 0 {
		t.Errorf("window for huge scrollTop = %+v with %d rows", f.Window, len(f.Rows))
	}

	c.OnScroll(50, 100)
	c.Flush()
	before := rec.count()
	c.OnScroll(math.NaN(), 100)
	c.Flush()
	c.OnScroll(50, math.Inf(1))
	c.Flush()
	if rec.count() != before {
		t.Errorf("non-finite scroll published %d frames", rec.count()-before)
	}
	if got := rec.last().ScrollTop; got != 50 {
		t.Errorf("scrollTop = %v, want 50 kept", got)
	}
}

type execFunc func(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)

func (f execFunc) ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	return f(ctx, req)
}

func TestConfig_Validate(t *testing.T) {
	bad := []Config{
		{RowHeight: 0, PrefetchThreshold: 0.7},
		{RowHeight: 10, Overscan: -1, PrefetchThreshold: 0.7},
		{RowHeight: 10, PrefetchThreshold: 1.5},
		{RowHeight: 10, PrefetchThreshold: 0.7, BottomThresholdPx: -1},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", cfg)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
