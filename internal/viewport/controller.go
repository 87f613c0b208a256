// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package viewport turns scroll positions into render frames and decides when
// a grid session needs more rows.
//
// A Controller sits between a renderer (over the WebSocket) and a data window
// store. Scroll events are coalesced to one computation per frame. Each frame
// carries only the rows inside the virtualized window, with row span and
// label information for grouped columns.
//
// Two triggers request more rows while the user scrolls:
//
//   - progress: (scrollTop+containerHeight)/totalHeight >= PrefetchThreshold
//     starts a prefetch
//   - distance: fewer than BottomThresholdPx pixels below the viewport starts
//     a foreground load, catching fast scrolls that jump past the threshold
//
// Both require more server rows, no fetch of the same kind in flight, and a
// data epoch that has not already been triggered. The epoch is re-armed when
// a triggered fetch fails.
//
// When the store evicts head rows the remaining rows move up, so the stored
// scroll position moves up by the same number of rows and the frame reports
// the adjusted ScrollTop for the renderer to adopt.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/gridscope/internal/datawindow"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/metrics"
	"github.com/tomtom215/gridscope/internal/rowgroup"
	"github.com/tomtom215/gridscope/internal/virtualize"
)

// Defaults for Config.
const (
	DefaultRowHeight         = 32.0
	DefaultPrefetchThreshold = 0.7
	DefaultBottomThresholdPx = 200.0
)

// Config holds viewport geometry and trigger thresholds.
type Config struct {
	RowHeight         float64
	Overscan          int
	PrefetchThreshold float64
	BottomThresholdPx float64
	FrameInterval     time.Duration
}

// DefaultConfig returns the default viewport configuration.
func DefaultConfig() Config {
	return Config{
		RowHeight:         DefaultRowHeight,
		Overscan:          virtualize.DefaultOverscan,
		PrefetchThreshold: DefaultPrefetchThreshold,
		BottomThresholdPx: DefaultBottomThresholdPx,
		FrameInterval:     virtualize.DefaultFrameInterval,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.RowHeight <= 0 {
		errs = append(errs, fmt.Errorf("row height must be positive, got %v", c.RowHeight))
	}
	if c.Overscan < 0 {
		errs = append(errs, fmt.Errorf("overscan must not be negative, got %d", c.Overscan))
	}
	if c.PrefetchThreshold <= 0 || c.PrefetchThreshold > 1 {
		errs = append(errs, fmt.Errorf("prefetch threshold must be in (0, 1], got %v", c.PrefetchThreshold))
	}
	if c.BottomThresholdPx < 0 {
		errs = append(errs, fmt.Errorf("bottom threshold must not be negative, got %v", c.BottomThresholdPx))
	}
	return errors.Join(errs...)
}

// Window is the part of the data window store the controller drives.
type Window interface {
	View() (datawindow.Snapshot, *rowgroup.Layout)
	SetQuery(q datawindow.Query) (bool, error)
	SetVisibleMetrics(names []string) error
	LoadInitial(ctx context.Context) error
	LoadMore(ctx context.Context) error
	Prefetch(ctx context.Context) error
	Retry(ctx context.Context) error
}

// Sink receives every published frame. Calls are serialized.
type Sink func(Frame)

type scrollState struct {
	scrollTop       float64
	containerHeight float64
	// evicted is the head eviction count the position was measured against,
	// or -1 when unknown.
	evicted int
}

type triggerKind int

const (
	triggerPrefetch triggerKind = iota
	triggerLoadMore
)

func (k triggerKind) String() string {
	if k == triggerPrefetch {
		return "prefetch"
	}
	return "load_more"
}

// Controller drives one grid session's viewport.
type Controller struct {
	cfg  Config
	win  Window
	sink Sink
	co   *virtualize.Coalescer[scrollState]
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// pubMu serializes rendering and publishing so frames leave in state order.
	pubMu sync.Mutex

	mu            sync.Mutex
	scroll        scrollState
	seenEvicted   int
	seenGen       uint64
	armedEpoch    int
	armedGen      uint64
	prefetchBusy  bool
	loadMoreBusy  bool
	framesEmitted int
}

// New creates a controller over win publishing to sink. Triggered fetches
// run under ctx and stop when Close is called.
func New(ctx context.Context, cfg Config, win Window, sink Sink) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid viewport config: %w", err)
	}
	if win == nil || sink == nil {
		return nil, errors.New("viewport: window and sink are required")
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		cfg:        cfg,
		win:        win,
		sink:       sink,
		log:        logging.Ctx(ctx).With().Str("component", "viewport").Logger(),
		ctx:        cctx,
		cancel:     cancel,
		armedEpoch: -1,
	}
	c.co = virtualize.NewCoalescer(c.onFrame)
	return c, nil
}

// Run flushes coalesced scroll events every frame interval until ctx ends.
func (c *Controller) Run(ctx context.Context) {
	c.co.Run(ctx, c.cfg.FrameInterval)
}

// OnScroll records a scroll position. The frame is computed on the next flush.
func (c *Controller) OnScroll(scrollTop, containerHeight float64) {
	c.co.Schedule(scrollState{scrollTop: scrollTop, containerHeight: containerHeight, evicted: -1})
}

// OnScrollAt records a scroll position measured against a frame that
// reported the given Evicted count. Rows evicted since that frame are
// subtracted from scrollTop.
func (c *Controller) OnScrollAt(scrollTop, containerHeight float64, evicted int) {
	c.co.Schedule(scrollState{scrollTop: scrollTop, containerHeight: containerHeight, evicted: max(evicted, 0)})
}

// Flush computes a frame for the latest scroll position immediately.
// It reports false when no scroll was pending.
func (c *Controller) Flush() bool {
	return c.co.Flush()
}

func (c *Controller) onFrame(st scrollState) {
	if !finite(st.scrollTop) || !finite(st.containerHeight) {
		c.log.Warn().
			Float64("scroll_top", st.scrollTop).
			Float64("container_height", st.containerHeight).
			Msg("Ignoring non-finite scroll position")
		return
	}
	c.mu.Lock()
	if st.evicted >= 0 && st.evicted < c.seenEvicted {
		st.scrollTop = max(0, st.scrollTop-float64(c.seenEvicted-st.evicted)*c.cfg.RowHeight)
	}
	st.evicted = -1
	c.scroll = st
	c.mu.Unlock()
	c.publish(true)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Refresh publishes a frame for the current scroll position.
func (c *Controller) Refresh() {
	c.publish(false)
}

// publish renders and sends a frame. With evaluate set, the prefetch and
// load-more triggers are checked against the rendered state.
func (c *Controller) publish(evaluate bool) {
	if c.ctx.Err() != nil {
		return
	}
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	snap, layout := c.win.View()

	c.mu.Lock()
	c.followEvictionLocked(snap)
	st := c.scroll
	c.mu.Unlock()

	frame, err := c.render(st, snap, layout)
	if err != nil {
		c.log.Error().Err(err).Msg("Frame computation failed")
		return
	}
	c.sink(frame)
	metrics.GridFramesPublished.Inc()

	c.mu.Lock()
	c.framesEmitted++
	c.mu.Unlock()

	if evaluate {
		c.evaluate(st, snap, frame.Window)
	}
}

// followEvictionLocked keeps the viewport on the same rows when the store
// drops rows from the head of the buffer: every evicted row moves the rest
// up by one row height. A new generation starts counting from scratch.
func (c *Controller) followEvictionLocked(snap datawindow.Snapshot) {
	if snap.Generation != c.seenGen || snap.Evicted < c.seenEvicted {
		c.seenGen = snap.Generation
		c.seenEvicted = snap.Evicted
		return
	}
	if excess := snap.Evicted - c.seenEvicted; excess > 0 {
		c.scroll.scrollTop = max(0, c.scroll.scrollTop-float64(excess)*c.cfg.RowHeight)
		c.seenEvicted = snap.Evicted
	}
}

// evaluate fires at most one trigger for the current data epoch.
func (c *Controller) evaluate(st scrollState, snap datawindow.Snapshot, w virtualize.Window) {
	if !snap.HasMore || snap.State == datawindow.StateEmpty || snap.State == datawindow.StateLoadingInitial {
		return
	}

	progress := virtualize.Progress(st.scrollTop, st.containerHeight, w.TotalHeight)
	distance := virtualize.DistanceFromBottom(st.scrollTop, st.containerHeight, w.TotalHeight)

	c.mu.Lock()
	if c.armedEpoch == snap.Epoch && c.armedGen == snap.Generation {
		c.mu.Unlock()
		return
	}
	var kind triggerKind
	switch {
	case progress >= c.cfg.PrefetchThreshold && !snap.Prefetching && !c.prefetchBusy:
		kind = triggerPrefetch
		c.prefetchBusy = true
	case distance < c.cfg.BottomThresholdPx && !snap.Loading && !c.loadMoreBusy:
		kind = triggerLoadMore
		c.loadMoreBusy = true
	default:
		c.mu.Unlock()
		return
	}
	c.armedEpoch = snap.Epoch
	c.armedGen = snap.Generation
	c.mu.Unlock()

	c.log.Debug().
		Str("trigger", kind.String()).
		Float64("progress", progress).
		Float64("distance_px", distance).
		Int("epoch", snap.Epoch).
		Msg("Requesting more rows")
	c.fire(kind, snap.Epoch, snap.Generation)
}

func (c *Controller) fire(kind triggerKind, epoch int, gen uint64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var err error
		if kind == triggerPrefetch {
			err = c.win.Prefetch(c.ctx)
		} else {
			err = c.win.LoadMore(c.ctx)
		}

		c.mu.Lock()
		if kind == triggerPrefetch {
			c.prefetchBusy = false
		} else {
			c.loadMoreBusy = false
		}
		if err != nil && c.armedEpoch == epoch && c.armedGen == gen {
			c.armedEpoch = -1
		}
		c.mu.Unlock()

		switch {
		case err == nil:
			c.publish(true)
		case datawindow.IsSuperseded(err):
			c.publish(false)
		default:
			c.log.Warn().Err(err).Str("trigger", kind.String()).Msg("Triggered fetch failed")
			c.publish(false)
		}
	}()
}

// Configure applies a grid query. A structural change resets the scroll
// position and loads the first batch.
func (c *Controller) Configure(ctx context.Context, q datawindow.Query) error {
	reset, err := c.win.SetQuery(q)
	if err != nil {
		return err
	}
	if !reset {
		c.Refresh()
		return nil
	}

	c.mu.Lock()
	c.scroll.scrollTop = 0
	c.armedEpoch = -1
	c.mu.Unlock()
	return c.LoadInitial(ctx)
}

// LoadInitial loads the first batch and publishes a frame.
func (c *Controller) LoadInitial(ctx context.Context) error {
	c.Refresh()
	err := c.win.LoadInitial(ctx)
	c.publish(err == nil)
	return err
}

// LoadMore loads the next batch in the foreground and publishes a frame.
func (c *Controller) LoadMore(ctx context.Context) error {
	err := c.win.LoadMore(ctx)
	c.Refresh()
	return err
}

// Retry re-issues the last failed foreground operation.
func (c *Controller) Retry(ctx context.Context) error {
	err := c.win.Retry(ctx)
	c.publish(err == nil)
	return err
}

// SetVisibleMetrics re-projects the buffer and publishes a frame.
func (c *Controller) SetVisibleMetrics(names []string) error {
	if err := c.win.SetVisibleMetrics(names); err != nil {
		return err
	}
	c.Refresh()
	return nil
}

// FramesEmitted returns the number of frames published so far.
func (c *Controller) FramesEmitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framesEmitted
}

// Close stops triggered fetches and waits for them to return.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}
