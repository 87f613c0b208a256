// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package virtualize

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Coalescer collapses bursts of scroll events into at most one computation
// per frame. Schedule overwrites any pending state; Flush hands the latest
// state to the callback exactly once.
//
// Coalescer is safe for concurrent use. The callback runs on the goroutine
// calling Flush (or Run) and never concurrently with itself.
type Coalescer[T any] struct {
	mu      sync.Mutex
	pending T
	dirty   bool

	flushMu sync.Mutex
	fn      func(T)
}

// NewCoalescer creates a coalescer that invokes fn on each flush with pending state.
func NewCoalescer[T any](fn func(T)) *Coalescer[T] {
	return &Coalescer[T]{fn: fn}
}

// Schedule records state as the value for the next flush.
func (c *Coalescer[T]) Schedule(state T) {
	c.mu.Lock()
	c.pending = state
	c.dirty = true
	c.mu.Unlock()
}

// Pending reports whether a state is waiting to be flushed.
func (c *Coalescer[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush runs the callback with the most recent scheduled state. It returns
// false when nothing was pending.
func (c *Coalescer[T]) Flush() bool {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return false
	}
	state := c.pending
	c.dirty = false
	c.mu.Unlock()

	c.fn(state)
	return true
}

// Run flushes on every tick until ctx is cancelled. A non-positive interval
// uses DefaultFrameInterval.
func (c *Coalescer[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Flush()
		}
	}
}
