// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package services

import (
	"context"
	"time"

	"github.com/tomtom215/gridscope/internal/logging"
)

// ExpiringCache is satisfied by *engine.Service.
type ExpiringCache interface {
	CleanupExpired() int
}

// CacheJanitorService periodically drops expired query results so that
// results nobody asks for again do not hold memory until evicted by size.
type CacheJanitorService struct {
	cache    ExpiringCache
	interval time.Duration
	name     string
}

// NewCacheJanitorService creates a janitor sweeping every interval.
// A non-positive interval defaults to one minute.
func NewCacheJanitorService(cache ExpiringCache, interval time.Duration) *CacheJanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheJanitorService{
		cache:    cache,
		interval: interval,
		name:     "cache-janitor",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on shutdown.
func (c *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := c.cache.CleanupExpired(); removed > 0 {
				logging.Debug().
					Str("component", c.name).
					Int("removed", removed).
					Msg("Expired cached results removed")
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (c *CacheJanitorService) String() string {
	return c.name
}
