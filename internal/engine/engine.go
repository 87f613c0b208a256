// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/gridscope/internal/breaker"
	"github.com/tomtom215/gridscope/internal/cache"
	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/database"
	"github.com/tomtom215/gridscope/internal/datawindow"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/metrics"
	"github.com/tomtom215/gridscope/internal/models"
)

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("query engine unavailable")

// Backend is the data source behind the engine: the local database or a
// remote engine client.
type Backend interface {
	ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)
	GetMetadata(ctx context.Context) (*models.DatasetMetadata, error)
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResults, error)
	FilterValues(ctx context.Context, column string, limit int) (*models.FilterValues, error)
}

// QueryError describes a failed engine operation.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Service serves grouped queries with a result cache, collapses identical
// concurrent queries and guards the backend with a circuit breaker.
//
// Results handed to callers are always copies; the cached value is never
// shared.
type Service struct {
	backend Backend
	cache   *cache.LRUCache[*models.QueryResult] // nil when caching is disabled
	group   singleflight.Group
	breaker *breaker.Breaker[any]
	timeout time.Duration
}

var (
	_ datawindow.QueryExecutor       = (*Service)(nil)
	_ datawindow.MetadataProvider    = (*Service)(nil)
	_ datawindow.SearchProvider      = (*Service)(nil)
	_ datawindow.FilterValueProvider = (*Service)(nil)
)

// New creates a Service over backend.
func New(backend Backend, cacheCfg config.CacheConfig, engineCfg config.EngineConfig) *Service {
	s := &Service{
		backend: backend,
		timeout: engineCfg.Timeout,
		breaker: breaker.New[any]("query-engine", breaker.Settings{
			MaxRequests:      engineCfg.BreakerMaxRequests,
			Interval:         engineCfg.BreakerInterval,
			Timeout:          engineCfg.BreakerTimeout,
			FailureThreshold: engineCfg.BreakerFailureThreshold,
			IsSuccessful:     isCallerError,
		}),
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if cacheCfg.Capacity > 0 {
		s.cache = cache.NewLRUCache[*models.QueryResult](cacheCfg.Capacity, cacheCfg.TTL)
	}
	return s
}

// clientError is implemented by backend errors caused by the request itself.
type clientError interface {
	IsClientError() bool
}

// isCallerError reports errors that say nothing about backend health.
func isCallerError(err error) bool {
	if errors.Is(err, context.Canceled) || database.IsInvalidQuery(err) {
		return true
	}
	var ce clientError
	return errors.As(err, &ce) && ce.IsClientError()
}

// execute runs fn through the breaker and wraps failures.
func (s *Service) execute(op string, fn func() (any, error)) (any, error) {
	result, err := s.breaker.Execute(fn)
	if err != nil {
		if breaker.IsRejected(err) {
			return nil, &QueryError{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
		}
		return nil, &QueryError{Op: op, Err: err}
	}
	return result, nil
}

// ExecuteQuery returns one page of a grouped query.
//
// Identical concurrent requests share one backend call. The shared call is
// detached from the caller's cancellation (bounded by the engine timeout) so
// one caller canceling does not fail the others; a canceled caller returns
// immediately and the finished result still lands in the cache.
func (s *Service) ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	key := cache.GenerateKey("query", req)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			metrics.EngineQueries.WithLabelValues("hit").Inc()
			out := cached.Clone()
			out.Cached = true
			return out, nil
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		v, err := s.execute("query", func() (any, error) {
			return s.backend.ExecuteQuery(runCtx, req)
		})
		if err != nil {
			return nil, err
		}
		result, ok := v.(*models.QueryResult)
		if !ok || result == nil {
			return nil, &QueryError{Op: "query", Err: fmt.Errorf("unexpected result type %T", v)}
		}
		if s.cache != nil {
			s.cache.Add(key, result)
			metrics.ResponseCacheSize.Set(float64(s.cache.Len()))
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.EngineQueries.WithLabelValues("error").Inc()
			logging.Ctx(ctx).Debug().
				Str("component", "engine").
				Err(res.Err).
				Msg("Query failed")
			return nil, res.Err
		}
		if res.Shared {
			metrics.EngineQueries.WithLabelValues("shared").Inc()
		} else {
			metrics.EngineQueries.WithLabelValues("miss").Inc()
		}
		out := res.Val.(*models.QueryResult).Clone()
		out.Cached = false
		return out, nil
	}
}

// GetMetadata returns the dataset catalog.
func (s *Service) GetMetadata(ctx context.Context) (*models.DatasetMetadata, error) {
	v, err, _ := s.group.Do("metadata", func() (any, error) {
		return s.execute("metadata", func() (any, error) {
			return s.backend.GetMetadata(ctx)
		})
	})
	meta, err := breaker.CastResult[models.DatasetMetadata](v, err)
	if err != nil {
		return nil, err
	}
	return meta.Clone(), nil
}

// Search returns autocomplete suggestions.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResults, error) {
	return breaker.CastResult[models.SearchResults](s.execute("search", func() (any, error) {
		return s.backend.Search(ctx, req)
	}))
}

// FilterValues returns the distinct values of a dimension column.
func (s *Service) FilterValues(ctx context.Context, column string, limit int) (*models.FilterValues, error) {
	return breaker.CastResult[models.FilterValues](s.execute("filter_values", func() (any, error) {
		return s.backend.FilterValues(ctx, column, limit)
	}))
}

// Invalidate drops every cached result.
func (s *Service) Invalidate() {
	if s.cache == nil {
		return
	}
	s.cache.Clear()
	metrics.ResponseCacheSize.Set(0)
}

// CleanupExpired drops cached results past their TTL and returns how many
// were removed. Expired entries are otherwise only dropped when looked up.
func (s *Service) CleanupExpired() int {
	if s.cache == nil {
		return 0
	}
	removed := s.cache.CleanupExpired()
	metrics.ResponseCacheSize.Set(float64(s.cache.Len()))
	return removed
}

// CacheStats returns result cache statistics. ok is false when caching is
// disabled.
func (s *Service) CacheStats() (stats cache.Stats, ok bool) {
	if s.cache == nil {
		return cache.Stats{}, false
	}
	return s.cache.Stats(), true
}

// BreakerState returns the circuit breaker state.
func (s *Service) BreakerState() string {
	return s.breaker.State()
}
