// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gridscope/internal/cache"
	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/middleware"
	"github.com/tomtom215/gridscope/internal/models"
	ws "github.com/tomtom215/gridscope/internal/websocket"
)

// Version is reported by the health endpoint. Overridden at build time.
var Version = "dev"

// QueryService is the query engine as seen by the HTTP layer.
type QueryService interface {
	ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)
	GetMetadata(ctx context.Context) (*models.DatasetMetadata, error)
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResults, error)
	FilterValues(ctx context.Context, column string, limit int) (*models.FilterValues, error)
	Invalidate()
	CacheStats() (cache.Stats, bool)
	BreakerState() string
}

// Pinger reports whether the data source behind the engine is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handler.go: Handler struct, constructor, WebSocket upgrade (this file)
//   - handlers_health.go: liveness, readiness and health
//   - handlers_grid.go: metadata, query, filter values, search, cache
//   - response.go: envelope and error helpers
type Handler struct {
	service   QueryService
	source    Pinger
	wsHub     *ws.Hub
	config    *config.Config
	perfMon   *middleware.PerformanceMonitor
	startTime time.Time
}

// NewHandler creates a new API handler.
//
// source is pinged by the readiness probe; it is the local database or the
// remote engine client. wsHub may be nil, in which case the grid WebSocket
// endpoint answers 503.
func NewHandler(service QueryService, source Pinger, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		service:   service,
		source:    source,
		wsHub:     wsHub,
		config:    cfg,
		perfMon:   middleware.NewPerformanceMonitor(1000, time.Second),
		startTime: time.Now(),
	}
}

// PerformanceMonitor returns the monitor the router installs as middleware.
func (h *Handler) PerformanceMonitor() *middleware.PerformanceMonitor {
	return h.perfMon
}

// getUpgrader creates a WebSocket upgrader with origin checking and a handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin; an empty one would bypass CORS entirely
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// GridWebSocket upgrades the request and attaches a new grid session to the hub.
//
// The session lives until the client disconnects or the hub shuts down; the
// request context is only used to seed the session's request ID.
func (h *Handler) GridWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}
	if h.wsHub.Full() {
		w.Header().Set("Retry-After", "30")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Too many grid sessions", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	if _, err := h.wsHub.Connect(r.Context(), conn); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Grid session rejected")
		code := websocket.CloseInternalServerErr
		if errors.Is(err, ws.ErrHubFull) {
			code = websocket.CloseTryAgainLater
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}
