// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/datawindow"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// ErrHubFull is returned by Connect when MaxSessions sessions are open.
var ErrHubFull = errors.New("websocket: maximum number of grid sessions reached")

// Engine is what a grid session queries.
type Engine interface {
	datawindow.QueryExecutor
	datawindow.MetadataProvider
	datawindow.SearchProvider
}

// Hub owns the set of open grid sessions.
type Hub struct {
	engine    Engine
	cfg       config.GridConfig
	sessions  map[*Session]bool
	broadcast chan Message
	mu        sync.RWMutex
}

// NewHub creates a hub whose sessions query engine.
func NewHub(engine Engine, cfg config.GridConfig) *Hub {
	return &Hub{
		engine:    engine,
		cfg:       cfg,
		sessions:  make(map[*Session]bool),
		broadcast: make(chan Message, 256),
	}
}

// RunWithContext delivers broadcasts until ctx is canceled, then closes
// every session and returns ctx.Err(). It is meant to run under suture.
//
// DETERMINISM: shutdown is checked before each broadcast so a canceled hub
// never delivers another message.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case message := <-h.broadcast:
			h.broadcastToSessions(message)
		}
	}
}

// logGracefulShutdown closes all sessions and logs the shutdown. ctx.Err()
// is not logged as an error because cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	sessionCount := h.SessionCount()
	h.closeAllSessions()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("sessions_closed", sessionCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// Connect opens a grid session on an upgraded connection and starts its
// pumps. The session outlives ctx; only values are taken from it.
func (h *Hub) Connect(ctx context.Context, conn *websocket.Conn) (*Session, error) {
	if h.Full() {
		return nil, ErrHubFull
	}

	meta, err := h.engine.GetMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset metadata: %w", err)
	}

	s, err := newSession(context.WithoutCancel(ctx), h, conn, meta)
	if err != nil {
		return nil, err
	}
	if err := h.add(s); err != nil {
		s.release()
		return nil, err
	}
	s.Start()
	return s, nil
}

func (h *Hub) add(s *Session) error {
	h.mu.Lock()
	if h.cfg.MaxSessions > 0 && len(h.sessions) >= h.cfg.MaxSessions {
		h.mu.Unlock()
		return ErrHubFull
	}
	h.sessions[s] = true
	total := len(h.sessions)
	h.mu.Unlock()

	metrics.GridSessionsActive.Inc()
	s.log.Info().Int("total_sessions", total).Msg("grid session connected")
	return nil
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	delete(h.sessions, s)
	total := len(h.sessions)
	h.mu.Unlock()

	if ok {
		metrics.GridSessionsActive.Dec()
		s.log.Info().Int("total_sessions", total).Msg("grid session disconnected")
	}
}

// sortedSessions returns the sessions in ID order. Callers hold h.mu.
func (h *Hub) sortedSessions() []*Session {
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].id < sessions[j].id
	})
	return sessions
}

// broadcastToSessions queues message on every session in ID order.
// Sessions with a full send buffer miss the message.
func (h *Hub) broadcastToSessions(message Message) {
	h.mu.RLock()
	sessions := h.sortedSessions()
	h.mu.RUnlock()

	for _, s := range sessions {
		if !s.enqueue(message) {
			metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		}
	}
}

// closeAllSessions closes every session in ID order.
func (h *Hub) closeAllSessions() {
	h.mu.Lock()
	sessions := h.sortedSessions()
	for _, s := range sessions {
		delete(h.sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.GridSessionsActive.Dec()
	}
	if len(sessions) > 0 {
		logging.Info().Int("sessions", len(sessions)).Msg("closed all grid sessions during shutdown")
	}
}

// BroadcastJSON sends a message to every open session.
func (h *Hub) BroadcastJSON(messageType string, data any) {
	message := Message{
		Type: messageType,
		Data: data,
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// Full reports whether MaxSessions sessions are open.
func (h *Hub) Full() bool {
	if h.cfg.MaxSessions <= 0 {
		return false
	}
	return h.SessionCount() >= h.cfg.MaxSessions
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
