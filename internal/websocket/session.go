// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/gridscope/internal/datawindow"
	"github.com/tomtom215/gridscope/internal/engine"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/metrics"
	"github.com/tomtom215/gridscope/internal/models"
	"github.com/tomtom215/gridscope/internal/rowgroup"
	"github.com/tomtom215/gridscope/internal/viewport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
	sendBufferSize = 64
)

// sessionIDCounter orders sessions for broadcast and shutdown.
var sessionIDCounter atomic.Uint64

// Session is one grid over one WebSocket connection. It owns a data window
// store and a viewport controller for as long as the connection is open.
type Session struct {
	id        uint64
	sessionID string
	hub       *Hub
	conn      *websocket.Conn

	store   *datawindow.Store
	ctrl    *viewport.Controller
	limiter *rate.Limiter

	// send carries replies. frames holds at most the latest unsent frame.
	send   chan Message
	frames chan viewport.Frame

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	commands  sync.WaitGroup
	log       zerolog.Logger
}

func newSession(parent context.Context, hub *Hub, conn *websocket.Conn, meta *models.DatasetMetadata) (*Session, error) {
	sessionID := logging.GenerateSessionID()
	ctx, cancel := context.WithCancel(logging.ContextWithSessionID(parent, sessionID))

	s := &Session{
		id:        sessionIDCounter.Add(1),
		sessionID: sessionID,
		hub:       hub,
		conn:      conn,
		send:      make(chan Message, sendBufferSize),
		frames:    make(chan viewport.Frame, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		log:       logging.Ctx(ctx).With().Str("component", "grid-session").Logger(),
	}

	cfg := hub.cfg
	limit := rate.Inf
	if cfg.CommandRate > 0 {
		limit = rate.Limit(cfg.CommandRate)
	}
	s.limiter = rate.NewLimiter(limit, max(cfg.CommandBurst, 1))

	store, err := datawindow.New(datawindow.Config{
		BatchSize:    cfg.BatchSize,
		MaxRows:      cfg.MaxRows,
		Groupable:    cfg.GroupableColumns,
		SuggestLimit: cfg.SuggestLimit,
	}, hub.engine, meta,
		datawindow.WithSearchProvider(hub.engine),
		datawindow.WithLogger(s.log.With().Str("component", "datawindow").Logger()),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	s.store = store

	ctrl, err := viewport.New(ctx, viewport.Config{
		RowHeight:         cfg.RowHeight,
		Overscan:          cfg.Overscan,
		PrefetchThreshold: cfg.PrefetchThreshold,
		BottomThresholdPx: cfg.BottomThresholdPx,
		FrameInterval:     cfg.FrameInterval,
	}, store, s.publishFrame)
	if err != nil {
		store.Close()
		cancel()
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

// ID returns the session's correlation ID.
func (s *Session) ID() string {
	return s.sessionID
}

// Store returns the session's data window.
func (s *Session) Store() *datawindow.Store {
	return s.store
}

// Start runs the viewport controller and the connection pumps.
func (s *Session) Start() {
	go s.ctrl.Run(s.ctx)
	go s.writePump()
	go s.readPump()
}

// Close ends the session. The write pump sends a close frame and the read
// pump releases the store and controller.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
}

// release stops the controller and store. Only called once the read pump
// has exited, or for a session that never started.
func (s *Session) release() {
	s.Close()
	s.commands.Wait()
	s.ctrl.Close()
	s.store.Close()
}

// publishFrame is the controller's sink. The controller serializes calls, so
// a pending stale frame can always be replaced without blocking.
//
//nolint:gocritic // Frame is passed by value through the sink
func (s *Session) publishFrame(f viewport.Frame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// enqueue queues msg for the write pump. It reports false when the send
// buffer is full or the session is closed.
func (s *Session) enqueue(msg Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

func (s *Session) sendError(id, command, code string, err error) {
	s.enqueue(Message{
		Type: MessageTypeError,
		ID:   id,
		Data: ErrorData{Code: code, Message: err.Error(), Command: command},
	})
}

// readPump reads commands until the connection fails or the session closes.
func (s *Session) readPump() {
	defer func() {
		s.hub.remove(s)
		s.release()
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				s.log.Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			metrics.WSErrors.WithLabelValues("invalid_message").Inc()
			s.sendError("", "", ErrCodeInvalidMessage, fmt.Errorf("invalid message: %w", err))
			continue
		}
		s.handle(cmd)
	}
}

// handle dispatches one command. Scroll and ping never block and are not
// throttled. Commands that query the engine run on their own goroutine so
// scrolling keeps flowing while they are in flight; the store's scopes
// cancel superseded work.
func (s *Session) handle(cmd Command) {
	metrics.WSMessagesReceived.WithLabelValues(cmd.Type).Inc()

	switch cmd.Type {
	case MessageTypeScroll:
		var d ScrollData
		if !s.decode(cmd, &d) {
			return
		}
		if d.Evicted != nil {
			s.ctrl.OnScrollAt(d.ScrollTop, d.ContainerHeight, *d.Evicted)
		} else {
			s.ctrl.OnScroll(d.ScrollTop, d.ContainerHeight)
		}
		return
	case MessageTypePing:
		s.enqueue(Message{Type: MessageTypePong, ID: cmd.ID})
		return
	}

	if !s.limiter.Allow() {
		metrics.WSErrors.WithLabelValues("rate_limited").Inc()
		s.sendError(cmd.ID, cmd.Type, ErrCodeRateLimited, errors.New("too many commands, slow down"))
		return
	}

	switch cmd.Type {
	case MessageTypeConfigure:
		var d ConfigureData
		if !s.decode(cmd, &d) {
			return
		}
		s.run(cmd, func(ctx context.Context) error {
			return s.ctrl.Configure(ctx, d.Query)
		})
	case MessageTypeSetMetrics:
		var d SetMetricsData
		if !s.decode(cmd, &d) {
			return
		}
		if err := s.ctrl.SetVisibleMetrics(d.Metrics); err != nil {
			s.fail(cmd, err)
		}
	case MessageTypeLoadMore:
		s.run(cmd, s.ctrl.LoadMore)
	case MessageTypeRetry:
		s.run(cmd, s.ctrl.Retry)
	case MessageTypeSearch:
		var d SearchData
		if !s.decode(cmd, &d) {
			return
		}
		s.run(cmd, func(ctx context.Context) error {
			res, err := s.store.Suggest(ctx, d.Text)
			if err != nil {
				return err
			}
			s.enqueue(Message{
				Type: MessageTypeSearchResults,
				ID:   cmd.ID,
				Data: SearchResultsData{Text: d.Text, Results: res.Results},
			})
			return nil
		})
	default:
		metrics.WSErrors.WithLabelValues("unknown_type").Inc()
		s.sendError(cmd.ID, cmd.Type, ErrCodeUnknownType, fmt.Errorf("unknown message type %q", cmd.Type))
	}
}

func (s *Session) decode(cmd Command, v any) bool {
	if len(cmd.Data) == 0 {
		s.sendError(cmd.ID, cmd.Type, ErrCodeInvalidMessage, fmt.Errorf("%s requires data", cmd.Type))
		return false
	}
	if err := json.Unmarshal(cmd.Data, v); err != nil {
		metrics.WSErrors.WithLabelValues("invalid_message").Inc()
		s.sendError(cmd.ID, cmd.Type, ErrCodeInvalidMessage, fmt.Errorf("invalid %s data: %w", cmd.Type, err))
		return false
	}
	return true
}

// run executes fn in the background under the session context.
func (s *Session) run(cmd Command, fn func(context.Context) error) {
	s.commands.Add(1)
	go func() {
		defer s.commands.Done()
		if err := fn(s.ctx); err != nil {
			s.fail(cmd, err)
		}
	}()
}

// fail reports a command error to the client. Superseded work is dropped.
func (s *Session) fail(cmd Command, err error) {
	if datawindow.IsSuperseded(err) || errors.Is(err, datawindow.ErrClosed) {
		s.log.Debug().Str("command", cmd.Type).Msg("command superseded")
		return
	}
	code := errorCode(err)
	if code == ErrCodeQueryFailed {
		s.log.Warn().Err(err).Str("command", cmd.Type).Msg("grid command failed")
	}
	s.sendError(cmd.ID, cmd.Type, code, err)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, datawindow.ErrUnknownColumn), errors.Is(err, rowgroup.ErrNotGroupable):
		return ErrCodeInvalidQuery
	case errors.Is(err, engine.ErrUnavailable):
		return ErrCodeServiceUnavailable
	default:
		return ErrCodeQueryFailed
	}
}

// writePump writes frames, replies and pings until the session closes.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
				s.log.Debug().Err(err).Msg("failed to write close message")
			}
			return

		case message := <-s.send:
			if !s.write(message) {
				return
			}

		case frame := <-s.frames:
			if !s.write(Message{Type: MessageTypeFrame, Data: frame}) {
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.log.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) write(message Message) bool {
	data, err := MarshalMessage(message)
	if err != nil {
		metrics.WSErrors.WithLabelValues("marshal").Inc()
		s.log.Error().Err(err).Str("message_type", message.Type).Msg("failed to marshal message")
		return true
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.log.Error().Err(err).Msg("failed to set write deadline")
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		metrics.WSErrors.WithLabelValues("write").Inc()
		s.log.Debug().Err(err).Msg("failed to write message")
		return false
	}
	return true
}
