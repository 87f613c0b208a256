// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package websocket serves interactive grid sessions over WebSocket connections.

Each connection is one Session. A session owns a data window store and a
viewport controller, created on connect and released on disconnect; nothing
is shared between sessions except the query engine behind them.

Key Components:

  - Hub: tracks open sessions, enforces MaxSessions, broadcasts notices and
    closes every session on shutdown
  - Session: decodes client commands, drives its controller and writes
    frames back

Each session runs three goroutines:
  - readPump: reads and dispatches commands
  - writePump: writes replies, frames and keep-alive pings
  - the controller's frame loop, coalescing scroll events

Only the latest unsent frame is kept, so a slow client skips intermediate
frames instead of queueing them.

Client messages ({"type", "id", "data"}):

  - configure {query}: set dimensions, metrics, filters, sort, search
  - scroll {scroll_top, container_height, evicted?}
  - set_metrics {metrics}: toggle visible metrics without a fetch
  - load_more, retry
  - search {text}: autocomplete across the current dimensions
  - ping

Server messages:

  - frame: rows inside the virtualized window with span information
  - search_results {text, results}
  - error {code, message, command}
  - invalidated: cached results were dropped, clients should re-configure
  - pong

Commands other than scroll and ping are throttled per session with
golang.org/x/time/rate and answered with RATE_LIMITED when over the limit.

Usage Example:

	hub := websocket.NewHub(engineService, cfg.Grid)
	go hub.RunWithContext(ctx)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
	    return
	}
	session, err := hub.Connect(r.Context(), conn)
*/
package websocket
