// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package services provides suture.Service wrappers for Gridscope components.

Each wrapper translates a component's lifecycle into suture's context-aware
Serve pattern and names itself through fmt.Stringer for supervisor events.

# Available Services

HTTP Server (HTTPServerService):
  - Opens the listener inside Serve so bind failures reach the supervisor
  - Shuts the server down gracefully with a configurable timeout
  - Addr reports the bound address, useful with ":0"

Grid Hub (GridHubService):
  - Runs websocket.Hub's broadcast loop
  - The hub closes all sessions when its context ends

Cache Janitor (CacheJanitorService):
  - Periodically drops expired query results from the engine cache

Interfaces (HTTPServer, SessionHub, ExpiringCache) are declared here so the
package does not import the components it wraps.
*/
package services
