// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package services

import (
	"context"
)

// SessionHub is satisfied by *websocket.Hub.
type SessionHub interface {
	RunWithContext(ctx context.Context) error
}

// GridHubService runs the grid session hub as a supervised service.
//
// The hub closes every open session when its context ends, so a restart
// after a panic starts from an empty session set and clients reconnect.
type GridHubService struct {
	hub  SessionHub
	name string
}

// NewGridHubService creates a new hub service wrapper.
func NewGridHubService(hub SessionHub) *GridHubService {
	return &GridHubService{
		hub:  hub,
		name: "grid-hub",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on shutdown.
func (g *GridHubService) Serve(ctx context.Context) error {
	return g.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (g *GridHubService) String() string {
	return g.name
}
