// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/gridscope/internal/models"
)

// pingTimeout bounds dependency checks made by health probes.
const pingTimeout = 3 * time.Second

func (h *Handler) sourceOnline(ctx context.Context) bool {
	if h.source == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.source.Ping(ctx) == nil
}

func (h *Handler) activeSessions() int {
	if h.wsHub == nil {
		return 0
	}
	return h.wsHub.SessionCount()
}

// Health handles health check requests
//
// Returns 200 with status "healthy" when the data source answers, otherwise
// "degraded". Monitoring that needs a failing status code should use
// /health/ready.
//
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	online := h.sourceOnline(r.Context())

	status := "healthy"
	if !online {
		status = "degraded"
	}

	respondSuccess(w, r, models.HealthStatus{
		Status:         status,
		Version:        Version,
		DatabaseOnline: online,
		ActiveSessions: h.activeSessions(),
		Uptime:         time.Since(h.startTime).Seconds(),
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the data source is reachable and the query engine
// breaker is not open.
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	online := h.sourceOnline(r.Context())
	breakerState := "unknown"
	if h.service != nil {
		breakerState = h.service.BreakerState()
	}
	ready := online && breakerState != "open"

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]any{
			"database_online": online,
			"breaker_state":   breakerState,
			"ready_to_serve":  ready,
			"uptime":          time.Since(h.startTime).Seconds(),
		},
		Metadata: responseMeta(r),
	})
}
