// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/models"
	"github.com/tomtom215/gridscope/internal/validation"
	ws "github.com/tomtom215/gridscope/internal/websocket"
)

// maxQueryBodyBytes caps the size of a query request body.
const maxQueryBodyBytes = 1 << 20

// filterValuesRequest is the validated form of the filter values endpoint's parameters.
type filterValuesRequest struct {
	Column string `json:"column" validate:"column"`
	Limit  int    `json:"limit" validate:"min=0,max=10000"`
}

// objectsResult is the format=objects shape of a query result.
type objectsResult struct {
	Columns     []string         `json:"columns"`
	ColumnTypes []string         `json:"column_types"`
	Rows        []map[string]any `json:"rows"`
	TotalRows   int              `json:"total_rows"`
}

// Metadata returns the dimension and metric catalog.
// @Summary Dataset metadata
// @Description Returns the table's dimensions, metrics and groupable columns
// @Tags Grid
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.DatasetMetadata}
// @Failure 503 {object} models.APIResponse
// @Router /metadata [get]
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.GetMetadata(r.Context())
	if err != nil {
		respondEngineError(w, r, "load metadata", err)
		return
	}
	respondSuccess(w, r, meta)
}

// Query executes one page of a grouped query.
//
// The body is a models.QueryRequest. A missing limit takes the configured
// default page size. With ?format=objects rows are returned as objects keyed
// by column name instead of positional arrays.
//
// @Summary Execute a grid query
// @Description Groups by the requested dimensions, aggregates the metrics and returns one page
// @Tags Grid
// @Accept json
// @Produce json
// @Param request body models.QueryRequest true "Query"
// @Param format query string false "Row shape: arrays (default) or objects"
// @Success 200 {object} models.APIResponse{data=models.QueryResult}
// @Failure 400 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /query [post]
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", nil)
		return
	}

	maxPageSize := 0
	if h.config != nil {
		if req.Limit == 0 {
			req.Limit = h.config.API.DefaultPageSize
		}
		maxPageSize = h.config.API.MaxPageSize
	}
	if verr := validation.ValidateQueryRequest(&req, maxPageSize); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	result, err := h.service.ExecuteQuery(r.Context(), req)
	if err != nil {
		respondEngineError(w, r, "execute query", err)
		return
	}

	var data any = result
	if r.URL.Query().Get("format") == "objects" {
		data = objectsResult{
			Columns:     result.Columns,
			ColumnTypes: result.ColumnTypes,
			Rows:        result.RowObjects(),
			TotalRows:   result.TotalRows,
		}
	}

	meta := responseMeta(r)
	meta.QueryTimeMS = result.QueryTimeMs
	meta.Cached = result.Cached
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// FilterValues lists the distinct values of a dimension column.
// @Summary Distinct filter values
// @Tags Grid
// @Produce json
// @Param column path string true "Dimension column"
// @Param limit query int false "Maximum values"
// @Success 200 {object} models.APIResponse{data=[]any}
// @Failure 400 {object} models.APIResponse
// @Router /filters/{column}/values [get]
func (h *Handler) FilterValues(w http.ResponseWriter, r *http.Request) {
	req := filterValuesRequest{
		Column: chi.URLParam(r, "column"),
		Limit:  getIntParam(r, "limit", 0),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	values, err := h.service.FilterValues(r.Context(), req.Column, req.Limit)
	if err != nil {
		respondEngineError(w, r, "load filter values", err)
		return
	}
	respondSuccess(w, r, values)
}

// Search returns autocomplete suggestions across dimension columns.
// @Summary Search suggestions
// @Tags Grid
// @Produce json
// @Param q query string false "Search text"
// @Param columns query string false "Comma-separated dimension columns"
// @Param limit query int false "Maximum suggestions"
// @Success 200 {object} models.APIResponse{data=models.SearchResults}
// @Failure 400 {object} models.APIResponse
// @Router /search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req := models.SearchRequest{
		Text:    r.URL.Query().Get("q"),
		Columns: parseCommaSeparated(r.URL.Query().Get("columns")),
		Limit:   getIntParam(r, "limit", 0),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	results, err := h.service.Search(r.Context(), req)
	if err != nil {
		respondEngineError(w, r, "search", err)
		return
	}
	respondSuccess(w, r, results)
}

// Performance returns per-endpoint latency statistics for recent requests.
// @Summary Request latency statistics
// @Tags Operations
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /performance [get]
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]any{
		"endpoints":       h.perfMon.GetStats(),
		"breaker_state":   h.service.BreakerState(),
		"active_sessions": h.activeSessions(),
	})
}

// CacheStats returns query result cache statistics.
// @Summary Query cache statistics
// @Tags Operations
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /cache/stats [get]
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := h.service.CacheStats()
	if !ok {
		respondSuccess(w, r, map[string]any{"enabled": false})
		return
	}
	respondSuccess(w, r, map[string]any{
		"enabled":   true,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"size":      stats.Size,
		"capacity":  stats.Capacity,
		"hit_rate":  stats.HitRate(),
	})
}

// InvalidateCache drops every cached query result and tells open grid
// sessions to re-issue their queries.
//
// @Summary Invalidate the query cache
// @Tags Operations
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /cache/invalidate [post]
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.Invalidate()
	sessions := h.activeSessions()
	if h.wsHub != nil {
		h.wsHub.BroadcastJSON(ws.MessageTypeInvalidated, map[string]string{"reason": "cache_invalidated"})
	}
	logging.Ctx(r.Context()).Info().Int("sessions_notified", sessions).Msg("Query cache invalidated")
	respondSuccess(w, r, map[string]any{
		"invalidated":       true,
		"sessions_notified": sessions,
	})
}
