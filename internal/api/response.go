// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gridscope/internal/client"
	"github.com/tomtom215/gridscope/internal/database"
	"github.com/tomtom215/gridscope/internal/engine"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/models"
	"github.com/tomtom215/gridscope/internal/validation"
)

// API error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidQuery       = "INVALID_QUERY"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeRemote             = "REMOTE_ENGINE_ERROR"
)

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
// This includes newlines, carriage returns, tabs, and other control characters that could
// allow attackers to forge log entries or corrupt log files.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Vary", "Accept-Encoding")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag creates a simple ETag from data using FNV-1a hash
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return `"` + strconv.FormatUint(uint64(hash), 16) + `"`
}

// responseMeta builds the metadata block for r.
func responseMeta(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: responseMeta(r),
	})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: responseMeta(r),
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondValidationError answers 400 with the validator's field details.
func respondValidationError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

// respondEngineError maps a query engine failure onto a status code.
// Request-caused failures keep their message; server-side failures are
// logged and answered with a generic one.
func respondEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var httpErr *client.HTTPError
	switch {
	case database.IsInvalidQuery(err):
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidQuery, rootMessage(err), nil)
		return
	case errors.As(err, &httpErr) && httpErr.IsClientError():
		code := httpErr.Code
		if code == "" {
			code = ErrCodeRemote
		}
		respondError(w, r, httpErr.StatusCode, code, httpErr.Message, nil)
		return
	case errors.Is(err, engine.ErrUnavailable):
		w.Header().Set("Retry-After", "5")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Query engine temporarily unavailable", nil)
		return
	}

	logging.Ctx(r.Context()).Error().
		Str("op", op).
		Str("error", sanitizeLogValue(err.Error())).
		Msg("API Error")
	respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to "+op, nil)
}

// rootMessage strips the engine's wrapping so clients see only the cause.
func rootMessage(err error) string {
	var qe *engine.QueryError
	if errors.As(err, &qe) {
		return qe.Err.Error()
	}
	return err.Error()
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
