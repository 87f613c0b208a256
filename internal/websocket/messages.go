// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package websocket

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/gridscope/internal/datawindow"
	"github.com/tomtom215/gridscope/internal/models"
)

// Client message types
const (
	MessageTypeConfigure  = "configure"
	MessageTypeScroll     = "scroll"
	MessageTypeSetMetrics = "set_metrics"
	MessageTypeLoadMore   = "load_more"
	MessageTypeRetry      = "retry"
	MessageTypeSearch     = "search"
	MessageTypePing       = "ping"
)

// Server message types
const (
	MessageTypeFrame         = "frame"
	MessageTypeSearchResults = "search_results"
	MessageTypeError         = "error"
	MessageTypePong          = "pong"
	MessageTypeInvalidated   = "invalidated"
)

// Error codes sent in error messages
const (
	ErrCodeInvalidMessage     = "INVALID_MESSAGE"
	ErrCodeUnknownType        = "UNKNOWN_MESSAGE_TYPE"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInvalidQuery       = "INVALID_QUERY"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeQueryFailed        = "QUERY_FAILED"
)

// Message is a server-to-client message. ID echoes the client command it
// answers, when there is one.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Command is a client-to-server message. Data is decoded by type.
type Command struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConfigureData carries the grid query of a configure command.
type ConfigureData struct {
	Query datawindow.Query `json:"query"`
}

// ScrollData carries the scroll position of a scroll command. Evicted, when
// set, echoes the evicted count of the frame the renderer was showing.
type ScrollData struct {
	ScrollTop       float64 `json:"scroll_top"`
	ContainerHeight float64 `json:"container_height"`
	Evicted         *int    `json:"evicted,omitempty"`
}

// SetMetricsData carries the visible metrics of a set_metrics command.
type SetMetricsData struct {
	Metrics []string `json:"metrics"`
}

// SearchData carries the text of a search command.
type SearchData struct {
	Text string `json:"text"`
}

// SearchResultsData answers a search command.
type SearchResultsData struct {
	Text    string                `json:"text"`
	Results []models.SearchResult `json:"results"`
}

// ErrorData describes a failed command.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
