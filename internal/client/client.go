// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
client.go - Remote Gridscope API Client

Client queries another Gridscope server over its HTTP API and implements the
same collaborator interfaces as the local database, so grid sessions can run
against a remote engine unchanged.

Endpoints used:
  - POST /api/v1/query
  - GET  /api/v1/metadata
  - GET  /api/v1/search
  - GET  /api/v1/filters/{column}/values

Every call goes through a circuit breaker named "remote-engine".
*/

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gridscope/internal/breaker"
	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/models"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 4096

// HTTPError is returned for non-2xx responses from the remote engine.
type HTTPError struct {
	StatusCode int
	Endpoint   string
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote engine %s returned status %d: %s: %s", e.Endpoint, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote engine %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsClientError reports whether the remote engine rejected the request
// itself (4xx other than 429).
func (e *HTTPError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// envelope mirrors models.APIResponse with the payload left undecoded.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error,omitempty"`
}

// Client provides access to a remote Gridscope API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *breaker.Breaker[any]
}

// New creates a client for cfg.RemoteURL.
func New(cfg config.EngineConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.RemoteURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker.New[any]("remote-engine", breaker.Settings{
			MaxRequests:      cfg.BreakerMaxRequests,
			Interval:         cfg.BreakerInterval,
			Timeout:          cfg.BreakerTimeout,
			FailureThreshold: cfg.BreakerFailureThreshold,
			IsSuccessful:     isClientError,
		}),
	}
}

func isClientError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.IsClientError()
}

// ExecuteQuery runs a grouped query on the remote engine.
func (c *Client) ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	result, err := breaker.CastResult[models.QueryResult](c.breaker.Execute(func() (any, error) {
		var out models.QueryResult
		if err := c.do(ctx, http.MethodPost, "/api/v1/query", body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}))
	if err != nil {
		return nil, err
	}
	normalizeRows(result.Rows)
	return result, nil
}

// GetMetadata fetches the remote dataset catalog.
func (c *Client) GetMetadata(ctx context.Context) (*models.DatasetMetadata, error) {
	return breaker.CastResult[models.DatasetMetadata](c.breaker.Execute(func() (any, error) {
		var out models.DatasetMetadata
		if err := c.do(ctx, http.MethodGet, "/api/v1/metadata", nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}))
}

// Search fetches autocomplete suggestions.
func (c *Client) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResults, error) {
	params := url.Values{}
	params.Set("q", req.Text)
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}
	if len(req.Columns) > 0 {
		params.Set("columns", strings.Join(req.Columns, ","))
	}
	return breaker.CastResult[models.SearchResults](c.breaker.Execute(func() (any, error) {
		var out models.SearchResults
		if err := c.do(ctx, http.MethodGet, "/api/v1/search?"+params.Encode(), nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}))
}

// FilterValues fetches the distinct values of a dimension column.
func (c *Client) FilterValues(ctx context.Context, column string, limit int) (*models.FilterValues, error) {
	endpoint := "/api/v1/filters/" + url.PathEscape(column) + "/values"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	return breaker.CastResult[models.FilterValues](c.breaker.Execute(func() (any, error) {
		var out models.FilterValues
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}))
}

// Ping checks the remote engine's readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, http.MethodGet, "/api/v1/health/ready", nil, nil)
	})
	return err
}

// do performs one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote engine %s request failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	logging.Ctx(ctx).Debug().
		Str("component", "client").
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Remote engine request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, endpoint)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	if env.Error != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Endpoint: endpoint, Code: env.Error.Code, Message: env.Error.Message}
	}
	if out == nil {
		return nil
	}

	dataDec := json.NewDecoder(bytes.NewReader(env.Data))
	dataDec.UseNumber()
	if err := dataDec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", endpoint, err)
	}
	return nil
}

func decodeError(resp *http.Response, endpoint string) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "failed to read body"}
	}
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Error != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Endpoint: endpoint, Code: env.Error.Code, Message: env.Error.Message}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: strings.TrimSpace(string(raw))}
}

// normalizeRows converts JSON numbers in result cells back into int64 or
// float64, matching the cell types produced by the local database.
func normalizeRows(rows [][]any) {
	for _, row := range rows {
		for i, cell := range row {
			n, ok := cell.(json.Number)
			if !ok {
				continue
			}
			if v, err := n.Int64(); err == nil {
				row[i] = v
			} else if f, err := n.Float64(); err == nil {
				row[i] = f
			} else {
				row[i] = n.String()
			}
		}
	}
}
