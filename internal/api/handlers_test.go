// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	_ "github.com/tomtom215/gridscope/docs"
	"github.com/tomtom215/gridscope/internal/cache"
	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/database/query"
	"github.com/tomtom215/gridscope/internal/engine"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/metrics"
	"github.com/tomtom215/gridscope/internal/models"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
	os.Exit(m.Run())
}

// fakeService records the last request and returns canned answers.
type fakeService struct {
	mu          sync.Mutex
	lastQuery   models.QueryRequest
	lastSearch  models.SearchRequest
	lastColumn  string
	lastLimit   int
	err         error
	invalidated int
	breaker     string
}

func (f *fakeService) ExecuteQuery(_ context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.QueryResult{
		Columns:     []string{"region", "revenue"},
		ColumnTypes: []string{"VARCHAR", "DOUBLE"},
		Rows:        [][]any{{"EMEA", 10.5}, {"APAC", 7.0}},
		TotalRows:   2,
		QueryTimeMs: 4,
		Cached:      true,
	}, nil
}

func (f *fakeService) GetMetadata(context.Context) (*models.DatasetMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.DatasetMetadata{
		Table:      "sales",
		Dimensions: []models.Dimension{{Name: "region", Label: "Region", Type: "VARCHAR"}},
		Metrics:    []models.Metric{{Name: "revenue", Label: "Revenue", Type: "DOUBLE", Aggregation: "SUM"}},
		Groupable:  []string{"region"},
	}, nil
}

func (f *fakeService) Search(_ context.Context, req models.SearchRequest) (*models.SearchResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSearch = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.SearchResults{Results: []models.SearchResult{
		{Column: "region", Value: "EMEA", Label: "Region: EMEA"},
	}}, nil
}

func (f *fakeService) FilterValues(_ context.Context, column string, limit int) (*models.FilterValues, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastColumn, f.lastLimit = column, limit
	if f.err != nil {
		return nil, f.err
	}
	return &models.FilterValues{Column: column, Values: []string{"APAC", "EMEA"}}, nil
}

func (f *fakeService) Invalidate() {
	f.mu.Lock()
	f.invalidated++
	f.mu.Unlock()
}

func (f *fakeService) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}

func (f *fakeService) CacheStats() (cache.Stats, bool) {
	return cache.Stats{Hits: 3, Misses: 1, Size: 2, Capacity: 10}, true
}

func (f *fakeService) BreakerState() string {
	if f.breaker == "" {
		return "closed"
	}
	return f.breaker
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{DefaultPageSize: 100, MaxPageSize: 1000},
		Security: config.SecurityConfig{
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}
}

func newTestRouter(t *testing.T, svc *fakeService) http.Handler {
	t.Helper()
	h := NewHandler(svc, fakePinger{}, nil, testConfig())
	mw := NewChiMiddlewareFromSecurity(nil, 100, time.Minute, true)
	return NewRouter(h, mw).SetupChi()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: failed to decode response %q: %v", method, target, w.Body.String(), err)
	}
	return w, env
}

func TestQuery_Success(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	w, env := do(t, router, http.MethodPost, "/api/v1/query",
		`{"dimensions":["region"],"metrics":["revenue"],"offset":0,"limit":50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if env.Status != "success" {
		t.Errorf("status = %q", env.Status)
	}
	if !env.Metadata.Cached || env.Metadata.QueryTimeMS != 4 {
		t.Errorf("metadata = %+v, want cached with query_time_ms 4", env.Metadata)
	}
	if env.Metadata.RequestID == "" || w.Header().Get("X-Request-ID") != env.Metadata.RequestID {
		t.Errorf("request id %q does not match header %q", env.Metadata.RequestID, w.Header().Get("X-Request-ID"))
	}

	var result models.QueryResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if result.TotalRows != 2 || len(result.Rows) != 2 || result.Rows[0][0] != "EMEA" {
		t.Errorf("result = %+v", result)
	}
	if svc.lastQuery.Limit != 50 {
		t.Errorf("limit = %d, want 50", svc.lastQuery.Limit)
	}
}

func TestQuery_DefaultLimitAndObjects(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	w, env := do(t, router, http.MethodPost, "/api/v1/query?format=objects",
		`{"dimensions":["region"],"metrics":["revenue"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if svc.lastQuery.Limit != 100 {
		t.Errorf("limit = %d, want default page size 100", svc.lastQuery.Limit)
	}

	var result objectsResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(result.Rows) != 2 || result.Rows[1]["region"] != "APAC" {
		t.Errorf("rows = %v", result.Rows)
	}
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed body",
			body:       `{"dimensions":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:       "limit above max page size",
			body:       `{"dimensions":["region"],"limit":5000}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "negative offset",
			body:       `{"dimensions":["region"],"offset":-1,"limit":10}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "unknown column",
			body:       `{"dimensions":["nope"],"limit":10}`,
			err:        &engine.QueryError{Op: "query", Err: fmt.Errorf("%w: nope", query.ErrUnknownColumn)},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidQuery,
		},
		{
			name:       "breaker open",
			body:       `{"dimensions":["region"],"limit":10}`,
			err:        &engine.QueryError{Op: "query", Err: engine.ErrUnavailable},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeServiceUnavailable,
		},
		{
			name:       "database failure",
			body:       `{"dimensions":["region"],"limit":10}`,
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeService{err: tt.err})
			w, env := do(t, router, http.MethodPost, "/api/v1/query", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(env.Error.Message, "disk") {
				t.Errorf("internal error leaked to client: %q", env.Error.Message)
			}
		})
	}
}

func TestQuery_UnavailableSetsRetryAfter(t *testing.T) {
	router := newTestRouter(t, &fakeService{err: engine.ErrUnavailable})
	w, _ := do(t, router, http.MethodPost, "/api/v1/query", `{"dimensions":["region"],"limit":10}`)
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 503")
	}
}

func TestMetadata(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	w, env := do(t, router, http.MethodGet, "/api/v1/metadata", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var meta models.DatasetMetadata
	if err := json.Unmarshal(env.Data, &meta); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if meta.Table != "sales" || len(meta.Dimensions) != 1 || meta.Groupable[0] != "region" {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestFilterValues(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	w, env := do(t, router, http.MethodGet, "/api/v1/filters/region/values?limit=25", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if svc.lastColumn != "region" || svc.lastLimit != 25 {
		t.Errorf("called with (%q, %d), want (region, 25)", svc.lastColumn, svc.lastLimit)
	}
	var values models.FilterValues
	if err := json.Unmarshal(env.Data, &values); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(values.Values) != 2 {
		t.Errorf("values = %v", values.Values)
	}

	w, env = do(t, router, http.MethodGet, "/api/v1/filters/region/values?limit=20000", "")
	if w.Code != http.StatusBadRequest || env.Error.Code != ErrCodeValidation {
		t.Errorf("oversized limit: status %d, error %+v", w.Code, env.Error)
	}
}

func TestSearch(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	w, env := do(t, router, http.MethodGet, "/api/v1/search?q=em&limit=5&columns=region,%20country", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if svc.lastSearch.Text != "em" || svc.lastSearch.Limit != 5 {
		t.Errorf("search request = %+v", svc.lastSearch)
	}
	if got := svc.lastSearch.Columns; len(got) != 2 || got[1] != "country" {
		t.Errorf("columns = %v, want [region country]", got)
	}
	var results models.SearchResults
	if err := json.Unmarshal(env.Data, &results); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(results.Results) != 1 || results.Results[0].Label != "Region: EMEA" {
		t.Errorf("results = %+v", results.Results)
	}

	w, env = do(t, router, http.MethodGet, "/api/v1/search", "")
	if w.Code != http.StatusBadRequest || env.Error.Code != ErrCodeValidation {
		t.Errorf("missing q: status %d, error %+v", w.Code, env.Error)
	}
}

func TestCacheEndpoints(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	w, env := do(t, router, http.MethodGet, "/api/v1/cache/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var stats map[string]any
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if stats["enabled"] != true || stats["hit_rate"].(float64) != 75 {
		t.Errorf("stats = %v", stats)
	}

	w, _ = do(t, router, http.MethodPost, "/api/v1/cache/invalidate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("invalidate status = %d", w.Code)
	}
	if n := svc.invalidations(); n != 1 {
		t.Errorf("Invalidate() called %d times, want 1", n)
	}
}

func TestPerformance(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	do(t, router, http.MethodGet, "/api/v1/metadata", "")
	do(t, router, http.MethodGet, "/api/v1/metadata", "")

	_, env := do(t, router, http.MethodGet, "/api/v1/performance", "")
	var perf struct {
		Endpoints []struct {
			Endpoint     string `json:"endpoint"`
			RequestCount int64  `json:"request_count"`
		} `json:"endpoints"`
		BreakerState string `json:"breaker_state"`
	}
	if err := json.Unmarshal(env.Data, &perf); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if perf.BreakerState != "closed" {
		t.Errorf("breaker_state = %q", perf.BreakerState)
	}
	found := false
	for _, e := range perf.Endpoints {
		if e.Endpoint == "/api/v1/metadata" && e.RequestCount == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("endpoints = %+v, want /api/v1/metadata with 2 requests", perf.Endpoints)
	}
}

func TestNotFound(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	w, env := do(t, router, http.MethodGet, "/api/v1/nope", "")
	if w.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("status %d, error %+v", w.Code, env.Error)
	}
}

func TestSwaggerDoc(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	if doc.Info.Title != "Gridscope API" || doc.BasePath != "/api/v1" {
		t.Errorf("info = %+v, basePath = %q", doc.Info, doc.BasePath)
	}
	for path, method := range map[string]string{"/query": "post", "/metadata": "get", "/health/ready": "get"} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("doc.json missing %s %s", method, path)
		}
	}
}

func TestRateLimit(t *testing.T) {
	h := NewHandler(&fakeService{}, fakePinger{}, nil, testConfig())
	router := NewRouter(h, NewChiMiddlewareFromSecurity(nil, 1, time.Minute, false)).SetupChi()
	before := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("api"))

	if w, _ := do(t, router, http.MethodGet, "/api/v1/metadata", ""); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	w, env := do(t, router, http.MethodGet, "/api/v1/metadata", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v", env.Error)
	}
	if got := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("api")); got != before+1 {
		t.Errorf("rate limit hits = %v, want %v", got, before+1)
	}

	// Health checks have their own, more permissive limiter.
	if w, _ := do(t, router, http.MethodGet, "/api/v1/health/live", ""); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metadata", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	for _, header := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy", "Strict-Transport-Security", "ETag"} {
		if w.Header().Get(header) == "" {
			t.Errorf("header %s missing", header)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"line\nbreak", `line\x0abreak`},
		{"tab\there", `tab\x09here`},
		{"del\x7f", `del\x7f`},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateETag(t *testing.T) {
	a := generateETag([]byte(`{"a":1}`))
	b := generateETag([]byte(`{"a":2}`))
	if a == b {
		t.Error("different bodies produced the same ETag")
	}
	if a != generateETag([]byte(`{"a":1}`)) {
		t.Error("ETag is not deterministic")
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) {
		t.Errorf("ETag %s is not quoted", a)
	}
}
