// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package websocket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/models"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
	os.Exit(m.Run())
}

// fakeEngine serves total grouped rows. Row i has region "r%03d".
type fakeEngine struct {
	total   int
	queries atomic.Int32
}

func (f *fakeEngine) ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	f.queries.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols := append(append([]string{}, req.Dimensions...), req.Metrics...)
	types := make([]string, len(cols))
	for i := range types {
		types[i] = "VARCHAR"
	}
	end := min(req.Offset+req.Limit, f.total)
	rows := make([][]any, 0, max(end-req.Offset, 0))
	for i := req.Offset; i < end; i++ {
		row := make([]any, 0, len(cols))
		for range req.Dimensions {
			row = append(row, fmt.Sprintf("r%03d", i))
		}
		for range req.Metrics {
			row = append(row, float64(i))
		}
		rows = append(rows, row)
	}
	return &models.QueryResult{Columns: cols, ColumnTypes: types, Rows: rows, TotalRows: f.total}, nil
}

func (f *fakeEngine) GetMetadata(context.Context) (*models.DatasetMetadata, error) {
	return &models.DatasetMetadata{
		Table: "sales",
		Dimensions: []models.Dimension{
			{Name: "region", Label: "Region", Type: "VARCHAR"},
			{Name: "country", Label: "Country", Type: "VARCHAR"},
		},
		Metrics: []models.Metric{
			{Name: "revenue", Label: "Revenue", Type: "DOUBLE", Aggregation: "sum"},
			{Name: "units", Label: "Units", Type: "BIGINT", Aggregation: "sum"},
		},
		Groupable: []string{"region", "country"},
	}, nil
}

func (f *fakeEngine) Search(_ context.Context, req models.SearchRequest) (*models.SearchResults, error) {
	results := make([]models.SearchResult, 0, len(req.Columns))
	for _, col := range req.Columns {
		results = append(results, models.SearchResult{Column: col, Value: req.Text, Label: col + ": " + req.Text})
	}
	return &models.SearchResults{Results: results}, nil
}

func testGridConfig() config.GridConfig {
	return config.GridConfig{
		BatchSize:         50,
		MaxRows:           200,
		SuggestLimit:      5,
		PrefetchThreshold: 0.7,
		BottomThresholdPx: 200,
		RowHeight:         32,
		Overscan:          2,
		FrameInterval:     5 * time.Millisecond,
		CommandRate:       100,
		CommandBurst:      20,
	}
}

// startServer serves hub on a test server and returns its ws:// URL.
func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if _, err := hub.Connect(r.Context(), conn); err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newHub(t *testing.T, cfg config.GridConfig) (*Hub, string) {
	t.Helper()
	hub := NewHub(&fakeEngine{total: 120}, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, startServer(t, hub)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendCommand(t *testing.T, conn *websocket.Conn, typ, id string, data any) {
	t.Helper()
	cmd := map[string]any{"type": typ, "id": id}
	if data != nil {
		cmd["data"] = data
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// received mirrors Message with the payload left raw.
type received struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type frameView struct {
	ScrollTop       float64  `json:"scroll_top"`
	ContainerHeight float64  `json:"container_height"`
	Columns         []string `json:"columns"`
	TotalRows       int      `json:"total_rows"`
	BufferLength    int      `json:"buffer_length"`
	State           string   `json:"state"`
	Rows            []struct {
		Index int `json:"index"`
	} `json:"rows"`
}

// readUntil reads messages until match accepts one or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(received) bool) received {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg received
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func readFrame(t *testing.T, conn *websocket.Conn, match func(frameView) bool) frameView {
	t.Helper()
	var f frameView
	readUntil(t, conn, func(msg received) bool {
		if msg.Type != MessageTypeFrame {
			return false
		}
		f = frameView{}
		if err := json.Unmarshal(msg.Data, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return match(f)
	})
	return f
}

func isType(typ string) func(received) bool {
	return func(msg received) bool { return msg.Type == typ }
}

func decodeError(t *testing.T, msg received) ErrorData {
	t.Helper()
	var e ErrorData
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		t.Fatalf("decode error data: %v", err)
	}
	return e
}

var testQuery = map[string]any{
	"query": map[string]any{
		"dimensions": []string{"region"},
		"metrics":    []string{"revenue"},
	},
}

func TestSession_ConfigureAndScroll(t *testing.T) {
	_, url := newHub(t, testGridConfig())
	conn := dial(t, url)

	sendCommand(t, conn, MessageTypeScroll, "", ScrollData{ScrollTop: 0, ContainerHeight: 320})
	sendCommand(t, conn, MessageTypeConfigure, "c1", testQuery)

	f := readFrame(t, conn, func(f frameView) bool {
		return f.State == "READY" && len(f.Rows) > 0 && f.ContainerHeight == 320
	})
	if f.TotalRows != 120 || f.BufferLength != 50 {
		t.Errorf("frame total/buffer = %d/%d, want 120/50", f.TotalRows, f.BufferLength)
	}
	if len(f.Columns) != 2 || f.Columns[0] != "region" || f.Columns[1] != "revenue" {
		t.Errorf("frame columns = %v", f.Columns)
	}
	// 320px / 32px = 10 visible rows plus 2 overscan below.
	if len(f.Rows) != 12 || f.Rows[0].Index != 0 {
		t.Errorf("frame rows = %d starting at %d, want 12 starting at 0", len(f.Rows), f.Rows[0].Index)
	}

	sendCommand(t, conn, MessageTypeScroll, "", ScrollData{ScrollTop: 320, ContainerHeight: 320})
	f = readFrame(t, conn, func(f frameView) bool { return f.ScrollTop == 320 })
	if len(f.Rows) == 0 || f.Rows[0].Index != 8 {
		t.Errorf("scrolled frame starts at %v, want index 8", f.Rows)
	}
}

func TestSession_ScrollTriggersLoadMore(t *testing.T) {
	_, url := newHub(t, testGridConfig())
	conn := dial(t, url)

	sendCommand(t, conn, MessageTypeScroll, "", ScrollData{ScrollTop: 0, ContainerHeight: 320})
	sendCommand(t, conn, MessageTypeConfigure, "c1", testQuery)
	readFrame(t, conn, func(f frameView) bool { return f.State == "READY" && f.BufferLength == 50 })

	// 50 rows * 32px = 1600px; the bottom of this viewport is past 70%.
	sendCommand(t, conn, MessageTypeScroll, "", ScrollData{ScrollTop: 1200, ContainerHeight: 320})
	f := readFrame(t, conn, func(f frameView) bool { return f.BufferLength == 100 })
	if f.TotalRows != 120 {
		t.Errorf("total rows = %d, want 120", f.TotalRows)
	}
}

func TestSession_PingPong(t *testing.T) {
	_, url := newHub(t, testGridConfig())
	conn := dial(t, url)

	sendCommand(t, conn, MessageTypePing, "p1", nil)
	msg := readUntil(t, conn, isType(MessageTypePong))
	if msg.ID != "p1" {
		t.Errorf("pong id = %q, want p1", msg.ID)
	}
}

func TestSession_Search(t *testing.T) {
	_, url := newHub(t, testGridConfig())
	conn := dial(t, url)

	sendCommand(t, conn, MessageTypeConfigure, "c1", testQuery)
	readFrame(t, conn, func(f frameView) bool { return f.State == "READY" })

	sendCommand(t, conn, MessageTypeSearch, "s1", SearchData{Text: "eu"})
	msg := readUntil(t, conn, isType(MessageTypeSearchResults))
	var res SearchResultsData
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		t.Fatal(err)
	}
	if msg.ID != "s1" || res.Text != "eu" || len(res.Results) != 1 || res.Results[0].Column != "region" {
		t.Errorf("search results = %s %+v", msg.ID, res)
	}
}

func TestSession_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode string
		wantCmd  string
	}{
		{
			name:     "malformed json",
			raw:      `{"type":`,
			wantCode: ErrCodeInvalidMessage,
		},
		{
			name:     "unknown type",
			raw:      `{"type":"explode","id":"x1"}`,
			wantCode: ErrCodeUnknownType,
			wantCmd:  "explode",
		},
		{
			name:     "configure without data",
			raw:      `{"type":"configure","id":"x2"}`,
			wantCode: ErrCodeInvalidMessage,
			wantCmd:  MessageTypeConfigure,
		},
		{
			name:     "unknown dimension",
			raw:      `{"type":"configure","id":"x3","data":{"query":{"dimensions":["planet"],"metrics":["revenue"]}}}`,
			wantCode: ErrCodeInvalidQuery,
			wantCmd:  MessageTypeConfigure,
		},
		{
			name:     "unknown metric toggle",
			raw:      `{"type":"set_metrics","id":"x4","data":{"metrics":["profit"]}}`,
			wantCode: ErrCodeInvalidQuery,
			wantCmd:  MessageTypeSetMetrics,
		},
	}

	_, url := newHub(t, testGridConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, url)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
				t.Fatal(err)
			}
			e := decodeError(t, readUntil(t, conn, isType(MessageTypeError)))
			if e.Code != tt.wantCode || e.Command != tt.wantCmd {
				t.Errorf("error = %+v, want code %s command %q", e, tt.wantCode, tt.wantCmd)
			}
		})
	}
}

func TestSession_RateLimit(t *testing.T) {
	cfg := testGridConfig()
	cfg.CommandRate = 0.001
	cfg.CommandBurst = 1
	_, url := newHub(t, cfg)
	conn := dial(t, url)

	sendCommand(t, conn, MessageTypeConfigure, "c1", testQuery)
	sendCommand(t, conn, MessageTypeLoadMore, "l1", nil)

	msg := readUntil(t, conn, isType(MessageTypeError))
	if e := decodeError(t, msg); e.Code != ErrCodeRateLimited || msg.ID != "l1" {
		t.Errorf("error = %s %+v, want RATE_LIMITED for l1", msg.ID, e)
	}

	// Scroll and ping are never throttled.
	sendCommand(t, conn, MessageTypePing, "p1", nil)
	readUntil(t, conn, isType(MessageTypePong))
}
