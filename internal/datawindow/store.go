// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package datawindow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/metrics"
	"github.com/tomtom215/gridscope/internal/models"
	"github.com/tomtom215/gridscope/internal/rangeset"
	"github.com/tomtom215/gridscope/internal/rowgroup"
)

// State is the lifecycle state of a Store.
type State int

const (
	StateEmpty State = iota
	StateLoadingInitial
	StateReady
	StatePrefetching
	StateLoadingMore
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateLoadingInitial:
		return "LOADING_INITIAL"
	case StateReady:
		return "READY"
	case StatePrefetching:
		return "PREFETCHING"
	case StateLoadingMore:
		return "LOADING_MORE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON frames.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// failedOp records which foreground operation Retry re-issues.
type failedOp int

const (
	opNone failedOp = iota
	opInitial
	opMore
)

// scope is one cancellation scope. Starting a request cancels the previous
// request of the same scope and bumps the token.
type scope struct {
	name   string
	cancel context.CancelFunc
	token  uint64
}

func (sc *scope) stop() {
	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}
}

// Snapshot is a consistent view of the store for rendering. Data rows are
// shared with the store and must not be modified.
type Snapshot struct {
	Columns      []string `json:"columns"`
	ColumnTypes  []string `json:"column_types"`
	Data         [][]any  `json:"-"`
	TotalRows    int      `json:"total_rows"`
	BufferLength int      `json:"buffer_length"`
	Evicted      int      `json:"evicted"`
	Loading      bool     `json:"loading"`
	Prefetching  bool     `json:"prefetching"`
	HasMore      bool     `json:"has_more"`
	Error        error    `json:"-"`
	State        State    `json:"state"`

	// Epoch is the server offset one past the last buffered row. It grows
	// with every applied fetch, including after eviction.
	Epoch int `json:"epoch"`

	// Generation changes on every structural reset.
	Generation uint64 `json:"generation"`

	// DimensionCount is the number of leading dimension columns in Columns.
	DimensionCount int `json:"dimension_count"`
}

// Option configures a Store.
type Option func(*Store)

// WithSearchProvider enables Suggest.
func WithSearchProvider(sp SearchProvider) Option {
	return func(s *Store) {
		s.search = sp
	}
}

// WithLogger overrides the component logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Store is the data window of one grid session.
type Store struct {
	mu sync.Mutex

	cfg       Config
	exec      QueryExecutor
	search    SearchProvider
	meta      *models.DatasetMetadata
	groupable map[string]bool
	log       zerolog.Logger

	query      Query
	configured bool
	generation uint64
	closed     bool

	// Full fetched rows, every dataset metric included.
	columns     []string
	columnTypes []string
	buffer      [][]any
	tracker     *rangeset.Tracker
	evicted     int
	totalRows   int
	exhausted   bool
	loaded      bool

	// Visible projection, rebuilt as a fresh slice whenever it changes so
	// snapshots may share it.
	visibleCols  []string
	visibleTypes []string
	visible      [][]any
	dimCount     int
	layout       *rowgroup.Layout

	initialLoading bool
	moreLoading    bool
	prefetching    bool

	err    error
	failed failedOp
	seq    uint64
	fg     scope
	pf     scope
	sg     scope
}

// New creates a store over exec for the dataset described by meta.
func New(cfg Config, exec QueryExecutor, meta *models.DatasetMetadata, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid data window config: %w", err)
	}
	if exec == nil {
		return nil, errors.New("datawindow: query executor is required")
	}
	if meta == nil {
		return nil, errors.New("datawindow: dataset metadata is required")
	}

	s := &Store{
		cfg:     cfg,
		exec:    exec,
		meta:    meta,
		tracker: rangeset.New(),
		layout:  rowgroup.Empty(0),
		log:     logging.WithComponent("datawindow"),
		fg:      scope{name: metrics.ScopeForeground},
		pf:      scope{name: metrics.ScopePrefetch},
		sg:      scope{name: metrics.ScopeSearch},
	}

	allow := cfg.Groupable
	if len(allow) == 0 {
		allow = meta.Groupable
	}
	s.groupable = make(map[string]bool, len(allow))
	for _, name := range allow {
		if meta.IsDimension(name) {
			s.groupable[name] = true
		}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Metadata returns the dataset catalog the store was created with.
func (s *Store) Metadata() *models.DatasetMetadata {
	return s.meta
}

// Query returns a copy of the current query.
func (s *Store) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.Clone()
}

// SetQuery applies a new grid configuration. A structural change resets the
// store to EMPTY and reports true; a change of visible metrics only
// re-projects the buffered rows and reports false.
func (s *Store) SetQuery(q Query) (bool, error) {
	if err := q.validate(s.meta); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	if !s.configured || !s.query.StructurallyEqual(q) {
		s.query = q.Clone()
		s.configured = true
		s.resetLocked()
		s.log.Debug().Strs("dimensions", q.Dimensions).Uint64("generation", s.generation).Msg("Structural change, buffer reset")
		return true, nil
	}

	if !slices.Equal(s.query.Metrics, q.Metrics) {
		s.query.Metrics = slices.Clone(q.Metrics)
		s.reprojectLocked()
	}
	return false, nil
}

// SetVisibleMetrics changes the visible metric columns. It never fetches.
func (s *Store) SetVisibleMetrics(names []string) error {
	for _, m := range names {
		if !s.meta.IsMetric(m) {
			return fmt.Errorf("%w: metric %q", ErrUnknownColumn, m)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.query.Metrics = slices.Clone(names)
	s.reprojectLocked()
	return nil
}

// resetLocked clears all data and cancels the foreground and prefetch scopes.
func (s *Store) resetLocked() {
	s.generation++
	s.fg.stop()
	s.pf.stop()

	s.columns = nil
	s.columnTypes = nil
	s.buffer = nil
	s.tracker.Reset()
	s.evicted = 0
	s.totalRows = 0
	s.exhausted = false
	s.loaded = false
	s.initialLoading = false
	s.moreLoading = false
	s.prefetching = false
	s.err = nil
	s.failed = opNone
	s.reprojectLocked()
}

// begin starts a request in sc, cancelling its predecessor.
func (s *Store) begin(ctx context.Context, sc *scope) (context.Context, uint64) {
	sc.stop()
	s.seq++
	fctx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel
	sc.token = s.seq
	return fctx, sc.token
}

// finish reports whether the request identified by token and gen may apply
// its result, and releases the scope when it may.
func (s *Store) finish(sc *scope, token, gen uint64) bool {
	if s.closed || sc.token != token || gen != s.generation {
		return false
	}
	sc.stop()
	return true
}

// request builds the collaborator request for [offset, offset+limit).
// All dataset metrics are requested so metric toggles stay local.
func (s *Store) request(offset, limit int) models.QueryRequest {
	q := s.query.Clone()
	return models.QueryRequest{
		Dimensions: q.Dimensions,
		Metrics:    s.meta.MetricNames(),
		Filters:    q.Filters,
		Sort:       q.Sort,
		Offset:     offset,
		Limit:      limit,
		Search:     q.Search,
		Comparison: q.Comparison,
	}
}

func (s *Store) logger(ctx context.Context) zerolog.Logger {
	l := s.log.With()
	if id := logging.SessionIDFromContext(ctx); id != "" {
		l = l.Str("session_id", id)
	}
	return l.Logger()
}

// LoadInitial fetches the first batch for the current query and replaces
// the buffer. On failure the buffer is cleared and Error is set.
func (s *Store) LoadInitial(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	fctx, token := s.begin(ctx, &s.fg)
	gen := s.generation
	s.initialLoading = true
	s.moreLoading = false
	s.configured = true
	req := s.request(0, s.cfg.BatchSize)
	s.mu.Unlock()

	log := s.logger(ctx)
	start := time.Now()
	res, err := s.exec.ExecuteQuery(fctx, req)
	if err == nil {
		err = validateResult(res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finish(&s.fg, token, gen) || (err != nil && IsSuperseded(err)) {
		metrics.RecordWindowFetch(metrics.ScopeInitial, metrics.OutcomeSuperseded, time.Since(start))
		log.Debug().Msg("Initial load superseded")
		if s.fg.token == token && gen == s.generation {
			s.initialLoading = false
		}
		return ErrSuperseded
	}
	s.initialLoading = false

	if err != nil {
		metrics.RecordWindowFetch(metrics.ScopeInitial, metrics.OutcomeError, time.Since(start))
		log.Warn().Err(err).Msg("Initial load failed")
		s.columns, s.columnTypes, s.buffer = nil, nil, nil
		s.tracker.Reset()
		s.evicted, s.totalRows = 0, 0
		s.loaded = false
		s.err = err
		s.failed = opInitial
		s.reprojectLocked()
		return err
	}

	metrics.RecordWindowFetch(metrics.ScopeInitial, metrics.OutcomeSuccess, time.Since(start))
	s.columns = slices.Clone(res.Columns)
	s.columnTypes = normalizeTypes(res.ColumnTypes, len(res.Columns))
	s.buffer = slices.Clone(res.Rows)
	s.tracker.Reset()
	if n := len(s.buffer); n > 0 {
		_ = s.tracker.Add(0, n) //nolint:errcheck // n > 0
	}
	s.evicted = 0
	s.totalRows = res.TotalRows
	s.exhausted = len(res.Rows) < req.Limit
	s.loaded = true
	s.err = nil
	s.failed = opNone
	s.evictLocked()
	s.reprojectLocked()

	log.Debug().
		Int("rows", len(res.Rows)).
		Int("total_rows", res.TotalRows).
		Bool("cached", res.Cached).
		Msg("Initial load applied")
	return nil
}

// RequestRange ensures server rows [offset, offset+limit) are buffered.
// Ranges already loaded return immediately without a fetch or state change.
// prefetch selects the prefetch scope; prefetch failures leave Error untouched.
func (s *Store) RequestRange(ctx context.Context, offset, limit int, prefetch bool) error {
	if limit <= 0 {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotReady
	}

	bufOff := offset - s.evicted
	if s.tracker.IsLoaded(bufOff, limit) {
		s.mu.Unlock()
		metrics.WindowDedupSkips.Inc()
		return nil
	}
	if bufOff < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: offset %d, evicted %d", ErrEvicted, offset, s.evicted)
	}
	if bufOff > len(s.buffer) {
		s.mu.Unlock()
		return fmt.Errorf("%w: offset %d, buffer ends at %d", ErrNonContiguous, offset, s.evicted+len(s.buffer))
	}

	sc, label := &s.fg, metrics.ScopeForeground
	if prefetch {
		sc, label = &s.pf, metrics.ScopePrefetch
		s.prefetching = true
	} else {
		s.initialLoading = false
		s.moreLoading = true
	}
	fctx, token := s.begin(ctx, sc)
	gen := s.generation
	req := s.request(offset, limit)
	s.mu.Unlock()

	log := s.logger(ctx).With().Str("scope", label).Int("offset", offset).Int("limit", limit).Logger()
	start := time.Now()
	res, err := s.exec.ExecuteQuery(fctx, req)
	if err == nil {
		err = validateResult(res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finish(sc, token, gen) || (err != nil && IsSuperseded(err)) {
		metrics.RecordWindowFetch(label, metrics.OutcomeSuperseded, time.Since(start))
		log.Debug().Msg("Range request superseded")
		if sc.token == token && gen == s.generation {
			s.clearInFlight(prefetch)
		}
		return ErrSuperseded
	}
	s.clearInFlight(prefetch)

	if err == nil {
		err = s.applyLocked(res, offset, limit)
	}
	if err != nil {
		metrics.RecordWindowFetch(label, metrics.OutcomeError, time.Since(start))
		if prefetch {
			log.Warn().Err(err).Msg("Prefetch failed")
			return err
		}
		log.Warn().Err(err).Msg("Load more failed")
		s.err = err
		s.failed = opMore
		return err
	}

	metrics.RecordWindowFetch(label, metrics.OutcomeSuccess, time.Since(start))
	if !prefetch {
		s.err = nil
		s.failed = opNone
	}
	log.Debug().Int("rows", len(res.Rows)).Int("buffer", len(s.buffer)).Int("evicted", s.evicted).Msg("Range applied")
	return nil
}

func (s *Store) clearInFlight(prefetch bool) {
	if prefetch {
		s.prefetching = false
	} else {
		s.moreLoading = false
	}
}

// applyLocked merges a range response into the buffer. Rows overlapping the
// buffer overwrite in place; rows evicted while the request was in flight
// are skipped.
func (s *Store) applyLocked(res *models.QueryResult, offset, requested int) error {
	if !slices.Equal(res.Columns, s.columns) {
		return fmt.Errorf("%w: got %v, buffered %v", ErrSchemaMismatch, res.Columns, s.columns)
	}

	start := offset - s.evicted
	rows := res.Rows
	if start < 0 {
		rows = rows[min(-start, len(rows)):]
		start = 0
	}
	if start > len(s.buffer) {
		return fmt.Errorf("%w: offset %d, buffer ends at %d", ErrNonContiguous, offset, s.evicted+len(s.buffer))
	}

	overlap := min(len(s.buffer)-start, len(rows))
	copy(s.buffer[start:], rows[:overlap])
	s.buffer = append(s.buffer, rows[overlap:]...)
	if len(rows) > 0 {
		if err := s.tracker.Add(start, start+len(rows)); err != nil {
			return err
		}
	}

	s.totalRows = res.TotalRows
	if offset+len(res.Rows) >= s.evicted+len(s.buffer) {
		// Only a response reaching the buffer tail says anything about exhaustion.
		s.exhausted = len(res.Rows) < requested
	}
	s.evictLocked()
	s.reprojectLocked()
	return nil
}

// evictLocked drops head rows beyond MaxRows and returns how many were dropped.
func (s *Store) evictLocked() int {
	excess := len(s.buffer) - s.cfg.MaxRows
	if excess <= 0 {
		return 0
	}
	s.buffer = slices.Clone(s.buffer[excess:])
	s.tracker.Shift(excess)
	s.evicted += excess
	metrics.RecordEviction(excess)
	s.log.Debug().Int("rows", excess).Int("evicted_total", s.evicted).Msg("Evicted head rows")
	return excess
}

// reprojectLocked rebuilds the visible projection and its group layout.
func (s *Store) reprojectLocked() {
	idx := make([]int, 0, len(s.query.Dimensions)+len(s.query.Metrics))
	for _, d := range s.query.Dimensions {
		if i := slices.Index(s.columns, d); i >= 0 {
			idx = append(idx, i)
		}
	}
	dimCount := len(idx)
	for _, m := range s.query.Metrics {
		if i := slices.Index(s.columns, m); i >= 0 {
			idx = append(idx, i)
		}
	}

	cols := make([]string, len(idx))
	types := make([]string, len(idx))
	for j, i := range idx {
		cols[j] = s.columns[i]
		types[j] = s.columnTypes[i]
	}

	visible := make([][]any, len(s.buffer))
	for r, row := range s.buffer {
		out := make([]any, len(idx))
		for j, i := range idx {
			out[j] = row[i]
		}
		visible[r] = out
	}

	var groupable []int
	for j := 0; j < dimCount; j++ {
		if s.groupable[cols[j]] {
			groupable = append(groupable, j)
		}
	}

	layout, err := rowgroup.Compute(visible, groupable, dimCount)
	if err != nil {
		// Projection guarantees ascending dimension indices and full-width rows.
		s.log.Error().Err(err).Msg("Group layout failed")
		layout = rowgroup.Empty(len(visible))
	}

	s.visibleCols = cols
	s.visibleTypes = types
	s.visible = visible
	s.dimCount = dimCount
	s.layout = layout
}

// LoadMore requests the next batch in the foreground scope. It is a no-op
// when the server has no more rows.
func (s *Store) LoadMore(ctx context.Context) error {
	offset, ok := s.next()
	if !ok {
		return nil
	}
	return s.RequestRange(ctx, offset, s.cfg.BatchSize, false)
}

// Prefetch requests the next batch in the prefetch scope. It is a no-op when
// the server has no more rows.
func (s *Store) Prefetch(ctx context.Context) error {
	offset, ok := s.next()
	if !ok {
		return nil
	}
	return s.RequestRange(ctx, offset, s.cfg.BatchSize, true)
}

func (s *Store) next() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || !s.hasMoreLocked() {
		return 0, false
	}
	return s.evicted + len(s.buffer), true
}

// Retry re-issues the last failed foreground operation. With nothing to
// retry it loads the initial batch if the store is empty.
func (s *Store) Retry(ctx context.Context) error {
	s.mu.Lock()
	op, loaded := s.failed, s.loaded
	s.mu.Unlock()

	switch {
	case op == opInitial || !loaded:
		return s.LoadInitial(ctx)
	case op == opMore:
		return s.LoadMore(ctx)
	default:
		return nil
	}
}

// Suggest returns autocomplete suggestions for text across the current
// dimensions. It runs in its own scope and never affects the buffer.
func (s *Store) Suggest(ctx context.Context, text string) (*models.SearchResults, error) {
	if s.search == nil {
		return nil, ErrNoSearchProvider
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	fctx, token := s.begin(ctx, &s.sg)
	req := models.SearchRequest{
		Text:    text,
		Columns: slices.Clone(s.query.Dimensions),
		Limit:   s.cfg.SuggestLimit,
	}
	s.mu.Unlock()

	if text == "" {
		s.mu.Lock()
		if s.sg.token == token {
			s.sg.stop()
		}
		s.mu.Unlock()
		return &models.SearchResults{Results: []models.SearchResult{}}, nil
	}

	start := time.Now()
	res, err := s.search.Search(fctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.sg.token != token || (err != nil && IsSuperseded(err)) {
		metrics.RecordWindowFetch(metrics.ScopeSearch, metrics.OutcomeSuperseded, time.Since(start))
		return nil, ErrSuperseded
	}
	s.sg.stop()
	if err != nil {
		metrics.RecordWindowFetch(metrics.ScopeSearch, metrics.OutcomeError, time.Since(start))
		log := s.logger(ctx)
		log.Warn().Err(err).Str("text", text).Msg("Search suggestions failed")
		return nil, err
	}
	metrics.RecordWindowFetch(metrics.ScopeSearch, metrics.OutcomeSuccess, time.Since(start))
	return res, nil
}

// HasMore reports whether the server holds rows past the buffer.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMoreLocked()
}

func (s *Store) hasMoreLocked() bool {
	if !s.loaded || s.exhausted {
		return false
	}
	return s.evicted+len(s.buffer) < s.totalRows
}

func (s *Store) stateLocked() State {
	switch {
	case s.initialLoading:
		return StateLoadingInitial
	case !s.loaded:
		return StateEmpty
	case s.moreLoading:
		return StateLoadingMore
	case s.prefetching:
		return StatePrefetching
	default:
		return StateReady
	}
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Err returns the last foreground error, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns the visible projection and status flags.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// View returns a snapshot together with the group layout computed over the
// same rows.
func (s *Store) View() (Snapshot, *rowgroup.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), s.layout
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Columns:        slices.Clone(s.visibleCols),
		ColumnTypes:    slices.Clone(s.visibleTypes),
		Data:           s.visible,
		TotalRows:      s.totalRows,
		BufferLength:   len(s.buffer),
		Evicted:        s.evicted,
		Loading:        s.initialLoading || s.moreLoading,
		Prefetching:    s.prefetching,
		HasMore:        s.hasMoreLocked(),
		Error:          s.err,
		State:          s.stateLocked(),
		Epoch:          s.evicted + len(s.buffer),
		Generation:     s.generation,
		DimensionCount: s.dimCount,
	}
}

// Layout returns the group layout over the visible projection.
func (s *Store) Layout() *rowgroup.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// LoadedRanges returns the loaded ranges in buffer coordinates.
func (s *Store) LoadedRanges() []rangeset.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Ranges()
}

// AllColumns returns every fetched column, visible or not.
func (s *Store) AllColumns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.columns)
}

// Close cancels every in-flight request. Later calls return ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.fg.stop()
	s.pf.stop()
	s.sg.stop()
	s.buffer = nil
	s.visible = nil
	s.layout = rowgroup.Empty(0)
}

func validateResult(res *models.QueryResult) error {
	if res == nil {
		return fmt.Errorf("%w: nil result", ErrSchemaMismatch)
	}
	for i, row := range res.Rows {
		if len(row) != len(res.Columns) {
			return fmt.Errorf("%w: row %d has %d cells for %d columns", ErrSchemaMismatch, i, len(row), len(res.Columns))
		}
	}
	return nil
}

func normalizeTypes(types []string, n int) []string {
	out := make([]string, n)
	copy(out, types)
	return out
}
