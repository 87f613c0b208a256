// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/gridscope/internal/database/query"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/metrics"
	"github.com/tomtom215/gridscope/internal/models"
)

const (
	// DefaultFilterValuesLimit caps FilterValues when no limit is given.
	DefaultFilterValuesLimit = 500
	// MaxFilterValuesLimit is the largest accepted FilterValues limit.
	MaxFilterValuesLimit = 10000
	// DefaultSearchLimit caps Search when no limit is given.
	DefaultSearchLimit = 10
	// MaxSearchLimit is the largest accepted Search limit.
	MaxSearchLimit = 100
)

// ExecuteQuery runs a grouped query and returns one page of rows together
// with the total number of groups. The page and count statements run
// concurrently on separate connections.
func (db *DB) ExecuteQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	stmts, err := db.builder.Grouped(&req)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result := &models.QueryResult{Columns: stmts.Columns}
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.conn.QueryRowContext(gctx, stmts.Count.SQL, stmts.Count.Args...).Scan(&total)
	})
	g.Go(func() error {
		rows, types, err := db.scanRows(gctx, stmts.Page)
		if err != nil {
			return err
		}
		result.Rows = rows
		result.ColumnTypes = types
		return nil
	})
	err = g.Wait()

	elapsed := time.Since(start)
	metrics.RecordDBQuery("grid_query", db.table, elapsed, err)
	if err != nil {
		return nil, classifyError("grid query", err)
	}

	result.TotalRows = int(total)
	result.QueryTimeMs = elapsed.Milliseconds()

	logging.Debug().
		Str("component", "database").
		Strs("dimensions", req.Dimensions).
		Int("offset", req.Offset).
		Int("limit", req.Limit).
		Int("rows", len(result.Rows)).
		Int("total", result.TotalRows).
		Dur("duration", elapsed).
		Msg("Grid query executed")

	return result, nil
}

// scanRows executes stmt and returns the normalized rows and the DuckDB
// type name of every column.
func (db *DB) scanRows(ctx context.Context, stmt query.Statement) ([][]any, []string, error) {
	rows, err := db.conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, nil, err
	}
	defer closeWithLog(rows, "rows")

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, err
	}
	types := make([]string, len(colTypes))
	for i, ct := range colTypes {
		types[i] = ct.DatabaseTypeName()
	}

	out := make([][]any, 0, 64)
	for rows.Next() {
		raw := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range raw {
			raw[i] = normalizeValue(v)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, types, nil
}

// FilterValues lists the distinct values of a dimension column in ascending
// order, at most limit of them.
func (db *DB) FilterValues(ctx context.Context, column string, limit int) (*models.FilterValues, error) {
	limit = clampLimit(limit, DefaultFilterValuesLimit, MaxFilterValuesLimit)
	stmt, err := db.builder.DistinctValues(column, limit)
	if err != nil {
		return nil, fmt.Errorf("invalid filter values request: %w", err)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	values, err := queryAndScan(ctx, db.conn, stmt.SQL, stmt.Args, scanString)
	metrics.RecordDBQuery("filter_values", db.table, time.Since(start), err)
	if err != nil {
		return nil, classifyError("filter values", err)
	}
	if values == nil {
		values = []string{}
	}
	return &models.FilterValues{Column: column, Values: values}, nil
}

// Search returns autocomplete suggestions for text across the requested
// dimension columns (all dimensions when none are given). Columns are
// searched in order until the limit is reached.
func (db *DB) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResults, error) {
	limit := clampLimit(req.Limit, DefaultSearchLimit, MaxSearchLimit)
	columns := req.Columns
	if len(columns) == 0 {
		columns = db.builder.Dimensions()
	}
	for _, col := range columns {
		if !db.builder.IsDimension(col) {
			return nil, fmt.Errorf("invalid search request: %w: dimension %q", query.ErrUnknownColumn, col)
		}
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	out := &models.SearchResults{Results: []models.SearchResult{}}
	if req.Text == "" {
		return out, nil
	}

	start := time.Now()
	var err error
	for _, col := range columns {
		remaining := limit - len(out.Results)
		if remaining <= 0 {
			break
		}
		var stmt query.Statement
		stmt, err = db.builder.SearchValues(col, req.Text, remaining)
		if err != nil {
			break
		}
		var values []string
		values, err = queryAndScan(ctx, db.conn, stmt.SQL, stmt.Args, scanString)
		if err != nil {
			break
		}
		label := db.columnLabel(col)
		for _, v := range values {
			out.Results = append(out.Results, models.SearchResult{
				Column: col,
				Value:  v,
				Label:  fmt.Sprintf("%s: %s", label, v),
			})
		}
	}
	metrics.RecordDBQuery("search", db.table, time.Since(start), err)
	if err != nil {
		return nil, classifyError("search", err)
	}
	return out, nil
}

func (db *DB) columnLabel(name string) string {
	for _, d := range db.meta.Dimensions {
		if d.Name == name {
			return d.Label
		}
	}
	return name
}

func scanString(rows *sql.Rows) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
