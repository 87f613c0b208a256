// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/gridscope/internal/database/query"
	"github.com/tomtom215/gridscope/internal/logging"
)

// sourceReaders maps file extensions to DuckDB table functions.
var sourceReaders = map[string]string{
	".csv":     "read_csv_auto",
	".tsv":     "read_csv_auto",
	".parquet": "read_parquet",
	".json":    "read_json_auto",
	".ndjson":  "read_json_auto",
	".jsonl":   "read_json_auto",
}

// sqlString renders s as a single-quoted SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// loadSource (re)creates the dataset table from a CSV, Parquet or JSON file.
func (db *DB) loadSource(ctx context.Context, source string) error {
	ext := strings.ToLower(filepath.Ext(source))
	reader, ok := sourceReaders[ext]
	if !ok {
		return fmt.Errorf("%w: unsupported source file type %q", ErrDatasetMissing, ext)
	}

	start := time.Now()
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s(%s)",
		query.QuoteIdent(db.table), reader, sqlString(source))
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to load source %s: %w", source, err)
	}

	logging.Info().
		Str("component", "database").
		Str("source", source).
		Str("table", db.table).
		Dur("duration", time.Since(start)).
		Msg("Loaded dataset from source file")
	return nil
}

// demoDataSQL generates a deterministic sales table. Each country belongs to
// exactly one region so the region/country hierarchy groups cleanly.
const demoDataSQL = `CREATE TABLE %s AS
SELECT
    ['North America', 'Europe', 'Asia Pacific', 'Latin America'][1 + (i %% 12) %% 4] AS region,
    ['United States', 'Germany', 'Japan', 'Brazil',
     'Canada', 'France', 'Australia', 'Argentina',
     'Mexico', 'United Kingdom', 'India', 'Chile'][1 + (i %% 12)] AS country,
    ['Electronics', 'Furniture', 'Office Supplies', 'Apparel'][1 + ((i // 12) %% 4)] AS category,
    'P' || lpad(CAST(1 + (hash(i) %% 200) AS VARCHAR), 3, '0') AS product,
    ['Online', 'Retail', 'Partner'][1 + (i %% 3)] AS channel,
    CAST(2023 + (i %% 3) AS VARCHAR) || '-Q' || CAST(1 + ((i // 3) %% 4) AS VARCHAR) AS quarter,
    round(10 + (hash(i * 31) %% 500000) / 100.0, 2) AS revenue,
    CAST(1 + (hash(i * 17) %% 20) AS BIGINT) AS units,
    round(5 + (hash(i * 7) %% 250000) / 100.0, 2) AS cost
FROM range(%d) AS t(i)`

// seedDemoData creates the demo dataset table with rows rows.
func (db *DB) seedDemoData(ctx context.Context, rows int) error {
	if rows <= 0 {
		rows = 50000
	}
	start := time.Now()
	if _, err := db.conn.ExecContext(ctx, fmt.Sprintf(demoDataSQL, query.QuoteIdent(db.table), rows)); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	logging.Info().
		Str("component", "database").
		Str("table", db.table).
		Int("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("Seeded demo dataset")
	return nil
}

// tableExists reports whether the dataset table exists in the main schema.
func (db *DB) tableExists(ctx context.Context) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ? AND table_schema = 'main'",
		db.table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", db.table, err)
	}
	return n > 0, nil
}
