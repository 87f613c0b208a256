// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/database/query"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/models"
)

// DB wraps the DuckDB connection and serves grouped queries over one
// dataset table.
type DB struct {
	conn    *sql.DB
	cfg     *config.DatabaseConfig
	table   string
	meta    *models.DatasetMetadata
	builder *query.Builder
}

// New opens the database, prepares the dataset table and loads its metadata.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		// 0750 per gosec G301
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	// Extensions are never auto-installed; read_csv/read_parquet are built in.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:  conn,
		cfg:   cfg,
		table: cfg.Table,
	}

	if err := db.configureConnectionPool(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.enableProfiling(); err != nil {
		logging.Warn().Err(err).Msg("Query profiling not enabled")
	}

	return db, nil
}

// initialize prepares the dataset table and loads metadata.
func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch {
	case db.cfg.Source != "":
		if err := db.loadSource(ctx, db.cfg.Source); err != nil {
			return err
		}
	case db.cfg.SeedDemoData:
		exists, err := db.tableExists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			if err := db.seedDemoData(ctx, db.cfg.DemoRows); err != nil {
				return err
			}
		}
	}

	exists, err := db.tableExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %q", ErrDatasetMissing, db.table)
	}

	meta, err := db.loadMetadata(ctx)
	if err != nil {
		return err
	}
	builder, err := query.NewBuilder(meta)
	if err != nil {
		return err
	}
	db.meta = meta
	db.builder = builder

	logging.Info().
		Str("component", "database").
		Str("table", db.table).
		Int("dimensions", len(meta.Dimensions)).
		Int("metrics", len(meta.Metrics)).
		Msg("Dataset ready")
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Conn returns the underlying SQL database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Table returns the dataset table name.
func (db *DB) Table() string {
	return db.table
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	return nil
}

// GetMetadata returns a copy of the dataset catalog.
func (db *DB) GetMetadata(_ context.Context) (*models.DatasetMetadata, error) {
	if db.meta == nil {
		return nil, errors.New("database: metadata not loaded")
	}
	return db.meta.Clone(), nil
}
