// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/tomtom215/gridscope/internal/models"
)

// numericTypes are DuckDB column types exposed as metrics.
var numericTypes = map[string]bool{
	"TINYINT":   true,
	"SMALLINT":  true,
	"INTEGER":   true,
	"BIGINT":    true,
	"HUGEINT":   true,
	"UTINYINT":  true,
	"USMALLINT": true,
	"UINTEGER":  true,
	"UBIGINT":   true,
	"UHUGEINT":  true,
	"FLOAT":     true,
	"REAL":      true,
	"DOUBLE":    true,
}

func isNumericType(dataType string) bool {
	t := strings.ToUpper(strings.TrimSpace(dataType))
	return numericTypes[t] || strings.HasPrefix(t, "DECIMAL") || strings.HasPrefix(t, "NUMERIC")
}

// schemaColumn is one row of information_schema.columns.
type schemaColumn struct {
	Name     string
	DataType string
}

// loadMetadata builds the dimension and metric catalog from the table schema,
// restricted and ordered by the configured column lists when present.
func (db *DB) loadMetadata(ctx context.Context) (*models.DatasetMetadata, error) {
	cols, err := queryAndScan(ctx, db.conn,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_name = ? AND table_schema = 'main' ORDER BY ordinal_position`,
		[]any{db.table},
		func(rows *sql.Rows) (schemaColumn, error) {
			var c schemaColumn
			err := rows.Scan(&c.Name, &c.DataType)
			return c, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", db.table, err)
	}
	return buildMetadata(db.table, cols, db.cfg.Dimensions, db.cfg.Metrics, db.cfg.Groupable)
}

// buildMetadata classifies schema columns. Explicit dims/metrics lists select
// and order the columns; otherwise numeric columns become metrics and the
// rest dimensions. An empty groupable list makes every dimension groupable.
func buildMetadata(table string, cols []schemaColumn, dims, metrics, groupable []string) (*models.DatasetMetadata, error) {
	byName := make(map[string]schemaColumn, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	lookup := func(name string) (schemaColumn, error) {
		c, ok := byName[name]
		if !ok {
			return c, fmt.Errorf("column %q not found in table %s", name, table)
		}
		return c, nil
	}

	meta := &models.DatasetMetadata{Table: table}

	if len(dims) == 0 && len(metrics) == 0 {
		for _, c := range cols {
			if isNumericType(c.DataType) {
				metrics = append(metrics, c.Name)
			} else {
				dims = append(dims, c.Name)
			}
		}
	}

	for _, name := range dims {
		c, err := lookup(name)
		if err != nil {
			return nil, err
		}
		meta.Dimensions = append(meta.Dimensions, models.Dimension{
			Name:  c.Name,
			Label: humanize(c.Name),
			Type:  c.DataType,
		})
	}
	for _, name := range metrics {
		c, err := lookup(name)
		if err != nil {
			return nil, err
		}
		if !isNumericType(c.DataType) {
			return nil, fmt.Errorf("metric column %q has non-numeric type %s", name, c.DataType)
		}
		meta.Metrics = append(meta.Metrics, models.Metric{
			Name:        c.Name,
			Label:       humanize(c.Name),
			Type:        c.DataType,
			Aggregation: "sum",
		})
	}

	if len(groupable) == 0 {
		meta.Groupable = meta.DimensionNames()
	} else {
		for _, name := range groupable {
			if !meta.IsDimension(name) {
				return nil, fmt.Errorf("groupable column %q is not a dimension", name)
			}
			meta.Groupable = append(meta.Groupable, name)
		}
	}

	if len(meta.Dimensions)+len(meta.Metrics) == 0 {
		return nil, fmt.Errorf("table %s has no usable columns", table)
	}
	return meta, nil
}

// humanize turns a column name like "order_date" into "Order Date".
func humanize(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
