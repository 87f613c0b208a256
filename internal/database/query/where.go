// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package query

import (
	"fmt"
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
// Column arguments must already be quoted identifiers (see QuoteIdent).
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddIn(`"region"`, []string{"EMEA", "APAC"})
//	wb.AddContainsAny([]string{`"region"`, `"country"`}, "fra")
//	whereClause, args := wb.Build()
//	// CAST("region" AS VARCHAR) IN (?, ?) AND (CAST("region" AS VARCHAR) ILIKE ? ... OR ...)
type WhereBuilder struct {
	clauses []string
	args    []any
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw WHERE clause with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...any) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddIn adds "column IN (?, ...)". An empty values slice is skipped.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	return wb.addSet(column, "IN", values)
}

// AddNotIn adds "column NOT IN (?, ...)". Rows with a NULL column are kept.
func (wb *WhereBuilder) AddNotIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	wb.addSet(column, "NOT IN", values)
	last := len(wb.clauses) - 1
	wb.clauses[last] = fmt.Sprintf("(%s OR %s IS NULL)", wb.clauses[last], column)
	return wb
}

func (wb *WhereBuilder) addSet(column, op string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("CAST(%s AS VARCHAR) %s (%s)", column, op, strings.Join(placeholders, ", ")))
	return wb
}

// AddContainsAny adds a case-insensitive substring match of text against any
// of the columns. Empty text or no columns is skipped.
func (wb *WhereBuilder) AddContainsAny(columns []string, text string) *WhereBuilder {
	if text == "" || len(columns) == 0 {
		return wb
	}
	pattern := ContainsPattern(text)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf(`CAST(%s AS VARCHAR) ILIKE ? ESCAPE '\'`, col)
		wb.args = append(wb.args, pattern)
	}
	if len(parts) == 1 {
		wb.clauses = append(wb.clauses, parts[0])
	} else {
		wb.clauses = append(wb.clauses, "("+strings.Join(parts, " OR ")+")")
	}
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", []any{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix, or an empty
// string when no clauses were added.
func (wb *WhereBuilder) BuildWithPrefix() (string, []any) {
	if len(wb.clauses) == 0 {
		return "", []any{}
	}
	clause, args := wb.Build()
	return "WHERE " + clause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

// likeEscaper escapes LIKE wildcards so user text matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns an ILIKE pattern matching text anywhere, with
// wildcards in text escaped (ESCAPE '\').
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

// QuoteIdent double-quotes a SQL identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
