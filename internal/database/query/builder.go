// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/gridscope/internal/models"
)

// Sentinel errors for rejected requests. All of them describe bad input.
var (
	ErrUnknownColumn     = errors.New("unknown column")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrNoColumns         = errors.New("query selects no columns")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidComparison = errors.New("invalid comparison")
	ErrInvalidPage       = errors.New("invalid offset or limit")
)

// aggregations maps metric aggregation names to SQL functions.
var aggregations = map[string]string{
	"":      "SUM",
	"sum":   "SUM",
	"avg":   "AVG",
	"min":   "MIN",
	"max":   "MAX",
	"count": "COUNT",
}

// comparisonOps maps comparison operator names to SQL operators.
var comparisonOps = map[string]string{
	models.CompareGT:  ">",
	models.CompareGTE: ">=",
	models.CompareLT:  "<",
	models.CompareLTE: "<=",
	models.CompareEQ:  "=",
}

// Statement is a SQL string with its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Grouped is the SQL for one page of a grouped query and for the total
// number of groups.
type Grouped struct {
	Page    Statement
	Count   Statement
	Columns []string
}

// Builder generates SQL for one dataset table. Column names are checked
// against the dataset metadata and always emitted as quoted identifiers;
// values are always bound as arguments.
type Builder struct {
	table   string
	dims    map[string]bool
	dimList []string
	metrics map[string]string // name -> SQL aggregate function
}

// NewBuilder creates a builder from dataset metadata.
func NewBuilder(meta *models.DatasetMetadata) (*Builder, error) {
	if meta == nil || meta.Table == "" {
		return nil, errors.New("query: dataset metadata with a table name is required")
	}
	b := &Builder{
		table:   QuoteIdent(meta.Table),
		dims:    make(map[string]bool, len(meta.Dimensions)),
		metrics: make(map[string]string, len(meta.Metrics)),
	}
	for _, d := range meta.Dimensions {
		b.dims[d.Name] = true
		b.dimList = append(b.dimList, d.Name)
	}
	for _, m := range meta.Metrics {
		fn, ok := aggregations[strings.ToLower(m.Aggregation)]
		if !ok {
			return nil, fmt.Errorf("query: metric %q has unsupported aggregation %q", m.Name, m.Aggregation)
		}
		b.metrics[m.Name] = fn
	}
	return b, nil
}

// Table returns the quoted table name.
func (b *Builder) Table() string {
	return b.table
}

// Aggregate returns the aggregate expression for a metric, e.g. SUM("revenue").
func (b *Builder) Aggregate(metric string) (string, error) {
	fn, ok := b.metrics[metric]
	if !ok {
		return "", fmt.Errorf("%w: metric %q", ErrUnknownColumn, metric)
	}
	return fmt.Sprintf("%s(%s)", fn, QuoteIdent(metric)), nil
}

func (b *Builder) dimension(name string) (string, error) {
	if !b.dims[name] {
		return "", fmt.Errorf("%w: dimension %q", ErrUnknownColumn, name)
	}
	return QuoteIdent(name), nil
}

// Grouped builds the page and count statements for a grouped request.
//
// The page selects the requested dimensions followed by the aggregated
// metrics, grouped by the dimensions. Rows are ordered by the requested sort
// keys, then by every remaining dimension in request order so pages are
// stable and equal dimension values stay contiguous.
func (b *Builder) Grouped(req *models.QueryRequest) (*Grouped, error) {
	if req.Offset < 0 || req.Limit < 1 {
		return nil, fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidPage, req.Offset, req.Limit)
	}
	if len(req.Dimensions)+len(req.Metrics) == 0 {
		return nil, ErrNoColumns
	}

	seen := make(map[string]bool, len(req.Dimensions)+len(req.Metrics))
	columns := make([]string, 0, len(req.Dimensions)+len(req.Metrics))
	selects := make([]string, 0, cap(columns))
	groupBy := make([]string, 0, len(req.Dimensions))

	for _, name := range req.Dimensions {
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = true
		col, err := b.dimension(name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, name)
		selects = append(selects, col)
		groupBy = append(groupBy, col)
	}
	for _, name := range req.Metrics {
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = true
		agg, err := b.Aggregate(name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, name)
		selects = append(selects, fmt.Sprintf("%s AS %s", agg, QuoteIdent(name)))
	}

	where, whereArgs, err := b.where(req)
	if err != nil {
		return nil, err
	}
	having, havingArgs, err := b.having(req.Comparison)
	if err != nil {
		return nil, err
	}
	orderBy, err := b.orderBy(req)
	if err != nil {
		return nil, err
	}

	var core strings.Builder
	fmt.Fprintf(&core, "SELECT %s FROM %s", strings.Join(selects, ", "), b.table)
	if where != "" {
		core.WriteString(" " + where)
	}
	if len(groupBy) > 0 {
		core.WriteString(" GROUP BY " + strings.Join(groupBy, ", "))
	}
	if having != "" {
		core.WriteString(" " + having)
	}

	baseArgs := make([]any, 0, len(whereArgs)+len(havingArgs)+2)
	baseArgs = append(baseArgs, whereArgs...)
	baseArgs = append(baseArgs, havingArgs...)

	page := core.String()
	if orderBy != "" {
		page += " " + orderBy
	}
	page += " LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, baseArgs...), req.Limit, req.Offset)

	return &Grouped{
		Page:    Statement{SQL: page, Args: pageArgs},
		Count:   Statement{SQL: fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS grouped", core.String()), Args: baseArgs},
		Columns: columns,
	}, nil
}

func (b *Builder) where(req *models.QueryRequest) (string, []any, error) {
	wb := NewWhereBuilder()
	for i := range req.Filters {
		f := &req.Filters[i]
		col, err := b.dimension(f.Column)
		if err != nil {
			return "", nil, err
		}
		if len(f.Values) == 0 {
			return "", nil, fmt.Errorf("%w: %q has no values", ErrInvalidFilter, f.Column)
		}
		switch f.Operator {
		case "", models.FilterOpIn:
			wb.AddIn(col, f.Values)
		case models.FilterOpNotIn:
			wb.AddNotIn(col, f.Values)
		case models.FilterOpEq:
			wb.AddIn(col, f.Values[:1])
		case models.FilterOpNeq:
			wb.AddNotIn(col, f.Values[:1])
		case models.FilterOpContains:
			wb.AddContainsAny([]string{col}, f.Values[0])
		default:
			return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidFilter, f.Operator)
		}
	}

	if req.Search != "" {
		cols := make([]string, 0, len(req.Dimensions))
		for _, name := range req.Dimensions {
			cols = append(cols, QuoteIdent(name))
		}
		wb.AddContainsAny(cols, req.Search)
	}

	clause, args := wb.BuildWithPrefix()
	return clause, args, nil
}

func (b *Builder) having(c *models.Comparison) (string, []any, error) {
	if c == nil {
		return "", nil, nil
	}
	op, ok := comparisonOps[c.Operator]
	if !ok {
		return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidComparison, c.Operator)
	}
	agg, err := b.Aggregate(c.Metric)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("HAVING %s %s ?", agg, op), []any{c.Value}, nil
}

func (b *Builder) orderBy(req *models.QueryRequest) (string, error) {
	selected := make(map[string]bool, len(req.Dimensions)+len(req.Metrics))
	for _, name := range req.Dimensions {
		selected[name] = true
	}
	for _, name := range req.Metrics {
		selected[name] = true
	}

	terms := make([]string, 0, len(req.Sort)+len(req.Dimensions))
	used := make(map[string]bool, len(req.Sort))
	for _, key := range req.Sort {
		if !selected[key.Column] {
			return "", fmt.Errorf("%w: sort column %q is not selected", ErrUnknownColumn, key.Column)
		}
		if used[key.Column] {
			continue
		}
		used[key.Column] = true

		expr := QuoteIdent(key.Column)
		if !b.dims[key.Column] {
			agg, err := b.Aggregate(key.Column)
			if err != nil {
				return "", err
			}
			expr = agg
		}
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		terms = append(terms, fmt.Sprintf("%s %s NULLS LAST", expr, dir))
	}
	for _, name := range req.Dimensions {
		if !used[name] {
			terms = append(terms, QuoteIdent(name)+" ASC NULLS LAST")
		}
	}
	if len(terms) == 0 {
		return "", nil
	}
	return "ORDER BY " + strings.Join(terms, ", "), nil
}

// DistinctValues builds a statement listing distinct non-null values of a
// dimension as strings, in ascending order.
func (b *Builder) DistinctValues(column string, limit int) (Statement, error) {
	col, err := b.dimension(column)
	if err != nil {
		return Statement{}, err
	}
	if limit < 1 {
		return Statement{}, fmt.Errorf("%w: limit=%d", ErrInvalidPage, limit)
	}
	sql := fmt.Sprintf(
		"SELECT DISTINCT CAST(%s AS VARCHAR) FROM %s WHERE %s IS NOT NULL ORDER BY 1 LIMIT ?",
		col, b.table, col)
	return Statement{SQL: sql, Args: []any{limit}}, nil
}

// SearchValues builds a statement returning distinct values of a dimension
// containing text (case-insensitive), shortest match first.
func (b *Builder) SearchValues(column, text string, limit int) (Statement, error) {
	col, err := b.dimension(column)
	if err != nil {
		return Statement{}, err
	}
	if limit < 1 {
		return Statement{}, fmt.Errorf("%w: limit=%d", ErrInvalidPage, limit)
	}
	wb := NewWhereBuilder().AddContainsAny([]string{col}, text)
	where, args := wb.Build()
	sql := fmt.Sprintf(
		"SELECT CAST(%[1]s AS VARCHAR) FROM %[2]s WHERE %[3]s AND %[1]s IS NOT NULL GROUP BY 1 ORDER BY length(CAST(%[1]s AS VARCHAR)), 1 LIMIT ?",
		col, b.table, where)
	return Statement{SQL: sql, Args: append(args, limit)}, nil
}

// Dimensions returns the dimension names in catalog order.
func (b *Builder) Dimensions() []string {
	return append([]string(nil), b.dimList...)
}

// IsDimension reports whether name is a known dimension.
func (b *Builder) IsDimension(name string) bool {
	return b.dims[name]
}
