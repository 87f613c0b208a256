// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tomtom215/gridscope/internal/models"
)

func testMetadata() *models.DatasetMetadata {
	return &models.DatasetMetadata{
		Table: "sales",
		Dimensions: []models.Dimension{
			{Name: "region"}, {Name: "country"}, {Name: "product"},
		},
		Metrics: []models.Metric{
			{Name: "revenue", Aggregation: "sum"},
			{Name: "price", Aggregation: "avg"},
		},
	}
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(testMetadata())
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	if !wb.IsEmpty() || wb.Count() != 0 {
		t.Error("Expected new builder to be empty")
	}
	clause, args := wb.Build()
	if clause != "1=1" || len(args) != 0 {
		t.Errorf("Build() = %q, %v", clause, args)
	}
	if prefixed, _ := wb.BuildWithPrefix(); prefixed != "" {
		t.Errorf("BuildWithPrefix() = %q, want empty", prefixed)
	}
}

func TestWhereBuilder_Clauses(t *testing.T) {
	wb := NewWhereBuilder().
		AddIn(`"region"`, []string{"EMEA", "APAC"}).
		AddNotIn(`"country"`, []string{"FR"}).
		AddIn(`"product"`, nil).
		AddContainsAny([]string{`"region"`, `"country"`}, "50%_off")

	clause, args := wb.Build()
	want := `CAST("region" AS VARCHAR) IN (?, ?)` +
		` AND (CAST("country" AS VARCHAR) NOT IN (?) OR "country" IS NULL)` +
		` AND (CAST("region" AS VARCHAR) ILIKE ? ESCAPE '\' OR CAST("country" AS VARCHAR) ILIKE ? ESCAPE '\')`
	if clause != want {
		t.Errorf("Build() clause =\n%s\nwant\n%s", clause, want)
	}
	wantArgs := []any{"EMEA", "APAC", "FR", `%50\%\_off%`, `%50\%\_off%`}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("Build() args = %v, want %v", args, wantArgs)
	}
	if wb.Count() != 3 {
		t.Errorf("Count() = %d, want 3 (empty IN skipped)", wb.Count())
	}
}

func TestQuoteIdent(t *testing.T) {
	tests := map[string]string{
		"region":     `"region"`,
		`we"ird`:     `"we""ird"`,
		"Order Date": `"Order Date"`,
	}
	for in, want := range tests {
		if got := QuoteIdent(in); got != want {
			t.Errorf("QuoteIdent(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestBuilder_Grouped(t *testing.T) {
	b := newTestBuilder(t)

	g, err := b.Grouped(&models.QueryRequest{
		Dimensions: []string{"region", "country"},
		Metrics:    []string{"revenue", "price"},
		Filters:    []models.Filter{{Column: "region", Operator: models.FilterOpIn, Values: []string{"EMEA"}}},
		Sort:       []models.SortKey{{Column: "revenue", Desc: true}},
		Search:     "fr",
		Comparison: &models.Comparison{Metric: "revenue", Operator: models.CompareGT, Value: 100},
		Offset:     2000,
		Limit:      2000,
	})
	if err != nil {
		t.Fatalf("Grouped() error = %v", err)
	}

	wantCore := `SELECT "region", "country", SUM("revenue") AS "revenue", AVG("price") AS "price" FROM "sales"` +
		` WHERE CAST("region" AS VARCHAR) IN (?)` +
		` AND (CAST("region" AS VARCHAR) ILIKE ? ESCAPE '\' OR CAST("country" AS VARCHAR) ILIKE ? ESCAPE '\')` +
		` GROUP BY "region", "country" HAVING SUM("revenue") > ?`
	wantPage := wantCore +
		` ORDER BY SUM("revenue") DESC NULLS LAST, "region" ASC NULLS LAST, "country" ASC NULLS LAST LIMIT ? OFFSET ?`
	if g.Page.SQL != wantPage {
		t.Errorf("page SQL =\n%s\nwant\n%s", g.Page.SQL, wantPage)
	}
	if want := "SELECT COUNT(*) FROM (" + wantCore + ") AS grouped"; g.Count.SQL != want {
		t.Errorf("count SQL =\n%s\nwant\n%s", g.Count.SQL, want)
	}

	wantArgs := []any{"EMEA", "%fr%", "%fr%", 100.0}
	if !reflect.DeepEqual(g.Count.Args, wantArgs) {
		t.Errorf("count args = %v, want %v", g.Count.Args, wantArgs)
	}
	if !reflect.DeepEqual(g.Page.Args, append(wantArgs, 2000, 2000)) {
		t.Errorf("page args = %v", g.Page.Args)
	}
	if !reflect.DeepEqual(g.Columns, []string{"region", "country", "revenue", "price"}) {
		t.Errorf("columns = %v", g.Columns)
	}
}

func TestBuilder_GroupedDefaults(t *testing.T) {
	b := newTestBuilder(t)

	t.Run("dimension order is the default sort", func(t *testing.T) {
		g, err := b.Grouped(&models.QueryRequest{Dimensions: []string{"country", "region"}, Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		want := `SELECT "country", "region" FROM "sales" GROUP BY "country", "region"` +
			` ORDER BY "country" ASC NULLS LAST, "region" ASC NULLS LAST LIMIT ? OFFSET ?`
		if g.Page.SQL != want {
			t.Errorf("page SQL = %s", g.Page.SQL)
		}
	})

	t.Run("metrics only aggregates the whole table", func(t *testing.T) {
		g, err := b.Grouped(&models.QueryRequest{Metrics: []string{"revenue"}, Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		want := `SELECT SUM("revenue") AS "revenue" FROM "sales" LIMIT ? OFFSET ?`
		if g.Page.SQL != want {
			t.Errorf("page SQL = %s", g.Page.SQL)
		}
	})
}

func TestBuilder_FilterOperators(t *testing.T) {
	b := newTestBuilder(t)
	tests := []struct {
		op   string
		want string
	}{
		{"", `CAST("product" AS VARCHAR) IN (?, ?)`},
		{models.FilterOpEq, `CAST("product" AS VARCHAR) IN (?)`},
		{models.FilterOpNeq, `(CAST("product" AS VARCHAR) NOT IN (?) OR "product" IS NULL)`},
		{models.FilterOpNotIn, `(CAST("product" AS VARCHAR) NOT IN (?, ?) OR "product" IS NULL)`},
		{models.FilterOpContains, `CAST("product" AS VARCHAR) ILIKE ? ESCAPE '\'`},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			g, err := b.Grouped(&models.QueryRequest{
				Dimensions: []string{"region"},
				Filters:    []models.Filter{{Column: "product", Operator: tt.op, Values: []string{"a", "b"}}},
				Limit:      1,
			})
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(g.Page.SQL, "WHERE "+tt.want+" GROUP BY") {
				t.Errorf("page SQL = %s, want WHERE %s", g.Page.SQL, tt.want)
			}
		})
	}
}

func TestBuilder_GroupedErrors(t *testing.T) {
	b := newTestBuilder(t)
	tests := []struct {
		name string
		req  models.QueryRequest
		want error
	}{
		{"unknown dimension", models.QueryRequest{Dimensions: []string{"city"}, Limit: 1}, ErrUnknownColumn},
		{"metric used as dimension", models.QueryRequest{Dimensions: []string{"revenue"}, Limit: 1}, ErrUnknownColumn},
		{"unknown metric", models.QueryRequest{Metrics: []string{"cost"}, Limit: 1}, ErrUnknownColumn},
		{"injection attempt", models.QueryRequest{Dimensions: []string{`region"; DROP TABLE sales; --`}, Limit: 1}, ErrUnknownColumn},
		{"duplicate", models.QueryRequest{Dimensions: []string{"region", "region"}, Limit: 1}, ErrDuplicateColumn},
		{"no columns", models.QueryRequest{Limit: 1}, ErrNoColumns},
		{"zero limit", models.QueryRequest{Dimensions: []string{"region"}}, ErrInvalidPage},
		{"negative offset", models.QueryRequest{Dimensions: []string{"region"}, Offset: -1, Limit: 1}, ErrInvalidPage},
		{"filter on metric", models.QueryRequest{
			Dimensions: []string{"region"}, Limit: 1,
			Filters: []models.Filter{{Column: "revenue", Values: []string{"1"}}},
		}, ErrUnknownColumn},
		{"filter without values", models.QueryRequest{
			Dimensions: []string{"region"}, Limit: 1,
			Filters: []models.Filter{{Column: "region"}},
		}, ErrInvalidFilter},
		{"filter operator", models.QueryRequest{
			Dimensions: []string{"region"}, Limit: 1,
			Filters: []models.Filter{{Column: "region", Operator: "like", Values: []string{"x"}}},
		}, ErrInvalidFilter},
		{"sort on unselected column", models.QueryRequest{
			Dimensions: []string{"region"}, Limit: 1,
			Sort: []models.SortKey{{Column: "country"}},
		}, ErrUnknownColumn},
		{"comparison operator", models.QueryRequest{
			Dimensions: []string{"region"}, Limit: 1,
			Comparison: &models.Comparison{Metric: "revenue", Operator: "between"},
		}, ErrInvalidComparison},
		{"comparison metric", models.QueryRequest{
			Dimensions: []string{"region"}, Limit: 1,
			Comparison: &models.Comparison{Metric: "region", Operator: models.CompareGT},
		}, ErrUnknownColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Grouped(&tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Grouped() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuilder_ValueStatements(t *testing.T) {
	b := newTestBuilder(t)

	st, err := b.DistinctValues("country", 50)
	if err != nil {
		t.Fatal(err)
	}
	if want := `SELECT DISTINCT CAST("country" AS VARCHAR) FROM "sales" WHERE "country" IS NOT NULL ORDER BY 1 LIMIT ?`; st.SQL != want {
		t.Errorf("DistinctValues SQL = %s", st.SQL)
	}
	if !reflect.DeepEqual(st.Args, []any{50}) {
		t.Errorf("DistinctValues args = %v", st.Args)
	}

	st, err = b.SearchValues("country", "ger", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(st.SQL, `ILIKE ? ESCAPE '\'`) || !strings.HasSuffix(st.SQL, "LIMIT ?") {
		t.Errorf("SearchValues SQL = %s", st.SQL)
	}
	if !reflect.DeepEqual(st.Args, []any{"%ger%", 5}) {
		t.Errorf("SearchValues args = %v", st.Args)
	}

	if _, err := b.DistinctValues("revenue", 10); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("DistinctValues(metric) error = %v", err)
	}
	if _, err := b.SearchValues("country", "x", 0); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("SearchValues(limit 0) error = %v", err)
	}
}

func TestNewBuilder_Errors(t *testing.T) {
	if _, err := NewBuilder(nil); err == nil {
		t.Error("NewBuilder(nil) should fail")
	}
	meta := testMetadata()
	meta.Metrics[0].Aggregation = "median"
	if _, err := NewBuilder(meta); err == nil {
		t.Error("unsupported aggregation should fail")
	}
}
