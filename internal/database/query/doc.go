// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package query generates the SQL behind grid requests.
//
// Builder turns a models.QueryRequest into a page statement and a count
// statement over the dataset table:
//
//	b, _ := query.NewBuilder(meta)
//	g, err := b.Grouped(&models.QueryRequest{
//	    Dimensions: []string{"region", "country"},
//	    Metrics:    []string{"revenue"},
//	    Limit:      2000,
//	})
//	// g.Page.SQL:
//	// SELECT "region", "country", SUM("revenue") AS "revenue" FROM "sales"
//	//   GROUP BY "region", "country"
//	//   ORDER BY "region" ASC NULLS LAST, "country" ASC NULLS LAST LIMIT ? OFFSET ?
//
// Every column name is checked against the dataset metadata before it is
// emitted, and emitted double-quoted. Every value (filters, search text,
// comparison threshold, offset, limit) is a bound argument. WhereBuilder
// assembles the parameterized WHERE clause.
package query
