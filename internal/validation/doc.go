// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator configured with
// WithRequiredStructEnabled, JSON field names in messages and one custom
// tag:
//
//   - column: a non-empty column name of at most 128 printable characters
//
// Request types in internal/models carry their rules as struct tags:
//
//	type Filter struct {
//	    Column   string   `json:"column" validate:"column"`
//	    Operator string   `json:"operator" validate:"omitempty,oneof=in not_in eq neq contains"`
//	    Values   []string `json:"values" validate:"min=1,max=1000"`
//	}
//
// Handlers validate and convert failures to the API error format:
//
//	if verr := validation.ValidateQueryRequest(&req, cfg.API.MaxPageSize); verr != nil {
//	    respondError(w, r, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
//
// Validation only checks shape. Whether a column exists in the dataset is
// decided by the query builder against the dataset metadata.
//
// # Error Format
//
// A single failure produces:
//
//	{"code": "VALIDATION_ERROR", "message": "limit must be at least 1",
//	 "details": {"field": "limit", "tag": "min", "value": 0}}
//
// Several failures are joined in the message and listed under
// details.fields.
package validation
