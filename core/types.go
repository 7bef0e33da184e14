//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 The dataops Authors
//
// This file is part of dataops.
//
// dataops is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// dataops is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with dataops. If not, see https://www.gnu.org/licenses/.

package core

import (
	"context"
	"fmt"
)

// Package core defines the core types for the dataops loan pipeline.
//
// This file contains the semantic type enumeration, the row view used by
// filters and sinks, and the function adapters for the core interfaces.

// Record represents a single row viewed as a map from column names to values.
// A nil value means the cell is missing.
type Record map[string]interface{}

// SemanticType is the closed set of column types the pipeline understands.
type SemanticType int

const (
	// Categorical is free text or a category label. Values are strings.
	Categorical SemanticType = iota
	// Integer columns hold int64 values.
	Integer
	// Float columns hold float64 values.
	Float
	// Date columns hold time.Time values without a meaningful time of day.
	Date
	// Datetime columns hold time.Time values with a time of day.
	Datetime
)

// String returns the lower-case name used in logs and reports.
func (t SemanticType) String() string {
	switch t {
	case Categorical:
		return "categorical"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Date:
		return "date"
	case Datetime:
		return "datetime"
	default:
		return fmt.Sprintf("SemanticType(%d)", int(t))
	}
}

// IsNumeric reports whether values of the type are int64 or float64.
func (t SemanticType) IsNumeric() bool {
	return t == Integer || t == Float
}

// IsTemporal reports whether values of the type are time.Time.
func (t SemanticType) IsTemporal() bool {
	return t == Date || t == Datetime
}

// TransformFunc is a function adapter for the Transformer interface.
// Allows ordinary functions to be used as Transformers.
type TransformFunc func(ctx context.Context, table *Table) (*Table, error)

// Transform implements the Transformer interface for TransformFunc.
func (f TransformFunc) Transform(ctx context.Context, table *Table) (*Table, error) {
	return f(ctx, table)
}

// FilterFunc is a function adapter for the Filter interface.
// Allows ordinary functions to be used as Filters.
type FilterFunc func(ctx context.Context, record Record) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, record Record) (bool, error) {
	return f(ctx, record)
}
