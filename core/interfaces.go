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
)

// Package core defines the core interfaces for the dataops loan pipeline.
//
// Stages exchange whole tables; sinks consume rows one record at a time the
// same way a streaming writer would, so a table can be copied into any sink.

// DataSink defines the interface for row-oriented loading.
// Implementations write records to a destination (e.g., CSV, Parquet, a SQL table).
type DataSink interface {
	// Write outputs a single record to the sink.
	Write(ctx context.Context, record Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// ContextFlusher is implemented by sinks whose flush can honour the caller's
// context. CopyTo prefers it over Flush.
type ContextFlusher interface {
	FlushContext(ctx context.Context) error
}

// Transformer defines a table-to-table pipeline stage.
// Implementations must not mutate the input table.
type Transformer interface {
	// Transform applies the stage to a table and returns the result.
	Transform(ctx context.Context, table *Table) (*Table, error)
}

// Filter defines the interface for row filtering.
// Filters determine whether a row should be kept.
type Filter interface {
	// ShouldInclude returns true if the record should be included in the output.
	ShouldInclude(ctx context.Context, record Record) (bool, error)
}

// TableSource reads a whole delimited input into a table.
type TableSource interface {
	// ReadTable reads every remaining row.
	ReadTable(ctx context.Context) (*Table, error)
	// Close releases any resources held by the source.
	Close() error
}

// TableSink loads whole tables. Loading a table replaces any existing table
// of the same name at the destination.
type TableSink interface {
	LoadTable(ctx context.Context, name string, table *Table) error
}
