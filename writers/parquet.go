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

package writers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aekanun2020/2025-12-dataops/core"
)

// This file implements a batching Parquet writer. The Arrow schema comes
// from the column definitions, so a table with no rows still produces a
// readable file with the right columns.

// ParquetWriter implements core.DataSink for Parquet output.
type ParquetWriter struct {
	writer       *pqarrow.FileWriter
	schema       *arrow.Schema
	columns      []ColumnDef
	builders     []array.Builder
	allocator    memory.Allocator
	recordBuffer []core.Record
	opts         *ParquetWriterOptions
	stats        WriterStats
	closed       bool
	errorState   bool
	mu           sync.Mutex
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64                // Number of records to buffer before writing
	Compression  compress.Compression // Compression algorithm
	RowGroupSize int64                // Maximum rows per row group
	Metadata     map[string]string    // File metadata
}

// WriterStats holds statistics about the Parquet writer's performance.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithRowGroupSize sets the row group size for the Parquet file.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithMetadata sets user metadata for the Parquet file.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

// ArrowType maps a semantic type to its Arrow type. Dates and datetimes
// are stored as microsecond UTC timestamps.
func ArrowType(t core.SemanticType) arrow.DataType {
	switch t {
	case core.Integer:
		return arrow.PrimitiveTypes.Int64
	case core.Float:
		return arrow.PrimitiveTypes.Float64
	case core.Date, core.Datetime:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	default:
		return arrow.BinaryTypes.String
	}
}

// NewParquetWriter creates a Parquet writer over w for the given columns.
// Closing the writer closes w when it is an io.Closer.
func NewParquetWriter(w io.Writer, columns []ColumnDef, options ...WriterOption) (*ParquetWriter, error) {
	opts := &ParquetWriterOptions{}
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()

	if w == nil {
		return nil, &core.SinkError{Op: "open", Table: "parquet", Err: fmt.Errorf("writer is nil")}
	}
	if len(columns) == 0 {
		return nil, &core.SinkError{Op: "schema", Table: "parquet", Err: fmt.Errorf("at least one column is required")}
	}

	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c.Name, Type: ArrowType(c.Type), Nullable: true}
	}
	md := arrow.MetadataFrom(opts.Metadata)
	schema := arrow.NewSchema(fields, &md)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression),
		parquet.WithMaxRowGroupLength(opts.RowGroupSize),
	)
	fw, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, &core.SinkError{Op: "create_writer", Table: "parquet", Err: fmt.Errorf("failed to create parquet file writer: %w", err)}
	}

	allocator := memory.NewGoAllocator()
	builders := make([]array.Builder, len(fields))
	for i, f := range fields {
		builders[i] = array.NewBuilder(allocator, f.Type)
	}

	return &ParquetWriter{
		writer:       fw,
		schema:       schema,
		columns:      append([]ColumnDef(nil), columns...),
		builders:     builders,
		allocator:    allocator,
		recordBuffer: make([]core.Record, 0, opts.BatchSize),
		opts:         opts,
		stats:        WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// CreateParquetFile creates filename, and its parent directories, and
// returns a writer over it.
func CreateParquetFile(filename string, columns []ColumnDef, options ...WriterOption) (*ParquetWriter, error) {
	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &core.SinkError{Op: "create_directory", Table: filename, Err: err}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &core.SinkError{Op: "open_file", Table: filename, Err: err}
	}
	w, err := NewParquetWriter(file, columns, options...)
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	statsCopy := p.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// Write implements the core.DataSink interface.
// Buffers records and writes in batches. Thread-safe.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &core.SinkError{Op: "write", Table: "parquet", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &core.SinkError{Op: "write", Table: "parquet", Err: fmt.Errorf("writer is in error state")}
	}

	p.recordBuffer = append(p.recordBuffer, record)
	p.stats.RecordsWritten++

	if int64(len(p.recordBuffer)) >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return &core.SinkError{Op: "flush_batch", Table: "parquet", Err: err}
		}
	}
	return nil
}

// Flush implements the core.DataSink interface.
func (p *ParquetWriter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.errorState {
		return &core.SinkError{Op: "flush", Table: "parquet", Err: fmt.Errorf("writer is in error state")}
	}
	if err := p.flushBatch(); err != nil {
		p.errorState = true
		return &core.SinkError{Op: "flush", Table: "parquet", Err: err}
	}
	return nil
}

// Close implements the core.DataSink interface.
// Flushes, writes the file footer and releases the builders.
func (p *ParquetWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var flushErr error
	if !p.errorState {
		flushErr = p.flushBatch()
	}

	for _, b := range p.builders {
		b.Release()
	}
	p.builders = nil

	if err := p.writer.Close(); err != nil {
		return &core.SinkError{Op: "close_writer", Table: "parquet", Err: err}
	}
	if flushErr != nil {
		return &core.SinkError{Op: "flush_remaining", Table: "parquet", Err: flushErr}
	}
	return nil
}

// withDefaults applies default values to ParquetWriterOptions.
func (opts *ParquetWriterOptions) withDefaults() *ParquetWriterOptions {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.RowGroupSize <= 0 {
		opts.RowGroupSize = 10000
	}
	if opts.Compression == 0 {
		opts.Compression = compress.Codecs.Snappy
	}
	if opts.Metadata == nil {
		opts.Metadata = make(map[string]string)
	}
	return opts
}

// flushBatch writes the current buffer as one Arrow record (must hold mutex).
func (p *ParquetWriter) flushBatch() error {
	if len(p.recordBuffer) == 0 {
		return nil
	}

	start := time.Now()

	for _, record := range p.recordBuffer {
		for i, c := range p.columns {
			value := record[c.Name]
			if value == nil {
				p.builders[i].AppendNull()
				p.stats.NullValueCounts[c.Name]++
				continue
			}
			if err := appendValue(p.builders[i], value); err != nil {
				return fmt.Errorf("field %s: %w", c.Name, err)
			}
		}
	}

	arrays := make([]arrow.Array, len(p.builders))
	for i, b := range p.builders {
		arrays[i] = b.NewArray()
	}
	rec := array.NewRecord(p.schema, arrays, int64(len(p.recordBuffer)))
	for _, a := range arrays {
		a.Release()
	}
	defer rec.Release()

	if err := p.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	p.recordBuffer = p.recordBuffer[:0]
	return nil
}

// appendValue appends a non-nil value to the builder for its column type.
func appendValue(builder array.Builder, value interface{}) error {
	switch b := builder.(type) {
	case *array.Int64Builder:
		switch v := value.(type) {
		case int64:
			b.Append(v)
		case int:
			b.Append(int64(v))
		case int32:
			b.Append(int64(v))
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
		case float32:
			b.Append(float64(v))
		case int64:
			b.Append(float64(v))
		default:
			return fmt.Errorf("expected float, got %T", value)
		}
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("expected time, got %T", value)
		}
		b.Append(arrow.Timestamp(v.UnixMicro()))
	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(fmt.Sprintf("%v", value))
		}
	default:
		return fmt.Errorf("unsupported builder %T", builder)
	}
	return nil
}
