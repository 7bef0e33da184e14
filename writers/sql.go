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
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/aekanun2020/2025-12-dataops/core"
)

// Package writers provides the destinations a loaded star schema is written to.
//
// This file implements a batching SQL writer that replaces its target table
// (drop, create, insert) on any of the supported dialects, and SQLSink, which
// loads whole tables through it.

// SQLWriterStats holds SQL write performance statistics.
type SQLWriterStats struct {
	RecordsWritten   int64            // Total records written
	BatchesWritten   int64            // Number of batches written
	TransactionCount int64            // Number of transactions committed
	LastWriteTime    time.Time        // Time of last write
	WriteDuration    time.Duration    // Total time spent writing
	NullValueCounts  map[string]int64 // Count of null values per column
}

// ColumnDef names a target column and its semantic type.
type ColumnDef struct {
	Name string
	Type core.SemanticType
}

// ColumnDefs describes the columns of table in order.
func ColumnDefs(table *core.Table) []ColumnDef {
	cols := table.Columns()
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = ColumnDef{Name: c.Name, Type: c.Type}
	}
	return defs
}

// SQLWriterOptions configures the SQL writer.
type SQLWriterOptions struct {
	Dialect         Dialect       // Target database dialect
	TableName       string        // Target table name
	Columns         []ColumnDef   // Columns to write (order matters)
	BatchSize       int           // Number of records per batch
	Replace         bool          // Drop and recreate the table before the first write
	TransactionMode bool          // Wrap batches in transactions
	QueryTimeout    time.Duration // Timeout for Flush and DDL
	Tx              *sql.Tx       // Caller-owned transaction for DDL and inserts
}

// SQLWriterOption represents a configuration function for SQLWriterOptions.
type SQLWriterOption func(*SQLWriterOptions)

// WithDialect sets the target dialect.
func WithDialect(d Dialect) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.Dialect = d
	}
}

// WithTableName sets the target table name.
func WithTableName(tableName string) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.TableName = tableName
	}
}

// WithColumns sets the columns to write.
func WithColumns(columns []ColumnDef) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.Columns = append([]ColumnDef(nil), columns...)
	}
}

// WithSQLBatchSize sets the batch size for writes.
func WithSQLBatchSize(size int) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.BatchSize = size
	}
}

// WithReplace enables or disables drop-and-create of the target table.
func WithReplace(replace bool) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.Replace = replace
	}
}

// WithTransactionMode enables or disables transaction wrapping for batches.
func WithTransactionMode(enabled bool) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.TransactionMode = enabled
	}
}

// WithTx runs all DDL and inserts inside tx. The writer never commits or
// rolls back a borrowed transaction, and per-batch transactions are off.
func WithTx(tx *sql.Tx) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.Tx = tx
	}
}

// WithSQLQueryTimeout sets the query timeout.
func WithSQLQueryTimeout(timeout time.Duration) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

// SQLWriter implements core.DataSink for one SQL table.
// It supports batching, transactions, replace mode and statistics. The
// database handle is borrowed and is not closed by the writer.
type SQLWriter struct {
	db          *sql.DB
	options     SQLWriterOptions
	recordBuf   []core.Record
	stats       SQLWriterStats
	insert      string
	initialized bool
	errorState  bool
	mu          sync.Mutex
}

// NewSQLWriter creates a new SQL writer on db with the given options.
func NewSQLWriter(db *sql.DB, opts ...SQLWriterOption) (*SQLWriter, error) {
	options := &SQLWriterOptions{TransactionMode: true}
	for _, opt := range opts {
		opt(options)
	}
	options = options.withDefaults()

	if err := validateOptions(db, options); err != nil {
		return nil, &core.SinkError{Op: "validate", Table: options.TableName, Err: err}
	}

	return &SQLWriter{
		db:        db,
		options:   *options,
		recordBuf: make([]core.Record, 0, options.BatchSize),
		stats:     SQLWriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Stats returns a copy of the current write statistics.
func (w *SQLWriter) Stats() SQLWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	statsCopy := w.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(w.stats.NullValueCounts))
	for k, v := range w.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// Write implements the core.DataSink interface.
// Buffers records and writes in batches. Thread-safe.
func (w *SQLWriter) Write(ctx context.Context, record core.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return w.sinkError("write", fmt.Errorf("writer is in error state"))
	}

	if !w.initialized {
		if err := w.initializeUnsafe(ctx); err != nil {
			w.errorState = true
			return w.sinkError("initialize", err)
		}
	}

	for _, c := range w.options.Columns {
		if record[c.Name] == nil {
			w.stats.NullValueCounts[c.Name]++
		}
	}

	w.recordBuf = append(w.recordBuf, record)
	w.stats.RecordsWritten++

	if len(w.recordBuf) >= w.options.BatchSize {
		if err := w.flushBufferUnsafe(ctx); err != nil {
			w.errorState = true
			return w.sinkError("flush_batch", err)
		}
	}

	return nil
}

// Flush implements the core.DataSink interface.
// Forces buffered records to the database. A writer that never saw a record
// still replaces its table, so an empty table is loaded as an empty table.
func (w *SQLWriter) Flush() error {
	return w.FlushContext(context.Background())
}

// FlushContext is Flush bounded by ctx as well as the query timeout.
func (w *SQLWriter) FlushContext(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return w.sinkError("flush", fmt.Errorf("writer is in error state"))
	}

	ctx, cancel := context.WithTimeout(ctx, w.options.QueryTimeout)
	defer cancel()

	if !w.initialized {
		if err := w.initializeUnsafe(ctx); err != nil {
			w.errorState = true
			return w.sinkError("initialize", err)
		}
	}
	if err := w.flushBufferUnsafe(ctx); err != nil {
		w.errorState = true
		return w.sinkError("flush", err)
	}
	return nil
}

// Close implements the core.DataSink interface.
// Flushes remaining records; the database handle stays open.
func (w *SQLWriter) Close() error {
	return w.CloseContext(context.Background())
}

// CloseContext is Close with the final flush bounded by ctx.
func (w *SQLWriter) CloseContext(ctx context.Context) error {
	w.mu.Lock()
	failed := w.errorState
	w.mu.Unlock()
	if failed {
		return nil
	}
	return w.FlushContext(ctx)
}

// withDefaults applies default values to SQLWriterOptions.
func (opts *SQLWriterOptions) withDefaults() *SQLWriterOptions {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	return opts
}

// validateOptions validates the SQL writer options.
func validateOptions(db *sql.DB, opts *SQLWriterOptions) error {
	if db == nil {
		return fmt.Errorf("database handle is required")
	}
	if opts.Dialect.Name == "" {
		return fmt.Errorf("dialect is required")
	}
	if opts.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	if len(opts.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	return nil
}

func (w *SQLWriter) sinkError(op string, err error) error {
	return &core.SinkError{Op: op, Table: w.options.TableName, Err: err}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// target returns the borrowed transaction if there is one.
func (w *SQLWriter) target() execer {
	if w.options.Tx != nil {
		return w.options.Tx
	}
	return w.db
}

// initializeUnsafe performs one-time initialization (must hold mutex).
func (w *SQLWriter) initializeUnsafe(ctx context.Context) error {
	d := w.options.Dialect

	if w.options.Replace {
		if _, err := w.target().ExecContext(ctx, d.DropTable(w.options.TableName)); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
		if _, err := w.target().ExecContext(ctx, d.CreateTable(w.options.TableName, w.options.Columns)); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	w.insert = d.Insert(w.options.TableName, w.options.Columns)
	w.initialized = true
	return nil
}

// flushBufferUnsafe writes buffered records (must hold mutex).
func (w *SQLWriter) flushBufferUnsafe(ctx context.Context) (err error) {
	if len(w.recordBuf) == 0 {
		return nil
	}

	start := time.Now()

	target := w.target()
	var tx *sql.Tx
	if w.options.TransactionMode && w.options.Tx == nil {
		tx, err = w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err != nil {
				tx.Rollback()
			}
		}()
		target = tx
	}

	values := make([]interface{}, len(w.options.Columns))
	for _, record := range w.recordBuf {
		for i, col := range w.options.Columns {
			values[i] = convertValue(record[col.Name])
		}
		if _, err = target.ExecContext(ctx, w.insert, values...); err != nil {
			return fmt.Errorf("failed to execute insert: %w", err)
		}
	}

	if tx != nil {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		w.stats.TransactionCount++
	}

	w.stats.BatchesWritten++
	w.stats.LastWriteTime = time.Now()
	w.stats.WriteDuration += time.Since(start)
	w.recordBuf = w.recordBuf[:0]

	return nil
}

// convertValue converts Go values to driver-compatible types.
func convertValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case time.Time, bool, int64, float64, string, []byte:
		return v
	case driver.Valuer:
		return v
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint())
		case reflect.Float32:
			return rv.Float()
		default:
			return fmt.Sprintf("%v", v)
		}
	}
}

// OpenDB opens and pings a database for dialect d.
func OpenDB(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	if err := d.ValidateDSN(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// SQLSinkStats holds per-table results of an SQLSink.
type SQLSinkStats struct {
	TablesLoaded int
	RowsLoaded   map[string]int64
}

// SQLSink loads whole tables into a database, replacing any table of the
// same name.
type SQLSink struct {
	db        *sql.DB
	dialect   Dialect
	batchSize int
	ownsDB    bool
	stats     SQLSinkStats
	mu        sync.Mutex
}

// NewSQLSink wraps an open database. The sink does not close db.
func NewSQLSink(db *sql.DB, d Dialect, batchSize int) *SQLSink {
	return &SQLSink{
		db:        db,
		dialect:   d,
		batchSize: batchSize,
		stats:     SQLSinkStats{RowsLoaded: make(map[string]int64)},
	}
}

// OpenSQLSink opens the database for dsn and returns a sink that closes it.
func OpenSQLSink(ctx context.Context, d Dialect, dsn string, batchSize int) (*SQLSink, error) {
	db, err := OpenDB(ctx, d, dsn)
	if err != nil {
		return nil, &core.SinkError{Op: "connect", Table: d.Name, Err: err}
	}
	s := NewSQLSink(db, d, batchSize)
	s.ownsDB = true
	return s, nil
}

// LoadTable replaces table name with the contents of table. The drop, the
// create and every insert share one transaction, so a failed load leaves the
// previous table in place on dialects with transactional DDL. MySQL commits
// DDL implicitly; there only the inserts roll back.
func (s *SQLSink) LoadTable(ctx context.Context, name string, table *core.Table) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.SinkError{Op: "begin", Table: name, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	w, err := NewSQLWriter(s.db,
		WithDialect(s.dialect),
		WithTableName(name),
		WithColumns(ColumnDefs(table)),
		WithSQLBatchSize(s.batchSize),
		WithReplace(true),
		WithTx(tx),
	)
	if err != nil {
		return err
	}
	if err = table.CopyTo(ctx, w); err != nil {
		return err
	}
	if err = w.CloseContext(ctx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return &core.SinkError{Op: "commit", Table: name, Err: err}
	}

	s.mu.Lock()
	s.stats.TablesLoaded++
	s.stats.RowsLoaded[name] = w.Stats().RecordsWritten
	s.mu.Unlock()
	return nil
}

// Stats returns a copy of the sink statistics.
func (s *SQLSink) Stats() SQLSinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := SQLSinkStats{TablesLoaded: s.stats.TablesLoaded, RowsLoaded: make(map[string]int64, len(s.stats.RowsLoaded))}
	for k, v := range s.stats.RowsLoaded {
		out.RowsLoaded[k] = v
	}
	return out
}

// Close closes the database if the sink opened it.
func (s *SQLSink) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
