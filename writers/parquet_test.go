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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aekanun2020/2025-12-dataops/core"
)

func dateDim() *core.Table {
	d := func(m time.Month) time.Time { return time.Date(2018, m, 1, 0, 0, 0, 0, time.UTC) }
	return core.MustTable(
		core.Column{Name: "issue_d", Type: core.Datetime, Values: []interface{}{d(1), d(2), d(3)}},
		core.Column{Name: "month", Type: core.Integer, Values: []interface{}{int64(1), int64(2), int64(3)}},
		core.Column{Name: "year", Type: core.Integer, Values: []interface{}{int64(2018), int64(2018), int64(2018)}},
		core.Column{Name: "issue_d_id", Type: core.Integer, Values: []interface{}{int64(0), int64(1), int64(2)}},
	)
}

func openParquet(t *testing.T, path string) *file.Reader {
	t.Helper()
	r, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestArrowType(t *testing.T) {
	assert.Equal(t, arrow.INT64, ArrowType(core.Integer).ID())
	assert.Equal(t, arrow.FLOAT64, ArrowType(core.Float).ID())
	assert.Equal(t, arrow.TIMESTAMP, ArrowType(core.Date).ID())
	assert.Equal(t, arrow.TIMESTAMP, ArrowType(core.Datetime).ID())
	assert.Equal(t, arrow.STRING, ArrowType(core.Categorical).ID())
}

func TestParquetWriter_BasicFunctionality(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "issue_d_dim.parquet")
	table := dateDim()

	w, err := CreateParquetFile(path, ColumnDefs(table),
		WithBatchSize(2),
		WithCompression(compress.Codecs.Gzip),
		WithMetadata(map[string]string{"table": "issue_d_dim"}),
	)
	require.NoError(t, err)

	require.NoError(t, table.CopyTo(context.Background(), w))
	require.NoError(t, w.Close())

	stats := w.Stats()
	assert.Equal(t, int64(3), stats.RecordsWritten)
	assert.Equal(t, int64(2), stats.BatchesWritten)

	r := openParquet(t, path)
	assert.Equal(t, int64(3), r.NumRows())
	sc := r.MetaData().Schema
	require.Equal(t, 4, sc.NumColumns())
	assert.Equal(t, "issue_d", sc.Column(0).Name())
	assert.Equal(t, "issue_d_id", sc.Column(3).Name())
}

func TestParquetWriter_EmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emp_length_dim.parquet")
	cols := []ColumnDef{{Name: "emp_length"}, {Name: "emp_length_id", Type: core.Integer}}

	w, err := CreateParquetFile(path, cols)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	r := openParquet(t, path)
	assert.Equal(t, int64(0), r.NumRows())
	assert.Equal(t, 2, r.MetaData().Schema.NumColumns())
}

func TestParquetWriter_NullValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans_fact.parquet")
	cols := []ColumnDef{{Name: "annual_inc_joint", Type: core.Integer}, {Name: "loan_status_id", Type: core.Integer}}

	w, err := CreateParquetFile(path, cols)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, w.Write(ctx, core.Record{"annual_inc_joint": nil, "loan_status_id": int64(0)}))
	require.NoError(t, w.Write(ctx, core.Record{"annual_inc_joint": int64(120000)}))
	require.NoError(t, w.Close())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.NullValueCounts["annual_inc_joint"])
	assert.Equal(t, int64(1), stats.NullValueCounts["loan_status_id"])
	assert.Equal(t, int64(2), openParquet(t, path).NumRows())
}

func TestParquetWriter_ErrorHandling(t *testing.T) {
	t.Run("no_columns", func(t *testing.T) {
		_, err := CreateParquetFile(filepath.Join(t.TempDir(), "x.parquet"), nil)
		var sinkErr *core.SinkError
		require.True(t, errors.As(err, &sinkErr))
		assert.Equal(t, "schema", sinkErr.Op)
	})

	t.Run("type_mismatch", func(t *testing.T) {
		w, err := CreateParquetFile(filepath.Join(t.TempDir(), "x.parquet"),
			[]ColumnDef{{Name: "loan_amnt", Type: core.Integer}}, WithBatchSize(1))
		require.NoError(t, err)

		err = w.Write(context.Background(), core.Record{"loan_amnt": "ten"})
		var sinkErr *core.SinkError
		require.True(t, errors.As(err, &sinkErr))
		assert.Equal(t, "flush_batch", sinkErr.Op)

		assert.Error(t, w.Write(context.Background(), core.Record{"loan_amnt": int64(1)}))
		assert.NoError(t, w.Close())
	})

	t.Run("write_after_close", func(t *testing.T) {
		w, err := CreateParquetFile(filepath.Join(t.TempDir(), "x.parquet"), []ColumnDef{{Name: "a"}})
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.Error(t, w.Write(context.Background(), core.Record{"a": "x"}))
		assert.NoError(t, w.Close())
	})
}
