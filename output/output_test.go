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

package output

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aekanun2020/2025-12-dataops/core"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   int
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[*input.Bucket+"/"+*input.Key] = body
	return &s3manager.UploadOutput{}, nil
}

func statusDim() *core.Table {
	return core.MustTable(
		core.Column{Name: "loan_status", Values: []interface{}{"Current", "Fully Paid"}},
		core.Column{Name: "loan_status_id", Type: core.Integer, Values: []interface{}{int64(0), int64(1)}},
	)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"csv": FormatCSV, "JSONL": FormatJSON, "json": FormatJSON, " parquet ": FormatParquet} {
		f, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, f, name)
	}
	_, err := ParseFormat("xlsx")
	assert.Error(t, err)
	assert.Equal(t, ".parquet", FormatParquet.Extension())
	assert.Equal(t, "jsonl", FormatJSON.String())
}

func TestSink_DirLocationCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	sink := NewSink(DirLocation{Dir: dir}, FormatCSV)

	require.NoError(t, sink.LoadTable(context.Background(), "loan_status_dim", statusDim()))

	data, err := os.ReadFile(filepath.Join(dir, "loan_status_dim.csv"))
	require.NoError(t, err)
	assert.Equal(t, "loan_status,loan_status_id\nCurrent,0\nFully Paid,1\n", string(data))
	assert.Equal(t, []string{filepath.Join(dir, "loan_status_dim.csv")}, sink.Files())
}

func TestSink_DirLocationParquet(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(DirLocation{Dir: dir}, FormatParquet)

	require.NoError(t, sink.LoadTable(context.Background(), "loan_status_dim", statusDim()))

	info, err := os.Stat(filepath.Join(dir, "loan_status_dim.parquet"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSink_S3Location(t *testing.T) {
	up := &fakeUploader{}
	loc := &S3Location{Bucket: "warehouse", Prefix: "loans/2018", Uploader: up}
	sink := NewSink(loc, FormatJSON)

	require.NoError(t, sink.LoadTable(context.Background(), "loan_status_dim", statusDim()))

	body, ok := up.objects["warehouse/loans/2018/loan_status_dim.jsonl"]
	require.True(t, ok)
	assert.Contains(t, string(body), `"loan_status":"Fully Paid"`)
	assert.Equal(t, []string{"s3://warehouse/loans/2018/loan_status_dim.jsonl"}, sink.Files())
}

func TestSink_S3UploadFailure(t *testing.T) {
	loc := &S3Location{Bucket: "warehouse", Uploader: &fakeUploader{err: errors.New("access denied")}}
	sink := NewSink(loc, FormatCSV)

	err := sink.LoadTable(context.Background(), "loans_fact", statusDim())
	var sinkErr *core.SinkError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, "close", sinkErr.Op)
	assert.Equal(t, "loans_fact", sinkErr.Table)
	assert.Empty(t, sink.Files())
}

func TestSink_S3FailedWriteUploadsNothing(t *testing.T) {
	up := &fakeUploader{}
	sink := NewSink(&S3Location{Bucket: "warehouse", Uploader: up}, FormatCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sink.LoadTable(ctx, "loans_fact", statusDim())
	var sinkErr *core.SinkError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, "write", sinkErr.Op)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, up.calls)
	assert.Empty(t, up.objects)
	assert.Empty(t, sink.Files())
}

func TestSink_DirFailedWriteLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(DirLocation{Dir: dir}, FormatJSON)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, sink.LoadTable(ctx, "loans_fact", statusDim()))

	_, err := os.Stat(filepath.Join(dir, "loans_fact.jsonl"))
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, sink.Files())
}

func TestNewS3Location(t *testing.T) {
	loc, err := NewS3Location("s3://warehouse/exports/", s3.New(s3.Options{Region: "us-east-1"}))
	require.NoError(t, err)
	assert.Equal(t, "warehouse", loc.Bucket)
	assert.Equal(t, "exports", loc.Prefix)
	assert.Equal(t, "s3://warehouse/exports/loans_fact.csv", loc.URI("loans_fact.csv"))

	_, err = NewS3Location("/tmp/exports", nil)
	assert.Error(t, err)

	bare := &S3Location{Bucket: "warehouse"}
	assert.Equal(t, "s3://warehouse/x.csv", bare.URI("x.csv"))
	_, err = bare.Create(context.Background(), "x.csv")
	assert.Error(t, err)
}
