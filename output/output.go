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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/writers"
)

// Package output exports loaded tables as files, either into a local
// directory or under an S3 prefix.

// Format represents a supported export file format.
type Format int

const (
	FormatCSV Format = iota
	FormatJSON
	FormatParquet
)

// ParseFormat parses a format name: csv, json (or jsonl) and parquet.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "json", "jsonl":
		return FormatJSON, nil
	case "parquet":
		return FormatParquet, nil
	default:
		return 0, fmt.Errorf("unsupported export format %q", name)
	}
}

// Extension returns the file extension, with the leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".jsonl"
	case FormatParquet:
		return ".parquet"
	default:
		return ".csv"
	}
}

func (f Format) String() string {
	return strings.TrimPrefix(f.Extension(), ".")
}

// Location is where exported files are created.
type Location interface {
	// Create opens the named file for writing. The file is complete once
	// the returned writer is closed.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	// URI returns where a file of that name ends up.
	URI(name string) string
}

// DirLocation writes output to a local directory.
type DirLocation struct {
	Dir string
}

// Create creates the directory if needed and the file inside it.
func (d DirLocation) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", d.Dir, err)
	}
	f, err := os.Create(filepath.Join(d.Dir, name))
	if err != nil {
		return nil, err
	}
	return &dirFile{File: f}, nil
}

// dirFile removes itself on Close once aborted. Close is idempotent.
type dirFile struct {
	*os.File
	aborted bool
	closed  bool
}

func (f *dirFile) Abort() { f.aborted = true }

func (f *dirFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.File.Close()
	if f.aborted {
		return os.Remove(f.Name())
	}
	return err
}

// URI returns the local path of name.
func (d DirLocation) URI(name string) string {
	return filepath.Join(d.Dir, name)
}

// Uploader is the subset of *s3manager.Uploader used for exports.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Location writes objects under a prefix of an S3 bucket.
type S3Location struct {
	Bucket   string
	Prefix   string
	Uploader Uploader
}

// NewS3Location parses "s3://bucket/prefix" and uploads through client.
func NewS3Location(uri string, client *s3.Client) (*S3Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("not an s3 uri: %q", uri)
	}
	return &S3Location{
		Bucket:   u.Host,
		Prefix:   strings.Trim(u.Path, "/"),
		Uploader: s3manager.NewUploader(client),
	}, nil
}

// Create buffers the file in memory and uploads it on Close.
func (s *S3Location) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if s.Uploader == nil {
		return nil, fmt.Errorf("s3 location %s has no uploader", s.Bucket)
	}
	return &s3WriteCloser{
		ctx:      ctx,
		buf:      &bytes.Buffer{},
		uploader: s.Uploader,
		bucket:   s.Bucket,
		key:      s.key(name),
	}, nil
}

// URI returns the s3:// URI of name.
func (s *S3Location) URI(name string) string {
	return "s3://" + s.Bucket + "/" + s.key(name)
}

func (s *S3Location) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

type s3WriteCloser struct {
	ctx      context.Context
	buf      *bytes.Buffer
	uploader Uploader
	bucket   string
	key      string
	aborted  bool
}

func (s *s3WriteCloser) Write(p []byte) (int, error) { return s.buf.Write(p) }

// Abort discards the buffered object so a later Close uploads nothing.
func (s *s3WriteCloser) Abort() {
	s.aborted = true
	s.buf.Reset()
}

func (s *s3WriteCloser) Close() error {
	if s.aborted {
		return nil
	}
	_, err := s.uploader.Upload(s.ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
		Body:   bytes.NewReader(s.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// aborter is implemented by files that can be discarded instead of
// committed on Close.
type aborter interface {
	Abort()
}

func markAborted(w io.WriteCloser) {
	if a, ok := w.(aborter); ok {
		a.Abort()
	}
}

// Sink exports every loaded table as one file named after the table.
type Sink struct {
	location Location
	format   Format
	files    []string
	mu       sync.Mutex
}

// NewSink returns a sink writing format files to location.
func NewSink(location Location, format Format) *Sink {
	return &Sink{location: location, format: format}
}

// LoadTable writes table to "<name><ext>", replacing an existing file.
func (s *Sink) LoadTable(ctx context.Context, name string, table *core.Table) error {
	filename := name + s.format.Extension()
	w, err := s.location.Create(ctx, filename)
	if err != nil {
		return &core.SinkError{Op: "open", Table: name, Err: err}
	}

	sink, err := s.newWriter(w, table)
	if err != nil {
		markAborted(w)
		w.Close()
		return &core.SinkError{Op: "open", Table: name, Err: err}
	}
	if err := table.CopyTo(ctx, sink); err != nil {
		markAborted(w)
		sink.Close()
		w.Close()
		return &core.SinkError{Op: "write", Table: name, Err: err}
	}
	if err := sink.Close(); err != nil {
		return &core.SinkError{Op: "close", Table: name, Err: err}
	}

	s.mu.Lock()
	s.files = append(s.files, s.location.URI(filename))
	s.mu.Unlock()
	return nil
}

func (s *Sink) newWriter(w io.WriteCloser, table *core.Table) (core.DataSink, error) {
	switch s.format {
	case FormatJSON:
		return writers.NewJSONWriter(w), nil
	case FormatParquet:
		pw, err := writers.NewParquetWriter(w, writers.ColumnDefs(table))
		if err != nil {
			return nil, err
		}
		return pw, nil
	default:
		cw, err := writers.NewCSVWriter(w, writers.WithHeaders(table.ColumnNames()))
		if err != nil {
			return nil, err
		}
		return cw, nil
	}
}

// Files returns the URIs of the files written so far.
func (s *Sink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}
