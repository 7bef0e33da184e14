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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aekanun2020/2025-12-dataops/core"
)

// JSONWriter implements core.DataSink for JSON lines output. Times are
// written in RFC 3339 and missing values as null.
type JSONWriter struct {
	writer  *bufio.Writer
	closer  io.Closer
	records int64
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSON writer for line-delimited JSON output
func NewJSONWriter(w io.WriteCloser) *JSONWriter {
	return &JSONWriter{
		writer: bufio.NewWriter(w),
		closer: w,
	}
}

// Write implements the core.DataSink interface
func (j *JSONWriter) Write(ctx context.Context, record core.Record) error {
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		if t, ok := v.(time.Time); ok {
			out[k] = t.Format(time.RFC3339)
			continue
		}
		out[k] = v
	}

	data, err := json.Marshal(out)
	if err != nil {
		return &core.SinkError{Op: "marshal", Table: "json", Err: err}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.writer.Write(append(data, '\n')); err != nil {
		return &core.SinkError{Op: "write", Table: "json", Err: fmt.Errorf("failed to write JSON data: %w", err)}
	}
	j.records++
	return nil
}

// Flush implements the core.DataSink interface
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		return &core.SinkError{Op: "flush", Table: "json", Err: err}
	}
	return nil
}

// Close implements the core.DataSink interface
func (j *JSONWriter) Close() error {
	if err := j.Flush(); err != nil {
		return err
	}
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// RecordsWritten returns the number of records written.
func (j *JSONWriter) RecordsWritten() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records
}
