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

package readers

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aekanun2020/2025-12-dataops/core"
)

// CSVReaderStats holds statistics about the CSV reader's performance.
type CSVReaderStats struct {
	RecordsRead     int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
}

// CSVReaderOptions configures the CSV reader.
type CSVReaderOptions struct {
	Comma            rune
	Comment          rune
	LazyQuotes       bool
	TrimLeadingSpace bool
	HasHeaders       bool
	// MissingTokens are cell values, besides blank ones, that read as missing.
	MissingTokens []string
}

// ReaderOptionCSV allows functional customization of CSVReader.
type ReaderOptionCSV func(*CSVReaderOptions)

func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVHasHeaders(hasHeaders bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.HasHeaders = hasHeaders }
}

func WithCSVTrimSpace(trim bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.TrimLeadingSpace = trim }
}

func WithCSVLazyQuotes(lazy bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.LazyQuotes = lazy }
}

// WithCSVMissingTokens marks extra literal cell values (e.g. "NULL") as missing.
func WithCSVMissingTokens(tokens ...string) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.MissingTokens = append(o.MissingTokens, tokens...) }
}

// CSVReader reads a whole delimited file into a raw table.
//
// Every column of the result is Categorical; non-missing cells keep their
// text with surrounding whitespace trimmed, so type inference sees the
// original strings.
type CSVReader struct {
	reader  *csv.Reader
	headers []string
	closer  io.Closer
	path    string
	missing map[string]bool
	stats   CSVReaderStats
	opts    CSVReaderOptions
}

// NewCSVReader creates a CSVReader with default or overridden options.
func NewCSVReader(r io.ReadCloser, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{
		Comma:            ',',
		HasHeaders:       true,
		TrimLeadingSpace: true,
	}

	for _, opt := range options {
		opt(&opts)
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = opts.Comma
	csvReader.Comment = opts.Comment
	csvReader.LazyQuotes = opts.LazyQuotes
	csvReader.TrimLeadingSpace = opts.TrimLeadingSpace

	reader := &CSVReader{
		reader:  csvReader,
		closer:  r,
		opts:    opts,
		missing: make(map[string]bool, len(opts.MissingTokens)),
		stats:   CSVReaderStats{NullValueCounts: make(map[string]int64)},
	}
	for _, tok := range opts.MissingTokens {
		reader.missing[tok] = true
	}

	if opts.HasHeaders {
		headers, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("no header row")
			}
			return nil, &core.ReadError{Op: "read_headers", Err: err}
		}
		for i := range headers {
			headers[i] = strings.TrimSpace(headers[i])
		}
		reader.headers = headers
	}

	return reader, nil
}

// OpenCSVFile opens a local file and wraps it in a CSVReader.
func OpenCSVFile(path string, options ...ReaderOptionCSV) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ReadError{Op: "open", Path: path, Err: err}
	}
	r, err := NewCSVReader(f, options...)
	if err != nil {
		f.Close()
		var re *core.ReadError
		if errors.As(err, &re) {
			re.Path = path
		}
		return nil, err
	}
	r.path = path
	return r, nil
}

// ReadTable reads every remaining record and returns them as a raw table.
// A short or long record is a ReadError; the whole read is all-or-nothing.
func (c *CSVReader) ReadTable(ctx context.Context) (*core.Table, error) {
	start := time.Now()
	defer func() {
		c.stats.ReadDuration += time.Since(start)
		c.stats.LastReadTime = time.Now()
	}()

	var values [][]interface{}
	if len(c.headers) > 0 {
		values = make([][]interface{}, len(c.headers))
	}

	for {
		select {
		case <-ctx.Done():
			return nil, &core.ReadError{Op: "read", Path: c.path, Err: ctx.Err()}
		default:
		}

		record, err := c.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &core.ReadError{Op: "read_record", Path: c.path, Err: err}
		}

		if c.headers == nil {
			c.headers = make([]string, len(record))
			for i := range record {
				c.headers[i] = "col_" + strconv.Itoa(i)
			}
			values = make([][]interface{}, len(record))
		}

		for i, val := range record {
			key := c.headers[i]
			if c.isMissing(val) {
				c.stats.NullValueCounts[key]++
				values[i] = append(values[i], nil)
			} else {
				values[i] = append(values[i], strings.TrimSpace(val))
			}
		}
		c.stats.RecordsRead++
	}

	columns := make([]core.Column, len(c.headers))
	for i, name := range c.headers {
		vals := values[i]
		if vals == nil {
			vals = []interface{}{}
		}
		columns[i] = core.Column{Name: name, Type: core.Categorical, Values: vals}
	}

	table, err := core.NewTable(columns...)
	if err != nil {
		return nil, &core.ReadError{Op: "build_table", Path: c.path, Err: err}
	}
	return table, nil
}

// Close implements the TableSource interface.
func (c *CSVReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns CSV reader performance stats.
func (c *CSVReader) Stats() CSVReaderStats {
	return c.stats
}

// Headers returns the column names, as read or generated.
func (c *CSVReader) Headers() []string {
	return c.headers
}

func (c *CSVReader) isMissing(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || c.missing[trimmed]
}
