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
	"errors"
	"fmt"
)

// Package core defines the error types for the dataops loan pipeline.
//
// Read, parse and schema errors abort a run. Sink errors are isolated per
// table and handled according to an ErrorStrategy.

// ErrUnmappedValue is returned in strict mode when a dimension value has no
// surrogate key.
var ErrUnmappedValue = errors.New("value has no surrogate key")

// ReadError reports that the input could not be read or parsed as delimited text.
type ReadError struct {
	Op   string // Operation that failed (e.g., "open", "read_headers", "read_record")
	Path string // Input location, when known
	Err  error  // Underlying error
}

func (e *ReadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("read %s [%s]: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ParseError reports a value that does not match its column's expected format.
type ParseError struct {
	Column string
	Row    int // Zero-based row index in the table being processed
	Value  interface{}
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse column %s row %d value %q: %v", e.Column, e.Row, fmt.Sprint(e.Value), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a required column that is absent.
type SchemaError struct {
	Op     string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s column %s: %v", e.Op, e.Column, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// SinkError reports a failed table load.
type SinkError struct {
	Op    string // Operation that failed (e.g., "open", "write", "close")
	Table string
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s [%s]: %v", e.Op, e.Table, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// ErrorStrategy defines how to handle sink errors during the load phase.
type ErrorStrategy int

const (
	// CollectErrors keeps loading the remaining tables and reports every failure.
	CollectErrors ErrorStrategy = iota
	// FailFast stops the load phase on the first failed table.
	FailFast
)
