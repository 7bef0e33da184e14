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

package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/logging"
)

// Package load writes a set of named tables into a core.TableSink, isolating
// the failure of one table from the others.

// NamedTable pairs a destination table name with its contents.
type NamedTable struct {
	Name  string
	Table *core.Table
}

// TableResult is the outcome of loading one table.
type TableResult struct {
	Table    string        `json:"table" bson:"table"`
	Rows     int           `json:"rows" bson:"rows"`
	OK       bool          `json:"ok" bson:"ok"`
	Error    string        `json:"error,omitempty" bson:"error,omitempty"`
	Duration time.Duration `json:"duration" bson:"duration"`
	Err      error         `json:"-" bson:"-"`
}

// Summary reports the per-table outcome of a load.
type Summary struct {
	Results   []TableResult `json:"results" bson:"results"`
	Succeeded int           `json:"succeeded" bson:"succeeded"`
	Total     int           `json:"total" bson:"total"`
}

// OK reports whether every table was loaded.
func (s *Summary) OK() bool {
	return s.Succeeded == s.Total
}

// Errors returns the failures, in load order.
func (s *Summary) Errors() []error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d/%d tables loaded", s.Succeeded, s.Total)
}

// Loader loads tables one at a time into a sink.
type Loader struct {
	sink     core.TableSink
	strategy core.ErrorStrategy
	logger   *logrus.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithErrorStrategy selects whether a failed table stops the load.
func WithErrorStrategy(strategy core.ErrorStrategy) Option {
	return func(l *Loader) {
		l.strategy = strategy
	}
}

// WithLogger sets the logger used for per-table results.
func WithLogger(logger *logrus.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New returns a loader for sink. Failures are collected by default.
func New(sink core.TableSink, opts ...Option) *Loader {
	l := &Loader{sink: sink, strategy: core.CollectErrors}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDiscard(l.logger)
	return l
}

// Load loads tables in order. A failed table is recorded in the summary and,
// under CollectErrors, the remaining tables are still loaded. The returned
// error is non-nil only when ctx is cancelled or, under FailFast, for the
// first failed table.
func (l *Loader) Load(ctx context.Context, tables []NamedTable) (*Summary, error) {
	summary := &Summary{Total: len(tables)}

	for _, nt := range tables {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		start := time.Now()
		err := l.sink.LoadTable(ctx, nt.Name, nt.Table)
		result := TableResult{
			Table:    nt.Name,
			Rows:     nt.Table.NumRows(),
			OK:       err == nil,
			Duration: time.Since(start),
		}
		entry := l.logger.WithFields(logrus.Fields{
			"table":    nt.Name,
			"rows":     result.Rows,
			"duration": result.Duration,
		})

		if err != nil {
			var sinkErr *core.SinkError
			if !errors.As(err, &sinkErr) {
				err = &core.SinkError{Op: "load", Table: nt.Name, Err: err}
			}
			result.Err = err
			result.Error = err.Error()
			summary.Results = append(summary.Results, result)
			entry.WithError(err).Error("table load failed")

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			if l.strategy == core.FailFast {
				return summary, err
			}
			continue
		}

		summary.Succeeded++
		summary.Results = append(summary.Results, result)
		entry.Info("table loaded")
	}
	return summary, nil
}
