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

// Package fact assembles the fact table from the cleaned loan table and the
// dimension mappings.
package fact

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/dimension"
	"github.com/aekanun2020/2025-12-dataops/logging"
	"github.com/aekanun2020/2025-12-dataops/schema"
)

// Stats holds what the last Assemble call did.
type Stats struct {
	Rows int
	// Unmapped counts, per key column, present values that had no surrogate
	// key and became null foreign keys.
	Unmapped         map[string]int
	AssembleDuration time.Duration
}

// Options configures an Assembler.
type Options struct {
	StrictKeys bool
	Logger     *logrus.Logger
}

// Option allows functional customization of an Assembler.
type Option func(*Options)

// WithStrictKeys makes an unmapped dimension value an error wrapping
// core.ErrUnmappedValue instead of a null foreign key.
func WithStrictKeys() Option {
	return func(o *Options) { o.StrictKeys = true }
}

// WithLogger sets the logger used to report unmapped values.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// Assembler replaces dimension values with surrogate keys and projects the
// fact columns.
type Assembler struct {
	desc   schema.Descriptor
	opts   Options
	logger *logrus.Logger
	stats  Stats
}

// NewAssembler creates an Assembler for the descriptor.
func NewAssembler(d schema.Descriptor, options ...Option) *Assembler {
	var opts Options
	for _, opt := range options {
		opt(&opts)
	}
	return &Assembler{desc: d, opts: opts, logger: logging.OrDiscard(opts.Logger)}
}

// Assemble builds the fact table. For every mapping whose source column is
// present a "<column>_id" column is added; then the table is projected to the
// descriptor's fact columns that exist. The row count is always preserved.
func (a *Assembler) Assemble(ctx context.Context, cleaned *core.Table, mappings dimension.Mappings) (*core.Table, error) {
	start := time.Now()
	stats := Stats{Rows: cleaned.NumRows(), Unmapped: make(map[string]int)}

	table := cleaned
	for _, m := range mappings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		field := m.Field()
		src, ok := table.Column(field.Name)
		if !ok {
			continue
		}

		keys := core.Column{Name: field.KeyColumn(), Type: core.Integer, Values: make([]interface{}, len(src.Values))}
		for i, v := range src.Values {
			key, ok := m.Lookup(v)
			if !ok {
				// a dimension built elsewhere may lack the null member
				if v == nil {
					continue
				}
				if a.opts.StrictKeys {
					return nil, fmt.Errorf("%s row %d value %v: %w", field.Name, i, v, core.ErrUnmappedValue)
				}
				stats.Unmapped[keys.Name]++
				continue
			}
			keys.Values[i] = key
		}

		if n := stats.Unmapped[keys.Name]; n > 0 {
			a.logger.WithFields(logrus.Fields{
				"column":   field.Name,
				"key":      keys.Name,
				"unmapped": n,
			}).Warn("dimension values without surrogate key became null foreign keys")
		}

		var err error
		if table, err = table.WithColumn(keys); err != nil {
			return nil, err
		}
	}

	fact := table.Select(a.desc.FactColumns()...)
	stats.AssembleDuration = time.Since(start)
	a.stats = stats
	return fact, nil
}

// Stats returns the statistics of the last Assemble call.
func (a *Assembler) Stats() Stats {
	return a.stats
}
