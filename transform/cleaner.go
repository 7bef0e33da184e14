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

package transform

import (
	"context"
	"sort"
	"time"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/schema"
)

// CleanerStats holds what the last Transform call did.
type CleanerStats struct {
	RowsIn        int
	RowsOut       int
	ValuesFilled  int
	RulesApplied  []string
	RulesSkipped  []string
	CleanDuration time.Duration
}

// Cleaner applies the cleaning rules attached to a schema descriptor.
//
// Rules run in a fixed order regardless of descriptor order: fills, then row
// drops, then date parsing, then percent conversion. Dropping first means a
// row removed by a sentinel is never parsed.
type Cleaner struct {
	fields []schema.Field
	stats  CleanerStats
}

// NewCleaner builds a Cleaner for every field of d that carries a rule.
func NewCleaner(d schema.Descriptor) *Cleaner {
	fields := d.Rules()
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Rule.Kind < fields[j].Rule.Kind
	})
	return &Cleaner{fields: fields}
}

// Transform implements core.Transformer.
func (c *Cleaner) Transform(ctx context.Context, table *core.Table) (*core.Table, error) {
	start := time.Now()
	stats := CleanerStats{RowsIn: table.NumRows()}

	for _, f := range c.fields {
		if !table.Has(f.Name) {
			stats.RulesSkipped = append(stats.RulesSkipped, f.Name)
			continue
		}
		if f.Rule.Kind == schema.FillMissing {
			col, _ := table.Column(f.Name)
			stats.ValuesFilled += col.Missing()
		}

		var err error
		table, err = ruleTransformer(f).Transform(ctx, table)
		if err != nil {
			return nil, err
		}
		stats.RulesApplied = append(stats.RulesApplied, f.Name)
	}

	stats.RowsOut = table.NumRows()
	stats.CleanDuration = time.Since(start)
	c.stats = stats
	return table, nil
}

// Stats returns the statistics of the last Transform call.
func (c *Cleaner) Stats() CleanerStats {
	return c.stats
}

func ruleTransformer(f schema.Field) core.Transformer {
	switch f.Rule.Kind {
	case schema.FillMissing:
		return FillMissing(f.Name, f.Rule.Arg)
	case schema.DropSentinel:
		return DropWhereEquals(f.Name, f.Rule.Arg)
	case schema.ParseLayout:
		return ParseDate(f.Name, f.Rule.Arg)
	case schema.PercentToFraction:
		return PercentToFraction(f.Name)
	default:
		return Chain()
	}
}
