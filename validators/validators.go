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

// validators.go - fact table conservation checks
package validators

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aekanun2020/2025-12-dataops/aggregate"
	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/schema"
)

// SumCheck compares the total of one measure in the fact table and in the
// cleaned table it came from.
type SumCheck struct {
	Column  string          `json:"column" bson:"column"`
	Fact    decimal.Decimal `json:"fact" bson:"fact"`
	Cleaned decimal.Decimal `json:"cleaned" bson:"cleaned"`
	Match   bool            `json:"match" bson:"match"`
	// Err is set when a value could not be summed; Match is then false.
	Err string `json:"error,omitempty" bson:"error,omitempty"`
}

// RangeCheck holds the smallest and largest value of one fact measure.
// Min and Max are nil when the column has no values.
type RangeCheck struct {
	Column string           `json:"column" bson:"column"`
	Min    *decimal.Decimal `json:"min,omitempty" bson:"min,omitempty"`
	Max    *decimal.Decimal `json:"max,omitempty" bson:"max,omitempty"`
	Err    string           `json:"error,omitempty" bson:"error,omitempty"`
}

// Report is the diagnostic result of validating a fact table. It is data for
// the caller to act on; producing it never fails the run.
type Report struct {
	RowCountMatch   bool           `json:"row_count_match" bson:"row_count_match"`
	FactRows        int            `json:"fact_rows" bson:"fact_rows"`
	CleanedRows     int            `json:"cleaned_rows" bson:"cleaned_rows"`
	NullForeignKeys map[string]int `json:"null_foreign_keys" bson:"null_foreign_keys"`
	Sums            []SumCheck     `json:"sums" bson:"sums"`
	Ranges          []RangeCheck   `json:"ranges,omitempty" bson:"ranges,omitempty"`
	Violations      []Violation    `json:"violations,omitempty" bson:"violations,omitempty"`
}

// SumMatch returns the result of the sum check for column and whether the
// check ran at all.
func (r *Report) SumMatch(column string) (match, checked bool) {
	for _, s := range r.Sums {
		if s.Column == column {
			return s.Match, true
		}
	}
	return false, false
}

// Passed reports whether row counts and every sum match and no quality rule
// was violated. Null foreign keys alone do not fail a report.
func (r *Report) Passed() bool {
	if !r.RowCountMatch || len(r.Violations) > 0 {
		return false
	}
	for _, s := range r.Sums {
		if !s.Match {
			return false
		}
	}
	return true
}

// Validate compares fact against the cleaned table it was assembled from:
// row counts, null counts of every "_id" column, and the sums of the audited
// measures present in both tables. The value range of each audited fact
// measure is reported alongside.
func Validate(ctx context.Context, fact, cleaned *core.Table, d schema.Descriptor) *Report {
	report := &Report{
		FactRows:        countRows(ctx, fact),
		CleanedRows:     countRows(ctx, cleaned),
		NullForeignKeys: make(map[string]int),
	}
	report.RowCountMatch = report.FactRows == report.CleanedRows

	for _, name := range fact.ColumnNames() {
		if !strings.HasSuffix(name, "_id") {
			continue
		}
		nulls := &aggregate.NullCountAggregator{Field: name}
		// NullCountAggregator never fails; only cancellation can stop Run.
		_ = aggregate.Run(ctx, fact.Select(name), nulls)
		report.NullForeignKeys[name] = nulls.Nulls()
	}

	for _, f := range d.Audited() {
		if !fact.Has(f.Name) || !cleaned.Has(f.Name) {
			continue
		}
		report.Sums = append(report.Sums, compareSums(ctx, f.Name, fact, cleaned))
	}
	for _, f := range d.Audited() {
		if fact.Has(f.Name) {
			report.Ranges = append(report.Ranges, measureRange(ctx, f.Name, fact))
		}
	}
	return report
}

func countRows(ctx context.Context, table *core.Table) int {
	count := &aggregate.CountAggregator{}
	if err := aggregate.Run(ctx, table, count); err != nil {
		return table.NumRows()
	}
	return count.Count()
}

func measureRange(ctx context.Context, column string, fact *core.Table) RangeCheck {
	check := RangeCheck{Column: column}
	low := &aggregate.MinAggregator{Field: column}
	high := &aggregate.MaxAggregator{Field: column}
	if err := aggregate.Run(ctx, fact.Select(column), low, high); err != nil {
		check.Err = err.Error()
		return check
	}
	if v, ok := low.Min(); ok {
		check.Min = &v
	}
	if v, ok := high.Max(); ok {
		check.Max = &v
	}
	return check
}

func compareSums(ctx context.Context, column string, fact, cleaned *core.Table) SumCheck {
	check := SumCheck{Column: column}

	factSum := &aggregate.SumAggregator{Field: column}
	if err := aggregate.Run(ctx, fact.Select(column), factSum); err != nil {
		check.Err = err.Error()
		return check
	}
	cleanedSum := &aggregate.SumAggregator{Field: column}
	if err := aggregate.Run(ctx, cleaned.Select(column), cleanedSum); err != nil {
		check.Err = err.Error()
		return check
	}

	check.Fact = factSum.Sum()
	check.Cleaned = cleanedSum.Sum()
	check.Match = check.Fact.Equal(check.Cleaned)
	return check
}
