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

package aggregate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aekanun2020/2025-12-dataops/core"
)

// CountAggregator counts the number of records
type CountAggregator struct {
	count int
}

func (c *CountAggregator) Add(ctx context.Context, record core.Record) error {
	c.count++
	return nil
}

func (c *CountAggregator) Result() (core.Record, error) {
	return core.Record{"count": c.count}, nil
}

func (c *CountAggregator) Reset() {
	c.count = 0
}

// Count returns the number of records seen.
func (c *CountAggregator) Count() int {
	return c.count
}

// NullCountAggregator counts records where Field is missing or nil
type NullCountAggregator struct {
	Field string
	nulls int
}

func (n *NullCountAggregator) Add(ctx context.Context, record core.Record) error {
	if record[n.Field] == nil {
		n.nulls++
	}
	return nil
}

func (n *NullCountAggregator) Result() (core.Record, error) {
	return core.Record{"nulls": n.nulls}, nil
}

func (n *NullCountAggregator) Reset() {
	n.nulls = 0
}

// Nulls returns the current count.
func (n *NullCountAggregator) Nulls() int {
	return n.nulls
}

// SumAggregator sums numeric values exactly. Missing values are skipped; any
// other non-numeric value is an error.
type SumAggregator struct {
	Field string
	sum   decimal.Decimal
	count int
}

func (s *SumAggregator) Add(ctx context.Context, record core.Record) error {
	value := record[s.Field]
	if value == nil {
		return nil
	}
	d, err := toDecimal(value)
	if err != nil {
		return fmt.Errorf("sum %s: %w", s.Field, err)
	}
	s.sum = s.sum.Add(d)
	s.count++
	return nil
}

func (s *SumAggregator) Result() (core.Record, error) {
	return core.Record{"sum": s.sum, "count": s.count}, nil
}

func (s *SumAggregator) Reset() {
	s.sum = decimal.Zero
	s.count = 0
}

// Sum returns the current total.
func (s *SumAggregator) Sum() decimal.Decimal {
	return s.sum
}

// MinAggregator finds the minimum numeric value
type MinAggregator struct {
	Field string
	min   decimal.Decimal
	set   bool
}

func (m *MinAggregator) Add(ctx context.Context, record core.Record) error {
	value := record[m.Field]
	if value == nil {
		return nil
	}
	d, err := toDecimal(value)
	if err != nil {
		return fmt.Errorf("min %s: %w", m.Field, err)
	}
	if !m.set || d.LessThan(m.min) {
		m.min = d
		m.set = true
	}
	return nil
}

func (m *MinAggregator) Result() (core.Record, error) {
	if !m.set {
		return core.Record{"min": nil}, nil
	}
	return core.Record{"min": m.min}, nil
}

func (m *MinAggregator) Reset() {
	m.min = decimal.Zero
	m.set = false
}

// Min returns the smallest value and whether any value was seen.
func (m *MinAggregator) Min() (decimal.Decimal, bool) {
	return m.min, m.set
}

// MaxAggregator finds the maximum numeric value
type MaxAggregator struct {
	Field string
	max   decimal.Decimal
	set   bool
}

func (m *MaxAggregator) Add(ctx context.Context, record core.Record) error {
	value := record[m.Field]
	if value == nil {
		return nil
	}
	d, err := toDecimal(value)
	if err != nil {
		return fmt.Errorf("max %s: %w", m.Field, err)
	}
	if !m.set || d.GreaterThan(m.max) {
		m.max = d
		m.set = true
	}
	return nil
}

func (m *MaxAggregator) Result() (core.Record, error) {
	if !m.set {
		return core.Record{"max": nil}, nil
	}
	return core.Record{"max": m.max}, nil
}

func (m *MaxAggregator) Reset() {
	m.max = decimal.Zero
	m.set = false
}

// Max returns the largest value and whether any value was seen.
func (m *MaxAggregator) Max() (decimal.Decimal, bool) {
	return m.max, m.set
}

// DistinctAggregator counts distinct and duplicated non-missing values of Field
type DistinctAggregator struct {
	Field      string
	seen       map[interface{}]bool
	duplicates int
}

func (d *DistinctAggregator) Add(ctx context.Context, record core.Record) error {
	value := record[d.Field]
	if value == nil {
		return nil
	}
	if d.seen == nil {
		d.seen = make(map[interface{}]bool)
	}
	if d.seen[value] {
		d.duplicates++
		return nil
	}
	d.seen[value] = true
	return nil
}

func (d *DistinctAggregator) Result() (core.Record, error) {
	return core.Record{"distinct": len(d.seen), "duplicates": d.duplicates}, nil
}

func (d *DistinctAggregator) Reset() {
	d.seen = nil
	d.duplicates = 0
}

// Duplicates returns how many values repeated an earlier one.
func (d *DistinctAggregator) Duplicates() int {
	return d.duplicates
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case decimal.Decimal:
		return v, nil
	default:
		return decimal.Zero, fmt.Errorf("cannot convert %T to a number", value)
	}
}
