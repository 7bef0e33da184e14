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
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/filter"
	"github.com/aekanun2020/2025-12-dataops/infer"
	"github.com/aekanun2020/2025-12-dataops/schema"
)

// Package transform provides the table-to-table stages between type
// coercion and dimension building: column projection, null-driven column
// pruning and the per-column cleaning rules.
//
// Every function returns a core.Transformer. Inputs are never mutated and a
// rule whose column is absent passes the table through unchanged.

var hundred = decimal.NewFromInt(100)

// Select creates a transformer that keeps only the named columns, in the given
// order. Names absent from the input are skipped without error.
func Select(names ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, table *core.Table) (*core.Table, error) {
		return table.Select(names...), nil
	})
}

// Project keeps the columns named by the descriptor and drops everything else.
func Project(d schema.Descriptor) core.Transformer {
	return Select(d.Names()...)
}

// PruneNulls drops every column whose missing percentage exceeds threshold
// (0-100). A column exactly at the threshold is kept. A table with no rows
// keeps all of its columns.
func PruneNulls(threshold float64) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, table *core.Table) (*core.Table, error) {
		rows := float64(table.NumRows())
		var keep []string
		for _, c := range table.Columns() {
			if float64(c.Missing())*100 <= threshold*rows {
				keep = append(keep, c.Name)
			}
		}
		return table.Select(keep...), nil
	})
}

// MissingPercent returns the missing percentage of every column.
func MissingPercent(table *core.Table) map[string]float64 {
	out := make(map[string]float64, table.NumColumns())
	rows := table.NumRows()
	for _, c := range table.Columns() {
		if rows == 0 {
			out[c.Name] = 0
			continue
		}
		out[c.Name] = float64(c.Missing()) * 100 / float64(rows)
	}
	return out
}

// FillMissing creates a transformer that replaces missing values in column
// with value. A column whose type cannot hold value is first converted to
// categorical text, so a numeric emp_length filled with "N/A" stays
// uniformly typed.
func FillMissing(column string, value interface{}) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, table *core.Table) (*core.Table, error) {
		c, ok := table.Column(column)
		if !ok || c.Missing() == 0 {
			return table, nil
		}
		filled := c.Clone()
		if !holds(c.Type, value) {
			text, err := infer.CoerceColumn(c, core.Categorical)
			if err != nil {
				return nil, err
			}
			filled = text
		}
		for i, v := range filled.Values {
			if v == nil {
				filled.Values[i] = value
			}
		}
		return table.WithColumn(filled)
	})
}

// holds reports whether a column of type typ can store value unchanged.
func holds(typ core.SemanticType, value interface{}) bool {
	switch value.(type) {
	case string:
		return typ == core.Categorical
	case int64:
		return typ == core.Integer
	case float64:
		return typ == core.Float
	case time.Time:
		return typ == core.Date || typ == core.Datetime
	default:
		return false
	}
}

// DropWhereEquals creates a transformer that removes rows whose column value
// equals sentinel. Missing values are kept.
func DropWhereEquals(column string, sentinel interface{}) core.Transformer {
	keep := filter.Not(filter.Equals(column, sentinel))
	return core.TransformFunc(func(ctx context.Context, table *core.Table) (*core.Table, error) {
		if !table.Has(column) {
			return table, nil
		}
		return table.FilterRows(ctx, keep)
	})
}

// ParseDate creates a transformer that parses text values of column with the
// given Go time layout. Values that are already dates pass through and
// missing values stay missing; anything else that does not match is a
// *core.ParseError.
func ParseDate(column, layout string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, table *core.Table) (*core.Table, error) {
		c, ok := table.Column(column)
		if !ok {
			return table, nil
		}
		parsed := core.Column{Name: c.Name, Type: core.Date, Values: make([]interface{}, len(c.Values))}
		for i, v := range c.Values {
			switch x := v.(type) {
			case nil:
			case time.Time:
				parsed.Values[i] = x
			case string:
				t, err := time.Parse(layout, strings.TrimSpace(x))
				if err != nil {
					return nil, &core.ParseError{Column: column, Row: i, Value: v, Err: err}
				}
				parsed.Values[i] = t
			default:
				return nil, &core.ParseError{Column: column, Row: i, Value: v, Err: fmt.Errorf("want text in layout %q, got %T", layout, v)}
			}
		}
		return table.WithColumn(parsed)
	})
}

// PercentToFraction creates a transformer that converts percent text such as
// "10.25%" into the fraction 0.1025. It applies only while the column is
// textual, so running it on an already converted column is a no-op.
func PercentToFraction(column string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, table *core.Table) (*core.Table, error) {
		c, ok := table.Column(column)
		if !ok || c.Type != core.Categorical {
			return table, nil
		}
		converted := core.Column{Name: c.Name, Type: core.Float, Values: make([]interface{}, len(c.Values))}
		for i, v := range c.Values {
			if v == nil {
				continue
			}
			s, isText := v.(string)
			if !isText {
				return nil, &core.ParseError{Column: column, Row: i, Value: v, Err: fmt.Errorf("want percent text, got %T", v)}
			}
			d, err := decimal.NewFromString(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "%")))
			if err != nil {
				return nil, &core.ParseError{Column: column, Row: i, Value: v, Err: err}
			}
			f, _ := d.Div(hundred).Float64()
			converted.Values[i] = f
		}
		return table.WithColumn(converted)
	})
}

// Chain runs transformers in order, feeding each one's output to the next.
func Chain(transformers ...core.Transformer) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, table *core.Table) (*core.Table, error) {
		var err error
		for _, t := range transformers {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
			if table, err = t.Transform(ctx, table); err != nil {
				return nil, err
			}
		}
		return table, nil
	})
}
