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

// Package dimension builds star-schema dimension tables and the value to
// surrogate-key mappings used to assemble the fact table.
package dimension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/schema"
)

const (
	MonthColumn = "month"
	YearColumn  = "year"
)

var errMissingSource = errors.New("required dimension source column is missing")

// Dimension is the table of unique members of one source column.
//
// Columns are the natural value, the calendar attributes for a date
// dimension, and the surrogate key "<column>_id". Keys are dense, start at 0
// and follow the order in which members first appear. A missing source
// value is a member of its own, appearing once with null attributes.
type Dimension struct {
	Field schema.Field
	Table *core.Table
}

// Name is the source column name.
func (d *Dimension) Name() string {
	return d.Field.Name
}

// Len returns the number of members.
func (d *Dimension) Len() int {
	return d.Table.NumRows()
}

// Members returns the natural values in key order.
func (d *Dimension) Members() []interface{} {
	c, _ := d.Table.Column(d.Field.Name)
	return c.Values
}

// Mapping converts the dimension into a value to key lookup keyed by the
// natural value (for a date dimension, the date itself).
func (d *Dimension) Mapping() *Mapping {
	members := d.Members()
	keys := make(map[interface{}]int64, len(members))
	for i, v := range members {
		keys[normalize(v)] = int64(i)
	}
	return &Mapping{field: d.Field, keys: keys}
}

// Build creates the dimension for field from table. A date dimension also
// carries month and year. A missing source column is a *core.SchemaError.
func Build(table *core.Table, field schema.Field) (*Dimension, error) {
	src, ok := table.Column(field.Name)
	if !ok {
		return nil, &core.SchemaError{Op: "build_dimension", Column: field.Name, Err: errMissingSource}
	}

	seen := make(map[interface{}]bool)
	var members []interface{}
	for _, v := range src.Values {
		k := normalize(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		members = append(members, v)
	}
	if members == nil {
		members = []interface{}{}
	}

	cols := []core.Column{{Name: field.Name, Type: src.Type, Values: members}}

	if field.Role == schema.DateDimension {
		months := make([]interface{}, len(members))
		years := make([]interface{}, len(members))
		for i, v := range members {
			if v == nil {
				continue
			}
			t, ok := v.(time.Time)
			if !ok {
				return nil, &core.SchemaError{Op: "build_date_dimension", Column: field.Name, Err: fmt.Errorf("member %v is %T, not a date", v, v)}
			}
			months[i] = int64(t.Month())
			years[i] = int64(t.Year())
		}
		cols = append(cols,
			core.Column{Name: MonthColumn, Type: core.Integer, Values: months},
			core.Column{Name: YearColumn, Type: core.Integer, Values: years},
		)
	}

	ids := make([]interface{}, len(members))
	for i := range members {
		ids[i] = int64(i)
	}
	cols = append(cols, core.Column{Name: field.KeyColumn(), Type: core.Integer, Values: ids})

	dim, err := core.NewTable(cols...)
	if err != nil {
		return nil, &core.SchemaError{Op: "build_dimension", Column: field.Name, Err: err}
	}
	return &Dimension{Field: field, Table: dim}, nil
}

// BuildAll creates every dimension the descriptor names, in descriptor
// order. Unlike projection and cleaning this is strict: every dimension
// source column must be present.
func BuildAll(ctx context.Context, table *core.Table, d schema.Descriptor) ([]*Dimension, error) {
	fields := d.Dimensions()
	dims := make([]*Dimension, 0, len(fields))
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dim, err := Build(table, f)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}
	return dims, nil
}

// Mapping is an immutable natural value to surrogate key lookup for one
// dimension. It is built once per run and only read afterwards.
type Mapping struct {
	field schema.Field
	keys  map[interface{}]int64
}

// Field returns the dimension field the mapping was built from.
func (m *Mapping) Field() schema.Field {
	return m.field
}

// Len returns the number of mapped values.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Lookup returns the surrogate key for v. A nil v resolves to the null
// member when the dimension has one.
func (m *Mapping) Lookup(v interface{}) (int64, bool) {
	k, ok := m.keys[normalize(v)]
	return k, ok
}

// Mappings holds one Mapping per dimension, in dimension order.
type Mappings []*Mapping

// NewMappings converts every dimension into its mapping.
func NewMappings(dims []*Dimension) Mappings {
	out := make(Mappings, len(dims))
	for i, d := range dims {
		out[i] = d.Mapping()
	}
	return out
}

// Get returns the mapping for the named source column.
func (ms Mappings) Get(column string) (*Mapping, bool) {
	for _, m := range ms {
		if m.field.Name == column {
			return m, true
		}
	}
	return nil, false
}

// timeKey identifies an instant independently of its location.
type timeKey int64

// normalize turns v into a comparable map key. Integer widths collapse to
// int64 and times compare by instant.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		return timeKey(x.UnixNano())
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
