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
	"context"
	"fmt"
)

// Column is a named, typed sequence of values. A nil value is missing.
type Column struct {
	Name   string
	Type   SemanticType
	Values []interface{}
}

// Missing returns the number of nil values in the column.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the column's value slice.
func (c *Column) Clone() Column {
	values := make([]interface{}, len(c.Values))
	copy(values, c.Values)
	return Column{Name: c.Name, Type: c.Type, Values: values}
}

// Table is an ordered set of equal-length columns.
//
// Stages treat tables as immutable: every transformation returns a new table
// and leaves its input untouched.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from columns. All columns must have the same length
// and distinct names.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), t.rows)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Intended for tests and
// literals that are known to be well formed.
func MustTable(columns ...Column) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.rows
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The returned column shares storage with
// the table and must not be modified.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.columns[i], true
}

// Columns returns the columns in order. The slice shares storage with the table.
func (t *Table) Columns() []Column {
	return t.columns
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Row returns row i as a Record.
func (t *Table) Row(i int) Record {
	rec := make(Record, len(t.columns))
	for _, c := range t.columns {
		rec[c.Name] = c.Values[i]
	}
	return rec
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.columns))
	for i := range t.columns {
		cols[i] = t.columns[i].Clone()
	}
	return MustTable(cols...)
}

// Select returns a new table with the named columns in the given order.
// Names that do not exist are skipped.
func (t *Table) Select(names ...string) *Table {
	cols := make([]Column, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, c.Clone())
	}
	out := MustTable(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out
}

// WithColumn returns a new table with c appended, or replacing the column of
// the same name in place.
func (t *Table) WithColumn(c Column) (*Table, error) {
	if len(t.columns) > 0 && len(c.Values) != t.rows {
		return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), t.rows)
	}
	cols := make([]Column, 0, len(t.columns)+1)
	replaced := false
	for i := range t.columns {
		if t.columns[i].Name == c.Name {
			cols = append(cols, c)
			replaced = true
			continue
		}
		cols = append(cols, t.columns[i].Clone())
	}
	if !replaced {
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

// FilterRows returns a new table holding the rows for which keep returns true,
// in their original order.
func (t *Table) FilterRows(ctx context.Context, keep Filter) (*Table, error) {
	kept := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		ok, err := keep.ShouldInclude(ctx, t.Row(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if ok {
			kept = append(kept, i)
		}
	}

	cols := make([]Column, len(t.columns))
	for ci, c := range t.columns {
		values := make([]interface{}, len(kept))
		for j, ri := range kept {
			values[j] = c.Values[ri]
		}
		cols[ci] = Column{Name: c.Name, Type: c.Type, Values: values}
	}
	out := MustTable(cols...)
	if len(cols) == 0 {
		out.rows = len(kept)
	}
	return out, nil
}

// CopyTo streams every row of the table into sink and flushes it, through
// FlushContext when the sink has one. The sink is not closed.
func (t *Table) CopyTo(ctx context.Context, sink DataSink) error {
	for i := 0; i < t.rows; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.Write(ctx, t.Row(i)); err != nil {
			return err
		}
	}
	if f, ok := sink.(ContextFlusher); ok {
		return f.FlushContext(ctx)
	}
	return sink.Flush()
}
