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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/schema"
)

func nulls(n, missing int) []interface{} {
	values := make([]interface{}, n)
	for i := missing; i < n; i++ {
		values[i] = "x"
	}
	return values
}

func TestProject(t *testing.T) {
	table := core.MustTable(
		core.Column{Name: "member_id", Values: []interface{}{"m1"}},
		core.Column{Name: "loan_status", Values: []interface{}{"Current"}},
		core.Column{Name: "loan_amnt", Values: []interface{}{int64(100)}},
	)

	out, err := Project(schema.Loans).Transform(context.Background(), table)
	require.NoError(t, err)

	// descriptor order, absent whitelist entries ignored
	assert.Equal(t, []string{"loan_amnt", "loan_status"}, out.ColumnNames())
	assert.Equal(t, 1, out.NumRows())
	assert.Equal(t, 3, table.NumColumns())
}

func TestPruneNulls_Boundary(t *testing.T) {
	table := core.MustTable(
		core.Column{Name: "at", Values: nulls(10000, 3000)},
		core.Column{Name: "over", Values: nulls(10000, 3001)},
		core.Column{Name: "none", Values: nulls(10000, 0)},
		core.Column{Name: "all", Values: nulls(10000, 10000)},
	)

	out, err := PruneNulls(30).Transform(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, []string{"at", "none"}, out.ColumnNames())
	assert.Equal(t, 10000, out.NumRows())
}

func TestPruneNulls_SmallTables(t *testing.T) {
	table := core.MustTable(
		core.Column{Name: "three", Values: nulls(10, 3)},
		core.Column{Name: "four", Values: nulls(10, 4)},
	)
	out, err := PruneNulls(30).Transform(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, []string{"three"}, out.ColumnNames())

	empty := core.MustTable(core.Column{Name: "a", Values: []interface{}{}})
	out, err = PruneNulls(0).Transform(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.ColumnNames())

	assert.InDelta(t, 40.0, MissingPercent(table)["four"], 1e-9)
}

func TestFillMissing(t *testing.T) {
	table := core.MustTable(core.Column{Name: "emp_length", Values: []interface{}{"5 years", nil}})

	out, err := FillMissing("emp_length", "N/A").Transform(context.Background(), table)
	require.NoError(t, err)
	col, _ := out.Column("emp_length")
	assert.Equal(t, []interface{}{"5 years", "N/A"}, col.Values)

	orig, _ := table.Column("emp_length")
	assert.Nil(t, orig.Values[1])
}

func TestFillMissing_NumericColumnBecomesText(t *testing.T) {
	table := core.MustTable(core.Column{
		Name:   "emp_length",
		Type:   core.Integer,
		Values: []interface{}{int64(5), nil, int64(3), int64(2)},
	})

	out, err := FillMissing("emp_length", "N/A").Transform(context.Background(), table)
	require.NoError(t, err)
	col, _ := out.Column("emp_length")
	assert.Equal(t, core.Categorical, col.Type)
	assert.Equal(t, []interface{}{"5", "N/A", "3", "2"}, col.Values)

	orig, _ := table.Column("emp_length")
	assert.Equal(t, core.Integer, orig.Type)
	assert.Equal(t, int64(5), orig.Values[0])
}

func TestFillMissing_MatchingTypeIsKept(t *testing.T) {
	table := core.MustTable(core.Column{
		Name:   "dti",
		Type:   core.Float,
		Values: []interface{}{12.5, nil},
	})

	out, err := FillMissing("dti", 0.0).Transform(context.Background(), table)
	require.NoError(t, err)
	col, _ := out.Column("dti")
	assert.Equal(t, core.Float, col.Type)
	assert.Equal(t, []interface{}{12.5, 0.0}, col.Values)
}

func TestDropWhereEquals(t *testing.T) {
	table := core.MustTable(
		core.Column{Name: "application_type", Values: []interface{}{"Individual", "<NA>", nil, "Joint App"}},
		core.Column{Name: "loan_amnt", Values: []interface{}{int64(1), int64(2), int64(3), int64(4)}},
	)

	out, err := DropWhereEquals("application_type", "<NA>").Transform(context.Background(), table)
	require.NoError(t, err)
	amt, _ := out.Column("loan_amnt")
	assert.Equal(t, []interface{}{int64(1), int64(3), int64(4)}, amt.Values)
}

func TestParseDate(t *testing.T) {
	table := core.MustTable(core.Column{Name: "issue_d", Values: []interface{}{"Jan-2018", nil, "Dec-2015"}})

	out, err := ParseDate("issue_d", schema.IssueDateLayout).Transform(context.Background(), table)
	require.NoError(t, err)
	col, _ := out.Column("issue_d")
	assert.Equal(t, core.Date, col.Type)
	assert.Equal(t, []interface{}{
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		nil,
		time.Date(2015, 12, 1, 0, 0, 0, 0, time.UTC),
	}, col.Values)

	bad := core.MustTable(core.Column{Name: "issue_d", Values: []interface{}{"Jan-2018", "2018-01"}})
	_, err = ParseDate("issue_d", schema.IssueDateLayout).Transform(context.Background(), bad)
	var pe *core.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Row)
	assert.Equal(t, "2018-01", pe.Value)
}

func TestPercentToFraction(t *testing.T) {
	table := core.MustTable(core.Column{Name: "int_rate", Type: core.Categorical, Values: []interface{}{"10.25%", " 7.5% ", nil}})

	out, err := PercentToFraction("int_rate").Transform(context.Background(), table)
	require.NoError(t, err)
	col, _ := out.Column("int_rate")
	assert.Equal(t, core.Float, col.Type)
	assert.Equal(t, []interface{}{0.1025, 0.075, nil}, col.Values)

	// second application is a no-op on the numeric column
	again, err := PercentToFraction("int_rate").Transform(context.Background(), out)
	require.NoError(t, err)
	col, _ = again.Column("int_rate")
	assert.Equal(t, []interface{}{0.1025, 0.075, nil}, col.Values)

	bad := core.MustTable(core.Column{Name: "int_rate", Values: []interface{}{"ten%"}})
	_, err = PercentToFraction("int_rate").Transform(context.Background(), bad)
	var pe *core.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestPercentToFraction_NumericPassesThrough(t *testing.T) {
	table := core.MustTable(core.Column{Name: "int_rate", Type: core.Float, Values: []interface{}{0.1025}})
	out, err := PercentToFraction("int_rate").Transform(context.Background(), table)
	require.NoError(t, err)
	col, _ := out.Column("int_rate")
	assert.Equal(t, []interface{}{0.1025}, col.Values)
}

func TestRulesSkipAbsentColumns(t *testing.T) {
	table := core.MustTable(core.Column{Name: "loan_amnt", Values: []interface{}{int64(1)}})
	for _, tr := range []core.Transformer{
		FillMissing("emp_length", "N/A"),
		DropWhereEquals("application_type", "<NA>"),
		ParseDate("issue_d", schema.IssueDateLayout),
		PercentToFraction("int_rate"),
	} {
		out, err := tr.Transform(context.Background(), table)
		require.NoError(t, err)
		assert.Equal(t, []string{"loan_amnt"}, out.ColumnNames())
	}
}

func TestChain(t *testing.T) {
	table := core.MustTable(
		core.Column{Name: "a", Values: []interface{}{nil}},
		core.Column{Name: "b", Values: []interface{}{"x"}},
	)
	out, err := Chain(FillMissing("a", "filled"), Select("a")).Transform(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"a": "filled"}, out.Row(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Chain(Select("a")).Transform(ctx, table)
	assert.ErrorIs(t, err, context.Canceled)
}
