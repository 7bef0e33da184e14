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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aekanun2020/2025-12-dataops/core"
)

func TestRun(t *testing.T) {
	table := core.MustTable(
		core.Column{Name: "int_rate", Values: []interface{}{0.1, 0.2, nil, 0.3}},
		core.Column{Name: "loan_amnt", Values: []interface{}{int64(100), int64(250), int64(50), int64(100)}},
	)

	sum := &SumAggregator{Field: "int_rate"}
	nulls := &NullCountAggregator{Field: "int_rate"}
	count := &CountAggregator{}
	low := &MinAggregator{Field: "loan_amnt"}
	high := &MaxAggregator{Field: "loan_amnt"}
	distinct := &DistinctAggregator{Field: "loan_amnt"}

	require.NoError(t, Run(context.Background(), table, sum, nulls, count, low, high, distinct))

	// exact: 0.1 + 0.2 + 0.3 is 0.6, not 0.6000000000000001
	assert.True(t, sum.Sum().Equal(decimal.RequireFromString("0.6")), sum.Sum().String())
	assert.Equal(t, 1, nulls.Nulls())

	res, err := count.Result()
	require.NoError(t, err)
	assert.Equal(t, 4, res["count"])
	assert.Equal(t, 4, count.Count())

	lo, ok := low.Min()
	assert.True(t, ok)
	assert.Equal(t, "50", lo.String())
	hi, ok := high.Max()
	assert.True(t, ok)
	assert.Equal(t, "250", hi.String())

	res, _ = low.Result()
	assert.True(t, res["min"].(decimal.Decimal).Equal(decimal.NewFromInt(50)))
	res, _ = high.Result()
	assert.True(t, res["max"].(decimal.Decimal).Equal(decimal.NewFromInt(250)))

	res, _ = distinct.Result()
	assert.Equal(t, core.Record{"distinct": 3, "duplicates": 1}, res)
}

func TestSumAggregator_OrderIndependent(t *testing.T) {
	a := &SumAggregator{Field: "x"}
	b := &SumAggregator{Field: "x"}
	values := []float64{0.1025, 0.0899, 0.1311, 0.07}
	for i := range values {
		require.NoError(t, a.Add(context.Background(), core.Record{"x": values[i]}))
		require.NoError(t, b.Add(context.Background(), core.Record{"x": values[len(values)-1-i]}))
	}
	assert.True(t, a.Sum().Equal(b.Sum()))
}

func TestSumAggregator_RejectsText(t *testing.T) {
	s := &SumAggregator{Field: "x"}
	assert.Error(t, s.Add(context.Background(), core.Record{"x": "10%"}))
}

func TestReset(t *testing.T) {
	s := &SumAggregator{Field: "x"}
	m := &MinAggregator{Field: "x"}
	require.NoError(t, s.Add(context.Background(), core.Record{"x": int64(3)}))
	require.NoError(t, m.Add(context.Background(), core.Record{"x": int64(3)}))
	s.Reset()
	m.Reset()
	assert.True(t, s.Sum().IsZero())
	res, _ := m.Result()
	assert.Nil(t, res["min"])
	_, ok := m.Min()
	assert.False(t, ok)
}
