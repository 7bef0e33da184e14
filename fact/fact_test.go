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

package fact

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/dimension"
	"github.com/aekanun2020/2025-12-dataops/schema"
)

func cleanedTable() *core.Table {
	jan := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC)
	return core.MustTable(
		core.Column{Name: "loan_amnt", Type: core.Integer, Values: []interface{}{int64(10000), int64(5000), int64(2500)}},
		core.Column{Name: "int_rate", Type: core.Float, Values: []interface{}{0.1025, 0.09, 0.2}},
		core.Column{Name: "home_ownership", Values: []interface{}{"RENT", "OWN", "RENT"}},
		core.Column{Name: "loan_status", Values: []interface{}{"Current", "Fully Paid", nil}},
		core.Column{Name: "issue_d", Type: core.Date, Values: []interface{}{jan, feb, jan}},
		core.Column{Name: "application_type", Values: []interface{}{"Individual", "Individual", "Joint App"}},
		core.Column{Name: "emp_length", Values: []interface{}{"N/A", "1 year", "N/A"}},
		core.Column{Name: "url", Values: []interface{}{"a", "b", "c"}},
	)
}

func mappingsFor(t *testing.T, table *core.Table) dimension.Mappings {
	t.Helper()
	dims, err := dimension.BuildAll(context.Background(), table, schema.Loans)
	require.NoError(t, err)
	return dimension.NewMappings(dims)
}

func TestAssemble(t *testing.T) {
	cleaned := cleanedTable()
	a := NewAssembler(schema.Loans)

	fact, err := a.Assemble(context.Background(), cleaned, mappingsFor(t, cleaned))
	require.NoError(t, err)

	assert.Equal(t, cleaned.NumRows(), fact.NumRows())
	assert.Equal(t, []string{
		"loan_amnt", "int_rate",
		"home_ownership_id", "loan_status_id", "issue_d_id", "application_type_id", "emp_length_id",
	}, fact.ColumnNames())

	assert.Equal(t, core.Record{
		"loan_amnt":           int64(2500),
		"int_rate":            0.2,
		"home_ownership_id":   int64(0),
		"loan_status_id":      int64(2),
		"issue_d_id":          int64(0),
		"application_type_id": int64(1),
		"emp_length_id":       int64(0),
	}, fact.Row(2))
	assert.Empty(t, a.Stats().Unmapped)
	assert.Equal(t, 3, a.Stats().Rows)
}

func TestAssemble_SingleRetainedRow(t *testing.T) {
	cleaned := core.MustTable(
		core.Column{Name: "application_type", Values: []interface{}{"Individual"}},
		core.Column{Name: "loan_amnt", Type: core.Integer, Values: []interface{}{int64(10000)}},
		core.Column{Name: "home_ownership", Values: []interface{}{"RENT"}},
	)
	hoField, _ := schema.Loans.Field("home_ownership")
	dim, err := dimension.Build(cleaned, hoField)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"RENT"}, dim.Members())

	appField, _ := schema.Loans.Field("application_type")
	appDim, err := dimension.Build(cleaned, appField)
	require.NoError(t, err)

	fact, err := NewAssembler(schema.Loans).Assemble(context.Background(), cleaned,
		dimension.NewMappings([]*dimension.Dimension{dim, appDim}))
	require.NoError(t, err)
	assert.Equal(t, 1, fact.NumRows())
	assert.Equal(t, core.Record{"loan_amnt": int64(10000), "home_ownership_id": int64(0), "application_type_id": int64(0)}, fact.Row(0))
}

func TestAssemble_UnmappedBecomesNull(t *testing.T) {
	cleaned := cleanedTable()
	mappings := mappingsFor(t, cleaned.Select("home_ownership", "loan_status", "issue_d", "application_type", "emp_length"))

	extra := core.MustTable(
		core.Column{Name: "home_ownership", Values: []interface{}{"RENT", "NONE"}},
		core.Column{Name: "loan_amnt", Type: core.Integer, Values: []interface{}{int64(1), int64(2)}},
	)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	a := NewAssembler(schema.Loans, WithLogger(logger))
	fact, err := a.Assemble(context.Background(), extra, mappings)
	require.NoError(t, err)

	assert.Equal(t, 2, fact.NumRows())
	ids, _ := fact.Column("home_ownership_id")
	assert.Equal(t, []interface{}{int64(0), nil}, ids.Values)
	assert.Equal(t, 1, a.Stats().Unmapped["home_ownership_id"])
	assert.Contains(t, buf.String(), "unmapped=1")
}

func TestAssemble_StrictKeys(t *testing.T) {
	cleaned := cleanedTable()
	mappings := mappingsFor(t, cleaned)

	extra := core.MustTable(core.Column{Name: "home_ownership", Values: []interface{}{"NONE"}})
	_, err := NewAssembler(schema.Loans, WithStrictKeys()).Assemble(context.Background(), extra, mappings)
	assert.ErrorIs(t, err, core.ErrUnmappedValue)
}

func TestAssemble_NullWithoutNullMember(t *testing.T) {
	cleaned := cleanedTable()
	mappings := mappingsFor(t, cleaned)

	extra := core.MustTable(core.Column{Name: "home_ownership", Values: []interface{}{nil, "OWN"}})
	a := NewAssembler(schema.Loans, WithStrictKeys())
	fact, err := a.Assemble(context.Background(), extra, mappings)
	require.NoError(t, err)

	ids, _ := fact.Column("home_ownership_id")
	assert.Equal(t, []interface{}{nil, int64(1)}, ids.Values)
	assert.Zero(t, a.Stats().Unmapped["home_ownership_id"])
}

func TestAssemble_RoundTrip(t *testing.T) {
	cleaned := cleanedTable()
	dims, err := dimension.BuildAll(context.Background(), cleaned, schema.Loans)
	require.NoError(t, err)

	fact, err := NewAssembler(schema.Loans).Assemble(context.Background(), cleaned, dimension.NewMappings(dims))
	require.NoError(t, err)

	for _, d := range dims {
		src, _ := cleaned.Column(d.Name())
		keys, ok := fact.Column(d.Field.KeyColumn())
		require.True(t, ok)
		members := d.Members()
		for i, k := range keys.Values {
			if k == nil {
				assert.Nil(t, src.Values[i])
				continue
			}
			assert.Equal(t, src.Values[i], members[k.(int64)], "%s row %d", d.Name(), i)
		}
	}
}
