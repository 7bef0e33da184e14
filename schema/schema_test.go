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

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoans_FactColumns(t *testing.T) {
	assert.Equal(t, []string{
		"loan_amnt", "funded_amnt", "int_rate", "installment",
		"annual_inc", "annual_inc_joint", "dti", "dti_joint",
		"home_ownership_id", "loan_status_id", "issue_d_id",
		"application_type_id", "emp_length_id",
	}, Loans.FactColumns())
}

func TestLoans_Dimensions(t *testing.T) {
	var tables []string
	for _, f := range Loans.Dimensions() {
		assert.True(t, f.Required, f.Name)
		tables = append(tables, f.DimensionTable())
	}
	assert.Equal(t, []string{
		"home_ownership_dim", "loan_status_dim", "issue_d_dim",
		"application_type_dim", "emp_length_dim",
	}, tables)
}

func TestLoans_Audited(t *testing.T) {
	var names []string
	for _, f := range Loans.Audited() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"loan_amnt", "funded_amnt", "int_rate", "installment"}, names)
}

func TestDescriptor_Field(t *testing.T) {
	f, ok := Loans.Field("issue_d")
	assert.True(t, ok)
	assert.Equal(t, DateDimension, f.Role)
	assert.Equal(t, "issue_d_id", f.KeyColumn())

	_, ok = Loans.Field("member_id")
	assert.False(t, ok)
}
