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

// quality.go - star schema data quality rules
package validators

import (
	"context"
	"fmt"

	"github.com/aekanun2020/2025-12-dataops/aggregate"
	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/dimension"
	"github.com/aekanun2020/2025-12-dataops/filter"
)

// maxSampleRows caps the row indices kept per violation.
const maxSampleRows = 10

// Violation reports a quality rule that some rows or members broke.
type Violation struct {
	Rule    string `json:"rule" bson:"rule"`
	Table   string `json:"table" bson:"table"`
	Count   int    `json:"count" bson:"count"`
	Rows    []int  `json:"rows,omitempty" bson:"rows,omitempty"`
	Message string `json:"message" bson:"message"`
}

// RowRule is a predicate every fact row must satisfy. The rule is skipped
// when any of its Fields is absent from the table; rows where one of the
// Fields is missing are not checked.
type RowRule struct {
	Name   string
	Fields []string
	Check  core.Filter
}

// DataQualityValidator checks the assembled star schema: row rules over the
// fact table, uniqueness of dimension members and that every foreign key
// resolves to a dimension member.
type DataQualityValidator struct {
	MinRecords int       // Minimum number of fact rows required
	RowRules   []RowRule // Per-row rules over the fact table
}

// NewLoanQualityValidator returns the rules for the loan fact table: positive
// amounts, funded amount not above the loan amount and an interest rate
// strictly between 0 and 1.
func NewLoanQualityValidator() *DataQualityValidator {
	return &DataQualityValidator{
		RowRules: []RowRule{
			{Name: "loan_amnt_positive", Fields: []string{"loan_amnt"}, Check: filter.GreaterThan("loan_amnt", 0)},
			{Name: "funded_amnt_positive", Fields: []string{"funded_amnt"}, Check: filter.GreaterThan("funded_amnt", 0)},
			{Name: "installment_positive", Fields: []string{"installment"}, Check: filter.GreaterThan("installment", 0)},
			{Name: "funded_not_above_loan", Fields: []string{"funded_amnt", "loan_amnt"}, Check: filter.FieldLessOrEqual("funded_amnt", "loan_amnt")},
			{Name: "int_rate_range", Fields: []string{"int_rate"}, Check: filter.And(filter.Between("int_rate", 0, 1), filter.Not(filter.In("int_rate", 0.0, 1.0)))},
		},
	}
}

// Evaluate runs every rule and returns the violations found. A rule that
// errors is reported as a violation rather than aborting the check.
func (dqv *DataQualityValidator) Evaluate(ctx context.Context, factName string, fact *core.Table, dims []*dimension.Dimension) []Violation {
	var violations []Violation

	if fact.NumRows() < dqv.MinRecords {
		violations = append(violations, Violation{
			Rule:    "min_records",
			Table:   factName,
			Count:   1,
			Message: fmt.Sprintf("insufficient records: got %d, need at least %d", fact.NumRows(), dqv.MinRecords),
		})
	}

	for _, rule := range dqv.RowRules {
		if v, ok := validateRowRule(ctx, factName, fact, rule); ok {
			violations = append(violations, v)
		}
	}

	for _, d := range dims {
		violations = append(violations, validateDimension(ctx, factName, fact, d)...)
	}
	return violations
}

func validateRowRule(ctx context.Context, factName string, fact *core.Table, rule RowRule) (Violation, bool) {
	for _, f := range rule.Fields {
		if !fact.Has(f) {
			return Violation{}, false
		}
	}

	v := Violation{Rule: rule.Name, Table: factName}
	missing := anyMissing(rule.Fields)
	for i := 0; i < fact.NumRows(); i++ {
		row := fact.Row(i)
		if skip, _ := missing.ShouldInclude(ctx, row); skip {
			continue
		}
		ok, err := rule.Check.ShouldInclude(ctx, row)
		if err != nil {
			v.Count++
			v.Message = fmt.Sprintf("rule %s failed: %v", rule.Name, err)
			return v, true
		}
		if !ok {
			v.Count++
			if len(v.Rows) < maxSampleRows {
				v.Rows = append(v.Rows, i)
			}
		}
	}
	if v.Count == 0 {
		return Violation{}, false
	}
	v.Message = fmt.Sprintf("%d rows violate %s", v.Count, rule.Name)
	return v, true
}

func validateDimension(ctx context.Context, factName string, fact *core.Table, d *dimension.Dimension) []Violation {
	var violations []Violation
	dimTable := d.Field.DimensionTable()

	distinct := &aggregate.DistinctAggregator{Field: d.Name()}
	if err := aggregate.Run(ctx, d.Table, distinct); err == nil && distinct.Duplicates() > 0 {
		violations = append(violations, Violation{
			Rule:    "dimension_unique",
			Table:   dimTable,
			Count:   distinct.Duplicates(),
			Message: fmt.Sprintf("%s has %d duplicate members", dimTable, distinct.Duplicates()),
		})
	}

	keyCol := d.Field.KeyColumn()
	members := int64(d.Len())
	rule := RowRule{
		Name:   "foreign_key_exists",
		Fields: []string{keyCol},
		Check: filter.Custom(func(r core.Record) bool {
			key, ok := r[keyCol].(int64)
			return ok && key >= 0 && key < members
		}),
	}
	if v, ok := validateRowRule(ctx, factName, fact, rule); ok {
		v.Message = fmt.Sprintf("%d values of %s are not keys of %s", v.Count, keyCol, dimTable)
		violations = append(violations, v)
	}
	return violations
}

// anyMissing matches rows where one of fields is absent, nil or empty.
func anyMissing(fields []string) core.Filter {
	missing := make([]core.Filter, len(fields))
	for i, f := range fields {
		missing[i] = filter.Not(filter.NotNull(f))
	}
	return filter.Or(missing...)
}
