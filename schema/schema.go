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

// Package schema holds the single descriptor of the loan-record layout.
//
// The projector, cleaner, dimension builder, fact assembler and validator all
// read their column lists from here, so the whitelist exists exactly once.
package schema

// Role says what a column becomes in the star schema.
type Role int

const (
	// Measure columns are copied into the fact table unchanged.
	Measure Role = iota
	// Dimension columns become a dimension table and a fact foreign key.
	Dimension
	// DateDimension is a Dimension that also carries calendar attributes.
	DateDimension
)

// RuleKind selects the cleaning rule attached to a column.
type RuleKind int

const (
	// NoRule leaves the column as read.
	NoRule RuleKind = iota
	// FillMissing replaces missing values with Rule.Arg.
	FillMissing
	// DropSentinel removes rows whose value equals Rule.Arg.
	DropSentinel
	// ParseLayout parses text into a date using the Go layout in Rule.Arg.
	ParseLayout
	// PercentToFraction converts "10.25%" text into 0.1025.
	PercentToFraction
)

// Rule is a cleaning rule for one column.
type Rule struct {
	Kind RuleKind
	Arg  string
}

// Field describes one column of the loan record.
type Field struct {
	Name string
	Role Role
	// Required columns must be present when dimensions are built.
	Required bool
	// Audited measures have their sums compared between the cleaned input
	// and the fact table.
	Audited bool
	Rule    Rule
}

// IsDimension reports whether the field produces a dimension table.
func (f Field) IsDimension() bool {
	return f.Role == Dimension || f.Role == DateDimension
}

// KeyColumn is the surrogate key column name, e.g. "loan_status_id".
func (f Field) KeyColumn() string {
	return f.Name + "_id"
}

// DimensionTable is the sink table name, e.g. "loan_status_dim".
func (f Field) DimensionTable() string {
	return f.Name + "_dim"
}

// Descriptor is an ordered list of fields plus the fact table name.
type Descriptor struct {
	Fields    []Field
	FactTable string
}

// Names returns every field name in descriptor order.
func (d Descriptor) Names() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (d Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Measures returns the measure fields in descriptor order.
func (d Descriptor) Measures() []Field {
	return d.filter(func(f Field) bool { return f.Role == Measure })
}

// Dimensions returns the dimension fields (plain and date) in descriptor order.
func (d Descriptor) Dimensions() []Field {
	return d.filter(Field.IsDimension)
}

// Audited returns the measures whose sums are checked by the validator.
func (d Descriptor) Audited() []Field {
	return d.filter(func(f Field) bool { return f.Role == Measure && f.Audited })
}

// Rules returns the fields that carry a cleaning rule.
func (d Descriptor) Rules() []Field {
	return d.filter(func(f Field) bool { return f.Rule.Kind != NoRule })
}

// FactColumns lists the fact table columns: measures first, then foreign keys.
func (d Descriptor) FactColumns() []string {
	var cols []string
	for _, f := range d.Measures() {
		cols = append(cols, f.Name)
	}
	for _, f := range d.Dimensions() {
		cols = append(cols, f.KeyColumn())
	}
	return cols
}

func (d Descriptor) filter(keep func(Field) bool) []Field {
	var out []Field
	for _, f := range d.Fields {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

const (
	// NotApplicable fills missing employment lengths.
	NotApplicable = "N/A"
	// MissingApplicationType marks rows without a usable application type.
	MissingApplicationType = "<NA>"
	// IssueDateLayout is the month-abbreviation/year format, e.g. "Jan-2018".
	IssueDateLayout = "Jan-2006"
)

// Loans is the loan-record descriptor.
var Loans = Descriptor{
	FactTable: "loans_fact",
	Fields: []Field{
		{Name: "loan_amnt", Role: Measure, Audited: true},
		{Name: "funded_amnt", Role: Measure, Audited: true},
		{Name: "int_rate", Role: Measure, Audited: true, Rule: Rule{Kind: PercentToFraction}},
		{Name: "installment", Role: Measure, Audited: true},
		{Name: "annual_inc", Role: Measure},
		{Name: "annual_inc_joint", Role: Measure},
		{Name: "dti", Role: Measure},
		{Name: "dti_joint", Role: Measure},
		{Name: "home_ownership", Role: Dimension, Required: true},
		{Name: "loan_status", Role: Dimension, Required: true},
		{Name: "issue_d", Role: DateDimension, Required: true, Rule: Rule{Kind: ParseLayout, Arg: IssueDateLayout}},
		{Name: "application_type", Role: Dimension, Required: true, Rule: Rule{Kind: DropSentinel, Arg: MissingApplicationType}},
		{Name: "emp_length", Role: Dimension, Required: true, Rule: Rule{Kind: FillMissing, Arg: NotApplicable}},
	},
}
