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

// Package infer guesses a semantic type for every column of a raw table and
// coerces the raw text into typed values.
//
// Classification is a pure function over one column's non-missing values:
// strict datetime pattern, then strict date pattern, then a generic guess over
// the value shapes (integer-like, float-like, categorical).
package infer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aekanun2020/2025-12-dataops/core"
)

var (
	datetimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05.999999999"
)

// ColumnType pairs a column name with its semantic type.
type ColumnType struct {
	Name string
	Type core.SemanticType
}

// ColumnTypeMap is the ordered result of inference, one entry per column.
type ColumnTypeMap []ColumnType

// Lookup returns the type recorded for name.
func (m ColumnTypeMap) Lookup(name string) (core.SemanticType, bool) {
	for _, ct := range m {
		if ct.Name == name {
			return ct.Type, true
		}
	}
	return core.Categorical, false
}

// AsMap returns the types keyed by column name, for reports and logs.
func (m ColumnTypeMap) AsMap() map[string]string {
	out := make(map[string]string, len(m))
	for _, ct := range m {
		out[ct.Name] = ct.Type.String()
	}
	return out
}

// Infer classifies every column of table.
func Infer(table *core.Table) ColumnTypeMap {
	cols := table.Columns()
	types := make(ColumnTypeMap, len(cols))
	for i := range cols {
		types[i] = ColumnType{Name: cols[i].Name, Type: Classify(cols[i].Values)}
	}
	return types
}

// Correct maps generic guesses onto the types the coercer and the loaders
// expect: a plain date column is carried as a datetime.
func Correct(types ColumnTypeMap) ColumnTypeMap {
	out := make(ColumnTypeMap, len(types))
	for i, ct := range types {
		if ct.Type == core.Date {
			ct.Type = core.Datetime
		}
		out[i] = ct
	}
	return out
}

type shape int

const (
	shapeInteger shape = iota
	shapeFloat
	shapeOther
)

// Classify returns the semantic type of one column. Missing (nil) values are
// ignored; a column with no present values is Categorical.
func Classify(values []interface{}) core.SemanticType {
	present := 0
	allDatetime, allDate := true, true
	generic := shapeInteger

	for _, v := range values {
		if v == nil {
			continue
		}
		present++

		s, isText := v.(string)
		if isText {
			allDatetime = allDatetime && datetimePattern.MatchString(s)
			allDate = allDate && datePattern.MatchString(s)
		} else if _, isTime := v.(time.Time); isTime {
			allDate = false
		} else {
			allDatetime, allDate = false, false
		}

		if sh := shapeOf(v); sh > generic {
			generic = sh
		}
	}

	switch {
	case present == 0:
		return core.Categorical
	case allDatetime:
		return core.Datetime
	case allDate:
		return core.Date
	case generic == shapeInteger:
		return core.Integer
	case generic == shapeFloat:
		return core.Float
	default:
		return core.Categorical
	}
}

func shapeOf(v interface{}) shape {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return shapeInteger
	case float32:
		return floatShape(float64(x))
	case float64:
		return floatShape(x)
	case string:
		if _, err := strconv.ParseInt(x, 10, 64); err == nil {
			return shapeInteger
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil && isFinite(f) && !hasLetters(x) {
			return shapeFloat
		}
		return shapeOther
	default:
		return shapeOther
	}
}

func floatShape(f float64) shape {
	if !isFinite(f) {
		return shapeOther
	}
	return shapeFloat
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// hasLetters rejects spellings ParseFloat accepts but a CSV number never uses
// ("0x1p-2", "1_000").
func hasLetters(s string) bool {
	return strings.ContainsAny(s, "xXpP_")
}

// Coerce converts every column of table to the type recorded in types.
// Columns absent from types are kept as they are. A present value that cannot
// be converted is a *core.ParseError.
func Coerce(ctx context.Context, table *core.Table, types ColumnTypeMap) (*core.Table, error) {
	src := table.Columns()
	cols := make([]core.Column, len(src))
	for i := range src {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		typ, ok := types.Lookup(src[i].Name)
		if !ok {
			cols[i] = src[i].Clone()
			continue
		}
		col, err := CoerceColumn(&src[i], typ)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return core.NewTable(cols...)
}

// CoerceColumn converts a single column to typ and returns the converted copy.
func CoerceColumn(c *core.Column, typ core.SemanticType) (core.Column, error) {
	out := core.Column{Name: c.Name, Type: typ, Values: make([]interface{}, len(c.Values))}
	for row, v := range c.Values {
		if v == nil {
			continue
		}
		converted, err := convert(v, typ)
		if err != nil {
			return core.Column{}, &core.ParseError{Column: c.Name, Row: row, Value: v, Err: err}
		}
		out.Values[row] = converted
	}
	return out, nil
}

func convert(v interface{}, typ core.SemanticType) (interface{}, error) {
	switch typ {
	case core.Integer:
		return ToInt64(v)
	case core.Float:
		return ToFloat64(v)
	case core.Date, core.Datetime:
		return toTime(v)
	default:
		return toText(v), nil
	}
}

// ToInt64 converts integer-like values (including their text form) to int64.
func ToInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

// ToFloat64 converts numeric values (including their text form) to float64.
func ToFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

func toTime(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if t, err := time.Parse(datetimeLayout, s); err == nil {
			return t, nil
		}
		return time.Parse(dateLayout, s)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
}

func toText(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(datetimeLayout)
	default:
		return fmt.Sprint(v)
	}
}
