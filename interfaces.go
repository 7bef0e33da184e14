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

package dataops

import (
	"github.com/aekanun2020/2025-12-dataops/core"
)

// Package dataops loads a flat file of loan records into a star schema: one
// fact table plus a dimension table per categorical attribute.
//
// This file re-exports the core types so callers of the pipeline need only
// this package.

// Record represents a single row, a map from column names to values.
type Record = core.Record

// Table is an ordered set of equal-length named columns.
type Table = core.Table

// TableSource reads the whole input as one raw table.
type TableSource = core.TableSource

// TableSink loads whole tables with replace semantics.
type TableSink = core.TableSink

// DataSink writes records one at a time.
type DataSink = core.DataSink

// ErrorStrategy defines how to handle table load failures.
type ErrorStrategy = core.ErrorStrategy

const (
	// CollectErrors keeps loading the remaining tables and reports every failure.
	CollectErrors = core.CollectErrors
	// FailFast stops the load phase on the first failed table.
	FailFast = core.FailFast
)
