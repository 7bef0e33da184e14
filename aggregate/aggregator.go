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

	"github.com/aekanun2020/2025-12-dataops/core"
)

// Aggregator defines the interface for data aggregation operations.
// Aggregators process multiple records and produce a summary result.
type Aggregator interface {
	// Add processes a record for aggregation.
	Add(ctx context.Context, record core.Record) error
	// Result returns the aggregated result as a Record.
	Result() (core.Record, error)
	// Reset clears the aggregator state for reuse.
	Reset()
}

// Run feeds every row of table to each aggregator, in row order.
func Run(ctx context.Context, table *core.Table, aggregators ...Aggregator) error {
	for i := 0; i < table.NumRows(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := table.Row(i)
		for _, a := range aggregators {
			if err := a.Add(ctx, row); err != nil {
				return err
			}
		}
	}
	return nil
}
