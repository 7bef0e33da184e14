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

package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aekanun2020/2025-12-dataops/load"
	"github.com/aekanun2020/2025-12-dataops/validators"
)

// Package runlog records one document per pipeline run.

// Status is the state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial" // some tables failed to load
	StatusFailed    Status = "failed"
)

// Run describes one pipeline run.
type Run struct {
	ID          string             `json:"run_id" bson:"_id"`
	StartedAt   time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt  time.Time          `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
	Status      Status             `json:"status" bson:"status"`
	Input       string             `json:"input" bson:"input"`
	RowsRead    int                `json:"rows_read" bson:"rows_read"`
	RowsCleaned int                `json:"rows_cleaned" bson:"rows_cleaned"`
	Dimensions  map[string]int     `json:"dimensions,omitempty" bson:"dimensions,omitempty"`
	FactRows    int                `json:"fact_rows" bson:"fact_rows"`
	Validation  *validators.Report `json:"validation,omitempty" bson:"validation,omitempty"`
	Load        *load.Summary      `json:"load,omitempty" bson:"load,omitempty"`
	Error       string             `json:"error,omitempty" bson:"error,omitempty"`
}

// NewRun starts a run with a fresh id.
func NewRun(input string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
		Input:     input,
	}
}

// Complete stamps the finish time and derives the final status from err and
// the load summary.
func (r *Run) Complete(err error) {
	r.FinishedAt = time.Now().UTC()
	switch {
	case err != nil:
		r.Status = StatusFailed
		r.Error = err.Error()
	case r.Load != nil && !r.Load.OK():
		r.Status = StatusPartial
	default:
		r.Status = StatusSucceeded
	}
}

// Duration is the wall time of a completed run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder persists runs.
type Recorder interface {
	// Start records a run that has just begun.
	Start(ctx context.Context, run *Run) error
	// Finish records the final state of a run.
	Finish(ctx context.Context, run *Run) error
	Close(ctx context.Context) error
}

// Nop discards runs.
type Nop struct{}

func (Nop) Start(context.Context, *Run) error  { return nil }
func (Nop) Finish(context.Context, *Run) error { return nil }
func (Nop) Close(context.Context) error        { return nil }
