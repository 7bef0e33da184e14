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

package metrics

import "time"

// Package metrics records pipeline metrics through a pluggable backend. The
// default backend discards everything, so callers never need to check
// whether metrics are configured.

// Metric names.
const (
	StepTotal    = "etl_step_total"
	StepDuration = "etl_step_duration_seconds"
	RecordsTotal = "etl_records_total"
	TablesTotal  = "etl_tables_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

// Nop returns a backend that discards all metrics.
func Nop() Backend {
	return nopBackend{}
}

// Recorder records pipeline metrics for one job.
type Recorder struct {
	job     string
	backend Backend
}

// New returns a recorder for job. A nil backend discards metrics.
func New(job string, backend Backend) *Recorder {
	if backend == nil {
		backend = nopBackend{}
	}
	return &Recorder{job: job, backend: backend}
}

// RecordStep counts one execution of a pipeline step and its duration.
func (r *Recorder) RecordStep(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": r.job, "step": step, "status": status}
	r.backend.IncCounter(StepTotal, 1, lbls)
	r.backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind, e.g. "read", "cleaned" or
// "fact". Non-positive deltas are ignored.
func (r *Recorder) RecordRows(kind string, delta int) {
	if delta <= 0 {
		return
	}
	r.backend.IncCounter(RecordsTotal, float64(delta), Labels{"job": r.job, "kind": kind})
}

// RecordTable counts one table load attempt.
func (r *Recorder) RecordTable(table string, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	r.backend.IncCounter(TablesTotal, 1, Labels{"job": r.job, "table": table, "status": status})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	return r.backend.Flush()
}
