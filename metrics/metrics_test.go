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

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name   string
	value  float64
	labels Labels
}

type fakeBackend struct {
	counters   []call
	histograms []call
	flushes    int
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.histograms = append(f.histograms, call{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.flushes++
	return nil
}

func TestRecorder_RecordStep(t *testing.T) {
	b := &fakeBackend{}
	r := New("loans", b)

	r.RecordStep("clean", nil, 2*time.Second)
	r.RecordStep("load", errors.New("boom"), time.Second)

	require.Len(t, b.counters, 2)
	assert.Equal(t, StepTotal, b.counters[0].name)
	assert.Equal(t, Labels{"job": "loans", "step": "clean", "status": "success"}, b.counters[0].labels)
	assert.Equal(t, "failure", b.counters[1].labels["status"])

	require.Len(t, b.histograms, 2)
	assert.Equal(t, StepDuration, b.histograms[0].name)
	assert.Equal(t, 2.0, b.histograms[0].value)
}

func TestRecorder_RecordRowsAndTables(t *testing.T) {
	b := &fakeBackend{}
	r := New("loans", b)

	r.RecordRows("read", 100)
	r.RecordRows("dropped", 0)
	r.RecordTable("loans_fact", false)

	require.Len(t, b.counters, 2)
	assert.Equal(t, call{RecordsTotal, 100, Labels{"job": "loans", "kind": "read"}}, b.counters[0])
	assert.Equal(t, call{TablesTotal, 1, Labels{"job": "loans", "table": "loans_fact", "status": "failure"}}, b.counters[1])

	require.NoError(t, r.Flush())
	assert.Equal(t, 1, b.flushes)
}

func TestRecorder_NilBackendDiscards(t *testing.T) {
	r := New("loans", nil)
	r.RecordStep("read", nil, time.Millisecond)
	r.RecordRows("read", 10)
	assert.NoError(t, r.Flush())
	assert.NoError(t, Nop().Flush())
}
