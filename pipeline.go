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
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aekanun2020/2025-12-dataops/core"
	"github.com/aekanun2020/2025-12-dataops/dimension"
	"github.com/aekanun2020/2025-12-dataops/fact"
	"github.com/aekanun2020/2025-12-dataops/infer"
	"github.com/aekanun2020/2025-12-dataops/load"
	"github.com/aekanun2020/2025-12-dataops/logging"
	"github.com/aekanun2020/2025-12-dataops/metrics"
	"github.com/aekanun2020/2025-12-dataops/runlog"
	"github.com/aekanun2020/2025-12-dataops/schema"
	"github.com/aekanun2020/2025-12-dataops/transform"
	"github.com/aekanun2020/2025-12-dataops/validators"
)

// The pipeline runs the stages in a fixed order:
//
//	read -> infer -> coerce -> project -> prune -> clean -> dimensions
//	     -> fact -> validate -> load [-> export]
//
// Example usage:
//
//	p, err := dataops.NewPipeline().
//	    From(reader).
//	    To(warehouse).
//	    WithNullThreshold(30).
//	    WithLogger(logger).
//	    Build()
//	if err != nil { log.Fatal(err) }
//	result, err := p.Execute(ctx)
//
// Read, parse and schema errors abort the run. Table load failures are
// collected in the result unless FailFast is selected.

// DefaultNullThreshold is the maximum percentage of missing values a column
// may have and still be kept.
const DefaultNullThreshold = 30.0

// PipelineBuilder provides a fluent API for constructing the loan pipeline.
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a builder with the loan schema, the default null
// threshold and discarding logger, metrics and run log.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			desc:          schema.Loans,
			nullThreshold: DefaultNullThreshold,
			strategy:      CollectErrors,
			quality:       validators.NewLoanQualityValidator(),
			runlog:        runlog.Nop{},
		},
	}
}

// From sets the source of the raw table.
func (pb *PipelineBuilder) From(source TableSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// To sets the warehouse the star schema is loaded into.
func (pb *PipelineBuilder) To(sink TableSink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// Export adds a second sink that receives the same tables after the
// warehouse load, e.g. file exports. Its failures never affect the
// warehouse load.
func (pb *PipelineBuilder) Export(sink TableSink) *PipelineBuilder {
	pb.pipeline.export = sink
	return pb
}

// WithSchema replaces the loan schema descriptor.
func (pb *PipelineBuilder) WithSchema(d schema.Descriptor) *PipelineBuilder {
	pb.pipeline.desc = d
	return pb
}

// WithNullThreshold sets the null pruning threshold in percent.
func (pb *PipelineBuilder) WithNullThreshold(percent float64) *PipelineBuilder {
	pb.pipeline.nullThreshold = percent
	return pb
}

// WithStrictKeys makes an unmapped dimension value abort the run.
func (pb *PipelineBuilder) WithStrictKeys(strict bool) *PipelineBuilder {
	pb.pipeline.strictKeys = strict
	return pb
}

// WithErrorStrategy sets how table load failures are handled.
func (pb *PipelineBuilder) WithErrorStrategy(strategy ErrorStrategy) *PipelineBuilder {
	pb.pipeline.strategy = strategy
	return pb
}

// WithQualityValidator replaces the data quality rules. Nil disables them.
func (pb *PipelineBuilder) WithQualityValidator(v *validators.DataQualityValidator) *PipelineBuilder {
	pb.pipeline.quality = v
	return pb
}

// WithLogger sets the logger.
func (pb *PipelineBuilder) WithLogger(logger *logrus.Logger) *PipelineBuilder {
	pb.pipeline.logger = logger
	return pb
}

// WithMetrics sets the metrics recorder.
func (pb *PipelineBuilder) WithMetrics(m *metrics.Recorder) *PipelineBuilder {
	pb.pipeline.metrics = m
	return pb
}

// WithRunLog records the run, described by input, in r.
func (pb *PipelineBuilder) WithRunLog(r runlog.Recorder, input string) *PipelineBuilder {
	pb.pipeline.runlog = r
	pb.pipeline.input = input
	return pb
}

// Build validates and constructs the Pipeline from the builder.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	p := pb.pipeline
	if p.source == nil {
		return nil, fmt.Errorf("pipeline requires a table source")
	}
	if p.sink == nil {
		return nil, fmt.Errorf("pipeline requires a table sink")
	}
	if p.nullThreshold < 0 || p.nullThreshold > 100 {
		return nil, fmt.Errorf("null threshold %v outside 0-100", p.nullThreshold)
	}
	if p.runlog == nil {
		p.runlog = runlog.Nop{}
	}
	p.logger = logging.OrDiscard(p.logger)
	if p.metrics == nil {
		p.metrics = metrics.New("loan_etl", nil)
	}
	return p, nil
}

// Pipeline is the loan star-schema batch job.
type Pipeline struct {
	source        TableSource
	sink          TableSink
	export        TableSink
	desc          schema.Descriptor
	nullThreshold float64
	strictKeys    bool
	strategy      ErrorStrategy
	quality       *validators.DataQualityValidator
	logger        *logrus.Logger
	metrics       *metrics.Recorder
	runlog        runlog.Recorder
	input         string
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	RowsRead   int
	Types      infer.ColumnTypeMap
	Pruned     []string // columns dropped by the null threshold
	Cleaned    *core.Table
	Cleaning   transform.CleanerStats
	Dimensions []*dimension.Dimension
	Fact       *core.Table
	Unmapped   map[string]int
	Report     *validators.Report
	Load       *load.Summary
	Export     *load.Summary
}

// Tables returns the star schema in load order: dimensions, then the fact
// table.
func (r *Result) Tables(d schema.Descriptor) []load.NamedTable {
	tables := make([]load.NamedTable, 0, len(r.Dimensions)+1)
	for _, dim := range r.Dimensions {
		tables = append(tables, load.NamedTable{Name: dim.Field.DimensionTable(), Table: dim.Table})
	}
	if r.Fact != nil {
		tables = append(tables, load.NamedTable{Name: d.FactTable, Table: r.Fact})
	}
	return tables
}

// Execute runs the pipeline once. The source is closed when Execute returns.
func (p *Pipeline) Execute(ctx context.Context) (result *Result, err error) {
	defer p.source.Close()

	run := runlog.NewRun(p.input)
	result = &Result{RunID: run.ID}
	log := p.logger.WithField("run_id", run.ID)

	if rerr := p.runlog.Start(ctx, run); rerr != nil {
		log.WithError(rerr).Warn("run log start failed")
	}
	defer func() {
		run.RowsRead = result.RowsRead
		run.FactRows = rowsOf(result.Fact)
		run.RowsCleaned = rowsOf(result.Cleaned)
		run.Validation = result.Report
		run.Load = result.Load
		if len(result.Dimensions) > 0 {
			run.Dimensions = make(map[string]int, len(result.Dimensions))
			for _, d := range result.Dimensions {
				run.Dimensions[d.Field.DimensionTable()] = d.Len()
			}
		}
		run.Complete(err)
		if ferr := p.runlog.Finish(context.WithoutCancel(ctx), run); ferr != nil {
			log.WithError(ferr).Warn("run log finish failed")
		}
		if merr := p.metrics.Flush(); merr != nil {
			log.WithError(merr).Warn("metrics push failed")
		}
		log.WithFields(logrus.Fields{"status": run.Status, "duration": run.Duration()}).Info("run finished")
	}()

	var raw *core.Table
	if err = p.stage(ctx, log, "read", func() error {
		raw, err = p.source.ReadTable(ctx)
		return err
	}); err != nil {
		return result, err
	}
	result.RowsRead = raw.NumRows()
	p.metrics.RecordRows("read", raw.NumRows())
	log.WithFields(logrus.Fields{"rows": raw.NumRows(), "columns": raw.NumColumns()}).Info("input read")

	var typed *core.Table
	if err = p.stage(ctx, log, "infer", func() error {
		result.Types = infer.Correct(infer.Infer(raw))
		typed, err = infer.Coerce(ctx, raw, result.Types)
		return err
	}); err != nil {
		return result, err
	}
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		log.WithField("types", result.Types.AsMap()).Debug("column types inferred")
	}

	var cleaned *core.Table
	if err = p.stage(ctx, log, "clean", func() error {
		projected, perr := transform.Project(p.desc).Transform(ctx, typed)
		if perr != nil {
			return perr
		}
		pruned, perr := transform.PruneNulls(p.nullThreshold).Transform(ctx, projected)
		if perr != nil {
			return perr
		}
		result.Pruned = missingFrom(projected.ColumnNames(), pruned)

		cleaner := transform.NewCleaner(p.desc)
		cleaned, perr = cleaner.Transform(ctx, pruned)
		result.Cleaning = cleaner.Stats()
		return perr
	}); err != nil {
		return result, err
	}
	result.Cleaned = cleaned
	p.metrics.RecordRows("cleaned", cleaned.NumRows())
	p.metrics.RecordRows("dropped", result.Cleaning.RowsIn-result.Cleaning.RowsOut)
	log.WithFields(logrus.Fields{
		"rows":    cleaned.NumRows(),
		"columns": cleaned.NumColumns(),
		"pruned":  result.Pruned,
		"dropped": result.Cleaning.RowsIn - result.Cleaning.RowsOut,
		"filled":  result.Cleaning.ValuesFilled,
	}).Info("table cleaned")

	if err = p.stage(ctx, log, "dimensions", func() error {
		result.Dimensions, err = dimension.BuildAll(ctx, cleaned, p.desc)
		return err
	}); err != nil {
		return result, err
	}

	opts := []fact.Option{fact.WithLogger(p.logger)}
	if p.strictKeys {
		opts = append(opts, fact.WithStrictKeys())
	}
	assembler := fact.NewAssembler(p.desc, opts...)
	if err = p.stage(ctx, log, "fact", func() error {
		result.Fact, err = assembler.Assemble(ctx, cleaned, dimension.NewMappings(result.Dimensions))
		return err
	}); err != nil {
		return result, err
	}
	result.Unmapped = assembler.Stats().Unmapped
	p.metrics.RecordRows("fact", result.Fact.NumRows())
	for _, n := range result.Unmapped {
		p.metrics.RecordRows("unmapped", n)
	}

	_ = p.stage(ctx, log, "validate", func() error {
		result.Report = validators.Validate(ctx, result.Fact, cleaned, p.desc)
		if p.quality != nil {
			result.Report.Violations = p.quality.Evaluate(ctx, p.desc.FactTable, result.Fact, result.Dimensions)
		}
		return nil
	})
	p.logReport(log, result.Report)

	tables := result.Tables(p.desc)
	if err = p.stage(ctx, log, "load", func() error {
		result.Load, err = p.load(ctx, p.sink, tables)
		return err
	}); err != nil {
		return result, err
	}

	if p.export != nil {
		// Export failures are reported in the result only.
		_ = p.stage(ctx, log, "export", func() error {
			var eerr error
			result.Export, eerr = load.New(p.export, load.WithLogger(p.logger)).Load(ctx, tables)
			return eerr
		})
	}

	return result, nil
}

func (p *Pipeline) load(ctx context.Context, sink TableSink, tables []load.NamedTable) (*load.Summary, error) {
	summary, err := load.New(sink,
		load.WithErrorStrategy(p.strategy),
		load.WithLogger(p.logger),
	).Load(ctx, tables)
	for _, r := range summary.Results {
		p.metrics.RecordTable(r.Table, r.OK)
	}
	return summary, err
}

// stage runs fn as one named step, recording its duration and outcome.
func (p *Pipeline) stage(ctx context.Context, log *logrus.Entry, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	d := time.Since(start)
	p.metrics.RecordStep(name, err, d)

	entry := log.WithFields(logrus.Fields{"stage": name, "duration": d})
	if err != nil {
		entry.WithError(err).Error("stage failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	entry.Debug("stage completed")
	return nil
}

func (p *Pipeline) logReport(log *logrus.Entry, r *validators.Report) {
	fields := logrus.Fields{
		"row_count_match":   r.RowCountMatch,
		"fact_rows":         r.FactRows,
		"cleaned_rows":      r.CleanedRows,
		"null_foreign_keys": r.NullForeignKeys,
		"violations":        len(r.Violations),
	}
	for _, s := range r.Sums {
		fields["sum_"+s.Column] = s.Match
	}
	if r.Passed() {
		log.WithFields(fields).Info("validation passed")
		return
	}
	log.WithFields(fields).Warn("validation found mismatches")
}

func rowsOf(t *core.Table) int {
	if t == nil {
		return 0
	}
	return t.NumRows()
}

// missingFrom returns the names not present in t, in order.
func missingFrom(names []string, t *core.Table) []string {
	var out []string
	for _, n := range names {
		if !t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
