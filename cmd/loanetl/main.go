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

// Command loanetl loads a delimited file of loan records into a star schema
// in a SQL warehouse, optionally exporting every table as files and recording
// the run in MongoDB.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	dataops "github.com/aekanun2020/2025-12-dataops"
	"github.com/aekanun2020/2025-12-dataops/config"
	"github.com/aekanun2020/2025-12-dataops/load"
	"github.com/aekanun2020/2025-12-dataops/logging"
	"github.com/aekanun2020/2025-12-dataops/metrics"
	"github.com/aekanun2020/2025-12-dataops/metrics/prompush"
	"github.com/aekanun2020/2025-12-dataops/output"
	"github.com/aekanun2020/2025-12-dataops/readers"
	"github.com/aekanun2020/2025-12-dataops/runlog"
	"github.com/aekanun2020/2025-12-dataops/writers"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1 // configuration, read, schema or fail-fast load error
	exitPartial = 2 // some tables failed to load
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitFailed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitFailed
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return exitFailed
	}
	logger.WithField("database", cfg.Redacted()).Info("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Load.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Load.Timeout)
		defer cancel()
	}

	result, err := execute(ctx, cfg, logger)
	if result != nil {
		printSummary(os.Stdout, result)
	}
	if err != nil {
		logger.WithError(err).Error("run failed")
		return exitFailed
	}
	if !result.Load.OK() {
		return exitPartial
	}
	return exitOK
}

func execute(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*dataops.Result, error) {
	var s3Client *s3.Client
	needS3 := readers.IsS3URI(cfg.File.Path) || readers.IsS3URI(cfg.Export.URI)
	if needS3 {
		client, err := readers.NewS3Client(ctx,
			readers.WithS3Region(cfg.S3.Region),
			readers.WithS3Profile(cfg.S3.Profile),
			readers.WithS3Endpoint(cfg.S3.Endpoint),
			readers.WithS3PathStyle(cfg.S3.PathStyle),
		)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		s3Client = client
	}

	source, err := openSource(ctx, cfg, s3Client)
	if err != nil {
		return nil, err
	}

	dialect, err := writers.DialectByName(cfg.Database.Driver)
	if err != nil {
		source.Close()
		return nil, err
	}
	warehouse, err := writers.OpenSQLSink(ctx, dialect, cfg.DSN(), cfg.Database.BatchSize)
	if err != nil {
		source.Close()
		return nil, err
	}
	defer warehouse.Close()

	builder := dataops.NewPipeline().
		From(source).
		To(warehouse).
		WithNullThreshold(cfg.Cleaning.MaxNullPercent).
		WithStrictKeys(cfg.Cleaning.StrictKeys).
		WithLogger(logger)
	if cfg.Load.FailFast {
		builder.WithErrorStrategy(dataops.FailFast)
	}

	if cfg.Export.URI != "" {
		exportSink, err := openExport(cfg, s3Client)
		if err != nil {
			source.Close()
			return nil, err
		}
		builder.Export(exportSink)
	}

	if cfg.RunLog.MongoURI != "" {
		rec, err := runlog.NewMongoRecorder(ctx, runlog.MongoOptions{
			URI:        cfg.RunLog.MongoURI,
			Database:   cfg.RunLog.Database,
			Collection: cfg.RunLog.Collection,
		})
		if err != nil {
			logger.WithError(err).Warn("run log disabled")
		} else {
			defer rec.Close(context.WithoutCancel(ctx))
			builder.WithRunLog(rec, cfg.File.Path)
		}
	}

	if cfg.Metrics.PushgatewayURL != "" {
		b, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			logger.WithError(err).Warn("metrics disabled")
		} else {
			builder.WithMetrics(metrics.New(cfg.Metrics.Job, b))
		}
	}

	pipeline, err := builder.Build()
	if err != nil {
		source.Close()
		return nil, err
	}
	return pipeline.Execute(ctx)
}

func openSource(ctx context.Context, cfg *config.Config, client *s3.Client) (dataops.TableSource, error) {
	opts := []readers.ReaderOptionCSV{
		readers.WithCSVComma(cfg.Comma()),
		readers.WithCSVHasHeaders(cfg.File.HasHeader),
	}
	if len(cfg.File.MissingTokens) > 0 {
		opts = append(opts, readers.WithCSVMissingTokens(cfg.File.MissingTokens...))
	}
	if readers.IsS3URI(cfg.File.Path) {
		return readers.OpenS3CSV(ctx, client, cfg.File.Path, opts...)
	}
	return readers.OpenCSVFile(cfg.File.Path, opts...)
}

func openExport(cfg *config.Config, client *s3.Client) (dataops.TableSink, error) {
	format, err := output.ParseFormat(cfg.Export.Format)
	if err != nil {
		return nil, err
	}
	if readers.IsS3URI(cfg.Export.URI) {
		loc, err := output.NewS3Location(cfg.Export.URI, client)
		if err != nil {
			return nil, err
		}
		return output.NewSink(loc, format), nil
	}
	return output.NewSink(output.DirLocation{Dir: cfg.Export.URI}, format), nil
}

func printSummary(w io.Writer, r *dataops.Result) {
	fmt.Fprintf(w, "run %s\n", r.RunID)
	fmt.Fprintf(w, "rows read: %d\n", r.RowsRead)
	if r.Cleaned != nil {
		fmt.Fprintf(w, "rows cleaned: %d (dropped %d, filled %d)\n",
			r.Cleaned.NumRows(), r.Cleaning.RowsIn-r.Cleaning.RowsOut, r.Cleaning.ValuesFilled)
	}
	if len(r.Pruned) > 0 {
		fmt.Fprintf(w, "columns pruned: %v\n", r.Pruned)
	}
	for _, d := range r.Dimensions {
		fmt.Fprintf(w, "dimension %s: %d members\n", d.Field.DimensionTable(), d.Len())
	}
	if r.Fact != nil {
		fmt.Fprintf(w, "fact rows: %d\n", r.Fact.NumRows())
	}
	for col, n := range r.Unmapped {
		if n > 0 {
			fmt.Fprintf(w, "unmapped %s: %d\n", col, n)
		}
	}

	if rep := r.Report; rep != nil {
		fmt.Fprintf(w, "row count match: %t (%d fact, %d cleaned)\n", rep.RowCountMatch, rep.FactRows, rep.CleanedRows)
		for col, n := range rep.NullForeignKeys {
			fmt.Fprintf(w, "null %s: %d\n", col, n)
		}
		for _, s := range rep.Sums {
			fmt.Fprintf(w, "sum %s: fact=%s cleaned=%s match=%t\n", s.Column, s.Fact, s.Cleaned, s.Match)
		}
		for _, rc := range rep.Ranges {
			if rc.Min != nil && rc.Max != nil {
				fmt.Fprintf(w, "range %s: %s..%s\n", rc.Column, rc.Min, rc.Max)
			}
		}
		for _, v := range rep.Violations {
			fmt.Fprintf(w, "violation %s on %s: %s\n", v.Rule, v.Table, v.Message)
		}
	}

	printLoad(w, "load", r.Load)
	printLoad(w, "export", r.Export)
}

func printLoad(w io.Writer, label string, s *load.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, s)
	for _, res := range s.Results {
		if !res.OK {
			fmt.Fprintf(w, "  %s failed: %s\n", res.Table, res.Error)
		}
	}
}
