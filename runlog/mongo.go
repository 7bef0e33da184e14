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
	"crypto/tls"
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// This file implements a MongoDB backed run log, one document per run in
// the etl_run_log collection by default.

// MongoRecorderError provides structured error information for run log operations
type MongoRecorderError struct {
	Op         string // Operation that failed (e.g., "connect", "insert", "replace")
	Collection string // Collection being accessed when error occurred
	Err        error  // Underlying error
}

func (e *MongoRecorderError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("mongo runlog %s [%s]: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("mongo runlog %s: %v", e.Op, e.Err)
}

func (e *MongoRecorderError) Unwrap() error {
	return e.Err
}

// MongoOptions configures the MongoDB run log.
type MongoOptions struct {
	URI          string        // MongoDB connection URI
	Database     string        // Database name
	Collection   string        // Collection name
	Timeout      time.Duration // Connect and operation timeout
	AuthDatabase string        // Authentication database
	Username     string        // Authentication username
	Password     string        // Authentication password
	TLS          bool          // Enable TLS
	TLSInsecure  bool          // Skip TLS verification
}

// withDefaults applies default values to MongoOptions.
func (o MongoOptions) withDefaults() MongoOptions {
	if o.Database == "" {
		o.Database = "dataops"
	}
	if o.Collection == "" {
		o.Collection = "etl_run_log"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// MongoRecorder stores runs in a MongoDB collection.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	opts       MongoOptions
}

// NewMongoRecorder connects to MongoDB and verifies the connection.
func NewMongoRecorder(ctx context.Context, opts MongoOptions) (*MongoRecorder, error) {
	opts = opts.withDefaults()
	if opts.URI == "" {
		return nil, &MongoRecorderError{Op: "build_options", Err: fmt.Errorf("uri is required")}
	}

	client, err := mongo.Connect(ctx, buildClientOptions(opts))
	if err != nil {
		return nil, &MongoRecorderError{Op: "connect", Err: err}
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, &MongoRecorderError{Op: "ping", Err: err}
	}

	return &MongoRecorder{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		opts:       opts,
	}, nil
}

// buildClientOptions constructs MongoDB client options from the run log configuration
func buildClientOptions(opts MongoOptions) *options.ClientOptions {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetRegistry(newRegistry())

	if opts.Username != "" && opts.Password != "" {
		auth := options.Credential{
			Username:   opts.Username,
			Password:   opts.Password,
			AuthSource: opts.AuthDatabase,
		}
		if auth.AuthSource == "" {
			auth.AuthSource = opts.Database
		}
		clientOpts.SetAuth(auth)
	}

	if opts.TLS {
		clientOpts.SetTLSConfig(&tls.Config{InsecureSkipVerify: opts.TLSInsecure})
	}
	return clientOpts
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// newRegistry returns the default registry with decimal.Decimal encoded as
// BSON Decimal128.
func newRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	return reg
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{Name: "encodeDecimal", Types: []reflect.Type{decimalType}, Received: val}
	}
	d := val.Interface().(decimal.Decimal)
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return err
	}
	return vw.WriteDecimal128(d128)
}

// Start inserts the run document.
func (m *MongoRecorder) Start(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	if _, err := m.collection.InsertOne(ctx, run); err != nil {
		return &MongoRecorderError{Op: "insert", Collection: m.opts.Collection, Err: err}
	}
	return nil
}

// Finish replaces the run document with its final state.
func (m *MongoRecorder) Finish(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run, options.Replace().SetUpsert(true))
	if err != nil {
		return &MongoRecorderError{Op: "replace", Collection: m.opts.Collection, Err: err}
	}
	return nil
}

// Close disconnects the client.
func (m *MongoRecorder) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return &MongoRecorderError{Op: "disconnect", Err: err}
	}
	return nil
}
