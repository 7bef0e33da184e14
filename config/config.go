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

// Package config centralizes the loan ETL configuration. Values are layered:
// built-in defaults, then an optional YAML file, then environment variables,
// then command-line flags. Flags are defined with the layered values as
// their defaults so that -help shows the effective settings.
//
// For tests, use LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-input=loans.csv"})
package config

import (
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds all process configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	File     FileConfig     `yaml:"file"`
	Cleaning CleaningConfig `yaml:"cleaning"`
	Load     LoadConfig     `yaml:"load"`
	Export   ExportConfig   `yaml:"export"`
	S3       S3Config       `yaml:"s3"`
	RunLog   RunLogConfig   `yaml:"runlog"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig describes the warehouse. DSN, when set, is used verbatim;
// otherwise it is built from the discrete parts.
type DatabaseConfig struct {
	Driver    string            `yaml:"driver"` // postgres, sqlserver, mysql or sqlite
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	Name      string            `yaml:"name"` // database name, or file path for sqlite
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	DSN       string            `yaml:"dsn"`
	Params    map[string]string `yaml:"params"`
	BatchSize int               `yaml:"batch_size"`
}

// FileConfig describes the delimited input.
type FileConfig struct {
	Path          string   `yaml:"path"` // local path or s3://bucket/key
	Delimiter     string   `yaml:"delimiter"`
	HasHeader     bool     `yaml:"has_header"`
	MissingTokens []string `yaml:"missing_tokens"`
}

// CleaningConfig holds the cleaning tunables.
type CleaningConfig struct {
	MaxNullPercent float64 `yaml:"max_null_percent"`
	StrictKeys     bool    `yaml:"strict_keys"`
}

// LoadConfig controls the load phase.
type LoadConfig struct {
	FailFast bool          `yaml:"fail_fast"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ExportConfig enables file exports of every loaded table.
type ExportConfig struct {
	URI    string `yaml:"uri"` // local directory or s3://bucket/prefix; empty disables
	Format string `yaml:"format"`
}

// S3Config configures the AWS client used for s3:// inputs and exports.
type S3Config struct {
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// RunLogConfig enables the MongoDB run log.
type RunLogConfig struct {
	MongoURI   string `yaml:"mongo_uri"` // empty disables
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// MetricsConfig enables pushing metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"` // empty disables
	Job            string `yaml:"job"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:    "sqlserver",
			Host:      "localhost",
			Name:      "loans",
			BatchSize: 1000,
		},
		File: FileConfig{
			Delimiter: ",",
			HasHeader: true,
		},
		Cleaning: CleaningConfig{MaxNullPercent: 30},
		Load:     LoadConfig{Timeout: 10 * time.Minute},
		Export:   ExportConfig{Format: "csv"},
		RunLog:   RunLogConfig{Database: "dataops", Collection: "etl_run_log"},
		Metrics:  MetricsConfig{Job: "loan_etl"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFromArgs builds a Config from defaults, the YAML file named by -config
// (or CONFIG_FILE), environment variables read through getenv and the flags
// in args, in that order of precedence, lowest first.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Default()

	path := configPath(args, getenv)
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	cfg.defineFlags(fs, path)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is the production entry point using the process flags and environment.
func Load() (*Config, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// configPath finds -config/--config in args, falling back to CONFIG_FILE.
func configPath(args []string, getenv func(string) string) string {
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		if !strings.HasPrefix(a, "-") {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return getenv("CONFIG_FILE")
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields whose environment variable is set.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(k string, dst *string) {
		if v := getenv(k); v != "" {
			*dst = v
		}
	}
	var errs []string
	integer := func(k string, dst *int) {
		if v := getenv(k); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", k, v))
				return
			}
			*dst = i
		}
	}
	float := func(k string, dst *float64) {
		if v := getenv(k); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a number", k, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(k string, dst *bool) {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	str("DB_DRIVER", &c.Database.Driver)
	str("DB_HOST", &c.Database.Host)
	integer("DB_PORT", &c.Database.Port)
	str("DB_NAME", &c.Database.Name)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_DSN", &c.Database.DSN)
	integer("DB_BATCH_SIZE", &c.Database.BatchSize)

	str("INPUT_PATH", &c.File.Path)
	str("CSV_DELIMITER", &c.File.Delimiter)
	boolean("CSV_HEADER", &c.File.HasHeader)

	float("MAX_NULL_PERCENT", &c.Cleaning.MaxNullPercent)
	boolean("STRICT_KEYS", &c.Cleaning.StrictKeys)
	boolean("LOAD_FAIL_FAST", &c.Load.FailFast)

	str("EXPORT_URI", &c.Export.URI)
	str("EXPORT_FORMAT", &c.Export.Format)

	str("AWS_REGION", &c.S3.Region)
	str("AWS_PROFILE", &c.S3.Profile)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	boolean("S3_PATH_STYLE", &c.S3.PathStyle)

	str("MONGO_URI", &c.RunLog.MongoURI)
	str("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) defineFlags(fs *flag.FlagSet, path string) {
	fs.String("config", path, "Path to a YAML config file")

	fs.StringVar(&c.Database.Driver, "db_driver", c.Database.Driver, "Warehouse driver: postgres, sqlserver, mysql or sqlite")
	fs.StringVar(&c.Database.Host, "db_host", c.Database.Host, "Warehouse host")
	fs.IntVar(&c.Database.Port, "db_port", c.Database.Port, "Warehouse port (0 uses the driver default)")
	fs.StringVar(&c.Database.Name, "db_name", c.Database.Name, "Warehouse database name (file path for sqlite)")
	fs.StringVar(&c.Database.User, "db_user", c.Database.User, "Warehouse user")
	fs.StringVar(&c.Database.Password, "db_password", c.Database.Password, "Warehouse password")
	fs.StringVar(&c.Database.DSN, "dsn", c.Database.DSN, "Full warehouse DSN; overrides the discrete settings")
	fs.IntVar(&c.Database.BatchSize, "batch_size", c.Database.BatchSize, "Rows per insert transaction")

	fs.StringVar(&c.File.Path, "input", c.File.Path, "Input file path or s3://bucket/key")
	fs.StringVar(&c.File.Delimiter, "delimiter", c.File.Delimiter, "Input field delimiter")
	fs.BoolVar(&c.File.HasHeader, "header", c.File.HasHeader, "Input has a header row")

	fs.Float64Var(&c.Cleaning.MaxNullPercent, "max_null_percent", c.Cleaning.MaxNullPercent, "Drop columns with a higher percentage of missing values")
	fs.BoolVar(&c.Cleaning.StrictKeys, "strict_keys", c.Cleaning.StrictKeys, "Fail when a fact value has no dimension key")
	fs.BoolVar(&c.Load.FailFast, "fail_fast", c.Load.FailFast, "Stop loading at the first failed table")

	fs.StringVar(&c.Export.URI, "export", c.Export.URI, "Export directory or s3://bucket/prefix")
	fs.StringVar(&c.Export.Format, "export_format", c.Export.Format, "Export format: csv, json or parquet")

	fs.StringVar(&c.RunLog.MongoURI, "mongo_uri", c.RunLog.MongoURI, "MongoDB URI for the run log")
	fs.StringVar(&c.Metrics.PushgatewayURL, "pushgateway", c.Metrics.PushgatewayURL, "Prometheus Pushgateway URL")

	fs.StringVar(&c.Log.Level, "log_level", c.Log.Level, "Log level: debug, info, warn or error")
	fs.StringVar(&c.Log.Format, "log_format", c.Log.Format, "Log format: text or json")
}

// Comma returns the input delimiter as a rune.
func (c *Config) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.File.Delimiter)
	return r
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql", "sqlserver", "mssql", "mysql", "sqlite", "sqlite3":
	default:
		problems = append(problems, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" && c.Database.Name == "" {
		problems = append(problems, "database name or dsn is required")
	}
	if strings.TrimSpace(c.File.Path) == "" {
		problems = append(problems, "input path is required")
	}
	if utf8.RuneCountInString(c.File.Delimiter) != 1 {
		problems = append(problems, fmt.Sprintf("delimiter %q must be a single character", c.File.Delimiter))
	}
	if c.Cleaning.MaxNullPercent < 0 || c.Cleaning.MaxNullPercent > 100 {
		problems = append(problems, fmt.Sprintf("max_null_percent %v must be within 0-100", c.Cleaning.MaxNullPercent))
	}
	if c.Database.BatchSize <= 0 {
		problems = append(problems, "batch_size must be positive")
	}
	if c.Export.URI != "" {
		switch strings.ToLower(c.Export.Format) {
		case "csv", "json", "jsonl", "parquet":
		default:
			problems = append(problems, fmt.Sprintf("unknown export format %q", c.Export.Format))
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN renders the driver-specific connection string.
func (c *Config) DSN() string {
	db := c.Database
	if db.DSN != "" {
		return db.DSN
	}

	switch strings.ToLower(db.Driver) {
	case "postgres", "postgresql":
		q := url.Values{}
		q.Set("sslmode", "disable")
		for k, v := range db.Params {
			q.Set(k, v)
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     userInfo(db.User, db.Password),
			Host:     net.JoinHostPort(db.Host, strconv.Itoa(c.port())),
			Path:     "/" + db.Name,
			RawQuery: q.Encode(),
		}
		return u.String()
	case "sqlserver", "mssql":
		q := url.Values{}
		q.Set("database", db.Name)
		for k, v := range db.Params {
			q.Set(k, v)
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     userInfo(db.User, db.Password),
			Host:     net.JoinHostPort(db.Host, strconv.Itoa(c.port())),
			RawQuery: q.Encode(),
		}
		return u.String()
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = db.User
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(db.Host, strconv.Itoa(c.port()))
		mc.DBName = db.Name
		mc.ParseTime = true
		if len(db.Params) > 0 {
			mc.Params = make(map[string]string, len(db.Params))
			for k, v := range db.Params {
				mc.Params[k] = v
			}
		}
		return mc.FormatDSN()
	default:
		return db.Name
	}
}

// port returns the configured port or the driver default.
func (c *Config) port() int {
	if c.Database.Port > 0 {
		return c.Database.Port
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql":
		return 5432
	case "mysql":
		return 3306
	default:
		return 1433
	}
}

func userInfo(user, password string) *url.Userinfo {
	if user == "" {
		return nil
	}
	if password == "" {
		return url.User(user)
	}
	return url.UserPassword(user, password)
}

// Redacted returns the DSN with any password masked, for logging.
func (c *Config) Redacted() string {
	dsn := c.DSN()
	if c.Database.Password != "" {
		dsn = strings.ReplaceAll(dsn, url.QueryEscape(c.Database.Password), "xxxxx")
		dsn = strings.ReplaceAll(dsn, c.Database.Password, "xxxxx")
	}
	return dsn
}
