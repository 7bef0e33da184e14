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

package writers

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	_ "modernc.org/sqlite"

	"github.com/aekanun2020/2025-12-dataops/core"
)

// Dialect describes how one SQL database spells the statements the SQL
// writer issues.
type Dialect struct {
	Name       string // configuration name, e.g. "sqlserver"
	DriverName string // database/sql driver name

	placeholder func(i int) string
	quote       func(ident string) string
	types       map[core.SemanticType]string
	validateDSN func(dsn string) error
}

// Placeholder returns the bind parameter for the i-th (1-based) value.
func (d Dialect) Placeholder(i int) string {
	return d.placeholder(i)
}

// Quote quotes an identifier.
func (d Dialect) Quote(ident string) string {
	return d.quote(ident)
}

// ColumnType maps a semantic type to a column type.
func (d Dialect) ColumnType(t core.SemanticType) string {
	if sqlType, ok := d.types[t]; ok {
		return sqlType
	}
	return d.types[core.Categorical]
}

// ValidateDSN parses dsn with the driver's own parser where one exists.
func (d Dialect) ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("%s: empty dsn", d.Name)
	}
	if d.validateDSN == nil {
		return nil
	}
	if err := d.validateDSN(dsn); err != nil {
		return fmt.Errorf("%s dsn: %w", d.Name, err)
	}
	return nil
}

// DropTable returns the statement that removes table if it exists.
func (d Dialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Quote(table))
}

// CreateTable returns the statement that creates table with columns.
func (d Dialect) CreateTable(table string, columns []ColumnDef) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = fmt.Sprintf("%s %s NULL", d.Quote(c.Name), d.ColumnType(c.Type))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(table), strings.Join(defs, ", "))
}

// Insert returns the single-row INSERT statement for table and columns.
func (d Dialect) Insert(table string, columns []ColumnDef) string {
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		names[i] = d.Quote(c.Name)
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

var (
	// Postgres uses lib/pq.
	Postgres = Dialect{
		Name:        "postgres",
		DriverName:  "postgres",
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		quote:       pq.QuoteIdentifier,
		types: map[core.SemanticType]string{
			core.Categorical: "TEXT",
			core.Integer:     "BIGINT",
			core.Float:       "DOUBLE PRECISION",
			core.Date:        "DATE",
			core.Datetime:    "TIMESTAMP",
		},
		validateDSN: func(dsn string) error {
			if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
				_, err := pq.ParseURL(dsn)
				return err
			}
			return nil
		},
	}

	// SQLServer uses go-mssqldb.
	SQLServer = Dialect{
		Name:        "sqlserver",
		DriverName:  "sqlserver",
		placeholder: func(i int) string { return fmt.Sprintf("@p%d", i) },
		quote: func(ident string) string {
			return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
		},
		types: map[core.SemanticType]string{
			core.Categorical: "NVARCHAR(MAX)",
			core.Integer:     "BIGINT",
			core.Float:       "FLOAT",
			core.Date:        "DATE",
			core.Datetime:    "DATETIME2",
		},
		validateDSN: func(dsn string) error {
			_, err := msdsn.Parse(dsn)
			return err
		},
	}

	// MySQL uses go-sql-driver/mysql.
	MySQL = Dialect{
		Name:        "mysql",
		DriverName:  "mysql",
		placeholder: func(int) string { return "?" },
		quote: func(ident string) string {
			return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
		},
		types: map[core.SemanticType]string{
			core.Categorical: "TEXT",
			core.Integer:     "BIGINT",
			core.Float:       "DOUBLE",
			core.Date:        "DATE",
			core.Datetime:    "DATETIME(6)",
		},
		validateDSN: func(dsn string) error {
			_, err := mysql.ParseDSN(dsn)
			return err
		},
	}

	// SQLite uses the pure-Go modernc.org/sqlite driver.
	SQLite = Dialect{
		Name:        "sqlite",
		DriverName:  "sqlite",
		placeholder: func(int) string { return "?" },
		quote: func(ident string) string {
			return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
		},
		types: map[core.SemanticType]string{
			core.Categorical: "TEXT",
			core.Integer:     "INTEGER",
			core.Float:       "REAL",
			core.Date:        "DATE",
			core.Datetime:    "TIMESTAMP",
		},
	}
)

// DialectByName returns the dialect registered under name. "mssql" is
// accepted as an alias for "sqlserver".
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
	}
}
