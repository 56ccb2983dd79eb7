// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// package station provides the data access layer for ground-motion
// observations. It abstracts the underlying database (SQLite, PostgreSQL,
// MySQL) behind a consistent Store interface so the rest of the
// application, and in particular the event containers, can treat station
// data uniformly.
package station

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	// SQL drivers required for the non-sqlite backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/seisio/shakelib/internal/logging"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// NewStoreFromDSN opens a sql.DB for the given DSN, creates the schema,
// and returns the backend-appropriate Store implementation.
func NewStoreFromDSN(dbType, dsn string) (Store, error) {
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that.
	if dbType == "postgres" {
		driverName = "pgx"
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Conservative pool defaults, overridable via environment variables
	// for CI or production tuning.
	const (
		defaultMaxOpenConns    = 25
		defaultMaxIdleConns    = 25
		defaultConnMaxLifetime = 5 * time.Minute
	)

	maxOpen := envInt("SHAKELIB_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("SHAKELIB_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)

	// In-memory SQLite databases get a single connection: each connection
	// to ":memory:" would otherwise see its own private database, making
	// schema changes invisible across connections.
	if dbType == "sqlite" && isMemoryDSN(dsn) {
		maxOpen = 1
		maxIdle = 1
	}
	connMax := defaultConnMaxLifetime
	if n := envInt("SHAKELIB_DB_CONN_MAX_LIFETIME_SECONDS", -1); n >= 0 {
		connMax = time.Duration(n) * time.Second
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	sqlDB.SetConnMaxIdleTime(time.Duration(envInt("SHAKELIB_DB_CONN_MAX_IDLE_SECONDS", 60)) * time.Second)

	logging.Debugf("station: opened %s driver in %s (max open=%d, idle=%d)",
		driverName, time.Since(start), maxOpen, maxIdle)

	if err := createSchema(sqlDB, dbType); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	bunDB := createBunDB(sqlDB, dbType)
	base := bunStore{db: sqlDB, bun: bunDB}
	switch dbType {
	case "sqlite":
		return &SqliteStore{bunStore: base, dsn: dsn}, nil
	case "postgres":
		return &PostgresStore{bunStore: base}, nil
	case "mysql":
		return &MySQLStore{bunStore: base}, nil
	default:
		_ = sqlDB.Close()
		return nil, fmt.Errorf("unsupported database type for store creation: '%s'", dbType)
	}
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
// Centralizing construction makes it easier to apply consistent options.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// createSchema builds the station/imt/amp/audit tables if they do not
// already exist. DDL differs slightly per engine; MySQL needs VARCHAR for
// indexed columns.
func createSchema(db *sql.DB, dbType string) error {
	var tables []string
	switch dbType {
	case "mysql":
		tables = []string{
			`CREATE TABLE IF NOT EXISTS station (
				id VARCHAR(191) NOT NULL PRIMARY KEY,
				network VARCHAR(64) NOT NULL,
				code VARCHAR(128) NOT NULL,
				name VARCHAR(255),
				lat DOUBLE NOT NULL,
				lon DOUBLE NOT NULL,
				elev DOUBLE,
				vs30 DOUBLE,
				instrumented BOOLEAN NOT NULL DEFAULT FALSE
			);`,
			`CREATE TABLE IF NOT EXISTS imt (
				id INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
				imt_type VARCHAR(64) NOT NULL UNIQUE
			);`,
			`CREATE TABLE IF NOT EXISTS amp (
				id INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
				station_id VARCHAR(191) NOT NULL,
				imt_id INTEGER NOT NULL,
				original_channel VARCHAR(64) NOT NULL,
				orientation VARCHAR(8) NOT NULL,
				amp DOUBLE,
				uncertainty DOUBLE,
				flag VARCHAR(8) NOT NULL DEFAULT '0',
				UNIQUE(station_id, imt_id, original_channel),
				FOREIGN KEY (station_id) REFERENCES station (id) ON DELETE CASCADE,
				FOREIGN KEY (imt_id) REFERENCES imt (id) ON DELETE CASCADE
			);`,
			`CREATE TABLE IF NOT EXISTS audit_log (
				id INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
				timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				action VARCHAR(255) NOT NULL,
				details TEXT
			);`,
		}
	case "postgres":
		tables = []string{
			`CREATE TABLE IF NOT EXISTS station (
				id TEXT NOT NULL PRIMARY KEY,
				network TEXT NOT NULL,
				code TEXT NOT NULL,
				name TEXT,
				lat DOUBLE PRECISION NOT NULL,
				lon DOUBLE PRECISION NOT NULL,
				elev DOUBLE PRECISION,
				vs30 DOUBLE PRECISION,
				instrumented BOOLEAN NOT NULL DEFAULT FALSE
			);`,
			`CREATE TABLE IF NOT EXISTS imt (
				id SERIAL PRIMARY KEY,
				imt_type TEXT NOT NULL UNIQUE
			);`,
			`CREATE TABLE IF NOT EXISTS amp (
				id SERIAL PRIMARY KEY,
				station_id TEXT NOT NULL REFERENCES station (id) ON DELETE CASCADE,
				imt_id INTEGER NOT NULL REFERENCES imt (id) ON DELETE CASCADE,
				original_channel TEXT NOT NULL,
				orientation TEXT NOT NULL,
				amp DOUBLE PRECISION,
				uncertainty DOUBLE PRECISION,
				flag TEXT NOT NULL DEFAULT '0',
				UNIQUE(station_id, imt_id, original_channel)
			);`,
			`CREATE TABLE IF NOT EXISTS audit_log (
				id SERIAL PRIMARY KEY,
				timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				action TEXT NOT NULL,
				details TEXT
			);`,
		}
	default: // sqlite
		tables = []string{
			`CREATE TABLE IF NOT EXISTS station (
				id TEXT NOT NULL PRIMARY KEY,
				network TEXT NOT NULL,
				code TEXT NOT NULL,
				name TEXT,
				lat REAL NOT NULL,
				lon REAL NOT NULL,
				elev REAL,
				vs30 REAL,
				instrumented BOOLEAN NOT NULL DEFAULT FALSE
			);`,
			`CREATE TABLE IF NOT EXISTS imt (
				id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
				imt_type TEXT NOT NULL UNIQUE
			);`,
			`CREATE TABLE IF NOT EXISTS amp (
				id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
				station_id TEXT NOT NULL,
				imt_id INTEGER NOT NULL,
				original_channel TEXT NOT NULL,
				orientation TEXT NOT NULL,
				amp REAL,
				uncertainty REAL,
				flag TEXT NOT NULL DEFAULT '0',
				UNIQUE(station_id, imt_id, original_channel),
				FOREIGN KEY (station_id) REFERENCES station (id) ON DELETE CASCADE,
				FOREIGN KEY (imt_id) REFERENCES imt (id) ON DELETE CASCADE
			);`,
			`CREATE TABLE IF NOT EXISTS audit_log (
				id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
				timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				action TEXT NOT NULL,
				details TEXT
			);`,
		}
	}

	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w, sql: %s", err, tableSQL)
		}
	}
	return nil
}

// RunMaintenance performs engine-specific maintenance tasks for the given
// database DSN. For SQLite this runs PRAGMA optimize, VACUUM and a WAL
// checkpoint. For Postgres it runs VACUUM ANALYZE. For MySQL it runs
// OPTIMIZE TABLE for all tables.
func RunMaintenance(dbType, dsn string) error {
	driverName := dbType
	if dbType == "postgres" {
		driverName = "pgx"
	}
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for maintenance: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	// Small timeout so maintenance cannot block CI.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch dbType {
	case "sqlite":
		// PRAGMA optimize may not be supported everywhere; non-fatal.
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			logging.Debugf("station: sqlite optimize failed (ignored): %v", err)
		}
		if _, err := sqlDB.ExecContext(ctx, "VACUUM;"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		_, _ = sqlDB.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
		var res string
		if row := sqlDB.QueryRowContext(ctx, "PRAGMA integrity_check;"); row != nil {
			_ = row.Scan(&res)
			if res != "ok" {
				return fmt.Errorf("sqlite integrity_check failed: %s", res)
			}
		}
	case "postgres":
		if _, err := sqlDB.ExecContext(ctx, "VACUUM ANALYZE;"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case "mysql":
		rows, err := sqlDB.QueryContext(ctx, "SHOW TABLES")
		if err != nil {
			return fmt.Errorf("mysql show tables failed: %w", err)
		}
		defer func() { _ = rows.Close() }()
		var table string
		for rows.Next() {
			if err := rows.Scan(&table); err != nil {
				return err
			}
			if _, err := sqlDB.ExecContext(ctx, "OPTIMIZE TABLE "+table); err != nil {
				return fmt.Errorf("mysql optimize %s failed: %w", table, err)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported database type for maintenance: '%s'", dbType)
	}
	return nil
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || dsn == "file::memory:" ||
		dsn == "file::memory:?cache=shared"
}
