// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

package db // import "github.com/toeirei/includeguard/internal/db"

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	// SQL drivers for the non-default backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	//go:embed migrations
	embeddedMigrations embed.FS
	// sqlOpenFunc allows tests to override database opening behavior.
	sqlOpenFunc = sql.Open
)

var (
	// ErrNotConnected is returned by operations issued before Connect.
	ErrNotConnected = errors.New("database not connected")
	// ErrUnsupportedType is returned for an unknown backend name.
	ErrUnsupportedType = errors.New("unsupported database type")
)

// Pool defaults. Values can be overridden via INCLUDEGUARD_DB_* env vars.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdle     = 60 * time.Second
)

// Database is the data-access entity. Its fields are visible only inside
// this package; callers interact with it through its methods. A nil
// *Database acts as one that never connected.
type Database struct {
	dbType string
	config map[string]string
	sqlDB  *sql.DB
	bun    *bun.DB
}

// SupportedTypes lists the accepted backend names.
func SupportedTypes() []string {
	return []string{"sqlite", "postgres", "mysql"}
}

// New returns an unconnected Database for the given backend type.
func New(dbType string) (*Database, error) {
	switch dbType {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedType, dbType)
	}
	return &Database{
		dbType: dbType,
		config: map[string]string{"type": dbType, "driver": driverName(dbType)},
	}, nil
}

// Open is New followed by Connect.
func Open(ctx context.Context, dbType, dsn string) (*Database, error) {
	d, err := New(dbType)
	if err != nil {
		return nil, err
	}
	if err := d.Connect(ctx, dsn); err != nil {
		return nil, err
	}
	return d, nil
}

// Type reports the backend name.
func (d *Database) Type() string {
	if d == nil {
		return ""
	}
	return d.dbType
}

// Connected reports whether Connect has succeeded and Close has not run.
func (d *Database) Connected() bool { return d != nil && d.bun != nil }

// Connect opens the backend at host (a DSN or SQLite path), applies pool
// settings, runs pending migrations and keeps the connection for later
// calls. Connecting an already connected Database replaces the old
// connection.
func (d *Database) Connect(ctx context.Context, host string) error {
	if d == nil {
		return ErrNotConnected
	}
	if d.bun != nil {
		_ = d.Close()
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(d.config["driver"], host)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := envInt("INCLUDEGUARD_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("INCLUDEGUARD_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	// SQLite gives each connection its own ":memory:" database; pin the pool
	// to one connection so the schema stays visible.
	if d.dbType == "sqlite" && (host == ":memory:" || strings.Contains(host, "mode=memory")) {
		maxOpen, maxIdle = 1, 1
	}
	connMax := time.Duration(envInt("INCLUDEGUARD_DB_CONN_MAX_LIFETIME_SECONDS", int(defaultConnMaxLifetime/time.Second))) * time.Second
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	sqlDB.SetConnMaxIdleTime(defaultConnMaxIdle)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}
	dbLogf("db: opened %s driver in %s (max open=%d, idle=%d, max lifetime=%s)",
		d.config["driver"], time.Since(start), maxOpen, maxIdle, connMax)

	migStart := time.Now()
	if err := RunMigrations(ctx, sqlDB, d.dbType); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	dbLogf("db: migrations for %s completed in %s", d.dbType, time.Since(migStart))

	d.sqlDB = sqlDB
	d.bun = createBunDB(sqlDB, d.dbType)
	d.config["host"] = host
	d.config["max_open_conns"] = strconv.Itoa(maxOpen)
	d.config["max_idle_conns"] = strconv.Itoa(maxIdle)
	return nil
}

// Query runs sql and returns one string per result row, with the row's
// columns joined by "|". NULL columns render as the empty string.
func (d *Database) Query(ctx context.Context, query string) ([]string, error) {
	if !d.Connected() {
		return nil, ErrNotConnected
	}
	rows, err := d.bun.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", MapDBError(err))
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	out := []string{}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		fields := make([]string, len(vals))
		for i, v := range vals {
			fields[i] = formatValue(v)
		}
		out = append(out, strings.Join(fields, "|"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close releases the connection. It is safe to call more than once.
func (d *Database) Close() error {
	if !d.Connected() {
		return nil
	}
	err := d.bun.Close()
	d.bun = nil
	d.sqlDB = nil
	delete(d.config, "host")
	return err
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// driverName maps a backend type to its registered database/sql driver.
// The pgx stdlib registers "pgx"; the other drivers use the type name.
func driverName(dbType string) string {
	if dbType == "postgres" {
		return "pgx"
	}
	return dbType
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
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

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
