// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// migration is one embedded schema step. version is the file name without
// the .up.sql suffix and orders the steps.
type migration struct {
	version string
	file    string
}

// migrationSQL holds the bookkeeping statements for one placeholder style.
type migrationSQL struct {
	applied string
	record  string
}

func bookkeeping(dbType string) migrationSQL {
	if dbType == "postgres" {
		return migrationSQL{
			applied: "SELECT 1 FROM schema_migrations WHERE version = $1",
			record:  "INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)",
		}
	}
	return migrationSQL{
		applied: "SELECT 1 FROM schema_migrations WHERE version = ?",
		record:  "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)",
	}
}

// RunMigrations brings the history schema for dbType up to date. Versions
// already listed in schema_migrations are skipped; every other step runs
// and is recorded inside a single transaction.
func RunMigrations(ctx context.Context, db *sql.DB, dbType string) error {
	start := time.Now()
	steps, err := embeddedSteps(dbType)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		dbLogf("db: no schema steps for %s", dbType)
		return nil
	}
	if err := createVersionTable(ctx, db, dbType); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	stmts := bookkeeping(dbType)
	ran := 0
	for _, m := range steps {
		var one int
		err := db.QueryRowContext(ctx, stmts.applied, m.version).Scan(&one)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("look up schema version %s: %w", m.version, err)
		}
		if err := applyStep(ctx, db, stmts, m); err != nil {
			return err
		}
		ran++
	}
	dbLogf("db: %s schema at %s, %d step(s) applied in %s", dbType, steps[len(steps)-1].version, ran, time.Since(start))
	return nil
}

// embeddedSteps lists the .up.sql files shipped for dbType in version order.
func embeddedSteps(dbType string) ([]migration, error) {
	dir := path.Join("migrations", dbType)
	entries, err := fs.ReadDir(embeddedMigrations, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var steps []migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		steps = append(steps, migration{version: strings.TrimSuffix(name, ".up.sql"), file: path.Join(dir, name)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

func applyStep(ctx context.Context, db *sql.DB, stmts migrationSQL, m migration) (err error) {
	body, err := embeddedMigrations.ReadFile(m.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", m.file, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schema step %s: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("schema step %s: %w", m.version, err)
	}
	if _, err = tx.ExecContext(ctx, stmts.record, m.version, time.Now().UTC()); err != nil {
		return fmt.Errorf("record schema step %s: %w", m.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schema step %s: %w", m.version, err)
	}
	return nil
}

// createVersionTable makes sure schema_migrations exists. MySQL needs a
// bounded key column.
func createVersionTable(ctx context.Context, db *sql.DB, dbType string) error {
	keyType, stamp := "TEXT", "TIMESTAMP"
	if dbType == "mysql" {
		keyType, stamp = "VARCHAR(191)", "TIMESTAMP NULL"
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS schema_migrations (version %s PRIMARY KEY, applied_at %s)", keyType, stamp))
	return err
}
