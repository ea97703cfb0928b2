package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/toeirei/includeguard/internal/model"
	"github.com/toeirei/includeguard/internal/service"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	dsn := "file:test_" + t.Name() + "?mode=memory&cache=shared"
	d, err := Open(context.Background(), "sqlite", dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpen_MigrationsApplied(t *testing.T) {
	d := newTestDB(t)

	rows, err := d.Query(context.Background(), "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	want := []string{"0001_create_analysis_runs", "0002_index_runs_started_at"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d migrations, got %v", len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("migration %d: got %q want %q", i, rows[i], want[i])
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	d := newTestDB(t)
	if err := RunMigrations(context.Background(), d.sqlDB, "sqlite"); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}
	rows, err := d.Query(context.Background(), "SELECT COUNT(*) FROM schema_migrations")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if len(rows) != 1 || rows[0] != "2" {
		t.Fatalf("expected 2 recorded migrations, got %v", rows)
	}
}

func TestQuery_SelectOne(t *testing.T) {
	d := newTestDB(t)
	rows, err := d.Query(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rows) != 1 || rows[0] != "1" {
		t.Fatalf("expected [1], got %v", rows)
	}
}

func TestQuery_JoinsColumnsAndRendersNull(t *testing.T) {
	d := newTestDB(t)
	rows, err := d.Query(context.Background(), "SELECT 1, 'a', NULL")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rows) != 1 || rows[0] != "1|a|" {
		t.Fatalf("expected [1|a|], got %q", rows)
	}
}

func TestQuery_EmptyResultIsEmptySlice(t *testing.T) {
	d := newTestDB(t)
	rows, err := d.Query(context.Background(), "SELECT id FROM analysis_runs")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", rows)
	}
}

func TestQuery_BadSQL(t *testing.T) {
	d := newTestDB(t)
	if _, err := d.Query(context.Background(), "SELEKT nothing"); err == nil {
		t.Fatalf("expected error for invalid SQL")
	}
}

func TestQuery_NotConnected(t *testing.T) {
	d, err := New("sqlite")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := d.Query(context.Background(), "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if _, err := d.ListRuns(context.Background(), 0); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from ListRuns, got %v", err)
	}
	if err := d.Maintain(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from Maintain, got %v", err)
	}
}

func TestNilDatabase(t *testing.T) {
	ctx := context.Background()
	var d *Database
	if d.Connected() || d.Type() != "" {
		t.Fatalf("nil Database must report itself unconnected")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
	if err := d.Connect(ctx, ":memory:"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Connect on nil: %v", err)
	}
	if _, err := d.SaveRun(ctx, model.Run{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("SaveRun on nil: %v", err)
	}
	if err := d.Maintain(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Maintain on nil: %v", err)
	}

	// A typed nil passes the consumer's nil check and must not panic.
	if _, err := service.RunQuery(ctx, d, "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("RunQuery with nil entity: %v", err)
	}
	if _, err := service.ConnectAndQuery(ctx, d, ":memory:", "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ConnectAndQuery with nil entity: %v", err)
	}
}

func TestNew_UnsupportedType(t *testing.T) {
	if _, err := New("oracle"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	for _, typ := range SupportedTypes() {
		d, err := New(typ)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", typ, err)
		}
		if d.Type() != typ {
			t.Fatalf("Type() = %q want %q", d.Type(), typ)
		}
	}
}

func TestNew_DriverMapping(t *testing.T) {
	d, _ := New("postgres")
	if d.config["driver"] != "pgx" {
		t.Fatalf("postgres should use the pgx driver, got %q", d.config["driver"])
	}
	d, _ = New("mysql")
	if d.config["driver"] != "mysql" {
		t.Fatalf("mysql should use the mysql driver, got %q", d.config["driver"])
	}
}

func TestConnect_OpenFailure(t *testing.T) {
	prev := sqlOpenFunc
	sqlOpenFunc = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }
	defer func() { sqlOpenFunc = prev }()

	d, _ := New("sqlite")
	if err := d.Connect(context.Background(), ":memory:"); err == nil {
		t.Fatalf("expected Connect to fail")
	}
	if d.Connected() {
		t.Fatalf("Database should not be connected after a failed Connect")
	}
}

func TestClose_Idempotent(t *testing.T) {
	d, err := Open(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !d.Connected() {
		t.Fatalf("expected Connected after Open")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if d.Connected() {
		t.Fatalf("expected not Connected after Close")
	}
	if _, ok := d.config["host"]; ok {
		t.Fatalf("host should be cleared from config after Close")
	}
}

func TestSaveAndListRuns(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	older, err := d.SaveRun(ctx, model.Run{ProjectPath: "/src/a", StartedAt: base, Files: 3, TotalCost: 100})
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if older.ID == "" {
		t.Fatalf("expected SaveRun to assign an ID")
	}
	newer, err := d.SaveRun(ctx, model.Run{ProjectPath: "/src/b", StartedAt: base.Add(time.Hour), Files: 5, WastePercentage: 12.5})
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	runs, err := d.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Fatalf("expected newest first, got %v", runs)
	}
	if runs[0].WastePercentage != 12.5 || runs[0].Files != 5 {
		t.Fatalf("unexpected round-tripped run: %+v", runs[0])
	}
	if !runs[1].StartedAt.Equal(base) {
		t.Fatalf("StartedAt: got %v want %v", runs[1].StartedAt, base)
	}

	limited, err := d.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns(1) failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != newer.ID {
		t.Fatalf("expected only the newest run, got %v", limited)
	}
}

func TestSaveRun_DuplicateID(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	run := model.Run{ID: "fixed", ProjectPath: "/src"}
	if _, err := d.SaveRun(ctx, run); err != nil {
		t.Fatalf("first SaveRun failed: %v", err)
	}
	if _, err := d.SaveRun(ctx, run); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMaintain_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "includeguard.db")
	d, err := Open(context.Background(), "sqlite", path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = d.Close() }()
	if _, err := d.SaveRun(context.Background(), model.Run{ProjectPath: "/p"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := d.Maintain(context.Background()); err != nil {
		t.Fatalf("Maintain failed: %v", err)
	}
}

func TestHandleIdentity(t *testing.T) {
	a, _ := New("sqlite")
	b, _ := New("sqlite")
	var h1, h2 any = a, a
	if h1 != h2 {
		t.Fatalf("handles to the same Database should compare equal")
	}
	if any(a) == any(b) {
		t.Fatalf("handles to different Databases should not compare equal")
	}
}

func TestMapDBError(t *testing.T) {
	if MapDBError(nil) != nil {
		t.Fatalf("nil should map to nil")
	}
	cases := []string{
		"UNIQUE constraint failed: analysis_runs.id",
		"ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)",
		"Error 1062: Duplicate entry 'x' for key 'PRIMARY'",
	}
	for _, c := range cases {
		if !errors.Is(MapDBError(errors.New(c)), ErrDuplicate) {
			t.Errorf("expected %q to map to ErrDuplicate", c)
		}
	}
	other := errors.New("connection refused")
	if MapDBError(other) != other {
		t.Fatalf("unrelated errors should pass through unchanged")
	}

	// Driver errors are classified by code, not by wording.
	typed := []struct {
		err  error
		want bool
	}{
		{&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'PRIMARY'"}, true},
		{&mysql.MySQLError{Number: 1146, Message: "Table 'x.duplicate_runs' doesn't exist"}, false},
		{&pgconn.PgError{Code: "23505", Message: "duplicate key value"}, true},
		{&pgconn.PgError{Code: "42P01", Message: `relation "unique_runs" does not exist`}, false},
	}
	for _, c := range typed {
		got := errors.Is(MapDBError(c.err), ErrDuplicate)
		if got != c.want {
			t.Errorf("MapDBError(%v) duplicate = %v want %v", c.err, got, c.want)
		}
		if !c.want && !errors.Is(MapDBError(c.err), c.err) {
			t.Errorf("MapDBError(%v) lost the original error", c.err)
		}
	}
}
