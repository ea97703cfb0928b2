// Package db owns the data-access entity used by IncludeGuard.
//
// Database is deliberately opaque: every field is unexported, so code in
// other packages can hold a *Database, pass it along and compare it for
// identity, but cannot reach into its connection configuration or cached
// state. Touching those fields from outside this package is a compile
// error, which is the boundary this package exists to enforce.
//
// Consumers should not import this package at all. They declare the small
// capability interface they need (see internal/service.Querier) and receive
// a *Database from the owning context, usually internal/cli, which
// constructs it with Open (or New followed by Connect) and closes it when
// done.
//
// Backends
//   - "sqlite" via modernc.org/sqlite (default, pure Go).
//   - "postgres" via the pgx stdlib driver.
//   - "mysql" via go-sql-driver/mysql.
//
// All three are driven through a long-lived *bun.DB with the matching
// dialect. Schema migrations are embedded per backend under
// migrations/<type> and applied on Connect.
//
// Testing notes
//   - Prefer Open(ctx, "sqlite", ":memory:") or a shared-cache memory DSN
//     such as "file:<name>?mode=memory&cache=shared" in tests.
package db
