// Package sqlite provides a SQLite-based summary store and the shared
// database plumbing used by the FTS5 lexical index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Migrate records every applied version in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.recall/data/summaries.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Lock contention surfaces as domain.ErrStorageUnavailable.
package sqlite
