// Package sqlite provides a SQLite-based implementation of the chunk-count
// manifest (driven.ManifestStore).
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ./.docsync/manifest.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on
// database-level locking provided by SQLite in WAL mode.
package sqlite
