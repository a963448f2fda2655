// Package sqlite provides SQLite-backed persistence for gait analysis runs.
//
// The stores in this package operate on a *sql.DB opened and migrated by the
// internal/db package; they own no schema of their own. Writes retry on
// transient SQLITE_BUSY errors so the CLI and the report server can share a
// database file.
package sqlite
