// Package store provides SQLite-backed durable storage for record tables.
//
// The store is the storage engine behind recordstore. It supplies:
//   - Versioned table declarations kept in the _recstore_tables catalog
//   - An auto-increment integer identifier per record
//   - One index per declared field (unique when the field says so)
//   - Equality-filtered reads, inserts, first-match updates, and deletes
//
// # Declarations
//
// Declare is idempotent. Re-declaring an identical schema is a no-op;
// a changed schema is migrated additively in one transaction (new columns,
// index swaps) and the catalog version is bumped. Changing a field's type
// is rejected with SchemaConflictError. Dropped fields keep their column.
//
// # Ordering
//
// Every read orders by identifier, so "first match" and GetAll order are
// deterministic for a given database.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - Single connection: SQLite allows one writer
//
// Two drivers are supported: "sqlite3" (github.com/mattn/go-sqlite3, cgo)
// and "sqlite" (modernc.org/sqlite, pure Go).
package store
