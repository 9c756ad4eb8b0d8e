// Package store wraps one open SQLite database and exposes the commands the
// caller-facing layer needs: Batch, Update, Select and Migrate.
//
// Update and Select take parameters as dynamic values keyed by placeholder
// name (":id") and return results as value.ResultSet; conversion in both
// directions goes through package bind.
//
// # Drivers
//
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo), the default
//   - "sqlite": modernc.org/sqlite (pure Go)
//
// # Database Configuration
//
//   - One open connection (single writer; keeps :memory: databases alive)
//   - WAL mode for file databases
//   - synchronous=NORMAL
//   - busy_timeout from Config (default 5000ms)
//   - foreign_keys from Config
//
// A Store is not safe for interleaved use by several goroutines running
// multi-step operations such as Migrate; the registry serializes access per
// handle.
package store
