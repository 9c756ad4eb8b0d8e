// Package migrate reconciles an ordered list of SQL migrations against the
// ledger of migrations already applied to a database, and applies the
// missing tail.
//
// # Ledger
//
// Applied migrations are recorded in:
//
//	migrations_history(id INTEGER PRIMARY KEY, name TEXT NOT NULL, hash TEXT NOT NULL)
//
// Column order is load-bearing: index 0 is id, 1 is name, 2 is hash. Rows are
// only ever appended; id defines the authoritative application order.
//
// # Reconciliation
//
// Ledger rows, read in id order, must be a prefix of the (name, hash)
// sequence of the supplied list. The walk is by position, not by name lookup,
// so reordering the list is as much a divergence as editing an applied
// script. Divergence is rejected, never repaired.
//
// Migrations are forward-only. Each new migration's SQL runs as one batch
// followed by its ledger insert. There is no transaction spanning the whole
// reconciliation: a crash between a script and its ledger row leaves the
// schema changed with no record, and the script runs again on the next call.
// Only idempotent scripts survive that. WithTransactionalBatches narrows the
// window to a single migration on stores that allow DDL inside transactions.
package migrate
