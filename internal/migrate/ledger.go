package migrate

import (
	"context"
	"database/sql"

	"github.com/roach88/sqlbridge/internal/bind"
	"github.com/roach88/sqlbridge/internal/dberr"
)

// TableName is the ledger table.
const TableName = "migrations_history"

const (
	createLedgerSQL = `CREATE TABLE IF NOT EXISTS migrations_history (id INTEGER PRIMARY KEY, name TEXT NOT NULL, hash TEXT NOT NULL)`
	selectLedgerSQL = `SELECT id, name, hash FROM migrations_history ORDER BY id ASC`
	insertLedgerSQL = `INSERT INTO migrations_history (name, hash) VALUES (:name, :hash)`
)

// DB is the subset of *sql.DB the engine needs.
type DB interface {
	Executor
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Executor is implemented by both *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ensureLedger creates the ledger table if it does not exist.
func ensureLedger(ctx context.Context, db Executor) error {
	if _, err := db.ExecContext(ctx, createLedgerSQL); err != nil {
		return dberr.Database("ensure ledger table", err)
	}
	return nil
}

// readLedger loads every ledger row ordered by id.
func readLedger(ctx context.Context, db DB) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, selectLedgerSQL)
	if err != nil {
		return nil, dberr.Database("read ledger", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Hash); err != nil {
			return nil, dberr.Database("scan ledger row", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database("read ledger", err)
	}
	return entries, nil
}

// recordEntry appends a ledger row; the store assigns the next id.
func recordEntry(ctx context.Context, db Executor, name, hash string) error {
	args := bind.Args([]bind.NamedParameter{
		{Name: ":name", Value: name},
		{Name: ":hash", Value: hash},
	})
	_, err := db.ExecContext(ctx, insertLedgerSQL, args...)
	return err
}
