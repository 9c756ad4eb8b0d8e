package migrate

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// createTestDB opens a file-backed SQLite database in a temp dir.
func createTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())
	return db
}

// quietEngine creates an engine whose logs go to a buffer.
func quietEngine(db DB, opts ...Option) (*Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(db, append([]Option{WithLogger(logger)}, opts...)...), &buf
}

// ledger reads the ledger rows directly, by column index.
func ledger(t *testing.T, db *sql.DB) []Entry {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), "SELECT * FROM migrations_history ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		require.NoError(t, rows.Scan(&e.ID, &e.Name, &e.Hash))
		out = append(out, e)
	}
	require.NoError(t, rows.Err())
	return out
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

var (
	migA = Migration{Name: "A", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"}
	migB = Migration{Name: "B", SQL: "CREATE TABLE b (id INTEGER PRIMARY KEY); INSERT INTO b (id) VALUES (1);"}
	migC = Migration{Name: "C", SQL: "ALTER TABLE a ADD COLUMN email TEXT"}
)
