package store

import (
	"path/filepath"
	"testing"
)

// drivers lists every driver the store supports, for table-driven tests.
var drivers = []string{DriverCGO, DriverPureGo}

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, driver string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(Config{Driver: driver, Path: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createMemoryStore creates a new in-memory store for testing.
func createMemoryStore(t *testing.T, driver string) *Store {
	t.Helper()
	s, err := Open(Config{Driver: driver, Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const testTableSQL = `CREATE TABLE test (id INTEGER PRIMARY KEY, integer_value INTEGER, real_value REAL, text_value TEXT, blob_value BLOB)`
