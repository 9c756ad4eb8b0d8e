package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/sqlbridge/internal/dberr"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DefaultBusyTimeout is how long a statement waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Config describes how to open a database.
type Config struct {
	// Driver is DriverCGO (default) or DriverPureGo.
	Driver string
	// Path is a file path or MemoryPath.
	Path string
	// BusyTimeout defaults to DefaultBusyTimeout.
	BusyTimeout time.Duration
	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool
}

// Store is one open SQLite database.
// Uses a single connection: SQLite allows one writer, and an in-memory
// database exists only on the connection that created it.
type Store struct {
	db     *sql.DB
	path   string
	driver string
}

// Open opens (creating if needed) the database described by cfg and applies
// connection pragmas.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, dberr.Open("database", fmt.Errorf("path is required"))
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, dberr.Open(cfg.Path, fmt.Errorf("unknown driver %q: must be %q or %q", driver, DriverCGO, DriverPureGo))
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, dberr.Open(cfg.Path, fmt.Errorf("failed to open database: %w", err))
	}

	// Configure before the first connection is made
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, dberr.Open(cfg.Path, fmt.Errorf("failed to connect to database: %w", err))
	}

	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, dberr.Open(cfg.Path, fmt.Errorf("failed to apply pragmas: %w", err))
	}

	return &Store{db: db, path: cfg.Path, driver: driver}, nil
}

// OpenPath opens the database file at path with the default driver.
func OpenPath(path string) (*Store, error) {
	return Open(Config{Path: path})
}

// OpenInMemory opens a private in-memory database with the default driver.
func OpenInMemory() (*Store, error) {
	return Open(Config{Path: MemoryPath})
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// applyPragmas sets connection configuration.
// journal_mode reports "memory" for in-memory databases; that is not an error.
func applyPragmas(db *sql.DB, cfg Config) error {
	foreignKeys := "OFF"
	if cfg.ForeignKeys {
		foreignKeys = "ON"
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = " + foreignKeys,
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// pragma returns the current value of a pragma as text.
// Used for testing.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
