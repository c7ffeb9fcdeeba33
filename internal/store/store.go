// Package store implements the SQLite-backed object store: schemas are
// persisted as CBOR payloads in the objects table, and ordered link
// collections as dense position rows in the links table. Sessions gate
// all access behind attachment and write-transaction checks.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store owns the SQLite database connection for a starstore database.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// New creates a store instance. Logger may be nil.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// The store relies on the SQL transaction for write isolation, so
	// all sessions must share one connection.
	db.SetMaxOpenConns(1)

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *Store) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying database for read-only inspection (the
// query CLI). Regular access goes through a Session.
func (s *Store) DB() *sql.DB {
	return s.db
}
