package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Session is the attachment and transaction context for store access.
// Reads run against the base connection (or the open transaction);
// all mutations require an explicitly opened write transaction.
//
// A session is single-threaded by contract: the host runtime serializes
// calls into it.
type Session struct {
	store  *Store
	logger *slog.Logger

	tx     *sql.Tx
	closed bool

	// invalid holds object IDs whose handles are permanently detached
	// (deleted and committed). txInvalid holds deletions pending in the
	// current transaction; they merge into invalid on commit and are
	// discarded on rollback.
	invalid   map[string]struct{}
	txInvalid map[string]struct{}
}

// NewSession creates a session over an opened store.
func (s *Store) NewSession() (*Session, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return &Session{
		store:     s,
		logger:    s.logger,
		invalid:   make(map[string]struct{}),
		txInvalid: make(map[string]struct{}),
	}, nil
}

// Live reports whether the session is still attached to the store.
func (s *Session) Live() bool {
	return !s.closed && s.store.db != nil
}

// InWriteTxn reports whether a write transaction is currently open.
func (s *Session) InWriteTxn() bool {
	return s.tx != nil
}

// Invalidated reports whether handles to the given object have been
// detached by a deletion in this session.
func (s *Session) Invalidated(id string) bool {
	if _, ok := s.invalid[id]; ok {
		return true
	}
	_, ok := s.txInvalid[id]
	return ok
}

// Begin opens a write transaction.
func (s *Session) Begin() error {
	if !s.Live() {
		return core.ErrStaleReference
	}
	if s.tx != nil {
		return core.ErrTransactionOpen
	}
	tx, err := s.store.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	s.logger.Debug("write transaction opened")
	return nil
}

// Commit commits the open write transaction.
func (s *Session) Commit() error {
	if s.tx == nil {
		return core.ErrNoTransaction
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.tx = nil
	for id := range s.txInvalid {
		s.invalid[id] = struct{}{}
	}
	clear(s.txInvalid)
	s.logger.Debug("write transaction committed")
	return nil
}

// Rollback aborts the open write transaction. Deletions performed in
// the transaction are undone, so their handles reattach.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return core.ErrNoTransaction
	}
	if err := s.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	s.tx = nil
	clear(s.txInvalid)
	s.logger.Debug("write transaction rolled back")
	return nil
}

// Write runs fn inside a write transaction, committing on success and
// rolling back on error.
func (s *Session) Write(fn func() error) error {
	if err := s.Begin(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	return s.Commit()
}

// Close detaches the session. Any open transaction is rolled back.
// Handles bound to the session fail attachment checks afterwards.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx != nil {
		err := s.tx.Rollback()
		s.tx = nil
		clear(s.txInvalid)
		if err != nil {
			return fmt.Errorf("failed to roll back transaction on close: %w", err)
		}
	}
	return nil
}

// q returns the querier for the current state: the open transaction if
// one exists, otherwise the base connection.
func (s *Session) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.store.db
}

// --- Object operations ---

// CreateObject inserts a new object with the given schema name and
// encoded payload, returning its generated ID.
func (s *Session) CreateObject(schemaName string, payload []byte) (string, error) {
	if s.tx == nil {
		return "", core.ErrIllegalMutation
	}
	id := uuid.New().String()
	_, err := s.tx.Exec(
		`INSERT INTO objects (id, schema, payload, created_at) VALUES (?, ?, ?, ?)`,
		id, schemaName, payload, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	return id, nil
}

// GetObject retrieves an object's schema name and payload.
func (s *Session) GetObject(id string) (string, []byte, error) {
	var schemaName string
	var payload []byte
	err := s.q().QueryRow(
		`SELECT schema, payload FROM objects WHERE id = ?`, id,
	).Scan(&schemaName, &payload)
	if err == sql.ErrNoRows {
		return "", nil, fmt.Errorf("object not found: %s", id)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to get object: %w", err)
	}
	return schemaName, payload, nil
}

// ObjectExists reports whether an object row exists.
func (s *Session) ObjectExists(id string) (bool, error) {
	var n int
	err := s.q().QueryRow(`SELECT COUNT(*) FROM objects WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check object: %w", err)
	}
	return n > 0, nil
}

// UpdatePayload replaces an object's encoded payload.
func (s *Session) UpdatePayload(id string, payload []byte) error {
	if s.tx == nil {
		return core.ErrIllegalMutation
	}
	res, err := s.tx.Exec(`UPDATE objects SET payload = ? WHERE id = ?`, payload, id)
	if err != nil {
		return fmt.Errorf("failed to update object: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("object not found: %s", id)
	}
	return nil
}

// ListObjects returns the IDs of all objects of a schema, oldest first.
func (s *Session) ListObjects(schemaName string) ([]string, error) {
	rows, err := s.q().Query(
		`SELECT id FROM objects WHERE schema = ? ORDER BY created_at, id`, schemaName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan object id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteObject removes an object, its own link collections, and every
// link-list slot referencing it. Affected collections are recompacted
// to keep positions dense. Handles to the object detach.
func (s *Session) DeleteObject(id string) error {
	if s.tx == nil {
		return core.ErrIllegalMutation
	}

	// Collections that reference the object need recompaction after the
	// referencing slots go away.
	rows, err := s.tx.Query(
		`SELECT DISTINCT owner_id, property FROM links WHERE target_id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to find referencing links: %w", err)
	}
	type listKey struct{ owner, property string }
	var affected []listKey
	for rows.Next() {
		var k listKey
		if err := rows.Scan(&k.owner, &k.property); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan link owner: %w", err)
		}
		affected = append(affected, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := s.tx.Exec(`DELETE FROM links WHERE target_id = ? OR owner_id = ?`, id, id); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}

	for _, k := range affected {
		if k.owner == id {
			continue
		}
		if err := s.compactLinks(k.owner, k.property); err != nil {
			return err
		}
	}

	res, err := s.tx.Exec(`DELETE FROM objects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("object not found: %s", id)
	}

	s.txInvalid[id] = struct{}{}
	return nil
}

// compactLinks renumbers a collection's positions to be dense from 0,
// preserving order.
func (s *Session) compactLinks(ownerID, property string) error {
	targets, err := s.LinkTargets(ownerID, property)
	if err != nil {
		return err
	}
	if _, err := s.tx.Exec(
		`DELETE FROM links WHERE owner_id = ? AND property = ?`, ownerID, property,
	); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	for i, target := range targets {
		if _, err := s.tx.Exec(
			`INSERT INTO links (owner_id, property, position, target_id) VALUES (?, ?, ?, ?)`,
			ownerID, property, i, target,
		); err != nil {
			return fmt.Errorf("failed to rewrite link: %w", err)
		}
	}
	return nil
}
