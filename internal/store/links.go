package store

import (
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// Ordered link collection operations. A collection is identified by the
// owning object's ID and the link-list property name; positions are
// dense in [0, size).

// LinkSize returns the number of elements in a collection.
func (s *Session) LinkSize(ownerID, property string) (int, error) {
	var n int
	err := s.q().QueryRow(
		`SELECT COUNT(*) FROM links WHERE owner_id = ? AND property = ?`,
		ownerID, property,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return n, nil
}

// LinkGet returns the target object ID at a position.
func (s *Session) LinkGet(ownerID, property string, position int) (string, error) {
	var target string
	err := s.q().QueryRow(
		`SELECT target_id FROM links WHERE owner_id = ? AND property = ? AND position = ?`,
		ownerID, property, position,
	).Scan(&target)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no link at position %d", position)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get link: %w", err)
	}
	return target, nil
}

// LinkTargets returns all target IDs in position order.
func (s *Session) LinkTargets(ownerID, property string) ([]string, error) {
	rows, err := s.q().Query(
		`SELECT target_id FROM links WHERE owner_id = ? AND property = ? ORDER BY position`,
		ownerID, property,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// LinkSet replaces the target at an existing position.
func (s *Session) LinkSet(ownerID, property string, position int, targetID string) error {
	if s.tx == nil {
		return core.ErrIllegalMutation
	}
	res, err := s.tx.Exec(
		`UPDATE links SET target_id = ? WHERE owner_id = ? AND property = ? AND position = ?`,
		targetID, ownerID, property, position,
	)
	if err != nil {
		return fmt.Errorf("failed to set link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no link at position %d", position)
	}
	return nil
}

// LinkAppend adds a target at the end of the collection.
func (s *Session) LinkAppend(ownerID, property, targetID string) error {
	if s.tx == nil {
		return core.ErrIllegalMutation
	}
	size, err := s.LinkSize(ownerID, property)
	if err != nil {
		return err
	}
	_, err = s.tx.Exec(
		`INSERT INTO links (owner_id, property, position, target_id) VALUES (?, ?, ?, ?)`,
		ownerID, property, size, targetID,
	)
	if err != nil {
		return fmt.Errorf("failed to append link: %w", err)
	}
	return nil
}

// LinkInsert inserts a target at a position, shifting later elements
// up. Position may equal the current size (append).
func (s *Session) LinkInsert(ownerID, property string, position int, targetID string) error {
	if s.tx == nil {
		return core.ErrIllegalMutation
	}

	// Shift in two steps through negative positions so the primary key
	// stays unique at every point of the update.
	if _, err := s.tx.Exec(
		`UPDATE links SET position = -position - 1 WHERE owner_id = ? AND property = ? AND position >= ?`,
		ownerID, property, position,
	); err != nil {
		return fmt.Errorf("failed to shift links: %w", err)
	}
	if _, err := s.tx.Exec(
		`INSERT INTO links (owner_id, property, position, target_id) VALUES (?, ?, ?, ?)`,
		ownerID, property, position, targetID,
	); err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	if _, err := s.tx.Exec(
		`UPDATE links SET position = -position WHERE owner_id = ? AND property = ? AND position < 0`,
		ownerID, property,
	); err != nil {
		return fmt.Errorf("failed to reposition links: %w", err)
	}
	return nil
}

// LinkRemove deletes the slot at a position, shifting later elements
// down.
func (s *Session) LinkRemove(ownerID, property string, position int) error {
	if s.tx == nil {
		return core.ErrIllegalMutation
	}
	res, err := s.tx.Exec(
		`DELETE FROM links WHERE owner_id = ? AND property = ? AND position = ?`,
		ownerID, property, position,
	)
	if err != nil {
		return fmt.Errorf("failed to remove link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no link at position %d", position)
	}

	// Same two-step shift as LinkInsert, downward.
	if _, err := s.tx.Exec(
		`UPDATE links SET position = -position WHERE owner_id = ? AND property = ? AND position > ?`,
		ownerID, property, position,
	); err != nil {
		return fmt.Errorf("failed to shift links: %w", err)
	}
	if _, err := s.tx.Exec(
		`UPDATE links SET position = -position - 1 WHERE owner_id = ? AND property = ? AND position < 0`,
		ownerID, property,
	); err != nil {
		return fmt.Errorf("failed to reposition links: %w", err)
	}
	return nil
}

// LinkClear removes every slot in the collection.
func (s *Session) LinkClear(ownerID, property string) error {
	if s.tx == nil {
		return core.ErrIllegalMutation
	}
	if _, err := s.tx.Exec(
		`DELETE FROM links WHERE owner_id = ? AND property = ?`, ownerID, property,
	); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	return nil
}
