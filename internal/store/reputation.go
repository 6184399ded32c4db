package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetReputation persists a peer's reputation score. The router's
// in-memory reputation.Table neither writes to nor loads from this table.
func (s *Store) SetReputation(peer string, score int) error {
	now := time.Now().UnixMilli()
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO peer_metadata (peer_id, reputation, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(peer_id) DO UPDATE SET reputation = excluded.reputation, updated_at = excluded.updated_at
		`, peer, score, now)
		return err
	})
}

// GetReputation returns the persisted reputation score for peer, 0 if unknown.
func (s *Store) GetReputation(peer string) (int, error) {
	var score int
	err := s.db.QueryRow(`SELECT reputation FROM peer_metadata WHERE peer_id = ?`, peer).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: get reputation: %w", err)
	}
	return score, nil
}

// AllReputations returns every persisted peer reputation, keyed by peer id.
func (s *Store) AllReputations() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT peer_id, reputation FROM peer_metadata`)
	if err != nil {
		return nil, fmt.Errorf("store: all reputations: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var peer string
		var score int
		if err := rows.Scan(&peer, &score); err != nil {
			return nil, err
		}
		out[peer] = score
	}
	return out, rows.Err()
}
