package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PersistIncomingAtomically performs the dedup-check-and-insert as one
// transaction: if messageID is already present the whole
// operation is rolled back and ErrAlreadyProcessed is returned, so the
// caller never observes a partial write.
func (s *Store) PersistIncomingAtomically(messageID, senderID string, sequenceNumber *int64, destinationID string, serialized []byte) error {
	now := time.Now().UnixMilli()
	return s.withWrite(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT 1 FROM processed_messages WHERE message_id = ?`, messageID).Scan(&exists)
		if err == nil {
			return ErrAlreadyProcessed
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: check processed: %w", err)
		}

		if _, err := tx.Exec(`
			INSERT INTO processed_messages (message_id, sender_id, sequence_number, destination_id, serialized, processed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, messageID, senderID, sequenceNumber, destinationID, serialized, now); err != nil {
			return fmt.Errorf("store: insert processed: %w", err)
		}

		if sequenceNumber != nil {
			if _, err := tx.Exec(`
				INSERT INTO peer_sequences (peer_id, last_sequence) VALUES (?, ?)
				ON CONFLICT(peer_id) DO UPDATE SET last_sequence = MAX(last_sequence, excluded.last_sequence)
			`, senderID, *sequenceNumber); err != nil {
				return fmt.Errorf("store: bump sequence: %w", err)
			}
		}
		return nil
	})
}

// IsProcessed reports whether messageID has already been recorded as
// processed.
func (s *Store) IsProcessed(messageID string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM processed_messages WHERE message_id = ?`, messageID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: is processed: %w", err)
	}
	return true, nil
}

// LastSequence returns the highest sequence number seen from peer, or
// 0 if none.
func (s *Store) LastSequence(peer string) (int64, error) {
	var seq int64
	err := s.db.QueryRow(`SELECT last_sequence FROM peer_sequences WHERE peer_id = ?`, peer).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: last sequence: %w", err)
	}
	return seq, nil
}

// ProcessedIdsSince returns message ids processed at or after since,
// for delta-sync reconciliation.
func (s *Store) ProcessedIdsSince(since time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT message_id FROM processed_messages WHERE processed_at >= ? ORDER BY processed_at ASC`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store: processed ids since: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// VectorClockFor returns this node's recorded counter for peer (0 if
// absent) — one entry of the local vector clock.
func (s *Store) VectorClockFor(peer string) (int64, error) {
	var counter int64
	err := s.db.QueryRow(`SELECT counter FROM peer_vector_clocks WHERE peer_id = ?`, peer).Scan(&counter)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: vector clock for: %w", err)
	}
	return counter, nil
}

// AllVectorClocks returns the full local vector clock as a map.
func (s *Store) AllVectorClocks() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT peer_id, counter FROM peer_vector_clocks`)
	if err != nil {
		return nil, fmt.Errorf("store: all vector clocks: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var peer string
		var counter int64
		if err := rows.Scan(&peer, &counter); err != nil {
			return nil, err
		}
		out[peer] = counter
	}
	return out, rows.Err()
}

// IncrementVectorClock atomically increments and returns this node's
// own counter entry for peer. Unlike UpdateVectorClock this always advances by
// one rather than taking a max against an externally supplied value.
func (s *Store) IncrementVectorClock(peer string) (int64, error) {
	var result int64
	err := s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO peer_vector_clocks (peer_id, counter) VALUES (?, 1)
			ON CONFLICT(peer_id) DO UPDATE SET counter = counter + 1
		`, peer)
		if err != nil {
			return err
		}
		return tx.QueryRow(`SELECT counter FROM peer_vector_clocks WHERE peer_id = ?`, peer).Scan(&result)
	})
	return result, err
}

// ListProcessedFor returns the most recent accepted inbound messages
// addressed to destinationID, newest first, for the control plane's
// inbox view.
func (s *Store) ListProcessedFor(destinationID string, limit int) ([]ProcessedEntry, error) {
	rows, err := s.db.Query(`
		SELECT message_id, sender_id, destination_id, serialized, processed_at
		FROM processed_messages
		WHERE destination_id = ?
		ORDER BY processed_at DESC
		LIMIT ?
	`, destinationID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list processed for: %w", err)
	}
	defer rows.Close()
	var out []ProcessedEntry
	for rows.Next() {
		var e ProcessedEntry
		var processedAt int64
		if err := rows.Scan(&e.MessageID, &e.SenderID, &e.DestinationID, &e.Serialized, &processedAt); err != nil {
			return nil, err
		}
		e.ProcessedAt = time.UnixMilli(processedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateVectorClock merges counter into peer's entry by taking the max.
func (s *Store) UpdateVectorClock(peer string, counter int64) error {
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO peer_vector_clocks (peer_id, counter) VALUES (?, ?)
			ON CONFLICT(peer_id) DO UPDATE SET counter = MAX(counter, excluded.counter)
		`, peer, counter)
		return err
	})
}
