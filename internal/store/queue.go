package store

import (
	"database/sql"
	"fmt"
	"time"
)

// QueueOutbound durably enqueues a message for delivery to target,
// serialized is the wire-encoded message so retries do not depend on
// any in-memory state surviving a crash.
func (s *Store) QueueOutbound(messageID, target string, serialized []byte, deadline time.Time) error {
	now := time.Now()
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO pending_messages
				(message_id, target_peer_id, serialized, status, attempts, next_retry_at, created_at, updated_at, deadline_at, last_error)
			VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, '')
			ON CONFLICT(message_id) DO NOTHING
		`, messageID, target, serialized, StatusPending, now.UnixMilli(), now.UnixMilli(), now.UnixMilli(), deadline.UnixMilli())
		return err
	})
}

// GetRetryable returns pending messages whose next_retry_at has
// elapsed and whose deadline has not, ordered oldest-due first, for
// the retry scheduler tick. A row past its deadline is left for
// Cleanup rather than retransmitted.
func (s *Store) GetRetryable(limit int) ([]PendingMessage, error) {
	now := time.Now().UnixMilli()
	rows, err := s.db.Query(`
		SELECT message_id, target_peer_id, serialized, status, attempts, next_retry_at, created_at, updated_at, deadline_at, last_error
		FROM pending_messages
		WHERE status = ? AND next_retry_at <= ? AND deadline_at > ?
		ORDER BY next_retry_at ASC
		LIMIT ?
	`, StatusPending, now, now, limit)
	if err != nil {
		return nil, fmt.Errorf("store: get retryable: %w", err)
	}
	defer rows.Close()
	return scanPending(rows)
}

// GetPendingForPeer returns every undelivered message queued for peer,
// used by the router's opportunistic flush when that peer connects.
func (s *Store) GetPendingForPeer(peer string) ([]PendingMessage, error) {
	rows, err := s.db.Query(`
		SELECT message_id, target_peer_id, serialized, status, attempts, next_retry_at, created_at, updated_at, deadline_at, last_error
		FROM pending_messages
		WHERE target_peer_id = ? AND status != ?
		ORDER BY created_at ASC
	`, peer, StatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("store: get pending for peer: %w", err)
	}
	defer rows.Close()
	return scanPending(rows)
}

// PendingSince returns pending messages created at or after since, for
// delta-sync partition recovery.
func (s *Store) PendingSince(since time.Time) ([]PendingMessage, error) {
	rows, err := s.db.Query(`
		SELECT message_id, target_peer_id, serialized, status, attempts, next_retry_at, created_at, updated_at, deadline_at, last_error
		FROM pending_messages
		WHERE created_at >= ?
		ORDER BY created_at ASC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store: pending since: %w", err)
	}
	defer rows.Close()
	return scanPending(rows)
}

// ListOutbox returns every undelivered outbound message regardless of
// target, newest first, for the control plane's outbox view.
func (s *Store) ListOutbox(limit int) ([]PendingMessage, error) {
	rows, err := s.db.Query(`
		SELECT message_id, target_peer_id, serialized, status, attempts, next_retry_at, created_at, updated_at, deadline_at, last_error
		FROM pending_messages
		WHERE status != ?
		ORDER BY created_at DESC
		LIMIT ?
	`, StatusDelivered, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list outbox: %w", err)
	}
	defer rows.Close()
	return scanPending(rows)
}

// MarkDelivered transitions message to delivered status.
func (s *Store) MarkDelivered(messageID string) error {
	now := time.Now().UnixMilli()
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE pending_messages SET status = ?, updated_at = ? WHERE message_id = ?`,
			StatusDelivered, now, messageID)
		return err
	})
}

// MarkFailed records a terminal failure (retries exhausted or deadline
// passed) without deleting the row, so it remains visible to
// diagnostics.
func (s *Store) MarkFailed(messageID, reason string) error {
	now := time.Now().UnixMilli()
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE pending_messages SET status = ?, last_error = ?, updated_at = ? WHERE message_id = ?`,
			StatusFailed, reason, now, messageID)
		return err
	})
}

// ScheduleRetry bumps attempts and sets the next retry time, used
// after a transport failure within the attempt budget.
func (s *Store) ScheduleRetry(messageID string, nextRetryAt time.Time, lastError string) error {
	now := time.Now().UnixMilli()
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE pending_messages
			SET attempts = attempts + 1, next_retry_at = ?, status = ?, last_error = ?, updated_at = ?
			WHERE message_id = ?
		`, nextRetryAt.UnixMilli(), StatusPending, lastError, now, messageID)
		return err
	})
}

// GetPending returns a single pending-queue row by message id.
func (s *Store) GetPending(messageID string) (PendingMessage, error) {
	row := s.db.QueryRow(`
		SELECT message_id, target_peer_id, serialized, status, attempts, next_retry_at, created_at, updated_at, deadline_at, last_error
		FROM pending_messages WHERE message_id = ?
	`, messageID)
	var p PendingMessage
	var nextRetry, created, updated, deadline int64
	err := row.Scan(&p.MessageID, &p.TargetPeerID, &p.Serialized, &p.Status, &p.Attempts,
		&nextRetry, &created, &updated, &deadline, &p.LastError)
	if err == sql.ErrNoRows {
		return PendingMessage{}, ErrNotFound
	}
	if err != nil {
		return PendingMessage{}, fmt.Errorf("store: get pending: %w", err)
	}
	p.NextRetryAt = time.UnixMilli(nextRetry)
	p.CreatedAt = time.UnixMilli(created)
	p.UpdatedAt = time.UnixMilli(updated)
	p.DeadlineAt = time.UnixMilli(deadline)
	return p, nil
}

// MarkInflight transitions a message to inflight so concurrent retry
// ticks do not double-send it.
func (s *Store) MarkInflight(messageID string) error {
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE pending_messages SET status = ? WHERE message_id = ?`, StatusInflight, messageID)
		return err
	})
}

func scanPending(rows *sql.Rows) ([]PendingMessage, error) {
	var out []PendingMessage
	for rows.Next() {
		var p PendingMessage
		var nextRetry, created, updated, deadline int64
		if err := rows.Scan(&p.MessageID, &p.TargetPeerID, &p.Serialized, &p.Status, &p.Attempts,
			&nextRetry, &created, &updated, &deadline, &p.LastError); err != nil {
			return nil, fmt.Errorf("store: scan pending: %w", err)
		}
		p.NextRetryAt = time.UnixMilli(nextRetry)
		p.CreatedAt = time.UnixMilli(created)
		p.UpdatedAt = time.UnixMilli(updated)
		p.DeadlineAt = time.UnixMilli(deadline)
		out = append(out, p)
	}
	return out, rows.Err()
}
