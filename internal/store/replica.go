package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AssignReplica records that message was handed to an escalation relay.
func (s *Store) AssignReplica(messageID, originalTarget, sourcePeer, relayPeer string, deadline time.Time) error {
	now := time.Now().UnixMilli()
	return s.withWrite(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO replicated_messages (message_id, original_target, source_peer_id, status, deadline_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(message_id) DO UPDATE SET deadline_at = excluded.deadline_at
		`, messageID, originalTarget, sourcePeer, ReplicaAssigned, deadline.UnixMilli()); err != nil {
			return fmt.Errorf("store: assign replica (message): %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO message_replicas (message_id, relay_peer_id, status, assigned_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(message_id, relay_peer_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
		`, messageID, relayPeer, ReplicaAssigned, now, now); err != nil {
			return fmt.Errorf("store: assign replica (relay): %w", err)
		}
		return nil
	})
}

// UpdateReplicaStatus transitions one relay's custody record, e.g. to
// ReplicaStored when the relay accepts the envelope or ReplicaDelivered
// on ack.
func (s *Store) UpdateReplicaStatus(messageID, relayPeer, status string) error {
	now := time.Now().UnixMilli()
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE message_replicas SET status = ?, updated_at = ? WHERE message_id = ? AND relay_peer_id = ?
		`, status, now, messageID, relayPeer)
		return err
	})
}

// GetMessageReplicas returns every relay custody record for a message.
func (s *Store) GetMessageReplicas(messageID string) ([]ReplicaAssignment, error) {
	rows, err := s.db.Query(`
		SELECT message_id, relay_peer_id, status, assigned_at, updated_at FROM message_replicas WHERE message_id = ?
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("store: get message replicas: %w", err)
	}
	defer rows.Close()
	var out []ReplicaAssignment
	for rows.Next() {
		var r ReplicaAssignment
		var assigned, updated int64
		if err := rows.Scan(&r.MessageID, &r.RelayPeerID, &r.Status, &assigned, &updated); err != nil {
			return nil, err
		}
		r.AssignedAt = time.UnixMilli(assigned)
		r.UpdatedAt = time.UnixMilli(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}
