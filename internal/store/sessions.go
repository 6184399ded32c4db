package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSession inserts or updates a session record. The Session Registry
// writes these but does not read them back on restart.
func (s *Store) SaveSession(r SessionRecord) error {
	active := 0
	if r.Active {
		active = 1
	}
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO sessions
				(session_id, remote_peer_id, local_ephemeral_private, local_ephemeral_public,
				 encryption_key, decryption_key, created_at, expires_at, last_used, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				last_used = excluded.last_used, expires_at = excluded.expires_at, active = excluded.active
		`, r.SessionID, r.RemotePeerID, r.LocalEphemeralPrivate, r.LocalEphemeralPublic,
			r.EncryptionKey, r.DecryptionKey, r.CreatedAt.UnixMilli(), r.ExpiresAt.UnixMilli(), r.LastUsed.UnixMilli(), active)
		return err
	})
}

// GetSession loads a session by id.
func (s *Store) GetSession(sessionID string) (SessionRecord, error) {
	return s.scanSessionRow(s.db.QueryRow(`
		SELECT session_id, remote_peer_id, local_ephemeral_private, local_ephemeral_public,
		       encryption_key, decryption_key, created_at, expires_at, last_used, active
		FROM sessions WHERE session_id = ?
	`, sessionID))
}

// ActiveSessionsFor returns active, unexpired sessions for a remote peer.
func (s *Store) ActiveSessionsFor(remotePeerID string) ([]SessionRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, remote_peer_id, local_ephemeral_private, local_ephemeral_public,
		       encryption_key, decryption_key, created_at, expires_at, last_used, active
		FROM sessions WHERE remote_peer_id = ? AND active = 1 AND expires_at > ?
		ORDER BY last_used DESC
	`, remotePeerID, time.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store: active sessions for: %w", err)
	}
	defer rows.Close()
	var out []SessionRecord
	for rows.Next() {
		r, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InvalidateSession marks a session inactive without deleting its row,
// preserving history for diagnostics.
func (s *Store) InvalidateSession(sessionID string) error {
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE sessions SET active = 0 WHERE session_id = ?`, sessionID)
		return err
	})
}

// CleanupExpiredSessions deactivates sessions past their expiry.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	var affected int64
	err := s.withWrite(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE sessions SET active = 0 WHERE active = 1 AND expires_at <= ?`, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanSessionRow(row rowScanner) (SessionRecord, error) {
	var r SessionRecord
	var created, expires, lastUsed int64
	var active int
	err := row.Scan(&r.SessionID, &r.RemotePeerID, &r.LocalEphemeralPrivate, &r.LocalEphemeralPublic,
		&r.EncryptionKey, &r.DecryptionKey, &created, &expires, &lastUsed, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("store: scan session: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created)
	r.ExpiresAt = time.UnixMilli(expires)
	r.LastUsed = time.UnixMilli(lastUsed)
	r.Active = active != 0
	return r, nil
}

func (s *Store) scanSession(rows *sql.Rows) (SessionRecord, error) {
	return s.scanSessionRow(rows)
}
