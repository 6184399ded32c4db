package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NodeIdentity is the node's long-lived keying material.
type NodeIdentity struct {
	PublicKeyHex       string
	PrivateKey         []byte
	StaticPublicKeyHex string
	StaticPrivateKey   []byte
	CreatedAt          time.Time
}

// SaveIdentity persists the node's identity row (singleton, id=1). Key
// material is stored as-is rather than re-encrypted at rest: the data
// directory's filesystem permissions and the single-writer file lock
// are this node's trust boundary, the same way a process keeps its
// private keys in memory and leaves at-rest protection to the host.
func (s *Store) SaveIdentity(id NodeIdentity) error {
	return s.withWrite(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO node_keys (id, public_key, private_key_encrypted, static_public_key, static_private_key, created_at)
			VALUES (1, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET public_key = excluded.public_key, private_key_encrypted = excluded.private_key_encrypted,
				static_public_key = excluded.static_public_key, static_private_key = excluded.static_private_key
		`, id.PublicKeyHex, id.PrivateKey, id.StaticPublicKeyHex, id.StaticPrivateKey, id.CreatedAt.UnixMilli())
		return err
	})
}

// LoadIdentity returns the persisted node identity, or ErrNotFound on
// a fresh data directory.
func (s *Store) LoadIdentity() (NodeIdentity, error) {
	var id NodeIdentity
	var createdAt int64
	err := s.db.QueryRow(`
		SELECT public_key, private_key_encrypted, static_public_key, static_private_key, created_at FROM node_keys WHERE id = 1
	`).Scan(&id.PublicKeyHex, &id.PrivateKey, &id.StaticPublicKeyHex, &id.StaticPrivateKey, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return NodeIdentity{}, ErrNotFound
	}
	if err != nil {
		return NodeIdentity{}, fmt.Errorf("store: load identity: %w", err)
	}
	id.CreatedAt = time.UnixMilli(createdAt)
	return id, nil
}
