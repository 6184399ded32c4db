package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertContact applies a Last-Writer-Wins merge keyed by last_seen.
func (s *Store) UpsertContact(c Contact) error {
	return s.withWrite(func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRow(`SELECT last_seen FROM contacts WHERE peer_id = ?`, c.PeerID).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: upsert contact lookup: %w", err)
		}
		if err == nil && existing > c.LastSeen.UnixMilli() {
			return nil // existing write is newer; LWW drops this one
		}
		trusted := 0
		if c.IsTrusted {
			trusted = 1
		}
		_, err = tx.Exec(`
			INSERT INTO contacts (peer_id, alias, last_seen, metadata, is_trusted) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(peer_id) DO UPDATE SET alias = excluded.alias, last_seen = excluded.last_seen,
				metadata = excluded.metadata, is_trusted = excluded.is_trusted
		`, c.PeerID, c.Alias, c.LastSeen.UnixMilli(), c.Metadata, trusted)
		if err != nil {
			return fmt.Errorf("store: upsert contact: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO contacts_fts (peer_id, alias, metadata) VALUES (?, ?, ?)
		`, c.PeerID, c.Alias, c.Metadata)
		return err
	})
}

// GetContact looks up a contact by peer id.
func (s *Store) GetContact(peerID string) (Contact, error) {
	var c Contact
	var lastSeen int64
	var trusted int
	err := s.db.QueryRow(`SELECT peer_id, alias, last_seen, metadata, is_trusted FROM contacts WHERE peer_id = ?`, peerID).
		Scan(&c.PeerID, &c.Alias, &lastSeen, &c.Metadata, &trusted)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("store: get contact: %w", err)
	}
	c.LastSeen = time.UnixMilli(lastSeen)
	c.IsTrusted = trusted != 0
	return c, nil
}

// ListContacts returns every known contact ordered by most recently seen.
func (s *Store) ListContacts() ([]Contact, error) {
	rows, err := s.db.Query(`SELECT peer_id, alias, last_seen, metadata, is_trusted FROM contacts ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list contacts: %w", err)
	}
	defer rows.Close()
	var out []Contact
	for rows.Next() {
		var c Contact
		var lastSeen int64
		var trusted int
		if err := rows.Scan(&c.PeerID, &c.Alias, &lastSeen, &c.Metadata, &trusted); err != nil {
			return nil, err
		}
		c.LastSeen = time.UnixMilli(lastSeen)
		c.IsTrusted = trusted != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContact removes a contact and its full-text index entry.
func (s *Store) DeleteContact(peerID string) error {
	return s.withWrite(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM contacts WHERE peer_id = ?`, peerID); err != nil {
			return fmt.Errorf("store: delete contact: %w", err)
		}
		_, err := tx.Exec(`DELETE FROM contacts_fts WHERE peer_id = ?`, peerID)
		return err
	})
}

// SearchContacts does a full-text match over alias and metadata.
func (s *Store) SearchContacts(query string) ([]Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListContacts()
	}
	rows, err := s.db.Query(`
		SELECT c.peer_id, c.alias, c.last_seen, c.metadata, c.is_trusted
		FROM contacts_fts f JOIN contacts c ON c.peer_id = f.peer_id
		WHERE contacts_fts MATCH ?
		ORDER BY c.last_seen DESC
	`, query)
	if err != nil {
		return nil, fmt.Errorf("store: search contacts: %w", err)
	}
	defer rows.Close()
	var out []Contact
	for rows.Next() {
		var c Contact
		var lastSeen int64
		var trusted int
		if err := rows.Scan(&c.PeerID, &c.Alias, &lastSeen, &c.Metadata, &trusted); err != nil {
			return nil, err
		}
		c.LastSeen = time.UnixMilli(lastSeen)
		c.IsTrusted = trusted != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertRoutingEntry applies the same LWW-by-last-seen merge as
// contacts to the address-hint cache.
func (s *Store) UpsertRoutingEntry(e RoutingEntry) error {
	addrs, err := json.Marshal(e.Addresses)
	if err != nil {
		return fmt.Errorf("store: marshal addresses: %w", err)
	}
	return s.withWrite(func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRow(`SELECT last_seen FROM routing_cache WHERE peer_id = ?`, e.PeerID).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: upsert routing lookup: %w", err)
		}
		if err == nil && existing > e.LastSeen.UnixMilli() {
			return nil
		}
		available := 0
		if e.IsAvailable {
			available = 1
		}
		_, err = tx.Exec(`
			INSERT INTO routing_cache (peer_id, addresses, is_available, last_seen, ttl_millis) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(peer_id) DO UPDATE SET addresses = excluded.addresses, is_available = excluded.is_available,
				last_seen = excluded.last_seen, ttl_millis = excluded.ttl_millis
		`, e.PeerID, string(addrs), available, e.LastSeen.UnixMilli(), e.TTL.Milliseconds())
		return err
	})
}

// GetRoutingEntry looks up a cached routing hint, reporting ok=false
// if absent or expired relative to its own TTL.
func (s *Store) GetRoutingEntry(peerID string) (RoutingEntry, bool, error) {
	var e RoutingEntry
	var addrs string
	var available int
	var lastSeen, ttlMillis int64
	err := s.db.QueryRow(`SELECT peer_id, addresses, is_available, last_seen, ttl_millis FROM routing_cache WHERE peer_id = ?`, peerID).
		Scan(&e.PeerID, &addrs, &available, &lastSeen, &ttlMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return RoutingEntry{}, false, nil
	}
	if err != nil {
		return RoutingEntry{}, false, fmt.Errorf("store: get routing entry: %w", err)
	}
	if err := json.Unmarshal([]byte(addrs), &e.Addresses); err != nil {
		return RoutingEntry{}, false, fmt.Errorf("store: unmarshal addresses: %w", err)
	}
	e.IsAvailable = available != 0
	e.LastSeen = time.UnixMilli(lastSeen)
	e.TTL = time.Duration(ttlMillis) * time.Millisecond
	expired := time.Since(e.LastSeen) > e.TTL
	return e, !expired, nil
}
