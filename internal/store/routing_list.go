package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// ListRoutingEntries returns every cached routing entry, used by relay
// candidate selection to enumerate known
// peers before filtering and ranking them.
func (s *Store) ListRoutingEntries() ([]RoutingEntry, error) {
	rows, err := s.db.Query(`SELECT peer_id, addresses, is_available, last_seen, ttl_millis FROM routing_cache`)
	if err != nil {
		return nil, fmt.Errorf("store: list routing entries: %w", err)
	}
	defer rows.Close()
	var out []RoutingEntry
	for rows.Next() {
		var e RoutingEntry
		var addrs string
		var available int
		var lastSeen, ttlMillis int64
		if err := rows.Scan(&e.PeerID, &addrs, &available, &lastSeen, &ttlMillis); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(addrs), &e.Addresses)
		e.IsAvailable = available != 0
		e.LastSeen = time.UnixMilli(lastSeen)
		e.TTL = time.Duration(ttlMillis) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
