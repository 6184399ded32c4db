package store

import (
	"database/sql"
	"time"
)

// CleanupResult reports how many rows each cleanup pass removed, so
// callers can log periodic maintenance.
type CleanupResult struct {
	ProcessedRemoved int64
	DeliveredRemoved int64
	RoutingRemoved   int64
}

// Cleanup prunes processed_messages older than retention, delivered pending_messages
// older than retention, and stale routing cache entries past their TTL.
func (s *Store) Cleanup(retention time.Duration) (CleanupResult, error) {
	var result CleanupResult
	cutoff := time.Now().Add(-retention).UnixMilli()
	err := s.withWrite(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM processed_messages WHERE processed_at < ?`, cutoff)
		if err != nil {
			return err
		}
		result.ProcessedRemoved, _ = res.RowsAffected()

		res, err = tx.Exec(`DELETE FROM pending_messages WHERE status = ? AND updated_at < ?`, StatusDelivered, cutoff)
		if err != nil {
			return err
		}
		result.DeliveredRemoved, _ = res.RowsAffected()

		res, err = tx.Exec(`DELETE FROM routing_cache WHERE (last_seen + ttl_millis) < ?`, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		result.RoutingRemoved, _ = res.RowsAffected()
		return nil
	})
	return result, err
}
