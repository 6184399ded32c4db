// Package store is the node's persistence layer: durable queues, the
// processed-message dedup table, per-sender sequence numbers, vector
// clocks, replica bookkeeping, the routing cache, and contacts. It
// favors an embedded relational engine over a bare key/value store
// because the access patterns need queryable secondary indexes
// (retry-due, per-peer pending, deadline) that a KV store can't
// express without a hand-rolled index layer.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps a single SQLite connection enforcing a single-writer
// discipline: all mutating operations take writeMu, one coarse-grained
// mutex guarding state transitions rather than per-field locks.
type Store struct {
	db       *sql.DB
	writeMu  sync.Mutex
	log      *logrus.Entry
	dataDir  string
	fileLock *fileLock
}

// Open opens (creating if absent) the SQLite database under dataDir,
// applies the schema, and acquires the single-writer process lock.
func Open(dataDir string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
	}
	lock, err := acquireFileLock(dataDir)
	if err != nil {
		return nil, fmt.Errorf("store: acquire lock: %w", err)
	}

	dsn := fmt.Sprintf("file:%s/node.db?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dataDir)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		lock.release()
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; SQLite serializes anyway

	s := &Store{db: db, log: log.WithField("component", "store"), dataDir: dataDir, fileLock: lock}
	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the database handle and the process lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.fileLock != nil {
		s.fileLock.release()
	}
	return err
}

// nowMillis is the store's clock source, centralized so tests can
// reason about it without depending on wall-clock granularity beyond
// milliseconds.
func nowMillis() int64 { return time.Now().UnixMilli() }

// withWrite serializes f against all other write operations, guarding
// state transitions with one mutex rather than per-field locks.
func (s *Store) withWrite(f func(*sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
