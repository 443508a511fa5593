// Package sqlite provides a durable local RepositoryService backend: the
// same in-process semantics as memory.Service, snapshotted to a single
// SQLite table as JSON after every successful Mutate, using a
// bucket/payload layout.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver, no cgo required

	"itemstate/internal/spi"
	"itemstate/internal/spi/memory"
	"itemstate/pkg/domain"
)

// Service persists to a single SQLite table as a JSON snapshot, embedding
// memory.Service for the in-memory read/write path.
type Service struct {
	*memory.Service
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ spi.RepositoryService = (*Service)(nil)

// NewService opens (creating if absent) a SQLite-backed Service at path,
// hydrating it from any existing snapshot row.
func NewService(path string) (*Service, error) {
	if path == "" {
		path = "itemstate.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Service{Service: memory.NewService(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const snapshotBucket = "snapshot"

func (s *Service) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, snapshotBucket).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var snap memory.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.Service.ImportState(snap)
	return nil
}

func (s *Service) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.Service.ExportState()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO state(bucket, payload) VALUES(?, ?) ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
		snapshotBucket, data,
	); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Mutate delegates to the embedded memory.Service and snapshots the result
// to SQLite on success.
func (s *Service) Mutate(ctx context.Context, log spi.ChangeSet) (spi.Cursor, error) {
	cursor, err := s.Service.Mutate(ctx, log)
	if err != nil {
		return cursor, err
	}
	if err := s.persist(); err != nil {
		return cursor, domain.NewItemStateError(err, "persisting snapshot")
	}
	return cursor, nil
}

// PutNode seeds a node record and its children, then snapshots to SQLite.
func (s *Service) PutNode(rec spi.NodeRecord, children []spi.ChildRecord) error {
	s.Service.PutNode(rec, children)
	return s.persist()
}

// PutProperty seeds a property record, then snapshots to SQLite.
func (s *Service) PutProperty(rec spi.PropertyRecord) error {
	s.Service.PutProperty(rec)
	return s.persist()
}

// DB exposes the underlying sql.DB for integration-test hooks.
func (s *Service) DB() *sql.DB { return s.db }

// Path returns the configured database file path.
func (s *Service) Path() string { return s.path }
