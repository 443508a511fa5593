// Package postgres provides a durable shared RepositoryService backend:
// the same in-process semantics as memory.Service, snapshotted to Postgres
// as JSONB after every successful Mutate, by embedding the memory
// implementation and persisting its export on every
// successful transaction.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"itemstate/internal/spi"
	"itemstate/internal/spi/memory"
	"itemstate/pkg/domain"
)

const defaultDSN = "postgres://localhost/itemstate?sslmode=disable"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Service persists to Postgres as a single JSONB snapshot row, embedding
// memory.Service for the in-memory read/write path.
type Service struct {
	*memory.Service
	db *sql.DB
	mu sync.Mutex
}

var _ spi.RepositoryService = (*Service)(nil)

// NewService opens a Postgres-backed Service using dsn (falling back to
// defaultDSN), ensures its snapshot table exists, and hydrates from any
// existing snapshot.
func NewService(ctx context.Context, dsn string) (*Service, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen("pgx", dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	s := &Service{Service: memory.NewService(), db: db}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

const snapshotBucket = "snapshot"

func (s *Service) load(ctx context.Context) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, snapshotBucket).Scan(&payload)
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

func (s *Service) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.Service.ExportState()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO state(bucket, payload) VALUES($1, $2) ON CONFLICT(bucket) DO UPDATE SET payload = EXCLUDED.payload`,
		snapshotBucket, data,
	); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Mutate delegates to the embedded memory.Service and snapshots the result
// to Postgres on success.
func (s *Service) Mutate(ctx context.Context, log spi.ChangeSet) (spi.Cursor, error) {
	cursor, err := s.Service.Mutate(ctx, log)
	if err != nil {
		return cursor, err
	}
	if err := s.persist(ctx); err != nil {
		return cursor, domain.NewItemStateError(err, "persisting snapshot")
	}
	return cursor, nil
}

// PutNode seeds a node record and its children, then snapshots to
// Postgres.
func (s *Service) PutNode(ctx context.Context, rec spi.NodeRecord, children []spi.ChildRecord) error {
	s.Service.PutNode(rec, children)
	return s.persist(ctx)
}

// PutProperty seeds a property record, then snapshots to Postgres.
func (s *Service) PutProperty(ctx context.Context, rec spi.PropertyRecord) error {
	s.Service.PutProperty(rec)
	return s.persist(ctx)
}

// DB exposes the underlying sql.DB for integration-test hooks.
func (s *Service) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests (stubbing out a real
// Postgres connection) and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
