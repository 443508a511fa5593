// Package memory implements blob.Store backed by an in-process map, used in
// tests and for the demo command's default configuration.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"

	"itemstate/internal/blob"
)

// Store is a content-addressed in-memory blob store.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New builds an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Put reads value fully, keys it by the hex SHA-256 of its content, and
// stores it, overwriting any existing content under the same key (a no-op
// in practice since equal content hashes to the same key).
func (s *Store) Put(ctx context.Context, value io.Reader) (string, int64, error) {
	buf, err := io.ReadAll(value)
	if err != nil {
		return "", 0, err
	}
	sum := sha256.Sum256(buf)
	key := hex.EncodeToString(sum[:])

	s.mu.Lock()
	s.data[key] = buf
	s.mu.Unlock()
	return key, int64(len(buf)), nil
}

// Get returns a reader over key's content, or blob's not-found error if
// absent.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	buf, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, blob.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Delete removes key, if present. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

var _ blob.Store = (*Store)(nil)
