// Package fs implements blob.Store on the local filesystem.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"itemstate/internal/blob"
)

// Store is a content-addressed filesystem blob store rooted at a directory.
// Keys map to relative file paths under root, split into two-character
// shards to keep any one directory from growing unbounded.
type Store struct {
	root string
}

// New returns a filesystem-backed blob store rooted at path, creating it if
// needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) pathFor(key string) string {
	if len(key) < 2 {
		return filepath.Join(s.root, key)
	}
	return filepath.Join(s.root, key[:2], key)
}

// Put streams value to disk under its content hash, computing the key as it
// writes rather than buffering the whole value in memory first.
func (s *Store) Put(ctx context.Context, value io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp(s.root, "put-*")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	h := sha256.New()
	size, err := io.Copy(tmp, io.TeeReader(value, h))
	if err != nil {
		return "", 0, err
	}
	key := hex.EncodeToString(h.Sum(nil))

	dest := s.pathFor(key)
	if _, err := os.Stat(dest); err == nil {
		return key, size, nil // already stored under this content hash
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", 0, err
	}
	return key, size, nil
}

// Get opens key's file for reading.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.pathFor(key))
	if os.IsNotExist(err) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes key's file, if present. Deleting an absent key is not an
// error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ blob.Store = (*Store)(nil)
