// Package blob defines the binary value storage boundary referenced by a
// node state's binary PropertyValue entries: property values never carry
// raw bytes, only a store key resolved through one of these backends.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get for a key the store does not hold.
// Deleting such a key is not an error.
var ErrNotFound = errors.New("blob: not found")

// Store is the binary value storage contract. Implementations key blobs by
// content hash, so Put is idempotent: storing the same bytes twice returns
// the same key.
type Store interface {
	Put(ctx context.Context, value io.Reader) (key string, size int64, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
