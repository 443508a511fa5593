// Package blobtest holds a conformance suite shared by every blob.Store
// implementation, run against memory and fs the way internal/spi/spitest
// runs its own conformance suite against memory/sqlite/postgres.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"itemstate/internal/blob"
)

// RunConformance exercises store against the behavior blob.Store documents:
// content-addressed Put, round-trip Get, not-found on an unknown key, and a
// Delete that makes a subsequent Get fail.
func RunConformance(t *testing.T, store blob.Store) {
	t.Helper()
	ctx := context.Background()

	const payload = "item-state overlay conformance payload"
	key, size, err := store.Put(ctx, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", size, len(payload))
	}

	key2, _, err := store.Put(ctx, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("Put (second): %v", err)
	}
	if key != key2 {
		t.Fatalf("content-addressed keys differ for identical content: %q vs %q", key, key2)
	}

	r, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatalf("reading Get result: %v", err)
	}
	if string(got) != payload {
		t.Fatalf("round-tripped content = %q, want %q", got, payload)
	}

	if _, err := store.Get(ctx, "not-a-real-key"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("Get(unknown) err = %v, want blob.ErrNotFound", err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("Get after Delete err = %v, want blob.ErrNotFound", err)
	}

	if err := store.Delete(ctx, "not-a-real-key"); err != nil {
		t.Fatalf("Delete(unknown) should be a no-op, got %v", err)
	}
}
