package blob_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"

	"itemstate/internal/blob"
	"itemstate/internal/blob/memory"
	"itemstate/internal/state"
	"itemstate/pkg/domain"
)

func newBinaryProperty(t *testing.T, store *memory.Store, content string) state.PropertyState {
	t.Helper()
	key, _, err := store.Put(context.Background(), bytes.NewBufferString(content))
	if err != nil {
		t.Fatalf("seeding blob: %v", err)
	}
	id := domain.NewPropertyID(domain.NewUUIDNodeID(uuid.New()), domain.NewQName("", "jcr:data"))
	values := []domain.PropertyValue{{BinaryKey: key}}
	ps, ok := state.AsProperty(state.NewWorkspacePropertyState(id, values, false, true))
	if !ok {
		t.Fatalf("expected a property state")
	}
	return ps
}

func TestBinaryReaderResolvesThroughStore(t *testing.T) {
	store := memory.New()
	ps := newBinaryProperty(t, store, "overlay payload")

	r, err := blob.BinaryReader(context.Background(), ps, store)
	if err != nil {
		t.Fatalf("BinaryReader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(got) != "overlay payload" {
		t.Fatalf("got %q, want %q", got, "overlay payload")
	}
}

func TestBinaryReaderRejectsNonBinaryProperty(t *testing.T) {
	id := domain.NewPropertyID(domain.NewUUIDNodeID(uuid.New()), domain.NewQName("", "jcr:title"))
	values := []domain.PropertyValue{{String: "not binary"}}
	ps, ok := state.AsProperty(state.NewWorkspacePropertyState(id, values, false, false))
	if !ok {
		t.Fatalf("expected a property state")
	}

	if _, err := blob.BinaryReader(context.Background(), ps, memory.New()); !domain.IsKind(err, domain.KindIllegalState) {
		t.Fatalf("BinaryReader err = %v, want IllegalState", err)
	}
}

func TestBinaryReaderAtOutOfRange(t *testing.T) {
	store := memory.New()
	ps := newBinaryProperty(t, store, "only value")

	if _, err := blob.BinaryReaderAt(context.Background(), ps, store, 3); !domain.IsKind(err, domain.KindIllegalArgument) {
		t.Fatalf("BinaryReaderAt err = %v, want IllegalArgument", err)
	}
}
