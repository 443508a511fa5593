package blob

import (
	"context"
	"io"

	"itemstate/internal/state"
	"itemstate/pkg/domain"
)

// BinaryReader opens the bytes backing ps's single binary value, resolving
// its store key through store. internal/state never imports this package
// (or any other collaborator); callers sit above both, holding whichever
// Store their factory was configured with.
func BinaryReader(ctx context.Context, ps state.PropertyState, store Store) (io.ReadCloser, error) {
	if !ps.IsBinaryValue() {
		return nil, domain.NewIllegalState("property %s does not hold a binary value", ps.PropertyID())
	}
	values := ps.Values()
	if len(values) == 0 {
		return nil, domain.NewNoSuchItem("property %s has no values", ps.PropertyID())
	}
	return store.Get(ctx, values[0].BinaryKey)
}

// BinaryReaderAt opens the bytes backing the value at index (0-based) of a
// multi-valued binary property.
func BinaryReaderAt(ctx context.Context, ps state.PropertyState, store Store, index int) (io.ReadCloser, error) {
	if !ps.IsBinaryValue() {
		return nil, domain.NewIllegalState("property %s does not hold a binary value", ps.PropertyID())
	}
	values := ps.Values()
	if index < 0 || index >= len(values) {
		return nil, domain.NewIllegalArgument("binary value index %d out of range for property %s", index, ps.PropertyID())
	}
	return store.Get(ctx, values[index].BinaryKey)
}
