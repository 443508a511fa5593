package state

import (
	"context"

	"itemstate/pkg/domain"
)

// ChildEntry is one entry of a ChildCollection: a child name, its id, a
// lazily-resolved weak pointer to the child's item state, and its
// removed-from-collection flag. Entries are value-like after construction
// and safe to share across a clone.
type ChildEntry struct {
	name    domain.QName
	id      domain.NodeID
	ref     *ChildReference
	removed bool
}

// NewChildEntry builds a detached entry; ChildCollection.Add is the normal
// way entries come into being.
func NewChildEntry(name domain.QName, id domain.NodeID) *ChildEntry {
	return &ChildEntry{name: name, id: id, ref: NewChildReference(id)}
}

// Resolve returns the child's item state, resolving and weakly caching it
// through resolver on a cache miss.
func (e *ChildEntry) Resolve(ctx context.Context, resolver Resolver) (*ItemState, error) {
	return e.ref.Resolve(ctx, resolver)
}

// Name returns the child's name.
func (e *ChildEntry) Name() domain.QName {
	return e.name
}

// ID returns the child's node id.
func (e *ChildEntry) ID() domain.NodeID {
	return e.id
}

// sameIdentity reports whether two entries name the same (name, id) pair,
// the equivalence removeAll/retainAll use, ignoring index/position
// entirely.
func (e *ChildEntry) sameIdentity(other *ChildEntry) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.name == other.name && e.id.Equal(other.id)
}
