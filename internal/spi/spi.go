// Package spi defines the remote repository transport boundary, treated
// as an external collaborator: the contract a backend implements to load
// workspace data, publish external change events, and apply a saved
// change log. internal/state never imports this package; it depends only
// on the narrower ItemStateFactory/CommitPort interfaces it declares for
// itself, which the adapters in this package satisfy.
package spi

import (
	"context"
	"fmt"

	"itemstate/pkg/domain"
)

// NodeRecord is the wire-level representation of a node's workspace data,
// as returned by FetchNode. Version is an opaque, backend-assigned counter
// that Mutate bumps when it applies staged data; the core never interprets
// it, and the backends in this module do not compare it on Mutate.
type NodeRecord struct {
	ID            domain.NodeID
	PrimaryType   domain.QName
	MixinTypes    []domain.QName
	PropertyNames []domain.QName
	Version       int64
}

// PropertyRecord is the wire-level representation of a property's
// workspace data, as returned by FetchProperty.
type PropertyRecord struct {
	ID       domain.PropertyID
	Values   []domain.PropertyValue
	Multiple bool
	IsBinary bool
	Version  int64
}

// ChildRecord is one child-collection entry as reported by ChildIDs, in
// insertion order.
type ChildRecord struct {
	Name domain.QName
	ID   domain.NodeID
}

// Cursor opaquely marks a position in a backend's event stream. Callers
// never inspect it, only round-trip it through Poll.
type Cursor struct {
	Token string
}

// ChangeSet is change-log egress: the batch of transient ids an outer
// session is committing. Resolving each id to the actual transient data
// being saved is the outer session's job, upstream of this boundary; the
// core's contract stops at handing over the id batch, so a backend applies
// a ChangeSet by re-deriving the intended mutation from whatever side
// channel it shares with the outer session (for the backends in this
// module, memory.Service's own pending-write buffer, filled through its
// StageNode/StageChildAdd/StageProperty/StageRemove* methods).
type ChangeSet struct {
	Log domain.ChangeLog
}

// RepositoryService is the remote protocol boundary: the one contract the
// item-state factory and manager depend on at their boundary, specified
// only at its interface.
//
//	Poll is the event-ingress mechanism: the item-state manager's Poller
//	(see adapter.go) calls it on a background goroutine and feeds resulting
//	domain.Events to the matching workspace state's Refresh.
//	Mutate is change-log egress: Committer hands the collected transient
//	state ids to Mutate and, on success, the session drives each touched
//	state to its post-commit status.
type RepositoryService interface {
	FetchNode(ctx context.Context, id domain.NodeID) (NodeRecord, error)
	FetchProperty(ctx context.Context, id domain.PropertyID) (PropertyRecord, error)
	ChildIDs(ctx context.Context, parent domain.NodeID) ([]ChildRecord, error)
	Poll(ctx context.Context, since Cursor) ([]domain.Event, Cursor, error)
	Mutate(ctx context.Context, log ChangeSet) (Cursor, error)
}

// NewConflictError builds the ItemStateError a backend returns from Mutate
// when a touched record's version no longer matches what the caller last
// observed. The manager never special-cases it beyond propagating it.
func NewConflictError(nodeOrPropertyID string) error {
	return domain.NewItemStateError(fmt.Errorf("version conflict on %s", nodeOrPropertyID), "applying change log")
}
