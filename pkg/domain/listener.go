package domain

// StatusListener observes status transitions on any item state. It is the
// listener surface : fired on every transition, including
// the transient MODIFIED pulse.
type StatusListener interface {
	StatusChanged(state ItemStateView, previous ItemStatus)
}

// NodeStateListener observes structural changes to a node state's child
// collection. Fired only by node states
type NodeStateListener interface {
	NodeAdded(parent ItemStateView, name QName, index int, id NodeID)
	NodeRemoved(parent ItemStateView, name QName, index int, id NodeID)
	NodesReplaced(parent ItemStateView)
}

// ItemStateView is the read-only surface of an item state exposed to
// listeners, kept deliberately narrow so internal/state's concrete types
// can satisfy it without leaking mutation methods across the package
// boundary that listeners (often implemented by collaborators) live on.
type ItemStateView interface {
	Status() ItemStatus
	IsNode() bool
}
