package state

import "itemstate/pkg/domain"

// NodeState is a typed view over an *ItemState known to carry node data, a
// tagged-variant design. It adds no fields of its own; it exists so
// node-only operations don't need a type assertion at every call site.
type NodeState struct {
	*ItemState
}

// AsNode narrows s to a NodeState, or reports ok=false if s is a property
// state.
func AsNode(s *ItemState) (NodeState, bool) {
	if s == nil || s.node == nil {
		return NodeState{}, false
	}
	return NodeState{s}, true
}

// PrimaryType returns the node's primary type name.
func (n NodeState) PrimaryType() domain.QName {
	return n.node.primaryType
}

// MixinTypes returns a defensive copy of the node's mixin type names.
func (n NodeState) MixinTypes() []domain.QName {
	return append([]domain.QName(nil), n.node.mixinTypes...)
}

// Definition returns the node's definition slot, set post-construction by
// the resolver, or nil.
func (n NodeState) Definition() any {
	return n.node.definition
}

// SetDefinition attaches the resolved node definition.
func (n NodeState) SetDefinition(def any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.node.definition = def
}

// Children returns the node's live child collection, cloning first if it
// is currently marked shared (copy-on-write).
func (n NodeState) Children() *ChildCollection {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ensureOwnChildrenLocked()
	return n.node.children
}

func (n NodeState) ensureOwnChildrenLocked() {
	if n.node.sharedChildren {
		n.node.children = n.node.children.Clone()
		n.node.sharedChildren = false
	}
}

func (n NodeState) ensureOwnPropertiesLocked() {
	if n.node.sharedProps {
		clone := make(map[domain.QName]struct{}, len(n.node.propertyNames))
		for k := range n.node.propertyNames {
			clone[k] = struct{}{}
		}
		n.node.propertyNames = clone
		n.node.sharedProps = false
	}
}

// PropertyNames returns a defensive copy of the node's property-name set.
func (n NodeState) PropertyNames() []domain.QName {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.QName, 0, len(n.node.propertyNames))
	for name := range n.node.propertyNames {
		out = append(out, name)
	}
	return out
}

// AddPropertyName records name as present, cloning the owned set first if
// shared.
func (n NodeState) AddPropertyName(name domain.QName) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ensureOwnPropertiesLocked()
	n.node.propertyNames[name] = struct{}{}
}

// RemovePropertyName drops name from the property-name set.
func (n NodeState) RemovePropertyName(name domain.QName) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ensureOwnPropertiesLocked()
	delete(n.node.propertyNames, name)
}

// Copy re-synchronizes self's owned data from other (the overlayed twin),
// marking both child collections and property-name sets as shared between
// the two under a copy-on-write discipline. The first mutation on either
// side clones and clears its own shared flag, without eagerly cloning the
// other.
func (n NodeState) Copy(other NodeState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	n.node.primaryType = other.node.primaryType
	n.node.mixinTypes = append([]domain.QName(nil), other.node.mixinTypes...)
	n.node.children = other.node.children
	n.node.sharedChildren = true
	other.node.sharedChildren = true
	n.node.propertyNames = other.node.propertyNames
	n.node.sharedProps = true
	other.node.sharedProps = true
}

// AddedPropertyNames returns propertyNames \ overlayed.propertyNames. If
// there is no overlayed state, all own names are "added".
func (n NodeState) AddedPropertyNames() []domain.QName {
	overlayed := n.Overlayed()
	own := n.PropertyNames()
	if overlayed == nil {
		return own
	}
	otherNode, ok := AsNode(overlayed)
	if !ok {
		return own
	}
	otherNames := nameSet(otherNode.PropertyNames())
	var added []domain.QName
	for _, name := range own {
		if _, present := otherNames[name]; !present {
			added = append(added, name)
		}
	}
	return added
}

// RemovedPropertyNames returns overlayed.propertyNames \ propertyNames.
// Empty if there is no overlayed state.
func (n NodeState) RemovedPropertyNames() []domain.QName {
	overlayed := n.Overlayed()
	if overlayed == nil {
		return nil
	}
	otherNode, ok := AsNode(overlayed)
	if !ok {
		return nil
	}
	own := nameSet(n.PropertyNames())
	var removed []domain.QName
	for _, name := range otherNode.PropertyNames() {
		if _, present := own[name]; !present {
			removed = append(removed, name)
		}
	}
	return removed
}

func nameSet(names []domain.QName) map[domain.QName]struct{} {
	out := make(map[domain.QName]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// AddedChildNodeEntries returns childCollection.removeAll(overlayed.childCollection).
// All own entries if there is no overlayed state.
func (n NodeState) AddedChildNodeEntries() []*ChildEntry {
	overlayed := n.Overlayed()
	if overlayed == nil {
		return n.Children().All()
	}
	otherNode, ok := AsNode(overlayed)
	if !ok {
		return n.Children().All()
	}
	return n.Children().removeAll(otherNode.Children())
}

// RemovedChildNodeEntries returns overlayed.childCollection.removeAll(childCollection).
// Empty if there is no overlayed state.
func (n NodeState) RemovedChildNodeEntries() []*ChildEntry {
	overlayed := n.Overlayed()
	if overlayed == nil {
		return nil
	}
	otherNode, ok := AsNode(overlayed)
	if !ok {
		return nil
	}
	return otherNode.Children().removeAll(n.Children())
}

// ReorderedChildNodeEntries returns the entries whose relative position
// changed vs. the overlayed twin Empty if there is no
// overlayed state.
func (n NodeState) ReorderedChildNodeEntries() []*ChildEntry {
	overlayed := n.Overlayed()
	if overlayed == nil {
		return nil
	}
	otherNode, ok := AsNode(overlayed)
	if !ok {
		return nil
	}
	return detectReordered(n.Children(), otherNode.Children())
}

// AddChildNodeEntry appends a child, firing nodeAdded to node listeners.
func (n NodeState) AddChildNodeEntry(name domain.QName, id domain.NodeID) *ChildEntry {
	children := n.Children()
	entry := children.Add(name, id)
	index, _ := children.IndexOf(entry)
	n.fireNodeAdded(name, index, id)
	return entry
}

// RemoveChildNodeEntry detaches a child by (name, index), firing
// nodeRemoved. Returns false if the entry was absent.
func (n NodeState) RemoveChildNodeEntry(name domain.QName, index int) (bool, error) {
	children := n.Children()
	entry, err := children.RemoveByNameIndex(name, index)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	n.fireNodeRemoved(name, index, entry.ID())
	return true, nil
}

// RenameChildNodeEntry removes the entry at (oldName, index) and re-adds it
// under newName at the tail Fires nodeRemoved then
// nodeAdded. Returns false if the old entry was absent.
func (n NodeState) RenameChildNodeEntry(oldName domain.QName, index int, newName domain.QName) (bool, error) {
	children := n.Children()
	entry, err := children.RemoveByNameIndex(oldName, index)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	n.fireNodeRemoved(oldName, index, entry.ID())
	newEntry := children.Add(newName, entry.ID())
	newIndex, _ := children.IndexOf(newEntry)
	n.fireNodeAdded(newName, newIndex, entry.ID())
	return true, nil
}

// ReorderChildNodeEntry moves the child identified by id so that it
// immediately precedes beforeID (or to the tail if beforeID is the zero
// NodeID), firing no structural listener event of its own: callers that
// need one should follow up via the status transition it is usually
// bundled with (see Manager.refreshChildReordered).
func (n NodeState) ReorderChildNodeEntry(id domain.NodeID, beforeID domain.NodeID) {
	children := n.Children()
	entry := children.GetByID(id)
	children.Reorder(entry, beforeID)
}

// ReplaceAllChildren discards the current child collection in favor of
// fresh, firing nodesReplaced instead of individual add/remove events; used
// when an external refresh supersedes the whole ordering at once.
func (n NodeState) ReplaceAllChildren(children *ChildCollection) {
	n.mu.Lock()
	n.node.children = children
	n.node.sharedChildren = false
	listeners := n.node.nodeListeners.Snapshot()
	n.mu.Unlock()
	for _, l := range listeners {
		l.NodesReplaced(n.ItemState)
	}
	n.metricsRecorder().ListenerNotified("nodesReplaced", len(listeners))
}

func (n NodeState) fireNodeAdded(name domain.QName, index int, id domain.NodeID) {
	listeners := n.node.nodeListeners.Snapshot()
	for _, l := range listeners {
		l.NodeAdded(n.ItemState, name, index, id)
	}
	n.metricsRecorder().ListenerNotified("nodeAdded", len(listeners))
}

func (n NodeState) fireNodeRemoved(name domain.QName, index int, id domain.NodeID) {
	listeners := n.node.nodeListeners.Snapshot()
	for _, l := range listeners {
		l.NodeRemoved(n.ItemState, name, index, id)
	}
	n.metricsRecorder().ListenerNotified("nodeRemoved", len(listeners))
}
