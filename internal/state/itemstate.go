package state

import (
	"context"
	"sync"
	"weak"

	"itemstate/pkg/domain"
)

// nodeData holds the fields exclusive to a node-kind ItemState.
type nodeData struct {
	primaryType    domain.QName
	mixinTypes     []domain.QName
	definition     any // opaque; attached post-construction by the resolver
	children       *ChildCollection
	propertyNames  map[domain.QName]struct{}
	sharedChildren bool
	sharedProps    bool
	nodeListeners  *ListenerSet[domain.NodeStateListener]
}

// propertyData holds the fields exclusive to a property-kind ItemState.
type propertyData struct {
	name       domain.QName
	values     []domain.PropertyValue
	multiple   bool
	isBinary   bool
	definition any
}

// ItemState is the tagged-variant base combining node and property state
// into one struct with a kind discriminant instead of a class hierarchy.
// node/prop pointers exist mutually exclusively; IsNode reports which is
// set.
type ItemState struct {
	mu sync.Mutex // guards status + node/property field mutation

	isNode    bool
	status    domain.ItemStatus
	layer     domain.Layer
	nodeID    domain.NodeID
	propID    domain.PropertyID
	parentRef weak.Pointer[ItemState] // weak: breaks the parent<->child retain cycle
	overlayed *ItemState              // strong session->workspace link; nil for workspace states and NEW session states.

	statusListeners *ListenerSet[domain.StatusListener]
	metrics         MetricsRecorder

	node *nodeData
	prop *propertyData
}

// SetMetrics installs an optional MetricsRecorder, replacing the default
// no-op. Manager calls this on states it creates; it is safe to leave unset.
func (s *ItemState) SetMetrics(m MetricsRecorder) {
	if m == nil {
		m = defaultMetrics
	}
	s.metrics = m
}

func (s *ItemState) metricsRecorder() MetricsRecorder {
	if s.metrics == nil {
		return defaultMetrics
	}
	return s.metrics
}

// newItemState builds a base state; callers attach node/prop data.
func newItemState(isNode bool, layer domain.Layer, status domain.ItemStatus) *ItemState {
	return &ItemState{
		isNode:          isNode,
		layer:           layer,
		status:          status,
		statusListeners: NewListenerSet[domain.StatusListener](),
	}
}

// NewWorkspaceNodeState builds a workspace-layer node state in EXISTING
// status with an empty child collection and property-name set.
func NewWorkspaceNodeState(id domain.NodeID, primaryType domain.QName, mixins []domain.QName) *ItemState {
	s := newItemState(true, domain.LayerWorkspace, domain.StatusExisting)
	s.nodeID = id
	s.node = &nodeData{
		primaryType:   primaryType,
		mixinTypes:    append([]domain.QName(nil), mixins...),
		children:      NewChildCollection(),
		propertyNames: make(map[domain.QName]struct{}),
		nodeListeners: NewListenerSet[domain.NodeStateListener](),
	}
	return s
}

// NewWorkspacePropertyState builds a workspace-layer property state in
// EXISTING status.
func NewWorkspacePropertyState(id domain.PropertyID, values []domain.PropertyValue, multiple, isBinary bool) *ItemState {
	s := newItemState(false, domain.LayerWorkspace, domain.StatusExisting)
	s.propID = id
	s.prop = &propertyData{
		name:     id.Name,
		values:   append([]domain.PropertyValue(nil), values...),
		multiple: multiple,
		isBinary: isBinary,
	}
	return s
}

// IsNode reports whether this is a node-kind state.
func (s *ItemState) IsNode() bool {
	return s.isNode
}

// Status returns the current status.
func (s *ItemState) Status() domain.ItemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Layer reports whether this is a workspace or session state.
func (s *ItemState) Layer() domain.Layer {
	return s.layer
}

// NodeID returns the node id for a node-kind state (zero value otherwise).
func (s *ItemState) NodeID() domain.NodeID {
	return s.nodeID
}

// PropertyID returns the property id for a property-kind state (zero value
// otherwise).
func (s *ItemState) PropertyID() domain.PropertyID {
	return s.propID
}

// Parent returns the parent node state, or nil if it has no parent (root)
// or the parent has been reclaimed.
func (s *ItemState) Parent() *ItemState {
	return s.parentRef.Value()
}

// SetParent installs parent as this state's weak parent back-reference.
func (s *ItemState) SetParent(parent *ItemState) {
	if parent == nil {
		s.parentRef = weak.Pointer[ItemState]{}
		return
	}
	s.parentRef = weak.Make(parent)
}

// Overlayed returns the workspace twin of a session state, or nil.
func (s *ItemState) Overlayed() *ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlayed
}

// Connect binds a session state to its workspace twin and registers self as
// a weak listener on it Connect is one-shot: rebinding
// to a different workspace state fails with IllegalState; reconnecting to
// the same one is a no-op.
func (s *ItemState) Connect(workspace *ItemState) error {
	if s.layer != domain.LayerSession {
		return domain.NewIllegalState("connect is only valid on session states")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlayed != nil {
		if s.overlayed == workspace {
			return nil
		}
		return domain.NewIllegalState("session state is already connected to a different workspace state")
	}
	s.overlayed = workspace
	AddListener(workspace.statusListeners, s)
	return nil
}

// Disconnect removes self from the workspace twin's listener sets without
// clearing the overlayed pointer; used when a session state is about to be
// discarded.
func (s *ItemState) Disconnect() {
	s.mu.Lock()
	ws := s.overlayed
	s.mu.Unlock()
	if ws == nil {
		return
	}
	RemoveListener(ws.statusListeners, s)
}

// AddStatusListener registers l as a weak status listener on s.
func (s *ItemState) AddStatusListener(l *ItemState) {
	AddListener(s.statusListeners, l)
}

// SetStatus implements the gated transition :
//  1. no-op if new == old
//  2. reject if old is terminal
//  3. validate against the transition table for this state's layer
//  4. update
//  5. snapshot listeners under the lock
//  6. notify outside the lock
//  7. collapse MODIFIED to EXISTING after notification
func (s *ItemState) SetStatus(to domain.ItemStatus) error {
	s.mu.Lock()
	from := s.status
	if to == from {
		s.mu.Unlock()
		return nil
	}
	if from.IsTerminal() {
		s.mu.Unlock()
		return domain.NewIllegalState("%s state is terminal at %s, cannot move to %s", s.layer, from, to)
	}
	if !domain.CanTransition(s.layer, from, to) {
		s.mu.Unlock()
		return domain.NewIllegalArgument("illegal %s transition %s -> %s", s.layer, from, to)
	}
	s.status = to
	listeners := s.statusListeners.Snapshot()
	s.mu.Unlock()

	s.metricsRecorder().StatusTransition(s.layer, from, to)

	for _, l := range listeners {
		l.StatusChanged(s, from)
	}
	s.metricsRecorder().ListenerNotified("status", len(listeners))

	if to == domain.StatusModified {
		s.mu.Lock()
		if s.status == domain.StatusModified {
			s.status = domain.StatusExisting
		}
		s.mu.Unlock()
	}
	return nil
}

// StatusChanged implements domain.StatusListener so a session state can
// react to its workspace twin's transitions's testable
// property 10. subject is the workspace twin (passed by the emitting
// SetStatus call); s is the listening session state itself.
func (s *ItemState) StatusChanged(subject domain.ItemStateView, previous domain.ItemStatus) {
	if s.layer != domain.LayerSession {
		return
	}
	wsStatus := subject.Status()
	s.mu.Lock()
	myStatus := s.status
	s.mu.Unlock()

	switch {
	case wsStatus == domain.StatusRemoved && myStatus == domain.StatusExistingModified:
		_ = s.SetStatus(domain.StatusStaleDestroyed)
	case wsStatus == domain.StatusModified && myStatus == domain.StatusExistingModified:
		_ = s.SetStatus(domain.StatusStaleModified)
	case wsStatus == domain.StatusModified && (myStatus == domain.StatusExisting || myStatus == domain.StatusInvalidated):
		s.resyncFromOverlayed()
		_ = s.SetStatus(domain.StatusModified)
	case wsStatus == domain.StatusInvalidated && myStatus == domain.StatusExisting:
		_ = s.SetStatus(domain.StatusInvalidated)
	case wsStatus == domain.StatusExisting && myStatus == domain.StatusInvalidated:
		s.resyncFromOverlayed()
		_ = s.SetStatus(domain.StatusExisting)
	}
}

// resyncFromOverlayed re-synchronizes this session state's owned data from
// its workspace twin; this is the "reset" half of `copy`.
func (s *ItemState) resyncFromOverlayed() {
	ws := s.Overlayed()
	if ws == nil {
		return
	}
	if s.isNode {
		self, _ := AsNode(s)
		other, _ := AsNode(ws)
		self.Copy(other)
		return
	}
	self, _ := AsProperty(s)
	other, _ := AsProperty(ws)
	self.Copy(other)
}

// Path reconstructs this state's qualified path by walking up to the root,
// name/index are the step this state occupies within its
// parent's child collection; nodes pass their own (name, index), properties
// pass (their name, DefaultIndex).
func (s *ItemState) Path(ctx context.Context) (domain.Path, error) {
	parent := s.Parent()
	if parent == nil {
		return domain.RootPath(), nil
	}
	parentPath, err := parent.Path(ctx)
	if err != nil {
		return domain.Path{}, err
	}

	if !s.isNode {
		return parentPath.Append(domain.NewPathElement(s.prop.name, domain.DefaultIndex)), nil
	}

	parentNode, ok := AsNode(parent)
	if !ok {
		return domain.Path{}, domain.NewRepositoryError("parent of node %s is not a node state", s.nodeID)
	}
	entry := parentNode.Children().GetByID(s.nodeID)
	if entry == nil {
		return domain.Path{}, domain.NewItemNotFound("node %s is no longer a child of its parent", s.nodeID)
	}
	index, ok := parentNode.Children().IndexOf(entry)
	if !ok {
		return domain.Path{}, domain.NewItemNotFound("node %s was detached from its parent mid-walk", s.nodeID)
	}
	return parentPath.Append(domain.NewPathElement(entry.Name(), index)), nil
}
