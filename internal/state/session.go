package state

import (
	"context"
	"sync"

	"itemstate/pkg/domain"
)

// CommitPort is the narrow surface session.Save needs from the transport
// boundary: apply a change log and report success or failure. Kept here,
// not imported from a transport package, so internal/state never depends
// on internal/spi.
type CommitPort interface {
	Commit(ctx context.Context, log domain.ChangeLog) error
}

// Session is the session-layer overlay: a cache of session-kind
// *ItemState, each connected to its workspace twin, plus the change-log
// assembly and commit/revert machinery.
type Session struct {
	mu      sync.Mutex
	manager ItemStateManager
	nodes   map[string]*ItemState
	props   map[string]*ItemState
}

// NewSession builds an empty session overlaying manager.
func NewSession(manager ItemStateManager) *Session {
	return &Session{
		manager: manager,
		nodes:   make(map[string]*ItemState),
		props:   make(map[string]*ItemState),
	}
}

// GetNodeState returns the session-layer node state for id, resolving and
// connecting it to its workspace twin on first reference.
func (s *Session) GetNodeState(ctx context.Context, id domain.NodeID) (*ItemState, error) {
	key := idKey(id)
	s.mu.Lock()
	if existing, ok := s.nodes[key]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	workspace, err := s.manager.GetNodeState(ctx, id)
	if err != nil {
		return nil, err
	}
	session := newItemState(true, domain.LayerSession, domain.StatusExisting)
	session.nodeID = id
	session.node = &nodeData{
		nodeListeners: NewListenerSet[domain.NodeStateListener](),
	}
	sessionNode, _ := AsNode(session)
	workspaceNode, _ := AsNode(workspace)
	sessionNode.Copy(workspaceNode)
	if err := session.Connect(workspace); err != nil {
		return nil, err
	}
	if parent := workspace.Parent(); parent != nil {
		parentSession, err := s.GetNodeState(ctx, parent.NodeID())
		if err == nil {
			session.SetParent(parentSession)
		}
	}

	s.mu.Lock()
	if existing, ok := s.nodes[key]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.nodes[key] = session
	s.mu.Unlock()
	return session, nil
}

// GetPropertyState returns the session-layer property state for id,
// resolving and connecting it to its workspace twin on first reference.
func (s *Session) GetPropertyState(ctx context.Context, id domain.PropertyID) (*ItemState, error) {
	key := propKey(id)
	s.mu.Lock()
	if existing, ok := s.props[key]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	workspace, err := s.manager.GetPropertyState(ctx, id)
	if err != nil {
		return nil, err
	}
	session := newItemState(false, domain.LayerSession, domain.StatusExisting)
	session.propID = id
	session.prop = &propertyData{name: id.Name}
	sessionProp, _ := AsProperty(session)
	workspaceProp, _ := AsProperty(workspace)
	sessionProp.Copy(workspaceProp)
	if err := session.Connect(workspace); err != nil {
		return nil, err
	}
	parentSession, err := s.GetNodeState(ctx, id.ParentID)
	if err == nil {
		session.SetParent(parentSession)
	}

	s.mu.Lock()
	if existing, ok := s.props[key]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.props[key] = session
	s.mu.Unlock()
	return session, nil
}

// NewTransientNode creates a fresh NEW session node state, not yet present
// in any workspace, and registers it under id in the session cache.
func (s *Session) NewTransientNode(id domain.NodeID, primaryType domain.QName, mixins []domain.QName) *ItemState {
	session := newItemState(true, domain.LayerSession, domain.StatusNew)
	session.nodeID = id
	session.node = &nodeData{
		primaryType:   primaryType,
		mixinTypes:    append([]domain.QName(nil), mixins...),
		children:      NewChildCollection(),
		propertyNames: make(map[domain.QName]struct{}),
		nodeListeners: NewListenerSet[domain.NodeStateListener](),
	}
	s.mu.Lock()
	s.nodes[idKey(id)] = session
	s.mu.Unlock()
	return session
}

// isDirty reports whether a session state carries uncommitted work.
func isDirty(s *ItemState) bool {
	switch s.Status() {
	case domain.StatusNew, domain.StatusExistingModified, domain.StatusExistingRemoved:
		return true
	default:
		return false
	}
}

// CollectTransientStates assembles the change log of every dirty
// session-layer state currently cached.
func (s *Session) CollectTransientStates() domain.ChangeLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	var log domain.ChangeLog
	for _, n := range s.nodes {
		classify(&log, n, domain.NewTransientNodeID(n.NodeID()))
	}
	for _, p := range s.props {
		classify(&log, p, domain.NewTransientPropertyID(p.PropertyID()))
	}
	return log
}

func classify(log *domain.ChangeLog, s *ItemState, id domain.TransientID) {
	switch s.Status() {
	case domain.StatusNew:
		log.Added = append(log.Added, id)
	case domain.StatusExistingModified:
		log.Modified = append(log.Modified, id)
	case domain.StatusExistingRemoved:
		log.Removed = append(log.Removed, id)
	}
}

// Save assembles the change log, hands it to port, and on success drives
// every touched state to its post-commit status: NEW -> EXISTING,
// EXISTING_MODIFIED -> EXISTING, EXISTING_REMOVED -> REMOVED. Removed
// states are dropped from the cache afterward. A commit failure leaves
// every state in its pre-commit status.
func (s *Session) Save(ctx context.Context, port CommitPort) error {
	log := s.CollectTransientStates()
	if len(log.Added)+len(log.Modified)+len(log.Removed) == 0 {
		return nil
	}
	if err := port.Commit(ctx, log); err != nil {
		return domain.NewItemStateError(err, "committing change log")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, n := range s.nodes {
		switch n.Status() {
		case domain.StatusNew:
			_ = n.SetStatus(domain.StatusExisting)
		case domain.StatusExistingModified:
			_ = n.SetStatus(domain.StatusExisting)
		case domain.StatusExistingRemoved:
			_ = n.SetStatus(domain.StatusRemoved)
			delete(s.nodes, key)
		}
	}
	for key, p := range s.props {
		switch p.Status() {
		case domain.StatusNew:
			_ = p.SetStatus(domain.StatusExisting)
		case domain.StatusExistingModified:
			_ = p.SetStatus(domain.StatusExisting)
		case domain.StatusExistingRemoved:
			_ = p.SetStatus(domain.StatusRemoved)
			delete(s.props, key)
		}
	}
	return nil
}

// Revert walks every dirty cached state and resets it to EXISTING,
// re-synchronizing node/property data from its workspace twin, atomically
// per state. NEW states (which have no workspace twin) are dropped from
// the cache entirely, mirroring discard semantics.
func (s *Session) Revert() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, n := range s.nodes {
		if !isDirty(n) {
			continue
		}
		if n.Status() == domain.StatusNew {
			delete(s.nodes, key)
			continue
		}
		if overlayed := n.Overlayed(); overlayed != nil {
			selfNode, _ := AsNode(n)
			otherNode, _ := AsNode(overlayed)
			selfNode.Copy(otherNode)
		}
		_ = n.SetStatus(domain.StatusExisting)
	}
	for key, p := range s.props {
		if !isDirty(p) {
			continue
		}
		if p.Status() == domain.StatusNew {
			delete(s.props, key)
			continue
		}
		if overlayed := p.Overlayed(); overlayed != nil {
			selfProp, _ := AsProperty(p)
			otherProp, _ := AsProperty(overlayed)
			selfProp.Copy(otherProp)
		}
		_ = p.SetStatus(domain.StatusExisting)
	}
}
