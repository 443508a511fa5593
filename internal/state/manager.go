package state

import (
	"context"
	"sync"
	"time"

	"itemstate/pkg/domain"
)

// ItemStateFactory creates workspace node/property states from an id. It
// owns the load step; the manager only caches what it returns.
type ItemStateFactory interface {
	CreateNodeState(ctx context.Context, id domain.NodeID) (*ItemState, error)
	CreatePropertyState(ctx context.Context, id domain.PropertyID) (*ItemState, error)
}

// ItemStateManager caches workspace states and routes event streams into
// their refresh entry. It implements Resolver so child references can
// resolve through it directly.
type ItemStateManager interface {
	Resolver
	GetNodeState(ctx context.Context, id domain.NodeID) (*ItemState, error)
	GetPropertyState(ctx context.Context, id domain.PropertyID) (*ItemState, error)
	Refresh(ctx context.Context, event domain.Event) error
	IDFactory() domain.IDFactory
}

// DefaultFactory adapts a pair of collaborator-supplied loader functions
// into an ItemStateFactory using constructor injection for its
// collaborator seams.
type DefaultFactory struct {
	LoadNode     func(ctx context.Context, id domain.NodeID) (domain.NodeStateData, error)
	LoadProperty func(ctx context.Context, id domain.PropertyID) (domain.PropertyStateData, error)
}

// CreateNodeState loads data for id via LoadNode and builds the workspace
// node state, populating its child collection and property-name set.
func (f DefaultFactory) CreateNodeState(ctx context.Context, id domain.NodeID) (*ItemState, error) {
	if f.LoadNode == nil {
		return nil, domain.NewNoSuchItem("no node loader configured for %s", id)
	}
	data, err := f.LoadNode(ctx, id)
	if err != nil {
		return nil, domain.NewItemStateError(err, "loading node %s", id)
	}
	s := NewWorkspaceNodeState(data.ID, data.PrimaryType, data.MixinTypes)
	node, _ := AsNode(s)
	for _, name := range data.PropertyNames {
		node.AddPropertyName(name)
	}
	for _, child := range data.Children {
		node.Children().Add(child.Name, child.ID)
	}
	return s, nil
}

// CreatePropertyState loads data for id via LoadProperty and builds the
// workspace property state.
func (f DefaultFactory) CreatePropertyState(ctx context.Context, id domain.PropertyID) (*ItemState, error) {
	if f.LoadProperty == nil {
		return nil, domain.NewNoSuchItem("no property loader configured for %s", id)
	}
	data, err := f.LoadProperty(ctx, id)
	if err != nil {
		return nil, domain.NewItemStateError(err, "loading property %s", id)
	}
	return NewWorkspacePropertyState(data.ID, data.Values, data.Multiple, data.IsBinary), nil
}

// Manager is the default in-memory ItemStateManager: an identity map of
// workspace states keyed by id, populated on demand through a factory. It
// is the owning side of the parent→child edge: strong-but-resolved-lazily
// through the manager, which owns the identity map.
//
// Manager does not itself know a node's parent id; callers that build a
// tree top-down should call LinkParent after resolving a child so the
// weak back-reference is in place before listeners fire.
type Manager struct {
	mu    sync.Mutex
	nodes map[string]*ItemState
	props map[string]*ItemState

	factory   ItemStateFactory
	idFactory domain.IDFactory
	logger    domain.Logger
	metrics   MetricsRecorder
}

// ManagerConfig supplies a Manager's collaborators.
type ManagerConfig struct {
	Factory   ItemStateFactory
	IDFactory domain.IDFactory
	Logger    domain.Logger
	Metrics   MetricsRecorder
}

// NewManager builds a Manager from cfg, defaulting IDFactory to
// domain.UUIDIDFactory, Logger to domain.NoopLogger, and Metrics to a no-op
// recorder when unset.
func NewManager(cfg ManagerConfig) *Manager {
	idf := cfg.IDFactory
	if idf == nil {
		idf = domain.UUIDIDFactory{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = domain.NoopLogger{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = defaultMetrics
	}
	return &Manager{
		nodes:     make(map[string]*ItemState),
		props:     make(map[string]*ItemState),
		factory:   cfg.Factory,
		idFactory: idf,
		logger:    logger,
		metrics:   metrics,
	}
}

// attachMetrics installs the manager's recorder on a freshly created state
// and, for node states, on its child collection, so resolution through
// either the manager's own cache or a ChildReference's weak cache reports
// through the same recorder.
func (m *Manager) attachMetrics(s *ItemState) {
	s.SetMetrics(m.metrics)
	if node, ok := AsNode(s); ok {
		node.Children().SetMetrics(m.metrics)
	}
}

func propKey(id domain.PropertyID) string {
	return id.String()
}

// ResolveNodeState satisfies Resolver for ChildReference resolution.
func (m *Manager) ResolveNodeState(ctx context.Context, id domain.NodeID) (*ItemState, error) {
	return m.GetNodeState(ctx, id)
}

// GetNodeState returns the cached workspace node state for id, creating it
// via the factory on first reference. Fails with NoSuchItem if no factory
// is configured or the factory reports the id unknown, or ItemStateError
// if the factory itself fails.
func (m *Manager) GetNodeState(ctx context.Context, id domain.NodeID) (*ItemState, error) {
	start := time.Now()
	key := idKey(id)
	m.mu.Lock()
	if existing, ok := m.nodes[key]; ok {
		m.mu.Unlock()
		m.metrics.ResolveDuration(time.Since(start), true)
		return existing, nil
	}
	m.mu.Unlock()

	if m.factory == nil {
		return nil, domain.NewNoSuchItem("no factory configured for node %s", id)
	}
	s, err := m.factory.CreateNodeState(ctx, id)
	if err != nil {
		return nil, err
	}
	m.attachMetrics(s)

	m.mu.Lock()
	if existing, ok := m.nodes[key]; ok {
		m.mu.Unlock()
		m.metrics.ResolveDuration(time.Since(start), true)
		return existing, nil
	}
	m.nodes[key] = s
	m.mu.Unlock()
	m.metrics.ResolveDuration(time.Since(start), false)
	return s, nil
}

// LinkParent sets child's weak parent back-reference to parent, resolving
// parent through the manager first. A no-op if parent resolution fails.
func (m *Manager) LinkParent(ctx context.Context, child *ItemState, parentID domain.NodeID) {
	parent, err := m.GetNodeState(ctx, parentID)
	if err != nil {
		return
	}
	child.SetParent(parent)
}

// GetPropertyState returns the cached workspace property state for id,
// creating it via the factory on first reference.
func (m *Manager) GetPropertyState(ctx context.Context, id domain.PropertyID) (*ItemState, error) {
	start := time.Now()
	key := propKey(id)
	m.mu.Lock()
	if existing, ok := m.props[key]; ok {
		m.mu.Unlock()
		m.metrics.ResolveDuration(time.Since(start), true)
		return existing, nil
	}
	m.mu.Unlock()

	if m.factory == nil {
		return nil, domain.NewNoSuchItem("no factory configured for property %s", id)
	}
	s, err := m.factory.CreatePropertyState(ctx, id)
	if err != nil {
		return nil, err
	}
	m.attachMetrics(s)

	m.mu.Lock()
	if existing, ok := m.props[key]; ok {
		m.mu.Unlock()
		m.metrics.ResolveDuration(time.Since(start), true)
		return existing, nil
	}
	m.props[key] = s
	m.mu.Unlock()
	m.metrics.ResolveDuration(time.Since(start), false)

	m.LinkParent(ctx, s, id.ParentID)
	return s, nil
}

// IDFactory returns the manager's id factory.
func (m *Manager) IDFactory() domain.IDFactory {
	return m.idFactory
}

// Refresh applies an ingress event to the cached workspace state it
// concerns: mutate owned data, then transition status. Refresh errors
// leave the state in its pre-refresh status.
func (m *Manager) Refresh(ctx context.Context, event domain.Event) error {
	switch event.Kind {
	case domain.EventNodeAdded:
		return m.refreshNodeAdded(ctx, event)
	case domain.EventNodeRemoved:
		return m.refreshNodeRemoved(event)
	case domain.EventPropertyAdded, domain.EventPropertyChanged:
		return m.refreshPropertyTouched(event)
	case domain.EventPropertyRemoved:
		return m.refreshPropertyRemoved(event)
	case domain.EventChildReordered:
		return m.refreshChildReordered(event)
	default:
		return domain.NewIllegalArgument("unknown event kind %v", event.Kind)
	}
}

func (m *Manager) refreshNodeAdded(ctx context.Context, event domain.Event) error {
	parent, ok := m.lookupNode(event.SubjectID)
	if !ok {
		return nil
	}
	node, isNode := AsNode(parent)
	if !isNode {
		return domain.NewIllegalState("refresh target %s is not a node state", event.SubjectID)
	}
	node.AddChildNodeEntry(event.Name, event.TargetID)
	return parent.SetStatus(domain.StatusModified)
}

// refreshNodeRemoved marks the removed node itself StatusRemoved and, when
// its parent is cached (event.SubjectID), detaches its entry from the
// parent's child collection and fires the parent's nodeRemoved listeners,
// mirroring what NodeState.RemoveChildNodeEntry does for a session-initiated
// removal.
func (m *Manager) refreshNodeRemoved(event domain.Event) error {
	if parent, ok := m.lookupNode(event.SubjectID); ok {
		if node, isNode := AsNode(parent); isNode {
			children := node.Children()
			if entry := children.GetByID(event.TargetID); entry != nil {
				index, _ := children.IndexOf(entry)
				children.RemoveByID(event.TargetID)
				node.fireNodeRemoved(entry.Name(), index, entry.ID())
			}
			if err := parent.SetStatus(domain.StatusModified); err != nil {
				return err
			}
		}
	}
	target, ok := m.lookupNode(event.TargetID)
	if !ok {
		return nil
	}
	return target.SetStatus(domain.StatusRemoved)
}

func (m *Manager) refreshPropertyTouched(event domain.Event) error {
	parent, ok := m.lookupNode(event.SubjectID)
	if !ok {
		return nil
	}
	node, isNode := AsNode(parent)
	if !isNode {
		return domain.NewIllegalState("refresh target %s is not a node state", event.SubjectID)
	}
	node.AddPropertyName(event.Name)
	if err := parent.SetStatus(domain.StatusModified); err != nil {
		return err
	}
	if prop, ok := m.lookupProp(domain.NewPropertyID(event.SubjectID, event.Name)); ok {
		return prop.SetStatus(domain.StatusModified)
	}
	return nil
}

func (m *Manager) refreshPropertyRemoved(event domain.Event) error {
	parent, ok := m.lookupNode(event.SubjectID)
	if !ok {
		return nil
	}
	node, isNode := AsNode(parent)
	if !isNode {
		return domain.NewIllegalState("refresh target %s is not a node state", event.SubjectID)
	}
	node.RemovePropertyName(event.Name)
	if err := parent.SetStatus(domain.StatusModified); err != nil {
		return err
	}
	if prop, ok := m.lookupProp(domain.NewPropertyID(event.SubjectID, event.Name)); ok {
		return prop.SetStatus(domain.StatusRemoved)
	}
	return nil
}

func (m *Manager) refreshChildReordered(event domain.Event) error {
	parent, ok := m.lookupNode(event.SubjectID)
	if !ok {
		return nil
	}
	node, isNode := AsNode(parent)
	if !isNode {
		return domain.NewIllegalState("refresh target %s is not a node state", event.SubjectID)
	}
	entry := node.Children().GetByName(event.Name)
	if len(entry) == 0 {
		return parent.SetStatus(domain.StatusModified)
	}
	node.ReorderChildNodeEntry(entry[0].ID(), event.TargetID)
	return parent.SetStatus(domain.StatusModified)
}

func (m *Manager) lookupNode(id domain.NodeID) (*ItemState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.nodes[idKey(id)]
	return s, ok
}

func (m *Manager) lookupProp(id domain.PropertyID) (*ItemState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.props[propKey(id)]
	return s, ok
}
