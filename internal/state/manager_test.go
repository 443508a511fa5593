package state

import (
	"context"
	"testing"

	"itemstate/pkg/domain"
)

func newTestManager(t *testing.T, rootID domain.NodeID) *Manager {
	t.Helper()
	factory := DefaultFactory{
		LoadNode: func(ctx context.Context, id domain.NodeID) (domain.NodeStateData, error) {
			return domain.NodeStateData{
				ID:          id,
				PrimaryType: domain.NewQName("", "nt:unstructured"),
			}, nil
		},
	}
	return NewManager(ManagerConfig{Factory: factory})
}

func TestManagerCachesNodeStates(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)

	first, err := m.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same cached *ItemState on repeated GetNodeState")
	}
}

func TestManagerRefreshNodeRemoved(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)
	node, err := m.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uncachedParent := domain.UUIDIDFactory{}.NewNodeID()
	if err := m.Refresh(ctx, domain.Event{Kind: domain.EventNodeRemoved, SubjectID: uncachedParent, TargetID: id}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Status() != domain.StatusRemoved {
		t.Fatalf("status = %s, want REMOVED", node.Status())
	}
}

func TestManagerRefreshNodeRemovedDetachesFromParent(t *testing.T) {
	ctx := context.Background()
	parentID := domain.UUIDIDFactory{}.NewNodeID()
	childID := domain.UUIDIDFactory{}.NewNodeID()
	name := domain.NewQName("", "child")
	m := newTestManager(t, parentID)

	parent, err := m.GetNodeState(ctx, parentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	child, err := m.GetNodeState(ctx, childID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parentNode, _ := AsNode(parent)
	parentNode.Children().Add(name, childID)

	if err := m.Refresh(ctx, domain.Event{Kind: domain.EventNodeRemoved, SubjectID: parentID, Name: name, TargetID: childID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if child.Status() != domain.StatusRemoved {
		t.Fatalf("child status = %s, want REMOVED", child.Status())
	}
	if entry := parentNode.Children().GetByID(childID); entry != nil {
		t.Fatalf("want child detached from parent's collection, still present: %+v", entry)
	}
}

func TestManagerRefreshPropertyTouchedPropagatesToCachedProperty(t *testing.T) {
	ctx := context.Background()
	parentID := domain.UUIDIDFactory{}.NewNodeID()
	name := domain.NewQName("", "title")
	m := newTestManager(t, parentID)
	m.factory = DefaultFactory{
		LoadNode: func(ctx context.Context, id domain.NodeID) (domain.NodeStateData, error) {
			return domain.NodeStateData{ID: id, PrimaryType: domain.NewQName("", "nt:unstructured")}, nil
		},
		LoadProperty: func(ctx context.Context, id domain.PropertyID) (domain.PropertyStateData, error) {
			return domain.PropertyStateData{ID: id}, nil
		},
	}

	propID := domain.NewPropertyID(parentID, name)
	prop, err := m.GetPropertyState(ctx, propID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Refresh(ctx, domain.Event{Kind: domain.EventPropertyChanged, SubjectID: parentID, Name: name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prop.Status() != domain.StatusExisting {
		t.Fatalf("status = %s, want EXISTING (MODIFIED collapses synchronously)", prop.Status())
	}

	if err := m.Refresh(ctx, domain.Event{Kind: domain.EventPropertyRemoved, SubjectID: parentID, Name: name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prop.Status() != domain.StatusRemoved {
		t.Fatalf("status = %s, want REMOVED", prop.Status())
	}
}

func TestCommitPropagationStaleDestroyed(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)
	session := NewSession(m)

	sessionNode, err := session.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sessionNode.SetStatus(domain.StatusExistingModified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	workspace, err := m.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := workspace.SetStatus(domain.StatusRemoved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sessionNode.Status(); got != domain.StatusStaleDestroyed {
		t.Fatalf("session status = %s, want STALE_DESTROYED", got)
	}
}

func TestCommitPropagationStaleModified(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)
	session := NewSession(m)

	sessionNode, err := session.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sessionNode.SetStatus(domain.StatusExistingModified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	workspace, err := m.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := workspace.SetStatus(domain.StatusModified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sessionNode.Status(); got != domain.StatusStaleModified {
		t.Fatalf("session status = %s, want STALE_MODIFIED", got)
	}
}

func TestCommitPropagationResyncToExisting(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)
	session := NewSession(m)

	sessionNode, err := session.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sessionNode.Status(); got != domain.StatusExisting {
		t.Fatalf("session status = %s, want EXISTING before workspace change", got)
	}

	workspace, err := m.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := workspace.SetStatus(domain.StatusModified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sessionNode.Status(); got != domain.StatusExisting {
		t.Fatalf("session status after resync = %s, want EXISTING", got)
	}
}
