package state

import (
	"testing"

	"itemstate/pkg/domain"
)

func TestCopyOnWriteIsolation(t *testing.T) {
	ws := newWorkspaceNode(t)
	wsNode, _ := AsNode(ws)
	foo := domain.NewQName("", "foo")
	wsNode.Children().Add(foo, mustNewID(t))

	session := newItemState(true, domain.LayerSession, domain.StatusExisting)
	session.node = &nodeData{nodeListeners: NewListenerSet[domain.NodeStateListener]()}
	sessionNode, _ := AsNode(session)
	sessionNode.Copy(wsNode)

	bar := domain.NewQName("", "bar")
	sessionNode.Children().Add(bar, mustNewID(t))

	if wsNode.Children().Len() != 1 {
		t.Fatalf("mutating the session's children leaked into the workspace twin: len=%d", wsNode.Children().Len())
	}
	if sessionNode.Children().Len() != 2 {
		t.Fatalf("session children = %d, want 2", sessionNode.Children().Len())
	}

	baz := domain.NewQName("", "baz")
	wsNode.Children().Add(baz, mustNewID(t))
	if sessionNode.Children().Len() != 2 {
		t.Fatalf("mutating the workspace's children leaked into the session twin: len=%d", sessionNode.Children().Len())
	}
}

func TestDiffAddedAndRemovedPropertyNames(t *testing.T) {
	ws := newWorkspaceNode(t)
	wsNode, _ := AsNode(ws)
	keep := domain.NewQName("", "keep")
	dropped := domain.NewQName("", "dropped")
	wsNode.AddPropertyName(keep)
	wsNode.AddPropertyName(dropped)

	session := newItemState(true, domain.LayerSession, domain.StatusExisting)
	session.node = &nodeData{nodeListeners: NewListenerSet[domain.NodeStateListener]()}
	sessionNode, _ := AsNode(session)
	sessionNode.Copy(wsNode)
	if err := session.Connect(ws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	added := domain.NewQName("", "added")
	sessionNode.AddPropertyName(added)
	sessionNode.RemovePropertyName(dropped)

	gotAdded := sessionNode.AddedPropertyNames()
	if len(gotAdded) != 1 || gotAdded[0] != added {
		t.Fatalf("addedPropertyNames = %v, want [added]", gotAdded)
	}
	gotRemoved := sessionNode.RemovedPropertyNames()
	if len(gotRemoved) != 1 || gotRemoved[0] != dropped {
		t.Fatalf("removedPropertyNames = %v, want [dropped]", gotRemoved)
	}
}

func TestDiffAddedAndRemovedChildNodeEntries(t *testing.T) {
	ws := newWorkspaceNode(t)
	wsNode, _ := AsNode(ws)
	foo := domain.NewQName("", "foo")
	removedID := mustNewID(t)
	wsNode.Children().Add(foo, removedID)

	session := newItemState(true, domain.LayerSession, domain.StatusExisting)
	session.node = &nodeData{nodeListeners: NewListenerSet[domain.NodeStateListener]()}
	sessionNode, _ := AsNode(session)
	sessionNode.Copy(wsNode)
	if err := session.Connect(ws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessionNode.Children().RemoveByID(removedID)
	bar := domain.NewQName("", "bar")
	addedEntry := sessionNode.AddChildNodeEntry(bar, mustNewID(t))

	added := sessionNode.AddedChildNodeEntries()
	if len(added) != 1 || added[0] != addedEntry {
		t.Fatalf("addedChildNodeEntries = %v, want [addedEntry]", added)
	}
	removed := sessionNode.RemovedChildNodeEntries()
	if len(removed) != 1 || !removed[0].ID().Equal(removedID) {
		t.Fatalf("removedChildNodeEntries = %v, want [removedID]", removed)
	}
}

func TestRenameChildNodeEntryFiresRemoveThenAdd(t *testing.T) {
	ws := newWorkspaceNode(t)
	wsNode, _ := AsNode(ws)
	oldName := domain.NewQName("", "old")
	newName := domain.NewQName("", "new")
	id := mustNewID(t)
	wsNode.Children().Add(oldName, id)

	var events []string
	l := &recordingNodeListener{onAdd: func(name domain.QName, index int, id domain.NodeID) {
		events = append(events, "add:"+name.Local)
	}, onRemove: func(name domain.QName, index int, id domain.NodeID) {
		events = append(events, "remove:"+name.Local)
	}}
	AddListener(wsNode.node.nodeListeners, l)

	ok, err := wsNode.RenameChildNodeEntry(oldName, domain.DefaultIndex, newName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected rename to report success")
	}
	if len(events) != 2 || events[0] != "remove:old" || events[1] != "add:new" {
		t.Fatalf("events = %v, want [remove:old add:new]", events)
	}
	if wsNode.Children().GetByNameIndex(oldName, domain.DefaultIndex) != nil {
		t.Fatalf("old name should no longer be present")
	}
	if wsNode.Children().GetByNameIndex(newName, domain.DefaultIndex) == nil {
		t.Fatalf("new name should be present")
	}
}

type recordingNodeListener struct {
	onAdd    func(name domain.QName, index int, id domain.NodeID)
	onRemove func(name domain.QName, index int, id domain.NodeID)
}

func (l *recordingNodeListener) NodeAdded(parent domain.ItemStateView, name domain.QName, index int, id domain.NodeID) {
	l.onAdd(name, index, id)
}

func (l *recordingNodeListener) NodeRemoved(parent domain.ItemStateView, name domain.QName, index int, id domain.NodeID) {
	l.onRemove(name, index, id)
}

func (l *recordingNodeListener) NodesReplaced(parent domain.ItemStateView) {}
