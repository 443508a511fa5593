package state

import (
	"testing"

	"itemstate/pkg/domain"
)

func mustNewID(t *testing.T) domain.NodeID {
	t.Helper()
	return domain.UUIDIDFactory{}.NewNodeID()
}

func TestChildCollectionAddAndSNSIndex(t *testing.T) {
	c := NewChildCollection()
	foo := domain.NewQName("", "foo")
	idA := mustNewID(t)
	idB := mustNewID(t)
	idC := mustNewID(t)

	eA := c.Add(foo, idA)
	eB := c.Add(foo, idB)
	eC := c.Add(foo, idC)

	for i, e := range []*ChildEntry{eA, eB, eC} {
		idx, ok := c.IndexOf(e)
		if !ok || idx != i+1 {
			t.Fatalf("entry %d: index = (%d, %v), want (%d, true)", i, idx, ok, i+1)
		}
	}

	if got := c.GetByNameIndex(foo, 2); got != eB {
		t.Fatalf("GetByNameIndex(foo, 2) = %v, want eB", got)
	}
	if got := c.GetByNameIndex(foo, 99); got != nil {
		t.Fatalf("expected nil for out-of-range index")
	}
}

func TestChildCollectionRemoveCollapsesGroup(t *testing.T) {
	c := NewChildCollection()
	foo := domain.NewQName("", "foo")
	idA := mustNewID(t)
	idB := mustNewID(t)
	c.Add(foo, idA)
	eB := c.Add(foo, idB)

	if _, err := c.RemoveByNameIndex(foo, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	idx, ok := c.IndexOf(eB)
	if !ok || idx != 1 {
		t.Fatalf("after collapse, eB index = (%d, %v), want (1, true)", idx, ok)
	}

	if _, err := c.RemoveByNameIndex(foo, 0); err == nil {
		t.Fatalf("expected IllegalArgument for index 0")
	}
}

func TestChildCollectionRemovedEntryReportsNoIndex(t *testing.T) {
	c := NewChildCollection()
	foo := domain.NewQName("", "foo")
	id := mustNewID(t)
	entry := c.Add(foo, id)
	c.RemoveEntry(entry)
	if idx, ok := c.IndexOf(entry); ok || idx != 0 {
		t.Fatalf("removed entry index = (%d, %v), want (0, false)", idx, ok)
	}
}

func TestChildCollectionCloneIsShallowAndIndependent(t *testing.T) {
	c := NewChildCollection()
	foo := domain.NewQName("", "foo")
	id := mustNewID(t)
	c.Add(foo, id)

	clone := c.Clone()
	bar := domain.NewQName("", "bar")
	clone.Add(bar, mustNewID(t))

	if c.Len() != 1 {
		t.Fatalf("original collection mutated by clone mutation: len=%d", c.Len())
	}
	if clone.Len() != 2 {
		t.Fatalf("clone should have 2 entries, got %d", clone.Len())
	}
}

func buildCollection(t *testing.T, names []domain.QName, ids []domain.NodeID) *ChildCollection {
	t.Helper()
	c := NewChildCollection()
	for i := range names {
		c.Add(names[i], ids[i])
	}
	return c
}

func TestDetectReorderedIdentical(t *testing.T) {
	a, b, c3 := mustNewID(t), mustNewID(t), mustNewID(t)
	names := []domain.QName{domain.NewQName("", "a"), domain.NewQName("", "b"), domain.NewQName("", "c")}
	ids := []domain.NodeID{a, b, c3}
	current := buildCollection(t, names, ids)
	overlayed := buildCollection(t, names, ids)

	if got := detectReordered(current, overlayed); len(got) != 0 {
		t.Fatalf("identical order should report no reorders, got %d", len(got))
	}
}

func TestDetectReorderedRotation(t *testing.T) {
	idA, idB, idC := mustNewID(t), mustNewID(t), mustNewID(t)
	nameA, nameB, nameC := domain.NewQName("", "A"), domain.NewQName("", "B"), domain.NewQName("", "C")

	// current = [B, C, A], overlayed = [A, B, C]
	current := buildCollection(t, []domain.QName{nameB, nameC, nameA}, []domain.NodeID{idB, idC, idA})
	overlayed := buildCollection(t, []domain.QName{nameA, nameB, nameC}, []domain.NodeID{idA, idB, idC})

	got := detectReordered(current, overlayed)
	if len(got) != 1 || !got[0].id.Equal(idA) {
		t.Fatalf("expected reordered = [A], got %v", got)
	}
}

func TestDetectReorderedSwap(t *testing.T) {
	idA, idB, idC, idD := mustNewID(t), mustNewID(t), mustNewID(t), mustNewID(t)
	nameA, nameB, nameC, nameD := domain.NewQName("", "A"), domain.NewQName("", "B"), domain.NewQName("", "C"), domain.NewQName("", "D")

	// current = [A, C, B, D], overlayed = [A, B, C, D]
	current := buildCollection(t, []domain.QName{nameA, nameC, nameB, nameD}, []domain.NodeID{idA, idC, idB, idD})
	overlayed := buildCollection(t, []domain.QName{nameA, nameB, nameC, nameD}, []domain.NodeID{idA, idB, idC, idD})

	got := detectReordered(current, overlayed)
	if len(got) == 0 {
		t.Fatalf("expected a non-empty reorder set")
	}
	if !(got[0].id.Equal(idB) || got[0].id.Equal(idC)) {
		t.Fatalf("expected reordered entry to be B or C, got %v", got[0].id)
	}
}
