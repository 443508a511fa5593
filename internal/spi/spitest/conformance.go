// Package spitest holds a RepositoryService conformance suite shared by
// every internal/spi backend: table-driven tests run against more than one
// persistence implementation with the same assertions.
package spitest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"itemstate/internal/spi"
	"itemstate/pkg/domain"
)

// RunConformance exercises newService (expected to return a fresh, empty
// backend) against the RepositoryService contract. Seeding is
// backend-specific, so the caller supplies seedNode/seedProp (wrapping the
// backend's PutNode/PutProperty); the suite then checks FetchNode,
// FetchProperty and ChildIDs against the seeded data, and Mutate+Poll event
// delivery, which every backend must honor identically.
func RunConformance(t *testing.T, newService func() spi.RepositoryService, seedNode func(spi.RepositoryService, spi.NodeRecord, []spi.ChildRecord), seedProp func(spi.RepositoryService, spi.PropertyRecord)) {
	t.Helper()
	ctx := context.Background()

	t.Run("fetch unknown node fails NoSuchItem", func(t *testing.T) {
		svc := newService()
		_, err := svc.FetchNode(ctx, domain.NewUUIDNodeID(uuid.New()))
		if !domain.IsKind(err, domain.KindNoSuchItem) {
			t.Fatalf("want NoSuchItem, got %v", err)
		}
	})

	t.Run("seeded node round-trips with its children", func(t *testing.T) {
		svc := newService()
		id := domain.NewUUIDNodeID(uuid.New())
		childID := domain.NewUUIDNodeID(uuid.New())
		name := domain.NewQName("", "child")
		rec := spi.NodeRecord{ID: id, PrimaryType: domain.NewQName("", "nt:base")}
		children := []spi.ChildRecord{{Name: name, ID: childID}}
		seedNode(svc, rec, children)

		got, err := svc.FetchNode(ctx, id)
		if err != nil {
			t.Fatalf("FetchNode: %v", err)
		}
		if !got.ID.Equal(id) || got.PrimaryType != rec.PrimaryType {
			t.Fatalf("FetchNode mismatch: %+v", got)
		}
		kids, err := svc.ChildIDs(ctx, id)
		if err != nil {
			t.Fatalf("ChildIDs: %v", err)
		}
		if len(kids) != 1 || kids[0].Name != name || !kids[0].ID.Equal(childID) {
			t.Fatalf("ChildIDs mismatch: %+v", kids)
		}
	})

	t.Run("seeded property round-trips", func(t *testing.T) {
		svc := newService()
		parent := domain.NewUUIDNodeID(uuid.New())
		pid := domain.NewPropertyID(parent, domain.NewQName("", "title"))
		rec := spi.PropertyRecord{ID: pid, Values: []domain.PropertyValue{{String: "hello"}}}
		seedProp(svc, rec)

		got, err := svc.FetchProperty(ctx, pid)
		if err != nil {
			t.Fatalf("FetchProperty: %v", err)
		}
		if len(got.Values) != 1 || got.Values[0].String != "hello" {
			t.Fatalf("FetchProperty mismatch: %+v", got)
		}
	})

	t.Run("Poll surfaces events from Mutate in order, advancing the cursor", func(t *testing.T) {
		svc := newService()
		nodeID := domain.NewUUIDNodeID(uuid.New())

		events, cursor, err := svc.Poll(ctx, spi.Cursor{})
		if err != nil {
			t.Fatalf("Poll (empty): %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("want no events yet, got %d", len(events))
		}

		log := domain.ChangeLog{Added: []domain.TransientID{domain.NewTransientNodeID(nodeID)}}
		if _, err := svc.Mutate(ctx, spi.ChangeSet{Log: log}); err != nil {
			t.Fatalf("Mutate: %v", err)
		}

		events, cursor2, err := svc.Poll(ctx, cursor)
		if err != nil {
			t.Fatalf("Poll (after mutate): %v", err)
		}
		if len(events) != 1 || events[0].Kind != domain.EventNodeAdded || !events[0].SubjectID.Equal(nodeID) {
			t.Fatalf("unexpected events: %+v", events)
		}

		events, _, err = svc.Poll(ctx, cursor2)
		if err != nil {
			t.Fatalf("Poll (drained): %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("want no further events, got %d", len(events))
		}
	})
}
