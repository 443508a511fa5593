// Package memory is an in-process RepositoryService backend: the default
// SPI transport for tests and for short-lived demo sessions that need no
// durability.
package memory

import (
	"context"
	"strconv"
	"sync"

	"itemstate/internal/spi"
	"itemstate/pkg/domain"
)

// Service is a RepositoryService backed by plain maps under a mutex:
// map-of-buckets guarded by a single lock, snapshot-friendly for the
// durable backends to embed.
type Service struct {
	mu sync.Mutex

	nodes    map[string]spi.NodeRecord
	children map[string][]spi.ChildRecord
	props    map[string]spi.PropertyRecord

	staged map[string]stagedChange

	events []domain.Event
}

type stagedChange struct {
	isNode    bool
	remove    bool
	node      spi.NodeRecord
	placement *childPlacement
	children  []spi.ChildRecord
	prop      spi.PropertyRecord
}

// childPlacement is the parent+name a staged node add should be inserted
// under; nil for a staged update to a node already placed in the tree.
type childPlacement struct {
	parent domain.NodeID
	name   domain.QName
}

var _ spi.RepositoryService = (*Service)(nil)

// NewService builds an empty Service.
func NewService() *Service {
	return &Service{
		nodes:    make(map[string]spi.NodeRecord),
		children: make(map[string][]spi.ChildRecord),
		props:    make(map[string]spi.PropertyRecord),
		staged:   make(map[string]stagedChange),
	}
}

// PutNode seeds or overwrites a node record and its children directly,
// bypassing Mutate/staging; used by test setup and by the demo's initial
// tree construction.
func (s *Service) PutNode(rec spi.NodeRecord, children []spi.ChildRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := spi.EncodeNodeID(rec.ID)
	s.nodes[key] = rec
	s.children[key] = append([]spi.ChildRecord(nil), children...)
}

// PutProperty seeds or overwrites a property record directly.
func (s *Service) PutProperty(rec spi.PropertyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[spi.EncodePropertyID(rec.ID)] = rec
}

// StageNode records the node data a subsequent Mutate call touching id
// should apply, standing in for the payload a real SPI call would carry
// alongside the change log's bare ids (see spi.ChangeSet's doc comment). Use
// this for a node already placed in the tree; for a node being inserted as a
// new child, use StageChildAdd instead so the resulting EventNodeAdded is
// addressed at the parent.
func (s *Service) StageNode(rec spi.NodeRecord, children []spi.ChildRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[spi.EncodeNodeID(rec.ID)] = stagedChange{isNode: true, node: rec, children: children}
}

// StageChildAdd is StageNode plus the parent and name the resulting
// EventNodeAdded should carry; children is the new node's own child bucket,
// and Mutate appends the new node to the parent's bucket under name. The
// core's refresh path expects a node-added event's
// SubjectID to be the parent and its Name/TargetID to be the new child's.
func (s *Service) StageChildAdd(rec spi.NodeRecord, parent domain.NodeID, name domain.QName, children []spi.ChildRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[spi.EncodeNodeID(rec.ID)] = stagedChange{
		isNode:    true,
		node:      rec,
		children:  children,
		placement: &childPlacement{parent: parent, name: name},
	}
}

// StageProperty records the property data a subsequent Mutate call
// touching id should apply.
func (s *Service) StageProperty(rec spi.PropertyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[spi.EncodePropertyID(rec.ID)] = stagedChange{isNode: false, prop: rec}
}

// StageRemoveNode marks id for removal on the next Mutate call that touches
// it.
func (s *Service) StageRemoveNode(id domain.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[spi.EncodeNodeID(id)] = stagedChange{isNode: true, remove: true, node: spi.NodeRecord{ID: id}}
}

// StageRemoveProperty marks id for removal on the next Mutate call that
// touches it.
func (s *Service) StageRemoveProperty(id domain.PropertyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[spi.EncodePropertyID(id)] = stagedChange{prop: spi.PropertyRecord{ID: id}, remove: true}
}

// FetchNode returns the current node record for id.
func (s *Service) FetchNode(_ context.Context, id domain.NodeID) (spi.NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[spi.EncodeNodeID(id)]
	if !ok {
		return spi.NodeRecord{}, domain.NewNoSuchItem("node %s not found", id)
	}
	return rec, nil
}

// FetchProperty returns the current property record for id.
func (s *Service) FetchProperty(_ context.Context, id domain.PropertyID) (spi.PropertyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.props[spi.EncodePropertyID(id)]
	if !ok {
		return spi.PropertyRecord{}, domain.NewNoSuchItem("property %s not found", id)
	}
	return rec, nil
}

// ChildIDs returns parent's children in insertion order.
func (s *Service) ChildIDs(_ context.Context, parent domain.NodeID) ([]spi.ChildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spi.ChildRecord(nil), s.children[spi.EncodeNodeID(parent)]...), nil
}

// Poll returns every event recorded since cursor, and the cursor to resume
// from next.
func (s *Service) Poll(_ context.Context, since spi.Cursor) ([]domain.Event, spi.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset, err := cursorOffset(since)
	if err != nil {
		return nil, since, err
	}
	if offset > len(s.events) {
		offset = len(s.events)
	}
	out := append([]domain.Event(nil), s.events[offset:]...)
	return out, spi.Cursor{Token: strconv.Itoa(len(s.events))}, nil
}

func cursorOffset(c spi.Cursor) (int, error) {
	if c.Token == "" {
		return 0, nil
	}
	return strconv.Atoi(c.Token)
}

// Mutate applies every id in log.Log to whatever was staged for it via
// Stage{Node,Property}/StageRemove{Node,Property}, bumping each touched
// record's version and appending a matching domain.Event for Poll to
// surface. Ids with nothing staged are applied as a bare status-touch event
// (no record change) so tests exercising the manager's refresh path without
// caring about payload still see the event stream move.
func (s *Service) Mutate(_ context.Context, log spi.ChangeSet) (spi.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range log.Log.Added {
		s.applyOne(id, domain.EventNodeAdded, domain.EventPropertyAdded)
	}
	for _, id := range log.Log.Modified {
		s.applyOne(id, domain.EventChildReordered, domain.EventPropertyChanged)
	}
	for _, id := range log.Log.Removed {
		s.applyRemoval(id)
	}
	return spi.Cursor{Token: strconv.Itoa(len(s.events))}, nil
}

func (s *Service) applyOne(id domain.TransientID, nodeKind, propKind domain.EventKind) {
	if id.IsNode {
		key := spi.EncodeNodeID(id.NodeID)
		staged, ok := s.staged[key]
		if ok && staged.remove {
			s.applyRemoval(id)
			return
		}
		if ok && staged.isNode {
			staged.node.Version++
			s.nodes[key] = staged.node
			s.children[key] = staged.children
			delete(s.staged, key)
		}
		if ok && staged.placement != nil {
			pkey := spi.EncodeNodeID(staged.placement.parent)
			s.children[pkey] = append(s.children[pkey], spi.ChildRecord{Name: staged.placement.name, ID: id.NodeID})
			s.events = append(s.events, domain.Event{
				Kind:      nodeKind,
				SubjectID: staged.placement.parent,
				Name:      staged.placement.name,
				TargetID:  id.NodeID,
			})
			return
		}
		s.events = append(s.events, domain.Event{Kind: nodeKind, SubjectID: id.NodeID})
		return
	}
	key := spi.EncodePropertyID(id.PropID)
	if staged, ok := s.staged[key]; ok && staged.remove {
		s.applyRemoval(id)
		return
	}
	if staged, ok := s.staged[key]; ok && !staged.isNode {
		staged.prop.Version++
		s.props[key] = staged.prop
		delete(s.staged, key)
	}
	s.events = append(s.events, domain.Event{Kind: propKind, SubjectID: id.PropID.ParentID, Name: id.PropID.Name})
}

func (s *Service) applyRemoval(id domain.TransientID) {
	if id.IsNode {
		key := spi.EncodeNodeID(id.NodeID)
		delete(s.nodes, key)
		delete(s.children, key)
		delete(s.staged, key)
		parent, name, found := s.detachChildEverywhere(id.NodeID)
		event := domain.Event{Kind: domain.EventNodeRemoved, SubjectID: id.NodeID, TargetID: id.NodeID}
		if found {
			event.SubjectID = parent
			event.Name = name
		}
		s.events = append(s.events, event)
		return
	}
	key := spi.EncodePropertyID(id.PropID)
	delete(s.props, key)
	delete(s.staged, key)
	s.events = append(s.events, domain.Event{Kind: domain.EventPropertyRemoved, SubjectID: id.PropID.ParentID, Name: id.PropID.Name})
}

// detachChildEverywhere removes id from whichever parent bucket currently
// lists it as a child, so ChildIDs never returns a dangling entry for a
// removed node, and returns that parent's id and the child's name so
// applyRemoval can address the EventNodeRemoved at the parent.
func (s *Service) detachChildEverywhere(id domain.NodeID) (domain.NodeID, domain.QName, bool) {
	for pkey, kids := range s.children {
		for i, kid := range kids {
			if !kid.ID.Equal(id) {
				continue
			}
			s.children[pkey] = append(kids[:i:i], kids[i+1:]...)
			parent, err := spi.DecodeNodeID(pkey)
			if err != nil {
				return domain.NodeID{}, domain.QName{}, false
			}
			return parent, kid.Name, true
		}
	}
	return domain.NodeID{}, domain.QName{}, false
}
