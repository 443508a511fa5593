package memory

import (
	"itemstate/internal/spi"
	"itemstate/pkg/domain"
)

// Snapshot is a JSON-marshalable point-in-time copy of a Service's state,
// used by the sqlite and postgres backends to persist across restarts by
// snapshotting to a single JSON-blob table.
// Ids are stored pre-encoded (spi.EncodeNodeID/EncodePropertyID) rather than
// as domain.NodeID/PropertyID directly, since those carry unexported
// discriminator fields that plain encoding/json would silently drop.
type Snapshot struct {
	Nodes  []NodeSnapshot     `json:"nodes"`
	Props  []PropertySnapshot `json:"props"`
	Events []EventSnapshot    `json:"events"`
}

// NodeSnapshot is the wire form of one node record plus its children.
type NodeSnapshot struct {
	ID            string          `json:"id"`
	PrimaryType   domain.QName    `json:"primary_type"`
	MixinTypes    []domain.QName  `json:"mixin_types"`
	PropertyNames []domain.QName  `json:"property_names"`
	Version       int64           `json:"version"`
	Children      []ChildSnapshot `json:"children"`
}

// ChildSnapshot is the wire form of one child-collection entry.
type ChildSnapshot struct {
	Name domain.QName `json:"name"`
	ID   string       `json:"id"`
}

// PropertySnapshot is the wire form of one property record.
type PropertySnapshot struct {
	ID       string                 `json:"id"`
	Values   []domain.PropertyValue `json:"values"`
	Multiple bool                   `json:"multiple"`
	IsBinary bool                   `json:"is_binary"`
	Version  int64                  `json:"version"`
}

// EventSnapshot is the wire form of one recorded domain.Event.
type EventSnapshot struct {
	Kind      domain.EventKind `json:"kind"`
	SubjectID string           `json:"subject_id"`
	Name      domain.QName     `json:"name"`
	TargetID  string           `json:"target_id"`
}

// ExportState captures the full current state as a Snapshot.
func (s *Service) ExportState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{}
	for key, rec := range s.nodes {
		children := s.children[key]
		cs := make([]ChildSnapshot, len(children))
		for i, c := range children {
			cs[i] = ChildSnapshot{Name: c.Name, ID: spi.EncodeNodeID(c.ID)}
		}
		out.Nodes = append(out.Nodes, NodeSnapshot{
			ID:            key,
			PrimaryType:   rec.PrimaryType,
			MixinTypes:    rec.MixinTypes,
			PropertyNames: rec.PropertyNames,
			Version:       rec.Version,
			Children:      cs,
		})
	}
	for key, rec := range s.props {
		out.Props = append(out.Props, PropertySnapshot{
			ID:       key,
			Values:   rec.Values,
			Multiple: rec.Multiple,
			IsBinary: rec.IsBinary,
			Version:  rec.Version,
		})
	}
	for _, ev := range s.events {
		out.Events = append(out.Events, EventSnapshot{
			Kind:      ev.Kind,
			SubjectID: spi.EncodeNodeID(ev.SubjectID),
			Name:      ev.Name,
			TargetID:  spi.EncodeNodeID(ev.TargetID),
		})
	}
	return out
}

// ImportState replaces the Service's contents with snap, discarding
// whatever was previously held. Malformed ids are skipped rather than
// failing the whole import, since a corrupted single row should not make
// the backend unusable.
func (s *Service) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]spi.NodeRecord, len(snap.Nodes))
	s.children = make(map[string][]spi.ChildRecord, len(snap.Nodes))
	s.props = make(map[string]spi.PropertyRecord, len(snap.Props))
	s.events = make([]domain.Event, 0, len(snap.Events))

	for _, n := range snap.Nodes {
		id, err := spi.DecodeNodeID(n.ID)
		if err != nil {
			continue
		}
		s.nodes[n.ID] = spi.NodeRecord{
			ID:            id,
			PrimaryType:   n.PrimaryType,
			MixinTypes:    n.MixinTypes,
			PropertyNames: n.PropertyNames,
			Version:       n.Version,
		}
		children := make([]spi.ChildRecord, 0, len(n.Children))
		for _, c := range n.Children {
			cid, err := spi.DecodeNodeID(c.ID)
			if err != nil {
				continue
			}
			children = append(children, spi.ChildRecord{Name: c.Name, ID: cid})
		}
		s.children[n.ID] = children
	}
	for _, p := range snap.Props {
		id, err := spi.DecodePropertyID(p.ID)
		if err != nil {
			continue
		}
		s.props[p.ID] = spi.PropertyRecord{
			ID:       id,
			Values:   p.Values,
			Multiple: p.Multiple,
			IsBinary: p.IsBinary,
			Version:  p.Version,
		}
	}
	for _, e := range snap.Events {
		subject, err := spi.DecodeNodeID(e.SubjectID)
		if err != nil {
			continue
		}
		target, err := spi.DecodeNodeID(e.TargetID)
		if err != nil {
			continue
		}
		s.events = append(s.events, domain.Event{Kind: e.Kind, SubjectID: subject, Name: e.Name, TargetID: target})
	}
}
