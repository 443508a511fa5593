package domain

import "github.com/google/uuid"

// NodeID identifies a node either by a stable UUID or, for nodes lacking
// stable identity, by a relative path anchored at a UUID ancestor.
type NodeID struct {
	UUID         uuid.UUID
	AnchorUUID   uuid.UUID
	RelativePath Path
	hasUUID      bool
	hasAnchor    bool
}

// NewUUIDNodeID builds an id backed directly by a UUID.
func NewUUIDNodeID(id uuid.UUID) NodeID {
	return NodeID{UUID: id, hasUUID: true}
}

// NewAnchoredNodeID builds an id for a node with no stable identity of its
// own, addressed by a relative path from a UUID-bearing ancestor.
func NewAnchoredNodeID(anchor uuid.UUID, relative Path) NodeID {
	return NodeID{AnchorUUID: anchor, RelativePath: relative, hasAnchor: true}
}

// HasUUID reports whether this id carries a direct UUID.
func (id NodeID) HasUUID() bool { return id.hasUUID }

// IsAnchored reports whether this id is an anchor-plus-relative-path id.
func (id NodeID) IsAnchored() bool { return id.hasAnchor }

// Equal reports whether two ids resolve to the same node: that means
// matching representation (both direct UUIDs that match, or both anchored
// the same way) since resolving an anchored id to a canonical UUID is a
// collaborator concern the core does not perform.
func (id NodeID) Equal(other NodeID) bool {
	if id.hasUUID != other.hasUUID || id.hasAnchor != other.hasAnchor {
		return false
	}
	if id.hasUUID {
		return id.UUID == other.UUID
	}
	if id.hasAnchor {
		return id.AnchorUUID == other.AnchorUUID && pathEqual(id.RelativePath, other.RelativePath)
	}
	return true
}

// String renders the id for diagnostics; never parsed back.
func (id NodeID) String() string {
	if id.hasUUID {
		return id.UUID.String()
	}
	if id.hasAnchor {
		return id.AnchorUUID.String() + ":" + id.RelativePath.String()
	}
	return "<unidentified>"
}

func pathEqual(a, b Path) bool {
	if len(a.Elements) != len(b.Elements) {
		return false
	}
	for i := range a.Elements {
		if a.Elements[i] != b.Elements[i] {
			return false
		}
	}
	return true
}

// PropertyID identifies a property by its owning node and qualified name.
// Unique per workspace.
type PropertyID struct {
	ParentID NodeID
	Name     QName
}

// NewPropertyID builds a property id from its parent node and name.
func NewPropertyID(parent NodeID, name QName) PropertyID {
	return PropertyID{ParentID: parent, Name: name}
}

// Equal reports id equality.
func (id PropertyID) Equal(other PropertyID) bool {
	return id.ParentID.Equal(other.ParentID) && id.Name == other.Name
}

// String renders the id for diagnostics.
func (id PropertyID) String() string {
	return id.ParentID.String() + "/@" + id.Name.String()
}

// IDFactory mints property ids from a parent node id and name, and mints
// fresh node UUIDs for newly created nodes. It is the clock-independent
// collaborator referenced by 
type IDFactory interface {
	NewNodeID() NodeID
	NewPropertyID(parent NodeID, name QName) PropertyID
}

// UUIDIDFactory is the default IDFactory, minting random UUIDv4 node ids via
// github.com/google/uuid. Property ids are always (parent, name) pairs, so
// no separate minting is needed for them beyond composition.
type UUIDIDFactory struct{}

// NewNodeID mints a random UUID-backed node id.
func (UUIDIDFactory) NewNodeID() NodeID {
	return NewUUIDNodeID(uuid.New())
}

// NewPropertyID composes a property id from parent and name.
func (UUIDIDFactory) NewPropertyID(parent NodeID, name QName) PropertyID {
	return NewPropertyID(parent, name)
}
