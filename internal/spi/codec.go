package spi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"itemstate/pkg/domain"
)

// Backend storage keys need a round-trippable id encoding; domain.NodeID's
// own String() is documented as diagnostics-only ("never parsed back"), so
// this is a collaborator-side concern, not a core one.

const (
	nodeUUIDPrefix    = "u\x1f"
	nodeAnchorPrefix  = "a\x1f"
	fieldSep          = "\x1f"
	pathElementSep    = "\x1e"
	pathElementFields = "\x1d"
)

// EncodeNodeID renders id as a round-trippable string key.
func EncodeNodeID(id domain.NodeID) string {
	if id.HasUUID() {
		return nodeUUIDPrefix + id.UUID.String()
	}
	if id.IsAnchored() {
		return nodeAnchorPrefix + id.AnchorUUID.String() + fieldSep + encodePath(id.RelativePath)
	}
	return ""
}

// DecodeNodeID parses a string produced by EncodeNodeID. The empty string,
// produced by encoding the zero NodeID (used as the reorder "move to tail"
// sentinel), decodes back to the zero NodeID.
func DecodeNodeID(s string) (domain.NodeID, error) {
	switch {
	case s == "":
		return domain.NodeID{}, nil
	case strings.HasPrefix(s, nodeUUIDPrefix):
		u, err := uuid.Parse(strings.TrimPrefix(s, nodeUUIDPrefix))
		if err != nil {
			return domain.NodeID{}, fmt.Errorf("decode node id %q: %w", s, err)
		}
		return domain.NewUUIDNodeID(u), nil
	case strings.HasPrefix(s, nodeAnchorPrefix):
		rest := strings.TrimPrefix(s, nodeAnchorPrefix)
		parts := strings.SplitN(rest, fieldSep, 2)
		if len(parts) != 2 {
			return domain.NodeID{}, fmt.Errorf("decode node id %q: malformed anchor", s)
		}
		anchor, err := uuid.Parse(parts[0])
		if err != nil {
			return domain.NodeID{}, fmt.Errorf("decode node id %q: %w", s, err)
		}
		path, err := decodePath(parts[1])
		if err != nil {
			return domain.NodeID{}, fmt.Errorf("decode node id %q: %w", s, err)
		}
		return domain.NewAnchoredNodeID(anchor, path), nil
	default:
		return domain.NodeID{}, fmt.Errorf("decode node id %q: unrecognized form", s)
	}
}

func encodeQName(q domain.QName) string {
	return q.Namespace + pathElementFields + q.Local
}

func decodeQName(s string) (domain.QName, error) {
	parts := strings.SplitN(s, pathElementFields, 2)
	if len(parts) != 2 {
		return domain.QName{}, fmt.Errorf("decode qname %q: malformed", s)
	}
	return domain.NewQName(parts[0], parts[1]), nil
}

func encodePath(p domain.Path) string {
	elems := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		elems[i] = encodeQName(e.Name) + pathElementFields + strconv.Itoa(e.Index)
	}
	return strings.Join(elems, pathElementSep)
}

func decodePath(s string) (domain.Path, error) {
	if s == "" {
		return domain.RootPath(), nil
	}
	rawElems := strings.Split(s, pathElementSep)
	elems := make([]domain.PathElement, len(rawElems))
	for i, raw := range rawElems {
		parts := strings.Split(raw, pathElementFields)
		if len(parts) != 3 {
			return domain.Path{}, fmt.Errorf("decode path %q: malformed element %q", s, raw)
		}
		idx, err := strconv.Atoi(parts[2])
		if err != nil {
			return domain.Path{}, fmt.Errorf("decode path %q: %w", s, err)
		}
		elems[i] = domain.NewPathElement(domain.NewQName(parts[0], parts[1]), idx)
	}
	return domain.Path{Elements: elems}, nil
}

// EncodePropertyID renders id as a round-trippable string key.
func EncodePropertyID(id domain.PropertyID) string {
	return EncodeNodeID(id.ParentID) + fieldSep + encodeQName(id.Name)
}

// DecodePropertyID parses a string produced by EncodePropertyID.
func DecodePropertyID(s string) (domain.PropertyID, error) {
	// The node portion may itself contain fieldSep (anchor ids), so find the
	// split by re-decoding the qname suffix, which always has exactly one
	// pathElementFields separator and no fieldSep.
	for cut := len(s); ; {
		sep := strings.LastIndex(s[:cut], fieldSep)
		if sep < 0 {
			return domain.PropertyID{}, fmt.Errorf("decode property id %q: malformed", s)
		}
		nodePart, namePart := s[:sep], s[sep+len(fieldSep):]
		parent, err := DecodeNodeID(nodePart)
		if err == nil {
			name, err := decodeQName(namePart)
			if err == nil {
				return domain.NewPropertyID(parent, name), nil
			}
		}
		cut = sep
		if cut == 0 {
			return domain.PropertyID{}, fmt.Errorf("decode property id %q: malformed", s)
		}
	}
}
