package domain

import (
	"strconv"
	"strings"
)

// DefaultIndex is the implicit same-name-sibling index: it is elided from
// textual paths and need never be stored explicitly.
const DefaultIndex = 1

// PathElement is one step of a Path: a name plus an optional 1-based
// same-name-sibling index. Index == DefaultIndex is the common case.
type PathElement struct {
	Name  QName
	Index int
}

// NewPathElement builds an element, normalizing index <= 0 to DefaultIndex.
func NewPathElement(name QName, index int) PathElement {
	if index <= 0 {
		index = DefaultIndex
	}
	return PathElement{Name: name, Index: index}
}

// Path is an ordered sequence of steps from the tree root. The empty Path
// denotes the root itself.
type Path struct {
	Elements []PathElement
}

// RootPath returns the (empty) path of the root node.
func RootPath() Path {
	return Path{}
}

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool {
	return len(p.Elements) == 0
}

// Append returns a new path with element appended; the receiver is left
// unmodified.
func (p Path) Append(element PathElement) Path {
	out := make([]PathElement, len(p.Elements)+1)
	copy(out, p.Elements)
	out[len(p.Elements)] = element
	return Path{Elements: out}
}

// Parent returns the path with its last element dropped and true, or the
// zero Path and false if p is already the root.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Path{}, false
	}
	return Path{Elements: p.Elements[:len(p.Elements)-1]}, true
}

// String renders the path using "/" separators, eliding DefaultIndex.
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	var b strings.Builder
	for _, e := range p.Elements {
		b.WriteByte('/')
		b.WriteString(e.Name.String())
		if e.Index != DefaultIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(e.Index))
			b.WriteByte(']')
		}
	}
	return b.String()
}
