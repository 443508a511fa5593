// Package domain holds the value types, error kinds, and collaborator
// contracts shared between the item-state engine and its boundary
// collaborators (SPI transport, blob storage, metrics).
package domain

import "fmt"

// QName is a namespace-qualified name. Two QNames are equal, and hash
// identically, whenever their namespace and local parts match.
type QName struct {
	Namespace string
	Local     string
}

// NewQName builds a qualified name from a namespace URI (or prefix key) and
// a local part.
func NewQName(namespace, local string) QName {
	return QName{Namespace: namespace, Local: local}
}

// String renders the name in "{namespace}local" form, or bare "local" when
// the namespace is the empty default.
func (n QName) String() string {
	if n.Namespace == "" {
		return n.Local
	}
	return fmt.Sprintf("{%s}%s", n.Namespace, n.Local)
}

// IsZero reports whether n is the zero QName.
func (n QName) IsZero() bool {
	return n.Namespace == "" && n.Local == ""
}
