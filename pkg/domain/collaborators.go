package domain

// NodeStateData is the data a factory hands back to build a workspace
// node state: everything but the definition, which the resolver attaches
// post-construction.
type NodeStateData struct {
	ID            NodeID
	ParentID      NodeID
	HasParent     bool
	PrimaryType   QName
	MixinTypes    []QName
	PropertyNames []QName
	Children      []ChildRecord
}

// ChildRecord is one child-collection entry as reported by a factory.
type ChildRecord struct {
	Name QName
	ID   NodeID
}

// PropertyStateData is the data a factory hands back to build a workspace
// property state.
type PropertyStateData struct {
	ID        PropertyID
	IsBinary  bool
	Values    []PropertyValue
	Multiple  bool
}

// PropertyValue is a single scalar value of a property; binary values carry
// only a blob-store key (see internal/blob at the collaborator boundary).
type PropertyValue struct {
	String    string
	BinaryKey string
}

// Logger is the minimal structured-logging surface injected into core and
// collaborator constructors: a small interface with its own adapters
// rather than a dependency on a third-party logging library directly.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NoopLogger discards every message; the default when no Logger is
// injected.
type NoopLogger struct{}

func (NoopLogger) Debugf(string, ...any) {}
func (NoopLogger) Infof(string, ...any)  {}
func (NoopLogger) Warnf(string, ...any)  {}
func (NoopLogger) Errorf(string, ...any) {}
