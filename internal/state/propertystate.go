package state

import "itemstate/pkg/domain"

// PropertyState is a typed view over an *ItemState known to carry property
// data, mirroring NodeState.
type PropertyState struct {
	*ItemState
}

// AsProperty narrows s to a PropertyState, or reports ok=false if s is a
// node state.
func AsProperty(s *ItemState) (PropertyState, bool) {
	if s == nil || s.prop == nil {
		return PropertyState{}, false
	}
	return PropertyState{s}, true
}

// Name returns the property's name.
func (p PropertyState) Name() domain.QName {
	return p.prop.name
}

// IsMultiple reports whether the property holds more than one value.
func (p PropertyState) IsMultiple() bool {
	return p.prop.multiple
}

// IsBinaryValue reports whether the property's values are binary-store
// references rather than inline scalars.
func (p PropertyState) IsBinaryValue() bool {
	return p.prop.isBinary
}

// Values returns a defensive copy of the property's values.
func (p PropertyState) Values() []domain.PropertyValue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PropertyValue(nil), p.prop.values...)
}

// SetValues replaces the property's values, marking the state MODIFIED.
// No-op (and no status transition) if the new values are identical to the
// current ones.
func (p PropertyState) SetValues(values []domain.PropertyValue) error {
	p.mu.Lock()
	if propertyValuesEqual(p.prop.values, values) {
		p.mu.Unlock()
		return nil
	}
	p.prop.values = append([]domain.PropertyValue(nil), values...)
	p.mu.Unlock()
	return p.SetStatus(domain.StatusModified)
}

// Definition returns the property's definition slot, set post-construction
// by the resolver, or nil.
func (p PropertyState) Definition() any {
	return p.prop.definition
}

// SetDefinition attaches the resolved property definition.
func (p PropertyState) SetDefinition(def any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prop.definition = def
}

// Copy re-synchronizes self's values from other (the overlayed twin), the
// resync step used when a session state's workspace twin changes.
func (p PropertyState) Copy(other PropertyState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	p.prop.values = append([]domain.PropertyValue(nil), other.prop.values...)
	p.prop.multiple = other.prop.multiple
	p.prop.isBinary = other.prop.isBinary
}

func propertyValuesEqual(a, b []domain.PropertyValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
