package state

import "itemstate/pkg/domain"

// ChildCollection is the insertion-ordered multimap of child entries:
// O(1) lookup by id, O(1) lookup of the same-name-sibling list for a name,
// ordered iteration, and a shallow Clone for copy-on-write sharing across
// a session/workspace state pair.
type ChildCollection struct {
	order   []*ChildEntry
	byID    map[string]*ChildEntry
	byName  map[domain.QName][]*ChildEntry
	metrics MetricsRecorder
}

// NewChildCollection builds an empty collection.
func NewChildCollection() *ChildCollection {
	return &ChildCollection{
		byID:   make(map[string]*ChildEntry),
		byName: make(map[domain.QName][]*ChildEntry),
	}
}

// SetMetrics installs an optional MetricsRecorder, replacing the default
// no-op, and propagates it to every currently held entry's reference so
// resolution hit/miss accounting stays consistent after a manager attaches
// metrics post-construction.
func (c *ChildCollection) SetMetrics(m MetricsRecorder) {
	if m == nil {
		m = defaultMetrics
	}
	c.metrics = m
	for _, entry := range c.order {
		entry.ref.SetMetrics(m)
	}
}

func (c *ChildCollection) metricsRecorder() MetricsRecorder {
	if c.metrics == nil {
		return defaultMetrics
	}
	return c.metrics
}

func idKey(id domain.NodeID) string {
	return id.String()
}

// Len reports the number of entries.
func (c *ChildCollection) Len() int {
	return len(c.order)
}

// All returns the entries in insertion order. The slice is owned by the
// caller; callers must not mutate the collection concurrently with reading
// it without the owning node state's monitor.
func (c *ChildCollection) All() []*ChildEntry {
	out := make([]*ChildEntry, len(c.order))
	copy(out, c.order)
	return out
}

// GetByID returns the entry for id, or nil.
func (c *ChildCollection) GetByID(id domain.NodeID) *ChildEntry {
	return c.byID[idKey(id)]
}

// GetByName returns the same-name-sibling list for name, in insertion
// order, as an unmodifiable (defensively copied) slice. Empty if none.
func (c *ChildCollection) GetByName(name domain.QName) []*ChildEntry {
	siblings := c.byName[name]
	if len(siblings) == 0 {
		return nil
	}
	out := make([]*ChildEntry, len(siblings))
	copy(out, siblings)
	return out
}

// GetByNameIndex returns the entry at the 1-based SNS position, or nil if
// index is out of range. index < 1 is treated as out of range.
func (c *ChildCollection) GetByNameIndex(name domain.QName, index int) *ChildEntry {
	if index < domain.DefaultIndex {
		return nil
	}
	siblings := c.byName[name]
	if index > len(siblings) {
		return nil
	}
	return siblings[index-1]
}

// IndexOf reports entry's 1-based position within its name group, freshly
// computed (the index must never be cached on the entry). ok is false
// once the entry has been detached.
func (c *ChildCollection) IndexOf(entry *ChildEntry) (index int, ok bool) {
	if entry == nil {
		return 0, false
	}
	siblings := c.byName[entry.name]
	for i, e := range siblings {
		if e == entry {
			return i + 1, true
		}
	}
	return 0, false
}

// Add appends a new entry under name/id to the tail of insertion order,
// joining the same-name-sibling list for name if one already exists.
func (c *ChildCollection) Add(name domain.QName, id domain.NodeID) *ChildEntry {
	entry := NewChildEntry(name, id)
	entry.ref.SetMetrics(c.metricsRecorder())
	c.order = append(c.order, entry)
	c.byName[name] = append(c.byName[name], entry)
	c.byID[idKey(id)] = entry
	c.metricsRecorder().ChildCollectionMutation("add")
	return entry
}

// Reorder moves entry so that it immediately precedes the entry identified
// by beforeID within the overall insertion order, or to the tail if
// beforeID is the zero NodeID or unknown. It does not change entry's name
// group membership, only its position. No-op if entry is not present.
func (c *ChildCollection) Reorder(entry *ChildEntry, beforeID domain.NodeID) {
	if entry == nil {
		return
	}
	pos := -1
	for i, e := range c.order {
		if e == entry {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	c.order = append(c.order[:pos], c.order[pos+1:]...)

	target := -1
	if beforeID.HasUUID() || beforeID.IsAnchored() {
		if before := c.byID[idKey(beforeID)]; before != nil {
			for i, e := range c.order {
				if e == before {
					target = i
					break
				}
			}
		}
	}
	if target < 0 {
		c.order = append(c.order, entry)
	} else {
		c.order = append(c.order[:target], append([]*ChildEntry{entry}, c.order[target:]...)...)
	}

	reinserted := make([]*ChildEntry, 0, len(c.byName[entry.name]))
	for _, e := range c.order {
		if e.name == entry.name {
			reinserted = append(reinserted, e)
		}
	}
	c.byName[entry.name] = reinserted
	c.metricsRecorder().ChildCollectionMutation("reorder")
}

// RemoveByNameIndex detaches and returns the entry at the 1-based SNS
// position, or nil if absent. Returns a domain.Error of KindIllegalArgument
// if index < 1.
func (c *ChildCollection) RemoveByNameIndex(name domain.QName, index int) (*ChildEntry, error) {
	if index < domain.DefaultIndex {
		return nil, domain.NewIllegalArgument("child index %d is 1-based", index)
	}
	siblings := c.byName[name]
	if index > len(siblings) {
		return nil, nil
	}
	entry := siblings[index-1]
	c.detach(name, entry, siblings, index-1)
	return entry, nil
}

// RemoveByID detaches and returns the entry for id, or nil if absent.
func (c *ChildCollection) RemoveByID(id domain.NodeID) *ChildEntry {
	entry := c.byID[idKey(id)]
	if entry == nil {
		return nil
	}
	pos, ok := c.IndexOf(entry)
	if !ok {
		return nil
	}
	siblings := c.byName[entry.name]
	c.detach(entry.name, entry, siblings, pos-1)
	return entry
}

// RemoveEntry detaches entry, if it is still present.
func (c *ChildCollection) RemoveEntry(entry *ChildEntry) *ChildEntry {
	if entry == nil {
		return nil
	}
	return c.RemoveByID(entry.id)
}

func (c *ChildCollection) detach(name domain.QName, entry *ChildEntry, siblings []*ChildEntry, pos int) {
	remaining := make([]*ChildEntry, 0, len(siblings)-1)
	remaining = append(remaining, siblings[:pos]...)
	remaining = append(remaining, siblings[pos+1:]...)
	if len(remaining) == 0 {
		delete(c.byName, name)
	} else {
		c.byName[name] = remaining
	}
	delete(c.byID, idKey(entry.id))
	for i, e := range c.order {
		if e == entry {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	entry.removed = true
	c.metricsRecorder().ChildCollectionMutation("remove")
}

// removeAll returns the entries present in c but not in other, matching by
// (name, id) and ignoring index, preserving c's insertion order. It does
// not mutate either collection.
func (c *ChildCollection) removeAll(other *ChildCollection) []*ChildEntry {
	if len(c.order) == 0 {
		return nil
	}
	if other == nil || len(other.order) == 0 {
		return c.All()
	}
	var result []*ChildEntry
	for _, entry := range c.order {
		otherEntry := other.byID[idKey(entry.id)]
		if otherEntry != nil && otherEntry.name == entry.name {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// retainAll returns the entries present in both c and other, matching by
// (name, id) and ignoring index, preserving c's insertion order.
func (c *ChildCollection) retainAll(other *ChildCollection) []*ChildEntry {
	if len(c.order) == 0 || other == nil || len(other.order) == 0 {
		return nil
	}
	var result []*ChildEntry
	for _, entry := range c.order {
		otherEntry := other.byID[idKey(entry.id)]
		if otherEntry != nil && otherEntry.name == entry.name {
			result = append(result, entry)
		}
	}
	return result
}

// Clone returns a shallow copy: new outer structures, shared entry
// pointers ("entries are shared; they are value-like
// after construction").
func (c *ChildCollection) Clone() *ChildCollection {
	clone := NewChildCollection()
	clone.order = append([]*ChildEntry(nil), c.order...)
	for k, v := range c.byID {
		clone.byID[k] = v
	}
	for name, siblings := range c.byName {
		clone.byName[name] = append([]*ChildEntry(nil), siblings...)
	}
	return clone
}

// detectReordered computes the entries of current whose relative position
// changed vs. overlayed The lockstep walk includes a
// one-step lookahead so that when entry i of "ours" matches entry i+1 of
// "others", the entry actually responsible for the displacement (the one
// at "others[i]") is searched for in "ours" and reported instead of the one
// that merely shifted to make room. The algorithm is stable, not minimal.
func detectReordered(current, overlayed *ChildCollection) []*ChildEntry {
	if overlayed == nil {
		return nil
	}
	ours := current.retainAll(overlayed)
	others := overlayed.retainAll(current)
	if len(ours) == 0 || len(others) == 0 {
		return nil
	}

	var reordered []*ChildEntry
	i := 0
	for i < len(ours) {
		entry := ours[i]
		other := others[i]
		if entry.sameIdentity(other) {
			i++
			continue
		}

		if i+1 < len(ours) && entry.id.Equal(others[i+1].id) {
			for j := i; j < len(ours); j++ {
				if ours[j].id.Equal(other.id) {
					entry = ours[j]
					break
				}
			}
		}

		reordered = append(reordered, entry)
		ours = removeIDFrom(ours, i, entry.id)
		others = removeIDFrom(others, i, entry.id)
		// i intentionally not advanced: removal shifted later entries up.
	}
	return reordered
}

func removeIDFrom(list []*ChildEntry, from int, id domain.NodeID) []*ChildEntry {
	out := make([]*ChildEntry, 0, len(list))
	out = append(out, list[:from]...)
	for _, e := range list[from:] {
		if !e.id.Equal(id) {
			out = append(out, e)
		}
	}
	return out
}
