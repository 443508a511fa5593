package state

import (
	"context"
	"time"
	"weak"

	"itemstate/pkg/domain"
)

// Resolver looks up a node state by id, minting it from collaborator data
// on first reference. It is the one capability a ChildReference needs, kept
// as an interface so ChildReference does not depend on the concrete Manager
// (which satisfies it).
type Resolver interface {
	ResolveNodeState(ctx context.Context, id domain.NodeID) (*ItemState, error)
}

// ChildReference is the lazy, weakly cached pointer from a parent to a
// child node state. domain.NodeID already distinguishes the UUID and
// anchored-path variants (HasUUID/IsAnchored), so one Go type covers both
// flavors instead of two separate classes.
type ChildReference struct {
	id      domain.NodeID
	cached  weak.Pointer[ItemState]
	metrics MetricsRecorder
}

// NewChildReference builds a reference to id, unresolved.
func NewChildReference(id domain.NodeID) *ChildReference {
	return &ChildReference{id: id}
}

// SetMetrics installs an optional MetricsRecorder, replacing the default
// no-op.
func (r *ChildReference) SetMetrics(m MetricsRecorder) {
	if m == nil {
		m = defaultMetrics
	}
	r.metrics = m
}

func (r *ChildReference) metricsRecorder() MetricsRecorder {
	if r.metrics == nil {
		return defaultMetrics
	}
	return r.metrics
}

// ID returns the referenced node id.
func (r *ChildReference) ID() domain.NodeID {
	return r.id
}

// Resolve returns the referenced item state, using the cached weak handle
// if it is still live. On a cache miss, it delegates to
// resolver and refreshes the cache. Errors are surfaced verbatim from the
// resolver, which is responsible for producing NoSuchItem/ItemStateError as
// appropriate.
func (r *ChildReference) Resolve(ctx context.Context, resolver Resolver) (*ItemState, error) {
	start := time.Now()
	if cached := r.cached.Value(); cached != nil {
		r.metricsRecorder().ResolveDuration(time.Since(start), true)
		return cached, nil
	}
	target, err := resolver.ResolveNodeState(ctx, r.id)
	if err != nil {
		return nil, err
	}
	r.cached = weak.Make(target)
	r.metricsRecorder().ResolveDuration(time.Since(start), false)
	return target, nil
}
