// Package metrics defines the observability boundary: a narrow recorder
// interface plus a Prometheus-backed implementation and a no-op default.
package metrics

import (
	"time"

	"itemstate/pkg/domain"
)

// Recorder observes core events without the core depending on any metrics
// library directly.
type Recorder interface {
	StatusTransition(layer domain.Layer, from, to domain.ItemStatus)
	ListenerNotified(kind string, count int)
	ChildCollectionMutation(op string)
	ResolveDuration(d time.Duration, hit bool)
}

// Noop discards every observation; the default when no Recorder is
// injected.
type Noop struct{}

func (Noop) StatusTransition(domain.Layer, domain.ItemStatus, domain.ItemStatus) {}
func (Noop) ListenerNotified(string, int)                                       {}
func (Noop) ChildCollectionMutation(string)                                     {}
func (Noop) ResolveDuration(time.Duration, bool)                                {}
