package state

import (
	"time"

	"itemstate/pkg/domain"
)

// MetricsRecorder observes core events without internal/state depending on
// any metrics library or the internal/metrics collaborator package
// directly, the same narrow-interface-owned-by-the-core pattern as
// ItemStateFactory and CommitPort. internal/metrics.Prometheus and
// internal/metrics.Noop both satisfy this interface structurally.
type MetricsRecorder interface {
	StatusTransition(layer domain.Layer, from, to domain.ItemStatus)
	ListenerNotified(kind string, count int)
	ChildCollectionMutation(op string)
	ResolveDuration(d time.Duration, hit bool)
}

// noopMetrics discards every observation; the default when no
// MetricsRecorder is injected.
type noopMetrics struct{}

func (noopMetrics) StatusTransition(domain.Layer, domain.ItemStatus, domain.ItemStatus) {}
func (noopMetrics) ListenerNotified(string, int)                                       {}
func (noopMetrics) ChildCollectionMutation(string)                                     {}
func (noopMetrics) ResolveDuration(time.Duration, bool)                                {}

var defaultMetrics MetricsRecorder = noopMetrics{}
