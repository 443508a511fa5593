package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"itemstate/pkg/domain"
)

const (
	metricsNamespace = "itemstate"
	coreSubsystem    = "core"
)

// Prometheus is the Recorder implementation wired into production
// constructors: one CounterVec/HistogramVec per observed dimension,
// registered once at construction via promauto.
type Prometheus struct {
	StatusTransitions      *prometheus.CounterVec
	ListenerNotifications  *prometheus.CounterVec
	ChildCollectionOps     *prometheus.CounterVec
	ResolveDurationSeconds *prometheus.HistogramVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers a fresh set of core metrics against reg. With a
// nil registry the collectors are created but not registered anywhere
// (promauto.With(nil) behavior).
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: coreSubsystem,
				Name:      "status_transitions_total",
				Help:      "Total item-state status transitions by layer, origin, and destination status.",
			},
			[]string{"layer", "from", "to"},
		),
		ListenerNotifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: coreSubsystem,
				Name:      "listener_notifications_total",
				Help:      "Total listener callbacks fired, by listener kind.",
			},
			[]string{"kind"},
		),
		ChildCollectionOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: coreSubsystem,
				Name:      "child_collection_mutations_total",
				Help:      "Total child-collection mutating operations, by operation name.",
			},
			[]string{"op"},
		),
		ResolveDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: coreSubsystem,
				Name:      "resolve_duration_seconds",
				Help:      "Child-reference resolution latency, by cache hit/miss.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"result"},
		),
	}
}

// StatusTransition records a status-gate transition.
func (p *Prometheus) StatusTransition(layer domain.Layer, from, to domain.ItemStatus) {
	p.StatusTransitions.WithLabelValues(layer.String(), from.String(), to.String()).Inc()
}

// ListenerNotified records a batch of listener callbacks of the given kind.
func (p *Prometheus) ListenerNotified(kind string, count int) {
	p.ListenerNotifications.WithLabelValues(kind).Add(float64(count))
}

// ChildCollectionMutation records one child-collection mutating call.
func (p *Prometheus) ChildCollectionMutation(op string) {
	p.ChildCollectionOps.WithLabelValues(op).Inc()
}

// ResolveDuration records a child-reference resolution's latency and
// whether it was served from the weak cache.
func (p *Prometheus) ResolveDuration(d time.Duration, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.ResolveDurationSeconds.WithLabelValues(result).Observe(d.Seconds())
}
