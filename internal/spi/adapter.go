package spi

import (
	"context"
	"time"

	"itemstate/internal/state"
	"itemstate/pkg/domain"
)

// Factory adapts a RepositoryService into state.ItemStateFactory, loading a
// node's own data plus its child collection in one FetchNode+ChildIDs round
// trip.
type Factory struct {
	Service RepositoryService
}

var _ state.ItemStateFactory = Factory{}

// CreateNodeState loads id's record and children from the service and
// builds the workspace node state.
func (f Factory) CreateNodeState(ctx context.Context, id domain.NodeID) (*state.ItemState, error) {
	rec, err := f.Service.FetchNode(ctx, id)
	if err != nil {
		return nil, domain.NewItemStateError(err, "fetching node %s", id)
	}
	children, err := f.Service.ChildIDs(ctx, id)
	if err != nil {
		return nil, domain.NewItemStateError(err, "fetching children of %s", id)
	}
	s := state.NewWorkspaceNodeState(rec.ID, rec.PrimaryType, rec.MixinTypes)
	node, _ := state.AsNode(s)
	for _, name := range rec.PropertyNames {
		node.AddPropertyName(name)
	}
	for _, c := range children {
		node.Children().Add(c.Name, c.ID)
	}
	return s, nil
}

// CreatePropertyState loads id's record from the service and builds the
// workspace property state.
func (f Factory) CreatePropertyState(ctx context.Context, id domain.PropertyID) (*state.ItemState, error) {
	rec, err := f.Service.FetchProperty(ctx, id)
	if err != nil {
		return nil, domain.NewItemStateError(err, "fetching property %s", id)
	}
	return state.NewWorkspacePropertyState(rec.ID, rec.Values, rec.Multiple, rec.IsBinary), nil
}

// Committer adapts a RepositoryService into state.CommitPort for change-log
// egress.
type Committer struct {
	Service RepositoryService
}

var _ state.CommitPort = Committer{}

// Commit hands log to the service's Mutate and wraps any failure as an
// ItemStateError.
func (c Committer) Commit(ctx context.Context, log domain.ChangeLog) error {
	if _, err := c.Service.Mutate(ctx, ChangeSet{Log: log}); err != nil {
		return domain.NewItemStateError(err, "applying change log")
	}
	return nil
}

// Poller runs a RepositoryService's Poll loop on its own goroutine, feeding
// resulting events through a bounded channel into a single dispatch
// goroutine that is the only caller of manager.Refresh -- this keeps the
// core's "never holds a state monitor across a call into factory/manager"
// invariant intact while still allowing concurrent user-thread mutation of
// session states.
type Poller struct {
	service RepositoryService
	manager *state.Manager
	logger  domain.Logger

	events chan domain.Event
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a Poller with a channel of the given capacity for
// backpressure; Poll blocks once the channel is full, which is a
// collaborator concern, not a core one.
func NewPoller(service RepositoryService, manager *state.Manager, logger domain.Logger, bufferSize int) *Poller {
	if logger == nil {
		logger = domain.NoopLogger{}
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Poller{
		service: service,
		manager: manager,
		logger:  logger,
		events:  make(chan domain.Event, bufferSize),
		done:    make(chan struct{}),
	}
}

// Start launches the poll and dispatch goroutines on a context derived from
// ctx; Stop must be called to release them.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.pollLoop(ctx, interval)
	go p.dispatchLoop(ctx)
}

func (p *Poller) pollLoop(ctx context.Context, interval time.Duration) {
	var cursor Cursor
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events, next, err := p.service.Poll(ctx, cursor)
			if err != nil {
				p.logger.Warnf("spi: poll failed: %v", err)
				continue
			}
			cursor = next
			for _, ev := range events {
				select {
				case p.events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (p *Poller) dispatchLoop(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			if err := p.manager.Refresh(ctx, ev); err != nil {
				p.logger.Errorf("spi: refresh failed for %s: %v", ev.SubjectID, err)
			}
		}
	}
}

// Stop cancels both loops and waits for the dispatch goroutine to drain.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}
