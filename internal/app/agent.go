package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/ports"
	"github.com/bft-labs/greenfinch/pkg/log"
)

// Agent runs flush cycles against the queue store. A cycle takes a snapshot
// of one category queue, drains it through the Flusher and hands the
// remainder back to the store. Cycles for the same category are serialized
// so at most one batch per category is in flight.
type Agent struct {
	store   ports.QueueStore
	flusher *Flusher
	logger  ports.Logger

	autoEvents atomic.Int32
	locks      map[domain.Category]*sync.Mutex
	ticks      singleflight.Group
	newID      func() string
}

// NewAgent creates an agent. The flusher's queue updater should be the same
// store so intermediate progress is recorded.
func NewAgent(store ports.QueueStore, flusher *Flusher, logger ports.Logger) *Agent {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	a := &Agent{
		store:   store,
		flusher: flusher,
		logger:  logger,
		locks:   make(map[domain.Category]*sync.Mutex),
		newID:   uuid.NewString,
	}
	for _, c := range domain.Categories() {
		a.locks[c] = &sync.Mutex{}
	}
	return a
}

// SetAutomaticEvents updates the automatic events setting used by later cycles.
func (a *Agent) SetAutomaticEvents(v domain.AutoEvents) {
	a.autoEvents.Store(int32(v))
}

// AutomaticEvents returns the current automatic events setting.
func (a *Agent) AutomaticEvents() domain.AutoEvents {
	return domain.AutoEvents(a.autoEvents.Load())
}

// FlushCategory runs one flush cycle for category and returns the number of
// records left in the queue snapshot.
func (a *Agent) FlushCategory(ctx context.Context, category domain.Category) (int, error) {
	mu, ok := a.locks[category]
	if !ok {
		return 0, fmt.Errorf("flush %q: %w", category, domain.ErrUnknownCategory)
	}
	mu.Lock()
	defer mu.Unlock()

	ctx = a.withCycle(ctx)
	logger := loggerFrom(ctx, a.logger)

	snapshot := a.store.Snapshot(category)
	if len(snapshot) == 0 {
		return 0, nil
	}

	var remaining domain.Queue
	if category == domain.CategoryEvents {
		remaining = a.flusher.FlushEvents(ctx, snapshot, a.AutomaticEvents())
	} else {
		remaining = a.flusher.FlushQueue(ctx, category, snapshot)
	}
	if !a.store.UpdateQueue(category, remaining) {
		logger.Debug("queue reset during flush cycle",
			ports.String("category", string(category)),
		)
		return 0, nil
	}

	logger.Debug("flush cycle finished",
		ports.String("category", string(category)),
		ports.Int("queued", len(snapshot)),
		ports.Int("remaining", len(remaining)),
	)
	return len(remaining), nil
}

// FlushAll flushes every category concurrently. Category order is not defined.
func (a *Agent) FlushAll(ctx context.Context) error {
	ctx = a.withCycle(ctx)

	var g errgroup.Group
	for _, c := range domain.Categories() {
		g.Go(func() error {
			_, err := a.FlushCategory(ctx, c)
			return err
		})
	}
	return g.Wait()
}

// FlushTick is the timer entry point. Ticks that arrive while a previous
// tick is still flushing share its result instead of starting a new cycle.
func (a *Agent) FlushTick(ctx context.Context) {
	_, err, shared := a.ticks.Do("tick", func() (any, error) {
		return nil, a.FlushAll(ctx)
	})
	if err != nil {
		a.logger.Error("timed flush failed", ports.Err(err))
	}
	if shared {
		a.logger.Debug("timed flush coalesced with a running cycle")
	}
}

// withCycle tags ctx with a cycle id logger unless one is already present.
func (a *Agent) withCycle(ctx context.Context) context.Context {
	if _, ok := ctx.Value(loggerKey{}).(ports.Logger); ok {
		return ctx
	}
	return ContextWithLogger(ctx, log.With(a.logger, ports.String("cycle_id", a.newID())))
}
