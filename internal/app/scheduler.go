package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/greenfinch/internal/ports"
	"github.com/bft-labs/greenfinch/pkg/log"
)

// FlushFunc performs one timer-triggered flush.
type FlushFunc func(ctx context.Context)

// Scheduler fires FlushFunc every FlushInterval. The ticker is created,
// reset and stopped only on the scheduler goroutine; callers reach it
// through a wake channel. Each flush runs on its own goroutine so the
// ticker never waits on the network.
type Scheduler struct {
	interval *FlushInterval
	flush    FlushFunc
	logger   ports.Logger

	mu      sync.Mutex
	running bool
	wake    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc

	flushes sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(interval *FlushInterval, flush FlushFunc, logger ports.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Scheduler{
		interval: interval,
		flush:    flush,
		logger:   logger,
	}
}

// Start launches the scheduler goroutine. Flushes run with ctx, which Stop
// does not cancel. Starting a running scheduler restarts it.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.stopLocked()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wake = make(chan struct{}, 1)
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx, ctx, s.wake, s.done)
}

// Stop halts the ticker. It returns once the scheduler goroutine has exited
// and never waits for an in-progress flush. Stop on a stopped scheduler is
// a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.cancel()
	<-s.done
	s.running = false
	s.cancel = nil
	s.wake = nil
}

// Wait blocks until every flush started by the scheduler has returned.
// Call it after Stop.
func (s *Scheduler) Wait() {
	s.flushes.Wait()
}

// Running reports whether the scheduler goroutine is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetInterval stores d. A positive value triggers an immediate flush. On a
// running scheduler zero cancels the ticker and a positive value restarts it
// from zero. A stopped scheduler stays stopped; its flush runs with a
// background context and is covered by Wait.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.interval.Set(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		if s.interval.Get() > 0 {
			s.trigger(context.Background())
		}
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
		// A reset is already pending and will read the latest interval.
	}
}

func (s *Scheduler) loop(ctx, flushCtx context.Context, wake <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var ticker *time.Ticker
	var tick <-chan time.Time
	reset := func() time.Duration {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		d := s.interval.Get()
		if d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
		}
		return d
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	s.logger.Debug("flush timer started", ports.Duration("interval", reset()))

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.trigger(flushCtx)
		case <-wake:
			d := reset()
			s.logger.Debug("flush interval changed", ports.Duration("interval", d))
			if d > 0 {
				s.trigger(flushCtx)
			}
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	s.flushes.Add(1)
	go func() {
		defer s.flushes.Done()
		s.flush(ctx)
	}()
}
