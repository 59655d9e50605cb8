package greenfinch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/greenfinch/internal/adapters/fs"
	httpadapter "github.com/bft-labs/greenfinch/internal/adapters/http"
	"github.com/bft-labs/greenfinch/internal/adapters/metrics"
	"github.com/bft-labs/greenfinch/internal/app"
	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/ports"
	"github.com/bft-labs/greenfinch/internal/queue"
)

// Greenfinch is a telemetry delivery pipeline that can be embedded in other
// applications. Use New() to create an instance, Track() to queue records
// and Start() to turn on the flush timer.
type Greenfinch struct {
	config    Config
	opts      options
	logger    ports.Logger
	lifecycle *app.Lifecycle

	store     *queue.Store
	backoff   *app.BackoffPolicy
	transport *httpadapter.BatchTransport
	agent     *app.Agent
	interval  *app.FlushInterval
	scheduler *app.Scheduler

	plugins []Plugin

	mu     sync.Mutex
	runCtx context.Context
}

// New creates a new Greenfinch instance with the given configuration.
// The instance is created in StateStopped. Records can be tracked before
// Start; they are sent by the first flush.
func New(cfg Config, opts ...Option) (*Greenfinch, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout})
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	if o.registerer != nil {
		m, err := metrics.NewEmitter(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		emitter.metrics = m
	}

	var repo ports.QueueRepository
	if cfg.QueueDir != "" {
		repo = fs.NewQueueFileRepository(cfg.QueueDir)
	}
	store := queue.NewStore(queue.Config{MaxSize: cfg.MaxQueueSize}, repo, logger)
	store.SetEvictionObserver(emitter)
	if o.registerer != nil {
		if err := metrics.RegisterQueueGauges(o.registerer, store); err != nil {
			return nil, fmt.Errorf("register queue gauges: %w", err)
		}
	}

	backoff := app.NewBackoffPolicy()
	transport, err := httpadapter.NewBatchTransport(httpadapter.TransportConfig{
		Token:               cfg.Token,
		ServiceName:         cfg.ServiceName,
		ServiceURL:          cfg.ServiceURL,
		Debug:               cfg.Debug,
		UseIPForGeolocation: cfg.UseIPForGeolocation,
		Encoding:            httpadapter.PayloadEncoding(cfg.PayloadEncoding),
		Compress:            cfg.Compress,
	}, o.httpClient, backoff, logger)
	if err != nil {
		return nil, err
	}

	flusher := app.NewFlusher(app.FlusherConfig{BatchSize: cfg.BatchSize}, transport, store, logger, emitter)
	agent := app.NewAgent(store, flusher, logger)
	agent.SetAutomaticEvents(cfg.AutomaticEvents)

	interval := app.NewFlushInterval(cfg.FlushInterval)

	return &Greenfinch{
		config:    cfg,
		opts:      o,
		logger:    logger,
		lifecycle: app.NewLifecycle(logger, emitter),
		store:     store,
		backoff:   backoff,
		transport: transport,
		agent:     agent,
		interval:  interval,
		scheduler: app.NewScheduler(interval, agent.FlushTick, logger),
		plugins:   o.plugins,
	}, nil
}

// Start loads persisted queues, initializes plugins and turns on the flush
// timer. Returns an error if already running or if startup fails.
// The provided context is used for every flush until Stop returns.
func (g *Greenfinch) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := g.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.runCtx = runCtx
	g.lifecycle.SetCancel(cancel)

	if err := g.store.Load(runCtx); err != nil {
		g.logger.Error("failed to load queues", ports.Err(err))
		g.lifecycle.Cancel()
		_ = g.lifecycle.TransitionTo(app.StateCrashed, "queue load failed")
		return err
	}

	pluginCfg := PluginConfig{
		ConfigPath: g.opts.configPath,
		Logger:     g.logger,
		Controller: g,
	}
	for i, p := range g.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			g.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			g.shutdownPlugins(g.plugins[:i])
			g.lifecycle.Cancel()
			_ = g.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		g.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	g.scheduler.Start(runCtx)

	g.logger.Info("greenfinch started",
		ports.String("service_url", g.transport.BaseURL()),
		ports.Duration("flush_interval", g.interval.Get()),
		ports.Int("batch_size", g.config.BatchSize),
	)
	return g.lifecycle.TransitionTo(app.StateRunning, "flush timer started")
}

// Stop turns off the flush timer, flushes every queue once when
// Config.FlushOnStop is set and waits for in-flight flushes.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (g *Greenfinch) Stop() error {
	g.mu.Lock()

	if !g.lifecycle.CanStop() {
		g.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := g.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		g.mu.Unlock()
		return err
	}
	runCtx := g.runCtx
	g.mu.Unlock()

	g.scheduler.Stop()
	g.lifecycle.Go(g.scheduler.Wait)
	if g.config.FlushOnStop {
		g.lifecycle.Go(func() {
			if err := g.agent.FlushAll(runCtx); err != nil {
				g.logger.Warn("final flush failed", ports.Err(err))
			}
		})
	}

	err := g.lifecycle.WaitWithTimeout(g.config.ShutdownTimeout)

	// Abort requests still running after the timeout.
	g.lifecycle.Cancel()

	g.shutdownPlugins(g.plugins)

	if err != nil {
		_ = g.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = g.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

func (g *Greenfinch) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			g.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			g.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// Track appends record to the category queue. When the queue is full the
// oldest record is evicted. A persistence error is returned after the
// record has been queued in memory.
func (g *Greenfinch) Track(category Category, record Record) error {
	return g.store.Append(category, record)
}

// Flush sends every queue now and returns once each category has finished
// its cycle. Failed batches stay queued for the next flush.
func (g *Greenfinch) Flush(ctx context.Context) error {
	return g.agent.FlushAll(ctx)
}

// FlushCategory sends one queue now and returns the number of records left.
func (g *Greenfinch) FlushCategory(ctx context.Context, category Category) (int, error) {
	return g.agent.FlushCategory(ctx, category)
}

// SetFlushInterval changes the flush timer period. Zero turns the timer off.
// A positive value flushes every queue immediately and, when running,
// restarts the timer. It never starts a stopped instance.
func (g *Greenfinch) SetFlushInterval(d time.Duration) {
	g.scheduler.SetInterval(d)
}

// FlushInterval returns the flush timer period.
func (g *Greenfinch) FlushInterval() time.Duration {
	return g.interval.Get()
}

// SetAutomaticEvents changes the automatic events setting for later flushes.
func (g *Greenfinch) SetAutomaticEvents(v AutoEvents) {
	g.agent.SetAutomaticEvents(v)
}

// AutomaticEvents returns the automatic events setting.
func (g *Greenfinch) AutomaticEvents() AutoEvents {
	return g.agent.AutomaticEvents()
}

// SetUseIPForGeolocation changes the ip query parameter of later requests.
func (g *Greenfinch) SetUseIPForGeolocation(v bool) {
	g.transport.SetUseIPForGeolocation(v)
}

// QueueLength returns the number of records waiting in a category queue.
func (g *Greenfinch) QueueLength(category Category) int {
	return g.store.Len(category)
}

// Reset empties every queue. A flush in progress finishes its current
// request and then stops without restoring the cleared records.
func (g *Greenfinch) Reset() error {
	return g.store.Reset()
}

// BackoffRemaining returns how long requests stay suspended after repeated
// failures, zero when requests are allowed.
func (g *Greenfinch) BackoffRemaining() time.Duration {
	return g.backoff.Remaining()
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (g *Greenfinch) Status() State {
	return convertState(g.lifecycle.State())
}

// eventEmitterWrapper adapts EventHandler and the metrics emitter to the
// internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
	metrics *metrics.Emitter
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.metrics != nil {
		e.metrics.OnStateChange(previous, current, reason)
	}
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSendSuccess(category domain.Category, records int, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.OnSendSuccess(category, records, duration)
	}
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		Category: category,
		Records:  records,
		Duration: duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(category domain.Category, err error, records int) {
	if e.metrics != nil {
		e.metrics.OnSendError(category, err, records)
	}
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{
		Category: category,
		Records:  records,
		Error:    err,
	})
}

func (e *eventEmitterWrapper) OnSendDeferred(category domain.Category, pending int) {
	if e.metrics != nil {
		e.metrics.OnSendDeferred(category, pending)
	}
	if e.handler == nil {
		return
	}
	e.handler.OnSendDeferred(SendDeferredEvent{
		Category: category,
		Pending:  pending,
	})
}

func (e *eventEmitterWrapper) OnEvict(category domain.Category, records int) {
	if e.metrics != nil {
		e.metrics.OnEvict(category, records)
	}
	if e.handler == nil {
		return
	}
	e.handler.OnEviction(EvictionEvent{
		Category: category,
		Records:  records,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
