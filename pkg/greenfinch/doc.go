// Package greenfinch provides an embeddable telemetry delivery pipeline.
//
// Greenfinch buffers records in per-category queues (events, people, groups)
// and ships them to an ingestion endpoint in batches. Queues are flushed
// periodically by a timer, on demand with [Greenfinch.Flush], and once more
// on [Greenfinch.Stop] when [Config.FlushOnStop] is set. Repeated request
// failures open a backoff window during which no requests are made.
//
// # Basic Usage
//
//	g, err := greenfinch.New(greenfinch.Config{
//	    Token:       "project-token",
//	    FlushOnStop: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := g.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = g.Track(greenfinch.CategoryEvents, greenfinch.Record{"event": "signup"})
//
//	// ... run until shutdown signal ...
//
//	if err := g.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Delivery Guarantees
//
// Records are delivered at least once until acknowledged. At most one batch
// per category is in flight at any time and records of one category are
// sent in the order they were tracked. Records tracked while a flush is
// running are kept and sent by a later flush.
//
// # Automatic Events
//
// Records whose "event" value starts with "$ae_" are held back while
// [Config.AutomaticEvents] is [AutoEventsUnknown], dropped when it is
// [AutoEventsDisabled] and sent like any other record when it is
// [AutoEventsEnabled]. Use [Greenfinch.SetAutomaticEvents] once the
// setting is known.
//
// # Persistence
//
// Set [Config.QueueDir] to keep queues across restarts. Each category queue
// is written to its own JSON file after every change and loaded by Start.
//
// # Events and Metrics
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe
// lifecycle transitions and send outcomes. [WithMetricsRegisterer] exports
// the same information to Prometheus.
//
// # Plugins
//
// Plugins registered with [WithPlugin] are initialized by Start and receive a
// [Controller] for changing runtime settings. The configwatcher plugin uses
// it to apply configuration file edits without a restart:
//
//	import "github.com/bft-labs/greenfinch/plugins/configwatcher"
//
//	g, err := greenfinch.New(cfg,
//	    greenfinch.WithConfigPath(path),
//	    configwatcher.WithDefaultConfigWatcher(),
//	)
package greenfinch
