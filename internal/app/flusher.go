package app

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/ports"
	"github.com/bft-labs/greenfinch/pkg/log"
)

// DefaultBatchSize is the maximum number of records per request.
const DefaultBatchSize = 50

// SendEventEmitter is called after every batch attempt.
type SendEventEmitter interface {
	OnSendSuccess(category domain.Category, records int, duration time.Duration)
	OnSendError(category domain.Category, err error, records int)
	OnSendDeferred(category domain.Category, pending int)
}

// FlusherConfig contains configuration for the batching loop.
type FlusherConfig struct {
	BatchSize int
}

// Flusher drains a queue snapshot through a BatchSender, one batch at a time.
// Each acknowledged batch is removed from the front of the working queue and
// the new queue is handed to the QueueUpdater before the next batch is built.
type Flusher struct {
	batchSize int
	sender    ports.BatchSender
	updater   ports.QueueUpdater
	logger    ports.Logger
	emitter   SendEventEmitter
}

// NewFlusher creates a flusher. updater, logger and emitter may be nil.
func NewFlusher(
	config FlusherConfig,
	sender ports.BatchSender,
	updater ports.QueueUpdater,
	logger ports.Logger,
	emitter SendEventEmitter,
) *Flusher {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if updater == nil {
		updater = ports.NopQueueUpdater
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Flusher{
		batchSize: config.BatchSize,
		sender:    sender,
		updater:   updater,
		logger:    logger,
		emitter:   emitter,
	}
}

// BatchSize returns the configured batch size.
func (f *Flusher) BatchSize() int {
	return f.batchSize
}

// FlushEvents flushes the events queue, applying the automatic event rule:
// with autoEvents unknown, "$ae_" records are held back and re-appended to
// the result in their original order; with autoEvents disabled they are
// discarded; with autoEvents enabled they are sent like any other record.
func (f *Flusher) FlushEvents(ctx context.Context, queue domain.Queue, autoEvents domain.AutoEvents) domain.Queue {
	if len(queue) == 0 {
		return queue
	}
	logger := loggerFrom(ctx, f.logger)

	working, held := queue, domain.Queue(nil)
	switch autoEvents {
	case domain.AutoEventsEnabled:
	case domain.AutoEventsDisabled:
		var dropped domain.Queue
		working, dropped = queue.Partition(isUserEvent)
		if len(dropped) > 0 {
			logger.Info("discarding automatic events",
				ports.Int("records", len(dropped)),
			)
		}
	default:
		working, held = queue.Partition(isUserEvent)
		if len(held) > 0 {
			logger.Debug("holding automatic events until their setting is known",
				ports.Int("records", len(held)),
			)
		}
	}

	return f.flush(ctx, domain.CategoryEvents, working, held)
}

// FlushQueue flushes a queue with no automatic event handling.
func (f *Flusher) FlushQueue(ctx context.Context, category domain.Category, queue domain.Queue) domain.Queue {
	if len(queue) == 0 {
		return queue
	}
	return f.flush(ctx, category, queue, nil)
}

// flush runs the batching loop and returns the unsent records followed by held.
// It returns nil once the updater rejects a handoff.
func (f *Flusher) flush(ctx context.Context, category domain.Category, working, held domain.Queue) domain.Queue {
	logger := loggerFrom(ctx, f.logger)

	for len(working) > 0 {
		if ctx.Err() != nil {
			logger.Debug("flush canceled",
				ports.String("category", string(category)),
				ports.Int("pending", len(working)),
			)
			break
		}

		n := min(f.batchSize, len(working))
		batch := working[:n]

		start := time.Now()
		err := f.sender.Send(ctx, category, batch)
		duration := time.Since(start)

		if errors.Is(err, domain.ErrBackoffActive) {
			logger.Debug("send deferred by backoff",
				ports.String("category", string(category)),
				ports.Int("pending", len(working)),
			)
			if f.emitter != nil {
				f.emitter.OnSendDeferred(category, len(working))
			}
			break
		}

		if err != nil {
			fields := []ports.Field{
				ports.String("category", string(category)),
				ports.Int("records", n),
				ports.Err(err),
			}
			var failure *domain.Failure
			if errors.As(err, &failure) {
				fields = append(fields, ports.Stringer("kind", failure.Kind))
				if failure.StatusCode != 0 {
					fields = append(fields, ports.Int("status", failure.StatusCode))
				}
			}
			logger.Warn("send failed", fields...)
			if f.emitter != nil {
				f.emitter.OnSendError(category, err, n)
			}
			break
		}

		working = working[n:]
		logger.Debug("sent batch",
			ports.String("category", string(category)),
			ports.Int("records", n),
			ports.Int("remaining", len(working)),
			ports.Duration("duration", duration),
		)
		if f.emitter != nil {
			f.emitter.OnSendSuccess(category, n, duration)
		}

		if !f.updater.UpdateQueue(category, concat(working, held)) {
			logger.Debug("queue reset during flush, dropping snapshot",
				ports.String("category", string(category)),
				ports.Int("pending", len(working)),
			)
			return nil
		}
	}

	return concat(working, held)
}

func isUserEvent(r domain.Record) bool {
	return !r.IsAutomatic()
}

// concat returns a new queue holding a followed by b.
func concat(a, b domain.Queue) domain.Queue {
	out := make(domain.Queue, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
