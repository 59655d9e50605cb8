package ports

import (
	"context"

	"github.com/bft-labs/greenfinch/internal/domain"
)

// QueueUpdater receives the new authoritative queue for a category.
// It is called synchronously after every acknowledged batch and once more
// with the final remainder at the end of a flush cycle.
//
// UpdateQueue reports false when the handoff was rejected because the queue
// was reset after the snapshot was taken. The caller must stop working on
// that snapshot.
type QueueUpdater interface {
	UpdateQueue(category domain.Category, queue domain.Queue) bool
}

// QueueUpdaterFunc adapts a function to QueueUpdater. Every update is accepted.
type QueueUpdaterFunc func(category domain.Category, queue domain.Queue)

// UpdateQueue calls f.
func (f QueueUpdaterFunc) UpdateQueue(category domain.Category, queue domain.Queue) bool {
	if f != nil {
		f(category, queue)
	}
	return true
}

// NopQueueUpdater discards queue updates.
var NopQueueUpdater QueueUpdater = QueueUpdaterFunc(nil)

// QueueStore owns the authoritative category queues.
type QueueStore interface {
	QueueUpdater

	// Snapshot returns a copy of the category queue for one flush cycle.
	// The records in the snapshot are the ones a later UpdateQueue replaces.
	Snapshot(category domain.Category) domain.Queue
}

// QueueRepository persists category queues.
type QueueRepository interface {
	// Load returns the saved queue, or an empty queue and nil error if none exists.
	Load(ctx context.Context, category domain.Category) (domain.Queue, error)

	// Save persists the queue atomically.
	Save(ctx context.Context, category domain.Category, queue domain.Queue) error
}
