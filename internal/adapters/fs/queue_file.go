// Package fs persists category queues as JSON files.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/greenfinch/internal/domain"
)

const queueFileSuffix = ".queue.json"

// QueueFileRepository implements ports.QueueRepository with one JSON file
// per category.
type QueueFileRepository struct {
	dir string
}

// NewQueueFileRepository creates a repository rooted at dir.
func NewQueueFileRepository(dir string) *QueueFileRepository {
	return &QueueFileRepository{dir: dir}
}

// Load retrieves the saved queue for category.
// Returns an empty queue and nil error if no file exists.
func (r *QueueFileRepository) Load(ctx context.Context, category domain.Category) (domain.Queue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.Path(category))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Queue{}, nil
		}
		return nil, fmt.Errorf("read %s queue: %w", category, err)
	}

	var queue domain.Queue
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("decode %s queue: %w", category, err)
	}
	if queue == nil {
		queue = domain.Queue{}
	}
	return queue, nil
}

// Save persists the queue atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *QueueFileRepository) Save(ctx context.Context, category domain.Category, queue domain.Queue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}

	if queue == nil {
		queue = domain.Queue{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encode %s queue: %w", category, err)
	}

	path := r.Path(category)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s queue: %w", category, err)
	}
	return os.Rename(tmp, path)
}

// Path returns the file that holds category.
func (r *QueueFileRepository) Path(category domain.Category) string {
	return filepath.Join(r.dir, string(category)+queueFileSuffix)
}
