// Package queue holds the per-category record queues.
//
// The flush engine works on snapshots. Snapshot records how many leading
// records it handed out; UpdateQueue later replaces exactly that prefix with
// whatever the engine has not delivered and keeps everything appended in the
// meantime. Producers and the engine therefore never overwrite each other.
//
// Reset and Load start a new generation of a queue. A handoff from a snapshot
// of an older generation is rejected so a flush that was in flight cannot
// bring back records that were cleared.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/ports"
	"github.com/bft-labs/greenfinch/pkg/log"
)

// Default configuration values.
const (
	DefaultMaxSize        = 5000
	DefaultPersistTimeout = 5 * time.Second
)

// Config configures a Store.
type Config struct {
	// MaxSize caps each category queue; the oldest records are evicted first.
	MaxSize int

	// PersistTimeout bounds a single repository save.
	PersistTimeout time.Duration
}

// EvictionObserver is told how many records were evicted from a category.
type EvictionObserver interface {
	OnEvict(category domain.Category, records int)
}

// Store owns the authoritative queue of every category.
// It implements ports.QueueStore.
type Store struct {
	maxSize        int
	persistTimeout time.Duration
	repo           ports.QueueRepository
	logger         ports.Logger
	observer       EvictionObserver

	mu       sync.Mutex
	queues   map[domain.Category]domain.Queue
	inFlight map[domain.Category]int
	gen      map[domain.Category]uint64
	snapGen  map[domain.Category]uint64
	// dropped counts handed-out records evicted by producers since the
	// snapshot. They were already reported and may come back in the handoff.
	dropped map[domain.Category]int

	// persistMu is taken before mu is released so saves land in mutation order.
	persistMu sync.Mutex
}

// NewStore creates an empty store. repo may be nil for an in-memory store.
func NewStore(config Config, repo ports.QueueRepository, logger ports.Logger) *Store {
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxSize
	}
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = DefaultPersistTimeout
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Store{
		maxSize:        config.MaxSize,
		persistTimeout: config.PersistTimeout,
		repo:           repo,
		logger:         logger,
		queues:         make(map[domain.Category]domain.Queue),
		inFlight:       make(map[domain.Category]int),
		gen:            make(map[domain.Category]uint64),
		snapGen:        make(map[domain.Category]uint64),
		dropped:        make(map[domain.Category]int),
	}
	for _, c := range domain.Categories() {
		s.queues[c] = domain.Queue{}
	}
	return s
}

// SetEvictionObserver registers o. It must be called before the store is shared.
func (s *Store) SetEvictionObserver(o EvictionObserver) {
	s.observer = o
}

// Load replaces every queue with the repository contents.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	for _, c := range domain.Categories() {
		q, err := s.repo.Load(ctx, c)
		if err != nil {
			return fmt.Errorf("load %s queue: %w", c, err)
		}
		s.mu.Lock()
		q, evicted := s.trim(q.Clone())
		s.queues[c] = q
		s.newGeneration(c)
		s.mu.Unlock()
		if evicted > 0 {
			s.logger.Warn("saved queue over capacity, dropped oldest records",
				ports.String("category", string(c)),
				ports.Int("records", evicted),
			)
		}
	}
	return nil
}

// Append adds record to the end of the category queue, evicting the oldest
// record when the queue is full. The record is kept in memory even when
// persisting fails.
func (s *Store) Append(category domain.Category, record domain.Record) error {
	return s.AppendAll(category, []domain.Record{record})
}

// AppendAll adds records to the end of the category queue in order and
// persists the queue once. Evictions are applied as if the records had been
// appended one by one.
func (s *Store) AppendAll(category domain.Category, records []domain.Record) error {
	if !category.Valid() {
		return fmt.Errorf("append to %q: %w", category, domain.ErrUnknownCategory)
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	q, evicted := s.trim(append(s.queues[category], records...))
	s.queues[category] = q
	if evicted > 0 {
		handedOut := s.inFlight[category]
		s.dropped[category] += min(evicted, handedOut)
		s.inFlight[category] = max(handedOut-evicted, 0)
	}
	return s.persistUnlock(category, evicted)
}

// Snapshot returns a copy of the category queue and marks its records as
// handed out for the next UpdateQueue.
func (s *Store) Snapshot(category domain.Category) domain.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[category]
	s.inFlight[category] = len(q)
	s.snapGen[category] = s.gen[category]
	s.dropped[category] = 0
	return q.Clone()
}

// UpdateQueue replaces the handed-out prefix of the category queue with queue.
// Records appended since the snapshot stay behind it. It returns false and
// leaves the queue untouched when the queue was reset after the snapshot.
func (s *Store) UpdateQueue(category domain.Category, queue domain.Queue) bool {
	if !category.Valid() {
		return false
	}

	s.mu.Lock()
	if s.snapGen[category] != s.gen[category] {
		s.mu.Unlock()
		return false
	}

	current := s.queues[category]
	n := min(s.inFlight[category], len(current))
	merged := make(domain.Queue, 0, len(queue)+len(current)-n)
	merged = append(merged, queue...)
	merged = append(merged, current[n:]...)

	merged, evicted := s.trim(merged)
	s.queues[category] = merged
	s.inFlight[category] = max(len(queue)-evicted, 0)

	// Records a producer already evicted can reappear in the handoff and be
	// trimmed again. Count them once.
	reported := max(evicted-s.dropped[category], 0)
	s.dropped[category] = 0

	if err := s.persistUnlock(category, reported); err != nil {
		s.logger.Error("failed to save queue", ports.Err(err))
	}
	return true
}

// Len returns the number of queued records in category.
func (s *Store) Len(category domain.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[category])
}

// Reset empties every queue. A flush holding a snapshot taken before Reset
// has its next handoff rejected.
func (s *Store) Reset() error {
	var errs []error
	for _, c := range domain.Categories() {
		s.mu.Lock()
		s.queues[c] = domain.Queue{}
		s.newGeneration(c)
		if err := s.persistUnlock(c, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newGeneration invalidates every outstanding snapshot of category.
// Caller holds mu.
func (s *Store) newGeneration(category domain.Category) {
	s.gen[category]++
	s.inFlight[category] = 0
	s.dropped[category] = 0
}

// trim drops the oldest records beyond maxSize. Caller holds mu.
func (s *Store) trim(q domain.Queue) (domain.Queue, int) {
	over := len(q) - s.maxSize
	if over <= 0 {
		return q, 0
	}
	return q[over:], over
}

// persistUnlock releases mu and saves the category queue. Caller holds mu.
func (s *Store) persistUnlock(category domain.Category, evicted int) error {
	var snapshot domain.Queue
	if s.repo != nil {
		snapshot = s.queues[category].Clone()
		s.persistMu.Lock()
	}
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Warn("queue full, evicted oldest records",
			ports.String("category", string(category)),
			ports.Int("records", evicted),
		)
		if s.observer != nil {
			s.observer.OnEvict(category, evicted)
		}
	}

	if s.repo == nil {
		return nil
	}
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, category, snapshot); err != nil {
		return fmt.Errorf("persist %s queue: %w", category, err)
	}
	return nil
}
