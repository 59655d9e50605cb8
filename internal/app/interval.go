package app

import (
	"sync"
	"time"
)

// DefaultFlushInterval is the period of the automatic flush timer.
const DefaultFlushInterval = 60 * time.Second

// FlushInterval is the shared flush period. Writes are exclusive, reads run
// concurrently. A zero value disables periodic flushing.
type FlushInterval struct {
	mu sync.RWMutex
	d  time.Duration
}

// NewFlushInterval creates an interval holding d. Negative values become zero.
func NewFlushInterval(d time.Duration) *FlushInterval {
	return &FlushInterval{d: max(d, 0)}
}

// Get returns the current interval.
func (f *FlushInterval) Get() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.d
}

// Set stores d and returns the previous value.
func (f *FlushInterval) Set(d time.Duration) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.d
	f.d = max(d, 0)
	return prev
}
