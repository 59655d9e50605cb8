package app

import (
	"sync"
	"time"
)

// Default backoff configuration values.
const (
	DefaultFailuresTillBackoff = 2
	DefaultMinRetryBackoff     = 60 * time.Second
	DefaultMaxRetryBackoff     = 600 * time.Second
)

// BackoffWindow returns how long requests stay suspended after the given
// number of consecutive failures. Below threshold the window is zero;
// from threshold on it starts at min and doubles per extra failure, never
// exceeding max.
func BackoffWindow(failures, threshold int, min, max time.Duration) time.Duration {
	if threshold < 1 {
		threshold = 1
	}
	if failures < threshold {
		return 0
	}
	window := min
	for i := threshold; i < failures; i++ {
		if window >= max {
			break
		}
		window *= 2
	}
	if window > max {
		window = max
	}
	if window < min {
		window = min
	}
	return window
}

// BackoffPolicy counts consecutive request failures for one transport and
// gates new requests while a backoff window is open.
// It is safe for concurrent use.
type BackoffPolicy struct {
	threshold int
	min       time.Duration
	max       time.Duration
	now       func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	window      time.Duration
}

// BackoffOption configures a BackoffPolicy.
type BackoffOption func(*BackoffPolicy)

// WithBackoffClock replaces time.Now.
func WithBackoffClock(now func() time.Time) BackoffOption {
	return func(b *BackoffPolicy) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBackoffLimits overrides threshold and window bounds.
func WithBackoffLimits(threshold int, min, max time.Duration) BackoffOption {
	return func(b *BackoffPolicy) {
		if threshold > 0 {
			b.threshold = threshold
		}
		if min > 0 {
			b.min = min
		}
		if max >= b.min {
			b.max = max
		}
	}
}

// NewBackoffPolicy creates a policy with the default limits.
func NewBackoffPolicy(opts ...BackoffOption) *BackoffPolicy {
	b := &BackoffPolicy{
		threshold: DefaultFailuresTillBackoff,
		min:       DefaultMinRetryBackoff,
		max:       DefaultMaxRetryBackoff,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RequestNotAllowed reports whether the current time is still inside the
// backoff window that started at the last failure.
func (b *BackoffPolicy) RequestNotAllowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.window == 0 {
		return false
	}
	return b.now().Before(b.lastFailure.Add(b.window))
}

// RecordFailure counts one failure. A positive retryAfter raises the window
// once the threshold is reached but never past the maximum.
func (b *BackoffPolicy) RecordFailure(retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	b.window = BackoffWindow(b.failures, b.threshold, b.min, b.max)
	if b.window > 0 && retryAfter > b.window {
		b.window = min(retryAfter, b.max)
	}
}

// RecordSuccess resets the failure count and closes the window.
func (b *BackoffPolicy) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.window = 0
}

// Failures returns the consecutive failure count.
func (b *BackoffPolicy) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Remaining returns how long until requests are allowed again.
func (b *BackoffPolicy) Remaining() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.window == 0 {
		return 0
	}
	if d := b.lastFailure.Add(b.window).Sub(b.now()); d > 0 {
		return d
	}
	return 0
}
