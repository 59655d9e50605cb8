package ports

import (
	"context"
	"time"

	"github.com/bft-labs/greenfinch/internal/domain"
)

// BatchSender transmits one batch of records to the ingestion service.
type BatchSender interface {
	// Send delivers batch for the given category.
	// It returns nil when the batch was acknowledged, domain.ErrBackoffActive
	// when the request was skipped because of an open backoff window, and any
	// other error when the request was made and failed.
	Send(ctx context.Context, category domain.Category, batch domain.Queue) error
}

// BackoffGate tracks consecutive send failures and decides whether a new
// request may be made.
type BackoffGate interface {
	// RequestNotAllowed reports whether sends are currently suspended.
	RequestNotAllowed() bool

	// RecordFailure counts a failed request. retryAfter is the server hint,
	// zero when none was given.
	RecordFailure(retryAfter time.Duration)

	// RecordSuccess clears the failure count.
	RecordSuccess()
}
