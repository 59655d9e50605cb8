package domain

import "errors"

// Domain errors represent error conditions in the greenfinch domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("greenfinch: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("greenfinch: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("greenfinch: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("greenfinch: invalid configuration")

	// ErrBackoffActive is returned by a batch sender that skipped the request
	// because the failure backoff window is still open. Nothing was sent.
	ErrBackoffActive = errors.New("greenfinch: requests suspended by backoff")

	// ErrUnknownCategory is returned for a category name outside events/people/groups.
	ErrUnknownCategory = errors.New("greenfinch: unknown category")
)
