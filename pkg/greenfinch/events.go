package greenfinch

import "time"

// State is the lifecycle state of a Greenfinch instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent is emitted after a batch is acknowledged.
type SendSuccessEvent struct {
	Category Category
	Records  int
	Duration time.Duration
}

// SendErrorEvent is emitted after a batch request fails. The records stay
// queued and are retried by a later flush.
type SendErrorEvent struct {
	Category Category
	Records  int
	Error    error
}

// SendDeferredEvent is emitted when a flush stops because the backoff
// window is open.
type SendDeferredEvent struct {
	Category Category
	Pending  int
}

// EvictionEvent is emitted when a full queue drops its oldest records.
type EvictionEvent struct {
	Category Category
	Records  int
}

// EventHandler receives notifications about pipeline activity.
// Methods are called synchronously from flush goroutines and must return
// quickly. Embed BaseEventHandler to implement a subset.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
	OnSendDeferred(event SendDeferredEvent)
	OnEviction(event EvictionEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent)   {}
func (BaseEventHandler) OnSendError(SendErrorEvent)       {}
func (BaseEventHandler) OnSendDeferred(SendDeferredEvent) {}
func (BaseEventHandler) OnEviction(EvictionEvent)         {}
