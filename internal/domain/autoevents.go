package domain

import (
	"fmt"
	"strings"
)

// AutoEvents is the tri-state automatic-events switch. Until the remote
// settings have been resolved the value is AutoEventsUnknown.
type AutoEvents int

const (
	AutoEventsUnknown AutoEvents = iota
	AutoEventsEnabled
	AutoEventsDisabled
)

// String returns the configuration spelling of the value.
func (a AutoEvents) String() string {
	switch a {
	case AutoEventsEnabled:
		return "true"
	case AutoEventsDisabled:
		return "false"
	default:
		return "unknown"
	}
}

// AutoEventsFromBool maps a resolved flag onto AutoEvents.
func AutoEventsFromBool(enabled bool) AutoEvents {
	if enabled {
		return AutoEventsEnabled
	}
	return AutoEventsDisabled
}

// ParseAutoEvents accepts "true"/"false"/"1"/"0" and ""/"unknown".
func ParseAutoEvents(s string) (AutoEvents, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return AutoEventsUnknown, nil
	case "true", "1", "enabled":
		return AutoEventsEnabled, nil
	case "false", "0", "disabled":
		return AutoEventsDisabled, nil
	default:
		return AutoEventsUnknown, fmt.Errorf("invalid automatic events value %q", s)
	}
}
