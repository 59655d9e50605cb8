package domain

import "strings"

// AutomaticEventPrefix marks events generated by the library itself.
const AutomaticEventPrefix = "$ae_"

// Record is a single telemetry item. Values must be JSON-compatible
// (string, number, bool, nil, nested maps and slices).
// A record is never modified once it has been enqueued.
type Record map[string]any

// Name returns the event name stored under the "event" key.
func (r Record) Name() string {
	name, _ := r["event"].(string)
	return name
}

// IsAutomatic reports whether the record is a library-generated event.
func (r Record) IsAutomatic() bool {
	return strings.HasPrefix(r.Name(), AutomaticEventPrefix)
}

// Queue is an ordered sequence of records, oldest first.
type Queue []Record

// Clone returns a copy of the queue that shares no backing array with q.
// Records themselves are immutable and are not copied.
func (q Queue) Clone() Queue {
	if q == nil {
		return nil
	}
	out := make(Queue, len(q))
	copy(out, q)
	return out
}

// Partition splits q into the records that satisfy keep and the rest,
// preserving relative order in both halves.
func (q Queue) Partition(keep func(Record) bool) (kept, rest Queue) {
	for _, r := range q {
		if keep(r) {
			kept = append(kept, r)
		} else {
			rest = append(rest, r)
		}
	}
	return kept, rest
}
