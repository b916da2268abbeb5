package monitor

import (
	"fmt"
	"time"

	"strap-monitor.klederson.com/internal/encoder"
)

// EventKind classifies link loop events.
type EventKind int

const (
	EventScanning EventKind = iota
	EventNotFound
	EventConnected
	EventDisconnected
	EventZone
	EventCalibration
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventScanning:
		return "scan"
	case EventNotFound:
		return "miss"
	case EventConnected:
		return "conn"
	case EventDisconnected:
		return "drop"
	case EventZone:
		return "zone"
	case EventCalibration:
		return "cal"
	default:
		return "err"
	}
}

// Event is one entry in the link history.
type Event struct {
	Time        time.Time
	Kind        EventKind
	Zone        encoder.Zone
	Calibrating bool
	Detail      string
	Err         error
}

// Summary renders a one-line description without the timestamp.
func (e Event) Summary() string {
	switch e.Kind {
	case EventScanning:
		return "scanning for " + e.Detail
	case EventNotFound:
		return e.Detail + " not found"
	case EventConnected:
		return "connected " + e.Detail
	case EventDisconnected:
		return "disconnected"
	case EventZone:
		return e.Zone.Label()
	case EventCalibration:
		if e.Calibrating {
			return "calibration ON"
		}
		return "calibration OFF"
	}
	if e.Err != nil {
		if e.Detail != "" {
			return fmt.Sprintf("%s: %v", e.Detail, e.Err)
		}
		return e.Err.Error()
	}
	return e.Detail
}

// EventRing is a circular buffer of recent events.
type EventRing struct {
	buf   []Event
	pos   int
	count int
}

// NewEventRing creates a buffer holding up to capacity events.
func NewEventRing(capacity int) *EventRing {
	if capacity < 1 {
		capacity = 1
	}
	return &EventRing{
		buf: make([]Event, capacity),
	}
}

// Push appends an event, overwriting the oldest when full.
func (r *EventRing) Push(e Event) {
	r.buf[r.pos] = e
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns the stored events in chronological order.
func (r *EventRing) Values() []Event {
	if r.count == 0 {
		return nil
	}
	result := make([]Event, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Zones returns the zones of stored zone events in chronological order.
func (r *EventRing) Zones() []encoder.Zone {
	var zones []encoder.Zone
	for _, e := range r.Values() {
		if e.Kind == EventZone {
			zones = append(zones, e.Zone)
		}
	}
	return zones
}

// Last returns the most recent event.
func (r *EventRing) Last() (Event, bool) {
	if r.count == 0 {
		return Event{}, false
	}
	idx := (r.pos - 1 + len(r.buf)) % len(r.buf)
	return r.buf[idx], true
}

// Len returns the number of stored events.
func (r *EventRing) Len() int {
	return r.count
}
