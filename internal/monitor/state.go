package monitor

import (
	"sync"
	"time"

	"strap-monitor.klederson.com/internal/encoder"
)

// Phase is where the link loop currently is.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseConnecting
	PhaseConnected
	PhaseWaiting
)

func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "SCANNING"
	case PhaseConnecting:
		return "CONNECTING"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseWaiting:
		return "WAITING"
	default:
		return "IDLE"
	}
}

// Snapshot is a point-in-time copy of the shared flags.
type Snapshot struct {
	Connected   bool
	Zone        encoder.Zone
	Calibrating bool

	Phase       Phase
	Address     string
	Vendor      string
	RSSI        int16
	ConnectedAt time.Time
	LastUpdate  time.Time

	Notifications int
	Reconnects    int
}

// Uptime returns how long the current connection has lasted.
func (s Snapshot) Uptime(now time.Time) time.Duration {
	if !s.Connected || s.ConnectedAt.IsZero() {
		return 0
	}
	return now.Sub(s.ConnectedAt)
}

// State holds the flags shared between the link loop (sole writer) and
// the display loop.
type State struct {
	mu  sync.RWMutex
	cur Snapshot
	now func() time.Time
}

// NewState creates a disconnected State.
func NewState() *State {
	return &State{now: time.Now}
}

// SetPhase records the link loop phase.
func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Phase = p
}

// MarkConnected records a new connection. The strap boots with calibration
// off, so the flag is cleared here.
func (s *State) MarkConnected(addr, vendor string, rssi int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cur.ConnectedAt.IsZero() {
		s.cur.Reconnects++
	}
	s.cur.Connected = true
	s.cur.Phase = PhaseConnected
	s.cur.Address = addr
	s.cur.Vendor = vendor
	s.cur.RSSI = rssi
	s.cur.ConnectedAt = s.now()
	s.cur.Calibrating = false
	s.cur.Zone = encoder.ZoneNone
}

// MarkDisconnected clears the connection, the zone and calibration.
func (s *State) MarkDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.Connected = false
	s.cur.Zone = encoder.ZoneNone
	s.cur.Calibrating = false
	if s.cur.Phase == PhaseConnected || s.cur.Phase == PhaseConnecting {
		s.cur.Phase = PhaseWaiting
	}
}

// SetZone records a zone notification.
func (s *State) SetZone(z encoder.Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.Zone = z
	s.cur.Notifications++
	s.cur.LastUpdate = s.now()
}

// SetCalibrating records the confirmed calibration mode.
func (s *State) SetCalibrating(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Calibrating = on
}

// Connected reports whether a peripheral is currently connected.
func (s *State) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Connected
}

// Calibrating reports the current calibration flag.
func (s *State) Calibrating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Calibrating
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}
