package bluetooth

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"strap-monitor.klederson.com/internal/monitor"
)

var (
	ErrNotFound               = errors.New("device not found")
	ErrNotConnected           = errors.New("not connected to device")
	ErrCalibrationUnsupported = errors.New("device has no calibration characteristic")
)

// Advertisement describes a strap seen during a scan.
type Advertisement struct {
	Address string
	Name    string
	RSSI    int16
	Vendor  string
}

// Central finds and connects to the strap.
type Central interface {
	// Enable powers up the underlying adapter.
	Enable() error
	// Find scans until a device advertising name is seen, timeout elapses
	// (ErrNotFound) or ctx is done.
	Find(ctx context.Context, name string, timeout time.Duration) (Advertisement, error)
	// Connect opens a connection and resolves the strap's characteristics.
	Connect(ctx context.Context, adv Advertisement) (Peripheral, error)
}

// Peripheral is a connected strap.
type Peripheral interface {
	Address() string
	// Subscribe enables zone notifications. handler may be called from
	// any goroutine.
	Subscribe(handler func(data []byte)) error
	// WriteCalibration writes to the calibration characteristic.
	WriteCalibration(payload []byte) error
	// Disconnected is closed when the link drops.
	Disconnected() <-chan struct{}
	Disconnect() error
}

// Notifier receives link events; *tea.Program satisfies it.
type Notifier interface {
	Send(msg tea.Msg)
}

// LinkEventMsg is sent to the Notifier for every link event.
type LinkEventMsg struct {
	Event monitor.Event
}
