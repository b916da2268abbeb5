package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"strap-monitor.klederson.com/internal/encoder"
	"strap-monitor.klederson.com/internal/monitor"
)

// LinkConfig tunes the reconnect loop.
type LinkConfig struct {
	DeviceName     string
	ScanTimeout    time.Duration
	RetryDelay     time.Duration // after a scan miss
	ReconnectDelay time.Duration // after a disconnect or failed connect
}

// Link keeps a connection to the strap alive and is the only writer of
// the shared monitor.State.
type Link struct {
	central Central
	state   *monitor.State
	cfg     LinkConfig
	log     zerolog.Logger

	mu       sync.Mutex
	notifier Notifier
	cancel   context.CancelFunc
	done     chan struct{}

	toggles chan struct{}
	now     func() time.Time
}

// NewLink creates a Link. Start or Run drives it.
func NewLink(central Central, state *monitor.State, cfg LinkConfig, log zerolog.Logger) *Link {
	return &Link{
		central: central,
		state:   state,
		cfg:     cfg,
		log:     log.With().Str("component", "link").Str("device", cfg.DeviceName).Logger(),
		toggles: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Start enables the adapter and runs the loop in a goroutine. Link events
// are sent to n, which may be nil.
func (l *Link) Start(n Notifier) error {
	if err := l.central.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	l.mu.Lock()
	l.notifier = n
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		l.loop(ctx)
	}()
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (l *Link) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run enables the adapter and runs the loop until ctx is done.
func (l *Link) Run(ctx context.Context, n Notifier) error {
	if err := l.central.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w", err)
	}
	l.mu.Lock()
	l.notifier = n
	l.mu.Unlock()

	l.loop(ctx)
	return ctx.Err()
}

// ToggleCalibration asks the loop to flip calibration mode. Safe to call
// from any goroutine; requests made while one is pending are coalesced.
func (l *Link) ToggleCalibration() error {
	if !l.state.Connected() {
		l.log.Warn().Msg("not connected to device, cannot toggle calibration mode")
		return ErrNotConnected
	}
	select {
	case l.toggles <- struct{}{}:
	default:
	}
	return nil
}

func (l *Link) loop(ctx context.Context) {
	defer l.state.SetPhase(monitor.PhaseIdle)

	for ctx.Err() == nil {
		l.state.SetPhase(monitor.PhaseScanning)
		l.log.Info().Msg("scanning")
		l.emit(monitor.Event{Kind: monitor.EventScanning, Detail: l.cfg.DeviceName})

		adv, err := l.central.Find(ctx, l.cfg.DeviceName, l.cfg.ScanTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrNotFound) {
				l.log.Info().Dur("retry_in", l.cfg.RetryDelay).Msg("device not found")
				l.emit(monitor.Event{Kind: monitor.EventNotFound, Detail: l.cfg.DeviceName})
			} else {
				l.log.Error().Err(err).Dur("retry_in", l.cfg.RetryDelay).Msg("scan failed")
				l.emit(monitor.Event{Kind: monitor.EventError, Detail: "scan", Err: err})
			}
			l.state.SetPhase(monitor.PhaseWaiting)
			if !sleepCtx(ctx, l.cfg.RetryDelay) {
				return
			}
			continue
		}

		l.session(ctx, adv)

		l.state.MarkDisconnected()
		l.state.SetPhase(monitor.PhaseWaiting)
		if ctx.Err() != nil {
			return
		}
		l.log.Info().Dur("retry_in", l.cfg.ReconnectDelay).Msg("disconnected, reconnecting")
		if !sleepCtx(ctx, l.cfg.ReconnectDelay) {
			return
		}
	}
}

// session runs one connection until it drops or ctx is done.
func (l *Link) session(ctx context.Context, adv Advertisement) {
	l.state.SetPhase(monitor.PhaseConnecting)
	log := l.log.With().Str("address", adv.Address).Logger()

	p, err := l.central.Connect(ctx, adv)
	if err != nil {
		log.Error().Err(err).Msg("BLE connection error")
		l.emit(monitor.Event{Kind: monitor.EventError, Detail: "connect", Err: err})
		return
	}
	defer func() {
		if err := p.Disconnect(); err != nil {
			log.Debug().Err(err).Msg("disconnect")
		}
		l.emit(monitor.Event{Kind: monitor.EventDisconnected})
	}()

	// A toggle queued against the previous connection must not leak into
	// this one.
	select {
	case <-l.toggles:
	default:
	}

	l.state.MarkConnected(p.Address(), adv.Vendor, adv.RSSI)
	log.Info().Int16("rssi", adv.RSSI).Str("vendor", adv.Vendor).Msg("connected to device")
	l.emit(monitor.Event{Kind: monitor.EventConnected, Detail: p.Address()})

	notes := make(chan []byte, 16)
	err = p.Subscribe(func(data []byte) {
		cp := append([]byte(nil), data...)
		select {
		case notes <- cp:
		default:
			log.Warn().Msg("notification dropped")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("subscribe to zone notifications")
		l.emit(monitor.Event{Kind: monitor.EventError, Detail: "subscribe", Err: err})
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.Disconnected():
			log.Info().Msg("device disconnected")
			return
		case data := <-notes:
			l.handleNotification(p, data)
		case <-l.toggles:
			l.toggleCalibration(p)
		}
	}
}

func (l *Link) handleNotification(p Peripheral, data []byte) {
	n, err := encoder.Decode(data)
	if err != nil {
		l.log.Debug().Err(err).Hex("data", data).Msg("ignoring notification")
		return
	}
	if n.ToggleCalibration() {
		l.log.Info().Msg("device button pressed")
		l.toggleCalibration(p)
		return
	}

	l.state.SetZone(n.Zone)
	l.log.Info().Str("zone", n.Zone.String()).Str("alert", n.Zone.Label()).Msg("zone notification")
	l.emit(monitor.Event{Kind: monitor.EventZone, Zone: n.Zone})
}

// toggleCalibration writes the negated flag and only records it once the
// write succeeded.
func (l *Link) toggleCalibration(p Peripheral) {
	next := !l.state.Calibrating()
	payload := encoder.CalibrationPayload(next)
	l.log.Info().Bool("calibrating", next).Hex("value", payload).Msg("setting calibration mode")

	if err := p.WriteCalibration(payload); err != nil {
		l.log.Error().Err(err).Msg("failed to toggle calibration mode")
		l.emit(monitor.Event{Kind: monitor.EventError, Detail: "calibration", Err: err})
		return
	}

	l.state.SetCalibrating(next)
	l.emit(monitor.Event{Kind: monitor.EventCalibration, Calibrating: next})
}

func (l *Link) emit(e monitor.Event) {
	e.Time = l.now()

	l.mu.Lock()
	n := l.notifier
	l.mu.Unlock()

	if n != nil {
		n.Send(LinkEventMsg{Event: e})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
