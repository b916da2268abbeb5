package bluetooth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strap-monitor.klederson.com/internal/encoder"
	"strap-monitor.klederson.com/internal/monitor"
)

// fakePeripheral is driven by the test through notify and drop.
type fakePeripheral struct {
	addr string

	mu       sync.Mutex
	handler  func([]byte)
	writes   [][]byte
	writeErr error
	subErr   error
	started  int

	// gate, when set, holds every write until it is closed.
	gate chan struct{}

	gone chan struct{}
	once sync.Once
}

func newFakePeripheral(addr string) *fakePeripheral {
	return &fakePeripheral{addr: addr, gone: make(chan struct{})}
}

func (p *fakePeripheral) Address() string { return p.addr }

func (p *fakePeripheral) Subscribe(h func([]byte)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subErr != nil {
		return p.subErr
	}
	p.handler = h
	return nil
}

func (p *fakePeripheral) WriteCalibration(b []byte) error {
	p.mu.Lock()
	p.started++
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return p.writeErr
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return nil
}

func (p *fakePeripheral) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.writes...)
}

func (p *fakePeripheral) writesStarted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *fakePeripheral) subscribed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler != nil
}

func (p *fakePeripheral) notify(b ...byte) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	h(b)
}

func (p *fakePeripheral) Disconnected() <-chan struct{} { return p.gone }

func (p *fakePeripheral) Disconnect() error {
	p.drop()
	return nil
}

func (p *fakePeripheral) drop() { p.once.Do(func() { close(p.gone) }) }

// fakeCentral replays scripted scan results and hands out peripherals.
type fakeCentral struct {
	mu          sync.Mutex
	finds       []error
	findCalls   int
	connectErr  error
	peripherals []*fakePeripheral
	enableErr   error
	writeGate   chan struct{}
}

func (c *fakeCentral) Enable() error { return c.enableErr }

func (c *fakeCentral) Find(ctx context.Context, name string, _ time.Duration) (Advertisement, error) {
	c.mu.Lock()
	i := c.findCalls
	c.findCalls++
	var err error
	if i < len(c.finds) {
		err = c.finds[i]
	}
	c.mu.Unlock()

	if ctx.Err() != nil {
		return Advertisement{}, ctx.Err()
	}
	if err != nil {
		return Advertisement{}, err
	}
	return Advertisement{Address: "AA:BB:CC:DD:EE:FF", Name: name, RSSI: -55, Vendor: "Espressif"}, nil
}

func (c *fakeCentral) Connect(_ context.Context, adv Advertisement) (Peripheral, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		err := c.connectErr
		c.connectErr = nil
		return nil, err
	}
	p := newFakePeripheral(adv.Address)
	p.gate = c.writeGate
	c.peripherals = append(c.peripherals, p)
	return p, nil
}

func (c *fakeCentral) peripheral(i int) *fakePeripheral {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.peripherals) {
		return nil
	}
	return c.peripherals[i]
}

func (c *fakeCentral) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findCalls
}

// recorder collects link events.
type recorder struct {
	mu     sync.Mutex
	events []monitor.Event
}

func (r *recorder) Send(msg tea.Msg) {
	if m, ok := msg.(LinkEventMsg); ok {
		r.mu.Lock()
		r.events = append(r.events, m.Event)
		r.mu.Unlock()
	}
}

func (r *recorder) kinds() []monitor.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]monitor.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) has(k monitor.EventKind) bool {
	for _, got := range r.kinds() {
		if got == k {
			return true
		}
	}
	return false
}

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func startLink(t *testing.T, c *fakeCentral) (*Link, *monitor.State, *recorder) {
	t.Helper()
	state := monitor.NewState()
	rec := &recorder{}
	l := NewLink(c, state, LinkConfig{
		DeviceName:     encoder.DeviceName,
		ScanTimeout:    time.Second,
		RetryDelay:     time.Millisecond,
		ReconnectDelay: time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, l.Start(rec))
	t.Cleanup(l.Stop)
	return l, state, rec
}

func connectedPeripheral(t *testing.T, c *fakeCentral, i int) *fakePeripheral {
	t.Helper()
	var p *fakePeripheral
	require.Eventually(t, func() bool {
		p = c.peripheral(i)
		return p != nil && p.subscribed()
	}, waitFor, tick)
	return p
}

func TestLink_ZoneNotifications(t *testing.T) {
	c := &fakeCentral{}
	_, state, rec := startLink(t, c)
	p := connectedPeripheral(t, c, 0)

	require.Eventually(t, state.Connected, waitFor, tick)
	snap := state.Snapshot()
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", snap.Address)
	assert.Equal(t, "Espressif", snap.Vendor)
	assert.Equal(t, encoder.ZoneNone, snap.Zone)

	p.notify(0x01)
	require.Eventually(t, func() bool { return state.Snapshot().Zone == encoder.ZoneLoose }, waitFor, tick)

	p.notify(0x03)
	require.Eventually(t, func() bool { return state.Snapshot().Zone == encoder.ZoneMaybeLoose }, waitFor, tick)

	// Unknown and empty payloads leave the zone alone.
	p.notify(0x09)
	p.notify()
	p.notify(0x02, 0xAA)
	require.Eventually(t, func() bool { return state.Snapshot().Zone == encoder.ZoneTight }, waitFor, tick)
	assert.Equal(t, 3, state.Snapshot().Notifications)

	assert.True(t, rec.has(monitor.EventScanning))
	assert.True(t, rec.has(monitor.EventConnected))
	assert.True(t, rec.has(monitor.EventZone))
}

func TestLink_ToggleCalibrationFromUI(t *testing.T) {
	c := &fakeCentral{}
	l, state, rec := startLink(t, c)
	p := connectedPeripheral(t, c, 0)
	require.Eventually(t, state.Connected, waitFor, tick)

	require.NoError(t, l.ToggleCalibration())
	require.Eventually(t, state.Calibrating, waitFor, tick)
	assert.Equal(t, [][]byte{{0x01}}, p.Writes())

	require.NoError(t, l.ToggleCalibration())
	require.Eventually(t, func() bool { return !state.Calibrating() }, waitFor, tick)
	assert.Equal(t, [][]byte{{0x01}, {0x00}}, p.Writes())
	assert.True(t, rec.has(monitor.EventCalibration))
}

func TestLink_ToggleRequestsCoalesce(t *testing.T) {
	gate := make(chan struct{})
	c := &fakeCentral{writeGate: gate}
	l, state, _ := startLink(t, c)
	release := sync.OnceFunc(func() { close(gate) })
	t.Cleanup(release)

	p := connectedPeripheral(t, c, 0)
	require.Eventually(t, state.Connected, waitFor, tick)

	// The first request holds the loop inside the write.
	require.NoError(t, l.ToggleCalibration())
	require.Eventually(t, func() bool { return p.writesStarted() == 1 }, waitFor, tick)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.ToggleCalibration())
	}
	release()

	require.Eventually(t, func() bool { return len(p.Writes()) == 2 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, [][]byte{{0x01}, {0x00}}, p.Writes())
	assert.False(t, state.Calibrating())
}

func TestLink_PendingToggleDroppedOnReconnect(t *testing.T) {
	gate := make(chan struct{})
	c := &fakeCentral{writeGate: gate}
	l, state, _ := startLink(t, c)
	release := sync.OnceFunc(func() { close(gate) })
	t.Cleanup(release)

	first := connectedPeripheral(t, c, 0)
	require.Eventually(t, state.Connected, waitFor, tick)

	require.NoError(t, l.ToggleCalibration())
	require.Eventually(t, func() bool { return first.writesStarted() == 1 }, waitFor, tick)
	require.NoError(t, l.ToggleCalibration())

	first.drop()
	release()

	second := connectedPeripheral(t, c, 1)
	require.Eventually(t, state.Connected, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, second.Writes())
	assert.False(t, state.Calibrating())
}

func TestLink_DeviceButtonTogglesCalibration(t *testing.T) {
	c := &fakeCentral{}
	_, state, _ := startLink(t, c)
	p := connectedPeripheral(t, c, 0)

	p.notify(0x02)
	p.notify(0x04)
	require.Eventually(t, state.Calibrating, waitFor, tick)
	assert.Equal(t, encoder.ZoneTight, state.Snapshot().Zone, "button press keeps the zone")
	assert.Equal(t, [][]byte{{0x01}}, p.Writes())
}

func TestLink_FailedWriteKeepsFlag(t *testing.T) {
	c := &fakeCentral{}
	l, state, rec := startLink(t, c)
	p := connectedPeripheral(t, c, 0)
	require.Eventually(t, state.Connected, waitFor, tick)

	p.mu.Lock()
	p.writeErr = ErrCalibrationUnsupported
	p.mu.Unlock()

	require.NoError(t, l.ToggleCalibration())
	require.Eventually(t, func() bool { return rec.has(monitor.EventError) }, waitFor, tick)
	assert.False(t, state.Calibrating())
}

func TestLink_ToggleWhileDisconnected(t *testing.T) {
	state := monitor.NewState()
	l := NewLink(&fakeCentral{}, state, LinkConfig{DeviceName: "x"}, zerolog.Nop())

	err := l.ToggleCalibration()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestLink_ReconnectResetsState(t *testing.T) {
	c := &fakeCentral{}
	_, state, rec := startLink(t, c)
	first := connectedPeripheral(t, c, 0)

	first.notify(0x01)
	first.notify(0x04)
	require.Eventually(t, state.Calibrating, waitFor, tick)

	first.drop()
	second := connectedPeripheral(t, c, 1)
	require.NotSame(t, first, second)

	require.Eventually(t, state.Connected, waitFor, tick)
	snap := state.Snapshot()
	assert.Equal(t, encoder.ZoneNone, snap.Zone)
	assert.False(t, snap.Calibrating)
	assert.Equal(t, 1, snap.Reconnects)
	assert.True(t, rec.has(monitor.EventDisconnected))
}

func TestLink_RetriesWhenNotFound(t *testing.T) {
	c := &fakeCentral{finds: []error{ErrNotFound, ErrNotFound, errors.New("adapter busy")}}
	_, state, rec := startLink(t, c)

	connectedPeripheral(t, c, 0)
	require.Eventually(t, state.Connected, waitFor, tick)
	assert.GreaterOrEqual(t, c.calls(), 4)

	kinds := rec.kinds()
	var misses int
	for _, k := range kinds {
		if k == monitor.EventNotFound {
			misses++
		}
	}
	assert.Equal(t, 2, misses)
	assert.True(t, rec.has(monitor.EventError))
}

func TestLink_ConnectErrorRetries(t *testing.T) {
	c := &fakeCentral{connectErr: errors.New("le-connection-abort-by-local")}
	_, state, rec := startLink(t, c)

	connectedPeripheral(t, c, 0)
	require.Eventually(t, state.Connected, waitFor, tick)
	assert.True(t, rec.has(monitor.EventError))
}

func TestLink_StopDisconnects(t *testing.T) {
	c := &fakeCentral{}
	l, state, _ := startLink(t, c)
	p := connectedPeripheral(t, c, 0)
	require.Eventually(t, state.Connected, waitFor, tick)

	l.Stop()

	select {
	case <-p.Disconnected():
	default:
		t.Fatal("peripheral not disconnected after Stop")
	}
	snap := state.Snapshot()
	assert.False(t, snap.Connected)
	assert.Equal(t, monitor.PhaseIdle, snap.Phase)
}

func TestLink_EnableError(t *testing.T) {
	c := &fakeCentral{enableErr: errors.New("no adapter")}
	l := NewLink(c, monitor.NewState(), LinkConfig{DeviceName: "x"}, zerolog.Nop())

	err := l.Start(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter")
	l.Stop()
}

func TestLink_RunReturnsOnCancel(t *testing.T) {
	c := &fakeCentral{}
	state := monitor.NewState()
	l := NewLink(c, state, LinkConfig{
		DeviceName:     "x",
		ScanTimeout:    time.Second,
		ReconnectDelay: time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx, nil) }()

	connectedPeripheral(t, c, 0)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, state.Connected())
}
