package bluetooth

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"strap-monitor.klederson.com/internal/encoder"
)

// MockConfig tunes the simulated strap used in demo mode.
type MockConfig struct {
	Interval   time.Duration // encoder poll period
	ButtonRate float64       // chance per poll of a device button press
	DropRate   float64       // chance per poll of a link drop
	MissRate   float64       // chance a scan misses the strap
	ScanDelay  time.Duration // time a successful scan takes
	Seed       int64
}

// MockCentral simulates a strap for demo mode.
type MockCentral struct {
	cfg  MockConfig
	mac  string
	rssi float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockCentral creates a simulated central with one strap in range.
func NewMockCentral(cfg MockConfig) *MockCentral {
	if cfg.Interval <= 0 {
		cfg.Interval = 200 * time.Millisecond
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &MockCentral{
		cfg:  cfg,
		mac:  randomMAC(rng),
		rssi: -40 - rng.Float64()*40, // -40 to -80 dBm
		rng:  rng,
	}
}

func (c *MockCentral) Enable() error { return nil }

func (c *MockCentral) float() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}

// Find pretends to scan; the strap occasionally fails to show up.
func (c *MockCentral) Find(ctx context.Context, name string, timeout time.Duration) (Advertisement, error) {
	wait := c.cfg.ScanDelay
	miss := c.float() < c.cfg.MissRate
	if miss || wait > timeout {
		wait = timeout
	}
	if !sleepCtx(ctx, wait) {
		return Advertisement{}, ctx.Err()
	}
	if miss {
		return Advertisement{}, ErrNotFound
	}
	return Advertisement{
		Address: c.mac,
		Name:    name,
		RSSI:    int16(c.rssi + (c.float()-0.5)*6),
		Vendor:  LookupManufacturer(0x02E5),
	}, nil
}

// Connect starts a simulated peripheral.
func (c *MockCentral) Connect(ctx context.Context, adv Advertisement) (Peripheral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	seed := c.rng.Int63()
	c.mu.Unlock()

	return newMockPeripheral(adv.Address, c.cfg, seed), nil
}

// MockPeripheral is a simulated strap: a rotary encoder random walk that
// notifies on zone changes the way the firmware does.
type MockPeripheral struct {
	addr string
	cfg  MockConfig

	mu          sync.Mutex
	rng         *rand.Rand
	position    int
	tracker     encoder.ZoneTracker
	calibrating bool
	writes      [][]byte

	cancel context.CancelFunc
	gone   chan struct{}
	once   sync.Once
}

func newMockPeripheral(addr string, cfg MockConfig, seed int64) *MockPeripheral {
	return &MockPeripheral{
		addr: addr,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(seed)),
		gone: make(chan struct{}),
	}
}

func (p *MockPeripheral) Address() string { return p.addr }

// Subscribe starts the notification loop.
func (p *MockPeripheral) Subscribe(handler func(data []byte)) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(ctx, handler)
	return nil
}

func (p *MockPeripheral) loop(ctx context.Context, handler func([]byte)) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.gone:
			return
		case <-ticker.C:
			data, drop := p.step()
			if drop {
				p.markGone()
				return
			}
			for _, b := range data {
				handler([]byte{b})
			}
		}
	}
}

// step advances the simulation by one poll and returns the bytes to
// notify, or drop=true when the link should fall over.
func (p *MockPeripheral) step() (data []byte, drop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() < p.cfg.DropRate {
		return nil, true
	}

	// Drift toward loosening, with the wearer occasionally re-tightening.
	switch r := p.rng.Float64(); {
	case r < 0.30:
		p.position++
	case r < 0.45:
		p.position--
	case r < 0.47:
		p.position = 0
	}

	if zone, changed := p.tracker.Observe(p.position); changed {
		op, _ := zone.Opcode()
		data = append(data, byte(op))
	}
	if p.rng.Float64() < p.cfg.ButtonRate {
		data = append(data, byte(encoder.OpToggleCalibration))
	}
	return data, false
}

// WriteCalibration records the mode; turning it on re-zeroes the encoder.
func (p *MockPeripheral) WriteCalibration(payload []byte) error {
	if len(payload) != 1 || payload[0] > 1 {
		return fmt.Errorf("invalid calibration payload %x", payload)
	}
	select {
	case <-p.gone:
		return ErrNotConnected
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), payload...))
	p.calibrating = payload[0] == 1
	if p.calibrating {
		p.position = 0
		p.tracker.Reset()
	}
	return nil
}

// Calibrating reports the simulated device-side calibration mode.
func (p *MockPeripheral) Calibrating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calibrating
}

func (p *MockPeripheral) Disconnected() <-chan struct{} { return p.gone }

func (p *MockPeripheral) Disconnect() error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.markGone()
	return nil
}

func (p *MockPeripheral) markGone() {
	p.once.Do(func() { close(p.gone) })
}

func randomMAC(rng *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}
