package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"strap-monitor.klederson.com/internal/encoder"
)

var (
	serviceUUID     = bluetooth.New16BitUUID(encoder.ServiceUUID)
	zoneUUID        = bluetooth.New16BitUUID(encoder.ZoneCharUUID)
	calibrationUUID = bluetooth.New16BitUUID(encoder.CalibrationCharUUID)
)

const (
	// BlueZ only reports a remote drop through a failing GATT call, so the
	// zone characteristic is read on this interval while connected.
	linkCheckInterval = time.Second
	linkCheckFailures = 2

	scanStopRetry = 50 * time.Millisecond
)

// AdapterCentral talks to the strap through the host Bluetooth adapter.
type AdapterCentral struct {
	adapter *bluetooth.Adapter

	mu    sync.Mutex
	seen  map[string]bluetooth.Address
	links map[string]*adapterPeripheral
}

// NewAdapterCentral uses the platform default adapter.
func NewAdapterCentral() *AdapterCentral {
	return &AdapterCentral{
		adapter: bluetooth.DefaultAdapter,
		seen:    make(map[string]bluetooth.Address),
		links:   make(map[string]*adapterPeripheral),
	}
}

// Enable powers the adapter and installs the disconnect handler.
func (c *AdapterCentral) Enable() error {
	if err := c.adapter.Enable(); err != nil {
		return err
	}
	c.adapter.SetConnectHandler(c.onConnectEvent)
	return nil
}

func (c *AdapterCentral) onConnectEvent(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	addr := device.Address.String()

	c.mu.Lock()
	p := c.links[addr]
	delete(c.links, addr)
	c.mu.Unlock()

	if p != nil {
		p.markGone()
	}
}

// Find scans for a device advertising name.
func (c *AdapterCentral) Find(ctx context.Context, name string, timeout time.Duration) (Advertisement, error) {
	found := make(chan Advertisement, 1)
	scanErr := make(chan error, 1)

	go func() {
		scanErr <- c.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() != name {
				return
			}

			adv := Advertisement{
				Address: result.Address.String(),
				Name:    name,
				RSSI:    result.RSSI,
			}
			if mfrs := result.ManufacturerData(); len(mfrs) > 0 {
				adv.Vendor = LookupManufacturer(mfrs[0].CompanyID)
			}

			c.mu.Lock()
			c.seen[adv.Address] = result.Address
			c.mu.Unlock()

			select {
			case found <- adv:
				_ = a.StopScan()
			default:
			}
		})
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case adv := <-found:
		<-scanErr
		return adv, nil
	case err := <-scanErr:
		if err != nil {
			return Advertisement{}, fmt.Errorf("scan: %w", err)
		}
		return Advertisement{}, ErrNotFound
	case <-timer.C:
		drainScan(c.adapter.StopScan, scanErr, scanStopRetry)
		return Advertisement{}, ErrNotFound
	case <-ctx.Done():
		drainScan(c.adapter.StopScan, scanErr, scanStopRetry)
		return Advertisement{}, ctx.Err()
	}
}

// drainScan calls stop until the scan goroutine reports back. StopScan fails
// when the goroutine has not entered Scan yet, so a single call can miss.
func drainScan(stop func() error, scanErr <-chan error, retry time.Duration) error {
	ticker := time.NewTicker(retry)
	defer ticker.Stop()
	for {
		_ = stop()
		select {
		case err := <-scanErr:
			return err
		case <-ticker.C:
		}
	}
}

// watchLink runs probe every interval until stop is closed or probe fails
// failures times in a row. It returns the last probe error, or nil on stop.
func watchLink(stop <-chan struct{}, interval time.Duration, failures int, probe func() error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	misses := 0
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
		if err := probe(); err != nil {
			misses++
			if misses >= failures {
				return err
			}
			continue
		}
		misses = 0
	}
}

// Connect opens a GATT connection and resolves the strap characteristics.
func (c *AdapterCentral) Connect(ctx context.Context, adv Advertisement) (Peripheral, error) {
	c.mu.Lock()
	addr, ok := c.seen[adv.Address]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("connect %s: %w", adv.Address, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dev, err := c.connect(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", adv.Address, err)
	}

	p := &adapterPeripheral{
		dev:  dev,
		addr: adv.Address,
		gone: make(chan struct{}),
	}
	if err := p.discover(); err != nil {
		_ = dev.Disconnect()
		return nil, err
	}

	c.mu.Lock()
	c.links[adv.Address] = p
	c.mu.Unlock()

	go func() {
		if err := watchLink(p.gone, linkCheckInterval, linkCheckFailures, p.probe); err != nil {
			c.mu.Lock()
			if c.links[adv.Address] == p {
				delete(c.links, adv.Address)
			}
			c.mu.Unlock()
			p.markGone()
		}
	}()
	return p, nil
}

// connect gives up on ctx. The BlueZ backend ignores ConnectionTimeout, so
// a late connection is torn down once it arrives.
func (c *AdapterCentral) connect(ctx context.Context, addr bluetooth.Address) (bluetooth.Device, error) {
	type result struct {
		dev bluetooth.Device
		err error
	}
	done := make(chan result, 1)
	go func() {
		dev, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})
		done <- result{dev, err}
	}()

	select {
	case r := <-done:
		return r.dev, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				_ = r.dev.Disconnect()
			}
		}()
		return bluetooth.Device{}, ctx.Err()
	}
}

type adapterPeripheral struct {
	dev         bluetooth.Device
	addr        string
	zone        bluetooth.DeviceCharacteristic
	calibration *bluetooth.DeviceCharacteristic

	// mu serializes calls on the zone characteristic between the link
	// watcher and Subscribe/Disconnect.
	mu   sync.Mutex
	gone chan struct{}
	once sync.Once
}

func (p *adapterPeripheral) discover() error {
	services, err := p.dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}
	if len(services) == 0 {
		return fmt.Errorf("service %s not present", serviceUUID.String())
	}

	chars, err := services[0].DiscoverCharacteristics(nil)
	if err != nil {
		return fmt.Errorf("discover characteristics: %w", err)
	}

	var haveZone bool
	for i := range chars {
		switch chars[i].UUID() {
		case zoneUUID:
			p.zone = chars[i]
			haveZone = true
		case calibrationUUID:
			ch := chars[i]
			p.calibration = &ch
		}
	}
	if !haveZone {
		return fmt.Errorf("zone characteristic %s not present", zoneUUID.String())
	}
	return nil
}

func (p *adapterPeripheral) Address() string { return p.addr }

func (p *adapterPeripheral) Subscribe(handler func(data []byte)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.zone.EnableNotifications(handler)
}

func (p *adapterPeripheral) probe() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var buf [1]byte
	_, err := p.zone.Read(buf[:])
	return err
}

func (p *adapterPeripheral) WriteCalibration(payload []byte) error {
	if p.calibration == nil {
		return ErrCalibrationUnsupported
	}
	_, err := p.calibration.WriteWithoutResponse(payload)
	return err
}

func (p *adapterPeripheral) Disconnected() <-chan struct{} { return p.gone }

// Disconnect drops the notification subscription before the link, so a
// later connection to the same address does not feed this session's handler.
func (p *adapterPeripheral) Disconnect() error {
	defer p.markGone()
	return closeLink(func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.zone.EnableNotifications(nil)
	}, p.dev.Disconnect)
}

// closeLink always runs both steps, unsubscribe first.
func closeLink(unsubscribe, disconnect func() error) error {
	unsubErr := unsubscribe()
	return errors.Join(disconnect(), unsubErr)
}

func (p *adapterPeripheral) markGone() {
	p.once.Do(func() { close(p.gone) })
}
