package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"strap-monitor.klederson.com/internal/encoder"
)

const (
	// Link loop
	ScanTimeout    = 10 * time.Second // Give up a single scan after this long
	RetryDelay     = 5 * time.Second  // Wait after the strap was not found
	ReconnectDelay = 3 * time.Second  // Wait after a disconnect or connect error

	// Display
	TargetFPS    = 30 // Render ticks per second
	EventHistory = 64 // Link events kept for the log panel
	NoticeTTL    = 3 * time.Second

	// Demo mode
	DemoInterval   = 200 * time.Millisecond // Simulated encoder poll period
	DemoButtonRate = 0.004                  // Chance per poll of a device button press
	DemoDropRate   = 0.002                  // Chance per poll of a link drop
	DemoMissRate   = 0.15                   // Chance a scan misses the strap

	// App
	AppName    = "STRAP-MONITOR"
	AppVersion = "1.0"
	EnvPrefix  = "STRAP_MONITOR_"
)

// Config holds runtime configuration for the monitor.
type Config struct {
	DeviceName string
	Adapter    string
	Demo       bool
	Headless   bool

	ScanTimeout    time.Duration
	RetryDelay     time.Duration
	ReconnectDelay time.Duration

	FPS      int
	LogFile  string
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DeviceName:     encoder.DeviceName,
		Adapter:        "hci0",
		ScanTimeout:    ScanTimeout,
		RetryDelay:     RetryDelay,
		ReconnectDelay: ReconnectDelay,
		FPS:            TargetFPS,
		LogFile:        filepath.Join(os.TempDir(), "strap-monitor.log"),
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	c.DeviceName = strings.TrimSpace(c.DeviceName)
	if c.DeviceName == "" {
		return fmt.Errorf("device name is required")
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("scan timeout must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	if c.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect delay must not be negative")
	}
	if c.FPS <= 0 || c.FPS > 120 {
		return fmt.Errorf("fps must be between 1 and 120, got %d", c.FPS)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// configSetter applies values only for flags the user did not set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
