package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with string durations for TOML.
type FileConfig struct {
	DeviceName     string `toml:"device_name"`
	Adapter        string `toml:"adapter"`
	Demo           *bool  `toml:"demo"`
	Headless       *bool  `toml:"headless"`
	ScanTimeout    string `toml:"scan_timeout"`
	RetryDelay     string `toml:"retry_delay"`
	ReconnectDelay string `toml:"reconnect_delay"`
	FPS            int    `toml:"fps"`
	LogFile        string `toml:"log_file"`
	LogLevel       string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.strap-monitor/config.toml, or "" when the
// home directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".strap-monitor", "config.toml")
	}
	return ""
}

// ApplyFileConfig copies file values into cfg, skipping changed flags.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", fc.DeviceName, &cfg.DeviceName)
	s.setString("adapter", fc.Adapter, &cfg.Adapter)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("demo", fc.Demo, &cfg.Demo)
	s.setBool("headless", fc.Headless, &cfg.Headless)
	s.setInt("fps", fc.FPS, &cfg.FPS)

	return errors.Join(
		s.setDuration("scan-timeout", fc.ScanTimeout, &cfg.ScanTimeout),
		s.setDuration("retry-delay", fc.RetryDelay, &cfg.RetryDelay),
		s.setDuration("reconnect-delay", fc.ReconnectDelay, &cfg.ReconnectDelay),
	)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
