package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ApplyEnvConfig applies STRAP_MONITOR_* variables. Explicit flags win.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	return applyEnv(cfg, changed, os.Getenv)
}

func applyEnv(cfg *Config, changed map[string]bool, getenv func(string) string) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return getenv(EnvPrefix + key) }

	s.setString("device", env("DEVICE_NAME"), &cfg.DeviceName)
	s.setString("adapter", env("ADAPTER"), &cfg.Adapter)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	var errs []error
	if v := env("FPS"); v != "" && !changed["fps"] {
		fps, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse fps: %w", err))
		} else {
			s.setInt("fps", fps, &cfg.FPS)
		}
	}
	s.setBool("demo", envBool(env("DEMO")), &cfg.Demo)
	s.setBool("headless", envBool(env("HEADLESS")), &cfg.Headless)

	errs = append(errs,
		s.setDuration("scan-timeout", env("SCAN_TIMEOUT"), &cfg.ScanTimeout),
		s.setDuration("retry-delay", env("RETRY_DELAY"), &cfg.RetryDelay),
		s.setDuration("reconnect-delay", env("RECONNECT_DELAY"), &cfg.ReconnectDelay),
	)
	return errors.Join(errs...)
}

// envBool treats "true" and "1" as true; unset yields nil.
func envBool(v string) *bool {
	if v == "" {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}
