package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"strap-monitor.klederson.com/internal/app"
	"strap-monitor.klederson.com/internal/bluetooth"
	"strap-monitor.klederson.com/internal/config"
	"strap-monitor.klederson.com/internal/logging"
	"strap-monitor.klederson.com/internal/monitor"
)

func main() {
	cfg := config.DefaultConfig()
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "strap-monitor",
		Short: "Strap Monitor - live tension status for the BLE_Encoder strap",
		Long: `Strap Monitor connects to a tension-sensing strap over Bluetooth Low Energy,
shows whether the strap is tight, may be loose or is loose, and toggles the
strap's calibration mode with [C] or a click on the Calibrate button.

The strap is rediscovered automatically after it drops out of range.
Requires sudo or CAP_NET_ADMIN capability for real Bluetooth access.
Use --demo for a simulated strap without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, changed); err != nil {
				return err
			}
			if cfg.Headless {
				return runHeadless(cfg)
			}
			return run(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.strap-monitor/config.toml)")
	flags.BoolVar(&cfg.Demo, "demo", cfg.Demo, "Run with a simulated strap (no Bluetooth required)")
	flags.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Log strap events to stderr instead of drawing the UI")
	flags.StringVar(&cfg.Adapter, "adapter", cfg.Adapter, "Bluetooth adapter shown in the menu bar")
	flags.StringVar(&cfg.DeviceName, "device", cfg.DeviceName, "Advertised name of the strap")
	flags.DurationVar(&cfg.ScanTimeout, "scan-timeout", cfg.ScanTimeout, "How long a single scan may take")
	flags.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Wait before rescanning when the strap was not found")
	flags.DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "Wait before reconnecting after a disconnect")
	flags.IntVar(&cfg.FPS, "fps", cfg.FPS, "UI refresh rate")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file used while the UI is running")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers file, then environment, under explicitly set flags.
func loadConfig(cfg *config.Config, path string, changed map[string]bool) error {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if path != "" && config.FileExists(path) {
		fc, err := config.LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := config.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func newLink(cfg config.Config, state *monitor.State, log zerolog.Logger) *bluetooth.Link {
	var central bluetooth.Central
	if cfg.Demo {
		central = bluetooth.NewMockCentral(bluetooth.MockConfig{
			Interval:   config.DemoInterval,
			ButtonRate: config.DemoButtonRate,
			DropRate:   config.DemoDropRate,
			MissRate:   config.DemoMissRate,
			ScanDelay:  config.DemoInterval * 5,
			Seed:       time.Now().UnixNano(),
		})
	} else {
		central = bluetooth.NewAdapterCentral()
	}

	return bluetooth.NewLink(central, state, bluetooth.LinkConfig{
		DeviceName:     cfg.DeviceName,
		ScanTimeout:    cfg.ScanTimeout,
		RetryDelay:     cfg.RetryDelay,
		ReconnectDelay: cfg.ReconnectDelay,
	}, log)
}

func run(cfg config.Config) error {
	log, closer, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	state := monitor.NewState()
	link := newLink(cfg, state, log)

	model := app.New(app.Options{
		Demo:       cfg.Demo,
		Adapter:    cfg.Adapter,
		DeviceName: cfg.DeviceName,
		FPS:        cfg.FPS,
	}, state, link)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithFPS(cfg.FPS),
	)

	if err := link.Start(p); err != nil {
		if !cfg.Demo {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			fmt.Fprintln(os.Stderr, "Bluetooth access requires elevated permissions.")
			fmt.Fprintln(os.Stderr, "Try one of:")
			fmt.Fprintln(os.Stderr, "  sudo ./strap-monitor")
			fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./strap-monitor")
			fmt.Fprintln(os.Stderr, "  ./strap-monitor --demo    (simulated strap, no hardware needed)")
		}
		return err
	}
	log.Info().Str("device", cfg.DeviceName).Bool("demo", cfg.Demo).Msg("monitor started")

	_, err = p.Run()
	// Run has returned, so Send no longer blocks and Stop can drain the loop.
	link.Stop()
	log.Info().Msg("monitor stopped")
	return err
}

func runHeadless(cfg config.Config) error {
	log, err := logging.New(os.Stderr, cfg.LogLevel, true)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link := newLink(cfg, monitor.NewState(), log)
	log.Info().Str("device", cfg.DeviceName).Bool("demo", cfg.Demo).Msg("monitor started (headless)")

	err = link.Run(ctx, nil)
	if ctx.Err() != nil {
		log.Info().Msg("received signal, stopping")
		return nil
	}
	return err
}
