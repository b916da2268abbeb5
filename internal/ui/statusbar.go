package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"strap-monitor.klederson.com/internal/monitor"
)

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, deviceName string, snap monitor.Snapshot, now time.Time) string {
	phase := StylePhaseIdle.Render("[" + snap.Phase.String() + "]")
	if snap.Connected {
		phase = StylePhaseLive.Render("[" + snap.Phase.String() + "]")
	}

	info := fmt.Sprintf(" %s", deviceName)
	if snap.Connected {
		vendor := snap.Vendor
		if vendor == "" {
			vendor = "unknown"
		}
		info += fmt.Sprintf("  %s  Vendor: %s  RSSI: %ddBm ", snap.Address, vendor, snap.RSSI)
	}

	var tail string
	if snap.Connected {
		tail = RenderSignalBar(float64(snap.RSSI), 10)
	}
	stats := fmt.Sprintf("  Notifications: %d  Reconnects: %d  Up: %s",
		snap.Notifications, snap.Reconnects, FormatUptime(snap.Uptime(now)))

	content := phase + StyleStatusBar.Render(info) + tail + StyleStatusBar.Render(stats)

	gap := width - lipgloss.Width(content) - 2
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}

// FormatUptime renders a duration as h:mm:ss, or "-" when zero.
func FormatUptime(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
