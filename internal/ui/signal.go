package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"strap-monitor.klederson.com/internal/encoder"
)

// RenderSignalBar maps RSSI -100..-30 dBm onto a bar of the given width.
func RenderSignalBar(rssi float64, width int) string {
	if width < 1 {
		return ""
	}
	ratio := (rssi + 100.0) / 70.0
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(math.Round(ratio * float64(width)))

	color := ColorZoneLoose
	switch {
	case ratio > 0.6:
		color = ColorZoneTight
	case ratio > 0.3:
		color = ColorZoneMaybe
	}

	filledPart := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("|", filled))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(strings.Repeat("-", width-filled))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

// zoneGlyph is the strip character for each zone, loosest highest.
func zoneGlyph(z encoder.Zone) string {
	switch z {
	case encoder.ZoneLoose:
		return "^"
	case encoder.ZoneMaybeLoose:
		return "~"
	case encoder.ZoneTight:
		return "_"
	default:
		return "."
	}
}

// RenderZoneStrip draws the most recent zones, newest on the right.
func RenderZoneStrip(zones []encoder.Zone, width int) string {
	if width < 1 {
		return ""
	}
	if len(zones) == 0 {
		return StyleHelp.Render(strings.Repeat(".", width))
	}

	start := 0
	if len(zones) > width {
		start = len(zones) - width
	}

	var sb strings.Builder
	for _, z := range zones[start:] {
		sb.WriteString(lipgloss.NewStyle().Foreground(ZoneColor(z)).Render(zoneGlyph(z)))
	}
	return sb.String()
}
