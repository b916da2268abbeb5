package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"strap-monitor.klederson.com/internal/encoder"
	"strap-monitor.klederson.com/internal/monitor"
)

// ButtonWidth is the outer width of the calibration button, borders included.
const ButtonWidth = 18

// Row of the button's top border inside the panel, and its left indent.
const (
	buttonRow    = 9
	buttonIndent = 2
)

// ButtonLabel returns the calibration button caption.
func ButtonLabel(calibrating bool) string {
	if calibrating {
		return "Stop Cal"
	}
	return "Calibrate"
}

// ConnectionText returns the connection line and its colour.
func ConnectionText(snap monitor.Snapshot) (string, lipgloss.Color) {
	if snap.Connected {
		return "Connected", ColorConnected
	}
	return "Disconnected", ColorDisconnected
}

// ZoneColor maps a zone to its alert colour.
func ZoneColor(z encoder.Zone) lipgloss.Color {
	switch z {
	case encoder.ZoneLoose:
		return ColorZoneLoose
	case encoder.ZoneTight:
		return ColorZoneTight
	case encoder.ZoneMaybeLoose:
		return ColorZoneMaybe
	default:
		return ColorZoneNone
	}
}

// CalibrationText returns the calibration line and its colour.
func CalibrationText(calibrating bool) (string, lipgloss.Color) {
	if calibrating {
		return "CALIBRATION MODE: ON", ColorCalOn
	}
	return "CALIBRATION MODE: OFF", ColorCalOff
}

// RenderStatusPanel renders connection, zone and calibration state with the
// calibration button at a fixed offset (see CalibrationButtonRect).
func RenderStatusPanel(snap monitor.Snapshot, zones []encoder.Zone, notice string, width, height int) string {
	innerW := width - 4
	if innerW < ButtonWidth+buttonIndent {
		innerW = ButtonWidth + buttonIndent
	}
	innerH := height - 2
	if innerH < buttonRow+3 {
		innerH = buttonRow + 3
	}

	connText, connColor := ConnectionText(snap)
	conn := lipgloss.NewStyle().Foreground(connColor).Bold(true).Render(connText)
	if !snap.Connected && snap.Phase != monitor.PhaseIdle {
		conn += StyleHelp.Render("  (" + strings.ToLower(snap.Phase.String()) + ")")
	}

	alert := lipgloss.NewStyle().Foreground(ZoneColor(snap.Zone)).Bold(true).Render(snap.Zone.Label())

	calText, calColor := CalibrationText(snap.Calibrating)
	cal := lipgloss.NewStyle().Foreground(calColor).Render(calText)

	lines := []string{
		StylePanelTitle.Render("STRAP STATUS"),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
		"",
		"  " + conn,
		"",
		"  " + alert,
		"",
		"  " + cal,
		"",
	}

	btnStyle := StyleButton
	if snap.Calibrating {
		btnStyle = StyleButtonActive
	}
	button := btnStyle.Width(ButtonWidth - 2).Render(ButtonLabel(snap.Calibrating))
	pad := strings.Repeat(" ", buttonIndent)
	for _, l := range strings.Split(button, "\n") {
		lines = append(lines, pad+l)
	}

	lines = append(lines,
		"",
		StyleLabel.Render("  Zone history"),
		"  "+RenderZoneStrip(zones, innerW-2),
		"",
	)
	if notice != "" {
		lines = append(lines, "  "+StyleNotice.Render(notice))
	}

	if len(lines) > innerH {
		lines = lines[:innerH]
	}
	content := strings.Join(lines, "\n")
	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(content)
	return clampLines(rendered, height)
}
