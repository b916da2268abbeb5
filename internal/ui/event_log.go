package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"strap-monitor.klederson.com/internal/monitor"
)

// RenderEventLog renders the most recent link events, newest at the bottom.
func RenderEventLog(events []monitor.Event, width, height int) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}

	title := StylePanelTitle.Render(fmt.Sprintf("EVENTS [%d]", len(events)))
	separator := StyleSeparator.Render(strings.Repeat("-", innerW))
	header := []string{title, separator}

	innerH := height - 2
	if innerH < len(header)+1 {
		innerH = len(header) + 1
	}
	space := innerH - len(header)

	var body []string
	if len(events) == 0 {
		body = append(body, "", StyleHelp.Render(" No events yet..."))
	} else {
		start := 0
		if len(events) > space {
			start = len(events) - space
		}
		for _, e := range events[start:] {
			body = append(body, renderEventLine(e, innerW))
		}
	}
	for len(body) < space {
		body = append(body, "")
	}

	content := strings.Join(append(header, body...), "\n")
	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(content)
	return clampLines(rendered, height)
}

func renderEventLine(e monitor.Event, maxW int) string {
	stamp := e.Time.Format("15:04:05")
	tag := fmt.Sprintf("[%-4s]", e.Kind.String())
	text := truncRaw(e.Summary(), maxW-len(stamp)-len(tag)-2)

	return StyleHelp.Render(stamp) + " " + StyleLabel.Render(tag) + " " + eventStyle(e).Render(text)
}

// eventStyle colours an event's text by what it reports.
func eventStyle(e monitor.Event) lipgloss.Style {
	switch e.Kind {
	case monitor.EventZone:
		return StyleValue.Foreground(ZoneColor(e.Zone))
	case monitor.EventConnected:
		return StyleValue.Foreground(ColorConnected)
	case monitor.EventDisconnected, monitor.EventError:
		return StyleValue.Foreground(ColorDisconnected)
	case monitor.EventCalibration:
		_, color := CalibrationText(e.Calibrating)
		return StyleValue.Foreground(color)
	}
	return StyleValue
}

// truncRaw cuts a raw string to at most w characters.
func truncRaw(s string, w int) string {
	if w < 1 {
		return ""
	}
	if len(s) > w {
		return s[:w]
	}
	return s
}
