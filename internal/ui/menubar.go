package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"strap-monitor.klederson.com/internal/config"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, adapter string, demo bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"C", "alibrate"},
		{"Q", "uit"},
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	mode := StylePhaseLive.Render("LIVE")
	if demo {
		mode = StylePhaseIdle.Render("DEMO")
	}

	adapterInfo := StyleMenuLabel.Render(fmt.Sprintf("Adapter: %s", adapter))

	left := StyleMenuKey.Render(title) + menu
	right := mode + "  " + adapterInfo + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
