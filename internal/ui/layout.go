package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Rect is a cell rectangle in terminal coordinates.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// CalibrationButtonRect locates the calibration button for a status panel
// whose top-left corner is at (originX, originY).
func CalibrationButtonRect(originX, originY int) Rect {
	return Rect{
		X: originX + 1 + buttonIndent,
		Y: originY + 1 + buttonRow,
		W: ButtonWidth,
		H: 3,
	}
}

// ComposeLayout joins the status panel and event log horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, statusPanel, eventLog, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, statusPanel, eventLog)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

// clampLines pads or truncates rendered output to exactly height lines.
// lipgloss Height() only sets a minimum.
func clampLines(rendered string, height int) string {
	lines := strings.Split(rendered, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
