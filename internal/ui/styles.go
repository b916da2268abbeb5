package ui

import "github.com/charmbracelet/lipgloss"

// Chrome palette
var (
	ColorMatrixGreen = lipgloss.Color("#00FF41")
	ColorGreen       = lipgloss.Color("#00CC33")
	ColorMidGreen    = lipgloss.Color("#008F11")
	ColorDimGreen    = lipgloss.Color("#004A0A")
	ColorBorderNorm  = lipgloss.Color("#00AA22")
	ColorWarning     = lipgloss.Color("#FFAA00")
)

// Status palette, matching the strap's LED colours.
var (
	ColorConnected    = lipgloss.Color("#00FF00")
	ColorDisconnected = lipgloss.Color("#FF0000")
	ColorZoneLoose    = lipgloss.Color("#FF0000")
	ColorZoneTight    = lipgloss.Color("#00C800")
	ColorZoneMaybe    = lipgloss.Color("#FFC800")
	ColorZoneNone     = lipgloss.Color("#C8C8C8")
	ColorCalOn        = lipgloss.Color("#3C3CFF")
	ColorCalOff       = lipgloss.Color("#969696")
	ColorButtonBg     = lipgloss.Color("#323232")
	ColorButtonFg     = lipgloss.Color("#FFFFFF")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StylePhaseLive = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StylePhaseIdle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleSeparator = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleNotice = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StyleButton = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorCalOff).
			Background(ColorButtonBg).
			Foreground(ColorButtonFg).
			Bold(true).
			Align(lipgloss.Center)

	StyleButtonActive = StyleButton.
				BorderForeground(ColorCalOn)
)
