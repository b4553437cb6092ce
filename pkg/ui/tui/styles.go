package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	darkBg      = lipgloss.Color("#0A0E27")
	darkBg2     = lipgloss.Color("#1A1E37")
	dimWhite    = lipgloss.Color("#B0B0B0")

	// Base styles
	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	logoStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Background(darkBg2).
			Padding(1, 2)

	statsLabelStyle = lipgloss.NewStyle().Foreground(neonCyan).Bold(true)
	statsValueStyle = lipgloss.NewStyle().Foreground(neonYellow)

	// Outcome styles
	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	// Account row styles
	rowStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	rowActiveStyle = rowStyle.
			Foreground(neonGreen).
			Bold(true)

	rowDoneStyle = rowStyle.
			Foreground(dimWhite).
			Faint(true)

	logTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	logMessageStyle   = lipgloss.NewStyle().Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)
)

// GetOutcomeStyle returns the style for a batch outcome name
func GetOutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "exited_to_feed":
		return successStyle
	case "drifted_account":
		return warningStyle
	case "too_many_failures":
		return errorStyle
	default:
		return lipgloss.NewStyle().Foreground(dimWhite)
	}
}
