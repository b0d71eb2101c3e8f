package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorCurrent = lipgloss.Color("39")  // blue
	colorDone    = lipgloss.Color("76")  // green
	colorError   = lipgloss.Color("196") // bright red
	colorMuted   = lipgloss.Color("242") // gray
	colorWhite   = lipgloss.Color("15")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(colorWhite).
			Bold(true)

	currentStyle = lipgloss.NewStyle().
			Foreground(colorCurrent).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(colorDone)

	normalStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	listBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	instructionsBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorCurrent)
)

// marker returns the icon shown before a behavior or action.
func marker(current, completed bool) string {
	switch {
	case current:
		return currentStyle.Render("▶")
	case completed:
		return doneStyle.Render("✓")
	default:
		return mutedStyle.Render("·")
	}
}
