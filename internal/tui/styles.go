package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorBlue  = lipgloss.Color("#1563ff")
	ColorGray  = lipgloss.Color("245")
	ColorRed   = lipgloss.Color("196")
	ColorWhite = lipgloss.Color("255")

	titleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	axisStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	barStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Background(ColorBlue)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)
)
