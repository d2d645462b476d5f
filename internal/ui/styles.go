package ui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by tables and progress output.
var (
	ColorAccent = lipgloss.Color("12")
	ColorWarn   = lipgloss.Color("11")
	ColorPass   = lipgloss.Color("10")
	ColorFail   = lipgloss.Color("9")
	ColorMuted  = lipgloss.Color("8")
)

var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorAccent).
				Align(lipgloss.Center)

	TableWarningStyle = lipgloss.NewStyle().
				Foreground(ColorWarn)

	TableSuccessStyle = lipgloss.NewStyle().
				Foreground(ColorPass)

	TableHintStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	TableBorderStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)
)
