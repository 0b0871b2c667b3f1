package model

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	helpStyle  = lipgloss.NewStyle().Faint(true)

	// status line
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	// save indicator next to the title input
	savedBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Faint(true)
	savingBadge  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true)
	unsavedBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")).Padding(0, 1)

	paneStyle       = lipgloss.NewStyle().Padding(0, 1)
	activePaneStyle = paneStyle.Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("12"))
)
