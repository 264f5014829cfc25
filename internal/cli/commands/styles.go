package commands

import "github.com/charmbracelet/lipgloss"

// Styles for command output.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	modelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// statusStyle maps a model status to its display style.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "success":
		return successStyle
	case "failed":
		return errorStyle
	case "skipped":
		return skippedStyle
	default:
		return mutedStyle
	}
}
