// Package watch implements the live dispatch monitor TUI. It attaches to the
// in-process status hub and tails unit status transitions as they happen.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
type Theme struct {
	StatusSucceeded lipgloss.Style
	StatusRunning   lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusPending   lipgloss.Style
	StatusSkipped   lipgloss.Style

	Title  lipgloss.Style
	Header lipgloss.Style
	Dim    lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		StatusSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		StatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		StatusSkipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),

		Title:  lipgloss.NewStyle().Bold(true).Foreground(purple),
		Header: lipgloss.NewStyle().Bold(true),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// styleFor picks the style matching a unit status string.
func (t Theme) styleFor(status string) lipgloss.Style {
	switch status {
	case "succeeded":
		return t.StatusSucceeded
	case "running":
		return t.StatusRunning
	case "failed":
		return t.StatusFailed
	case "skipped":
		return t.StatusSkipped
	default:
		return t.StatusPending
	}
}
