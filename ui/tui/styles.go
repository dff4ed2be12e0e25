package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds all the lipgloss styles for the TUI.
type Styles struct {
	// Region titles
	Title         lipgloss.Style
	TitleSelected lipgloss.Style
	TitleFloating lipgloss.Style

	// Input line
	InputPrompt lipgloss.Style
	Message     lipgloss.Style

	Muted lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("238")),
		TitleSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")),
		TitleFloating: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("94")), // Muted orange

		InputPrompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		Message: lipgloss.NewStyle().
			Foreground(lipgloss.Color("179")), // Muted yellow

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}
