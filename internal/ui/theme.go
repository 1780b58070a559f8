package ui

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Theme returns the huh theme used by every prompt.
func Theme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(lipgloss.Color(ColorIndigo500))
	t.Focused.Title = t.Focused.Title.Foreground(lipgloss.Color(ColorIndigo400)).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(lipgloss.Color(ColorGray500))
	t.Focused.FocusedButton = t.Focused.FocusedButton.
		Foreground(lipgloss.Color(ColorWhite)).
		Background(lipgloss.Color(ColorIndigo600))
	t.Focused.BlurredButton = t.Focused.BlurredButton.
		Foreground(lipgloss.Color(ColorGray500)).
		Background(lipgloss.Color(ColorGray800))

	t.Blurred.Base = t.Blurred.Base.BorderForeground(lipgloss.Color(ColorGray600))
	t.Blurred.Title = t.Blurred.Title.Foreground(lipgloss.Color(ColorGray500))
	t.Blurred.Description = t.Blurred.Description.Foreground(lipgloss.Color(ColorGray600))

	return t
}
