package ui

import "github.com/charmbracelet/lipgloss"

// Terminal palette, picked for contrast on dark backgrounds.
const (
	ColorWhite   = "#FFFFFF"
	ColorGray500 = "#6C7585"
	ColorGray600 = "#4E5560"
	ColorGray800 = "#212732"

	ColorIndigo300 = "#A5B4FC"
	ColorIndigo400 = "#818CF8"
	ColorIndigo500 = "#6366F1"
	ColorIndigo600 = "#4F46E5"

	ColorGreen400  = "#63D78E"
	ColorRed400    = "#F87171"
	ColorYellow300 = "#F8D34C"
	ColorYellow400 = "#F9C424"
	ColorTeal400   = "#80D0C3"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorIndigo500))

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorGreen400))

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorRed400))

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorYellow400))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorIndigo500)).
			Padding(0, 1)

	// DimStyle is for secondary text such as skipped steps and durations.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray500))

	StepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorIndigo400))

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	CodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorIndigo300))

	URLStyle = lipgloss.NewStyle().
			Underline(true).
			Foreground(lipgloss.Color(ColorTeal400))

	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorYellow300))
)
