package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
)

var (
	// Colors
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSecondary = lipgloss.Color("#06B6D4")
	ColorDanger    = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorFg        = lipgloss.Color("#CDD6F4")
	ColorAccent    = lipgloss.Color("#F5C2E7")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Background(lipgloss.Color("#313244")).
			Padding(0, 2).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFg).
			Background(lipgloss.Color("#313244")).
			Padding(0, 1)

	// Tree
	SelectedStyle = lipgloss.NewStyle().
			Reverse(true)

	TreeConnectorStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)

	CleanStyle = lipgloss.NewStyle().
			Foreground(ColorFg)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	CodeStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// Severity styles
	SevCriticalStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(ColorDanger).
				Bold(true).
				Padding(0, 1)

	SevHighStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	SevMediumStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	SevLowStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// Spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	// Detail view
	DetailHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorAccent).
				MarginBottom(1)

	DetailLabelStyle = lipgloss.NewStyle().
				Foreground(ColorSecondary).
				Bold(true)

	DetailValueStyle = lipgloss.NewStyle().
				Foreground(ColorFg)

	// Success / Error messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	// Pane styles
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)

	FocusedPaneStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary).
				Padding(0, 1)
)

func SeverityStyle(sev analyzer.Severity) lipgloss.Style {
	switch sev {
	case analyzer.SeverityCritical:
		return SevCriticalStyle
	case analyzer.SeverityHigh:
		return SevHighStyle
	case analyzer.SeverityMedium:
		return SevMediumStyle
	default:
		return SevLowStyle
	}
}
