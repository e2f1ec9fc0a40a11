// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color (spicy red).
	PrimaryColor = lipgloss.Color("#FF6B6B")
	// SuccessColor marks transaction drafts.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor marks fallbacks and cancellations.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor marks failures.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// InfoColor marks chat replies.
	InfoColor = lipgloss.Color("#95E1D3")
	// SubtleColor is for metadata.
	SubtleColor = lipgloss.Color("#666666")

	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	LabelStyle   = lipgloss.NewStyle().Bold(true).Width(12)
	PromptStyle  = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)

	// BoxStyle frames a rendered draft.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	SpiceIcon   = "🌶️"
	BotIcon     = "🤖"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatTitle formats a title with the spice icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(SpiceIcon + " " + title)
}

// FormatPrompt formats an input prompt.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}
