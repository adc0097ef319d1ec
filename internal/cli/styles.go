// Package cli provides styled terminal output for payflow commands using
// lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#2E86AB")
	green  = lipgloss.Color("#4ECDC4")
	amber  = lipgloss.Color("#FFE66D")
	red    = lipgloss.Color("#FF6B6B")
	teal   = lipgloss.Color("#95E1D3")
	gray   = lipgloss.Color("#666666")
)

var (
	// TitleStyle renders section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	// SuccessStyle renders completed work.
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	// WarningStyle renders values that need review, such as low confidence.
	WarningStyle = lipgloss.NewStyle().Foreground(amber)
	// ErrorStyle renders failures.
	ErrorStyle = lipgloss.NewStyle().Foreground(red)
	// InfoStyle renders neutral notices.
	InfoStyle = lipgloss.NewStyle().Foreground(teal)
	// SubtleStyle renders paths and hints.
	SubtleStyle = lipgloss.NewStyle().Foreground(gray)
	// BoldStyle highlights net pay.
	BoldStyle = lipgloss.NewStyle().Bold(true)
	// TableHeaderStyle renders table headers.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	PayIcon     = "💴"
	PendingIcon = "○"
	ActiveIcon  = "◐"
	BlockedIcon = "⊘"
)

type statusLook struct {
	style lipgloss.Style
	icon  string
}

// statusLooks covers job statuses (queued, processing, completed, failed)
// and workflow step statuses (pending, in_progress, completed, blocked).
var statusLooks = map[string]statusLook{
	"completed":   {SuccessStyle, SuccessIcon},
	"failed":      {ErrorStyle, ErrorIcon},
	"processing":  {InfoStyle, ActiveIcon},
	"in_progress": {InfoStyle, ActiveIcon},
	"blocked":     {WarningStyle, BlockedIcon},
}

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

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the payroll icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(PayIcon + " " + title)
}

// FormatPrompt formats a question awaiting an answer.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// FormatStatus renders a job or workflow status with its icon. Unknown
// statuses render as pending.
func FormatStatus(status string) string {
	look, ok := statusLooks[status]
	if !ok {
		look = statusLook{SubtleStyle, PendingIcon}
	}
	return look.style.Render(look.icon + " " + status)
}

// RenderBox renders content under a title in a rounded box.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.UnsetMargins().Render(title),
		content,
	))
}
