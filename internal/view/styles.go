// Package view renders conversations, contacts and notices for the terminal.
package view

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Accent      = lipgloss.Color("#2196F3")
	Muted       = lipgloss.Color("#8a94a6")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Destructive = lipgloss.Color("#e53935")
)

// Styles holds the styles used by a Renderer.
type Styles struct {
	DayHeader lipgloss.Style
	Time      lipgloss.Style
	Self      lipgloss.Style
	Peer      lipgloss.Style
	Body      lipgloss.Style
	Image     lipgloss.Style
	Pending   lipgloss.Style
	Notice    lipgloss.Style
	Info      lipgloss.Style
	Online    lipgloss.Style
	Offline   lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		DayHeader: lipgloss.NewStyle().
			Foreground(Muted).
			Bold(true),

		Time: lipgloss.NewStyle().
			Foreground(Muted),

		Self: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),

		Peer: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Body: lipgloss.NewStyle(),

		Image: lipgloss.NewStyle().
			Foreground(Accent).
			Underline(true),

		Pending: lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true),

		Notice: lipgloss.NewStyle().
			Foreground(Destructive),

		Info: lipgloss.NewStyle().
			Foreground(Warning),

		Online: lipgloss.NewStyle().
			Foreground(Success),

		Offline: lipgloss.NewStyle().
			Foreground(Muted),
	}
}

// PlainStyles returns styles without any decoration.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		DayHeader: plain,
		Time:      plain,
		Self:      plain,
		Peer:      plain,
		Body:      plain,
		Image:     plain,
		Pending:   plain,
		Notice:    plain,
		Info:      plain,
		Online:    plain,
		Offline:   plain,
	}
}
