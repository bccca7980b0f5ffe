package components

import (
	"fmt"
	"strings"

	"github.com/breathsave/breathsave/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Status is what the bottom bar reports.
type Status struct {
	User        string // signed-in user, empty when auth is off
	Users       int    // rows in the milestone table
	LoadedAgo   string
	Refreshing  bool
	AutoRefresh bool
	Flash       string // transient message, e.g. "saved"
}

// RenderStatusBar renders the bottom status bar across width columns.
func RenderStatusBar(width int, s Status) string {
	t := theme.Active

	bar := lipgloss.NewStyle().Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	infoStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	flashStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Bold(true)

	left := dimStyle.Render(" [") + keyStyle.Render("?") + dimStyle.Render("]help ") +
		dimStyle.Render("[") + keyStyle.Render("r") + dimStyle.Render("]efresh ") +
		dimStyle.Render("[") + keyStyle.Render("q") + dimStyle.Render("]uit")
	if s.Flash != "" {
		left += bar.Render("  ") + flashStyle.Render(s.Flash)
	}

	var parts []string
	if s.User != "" {
		parts = append(parts, "signed in as "+s.User)
	}
	parts = append(parts, fmt.Sprintf("%d users", s.Users))
	switch {
	case s.Refreshing:
		parts = append(parts, "refreshing…")
	case s.LoadedAgo != "":
		parts = append(parts, "loaded "+s.LoadedAgo)
	}
	if s.AutoRefresh {
		parts = append(parts, "auto")
	}
	right := infoStyle.Render(strings.Join(parts, " · ") + " ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + bar.Render(strings.Repeat(" ", gap)) + right
}
