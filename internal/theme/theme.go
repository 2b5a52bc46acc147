// Package theme holds the lipgloss styles of the command-line output.
package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
)

// HeaderStyle is used for the title line of a command's output.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// MutedStyle is used for secondary details such as ids.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// SuccessStyle marks completed actions.
var SuccessStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// WarnStyle marks partial results.
var WarnStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow)

// ErrorStyle marks failures.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// SentBadge tags a day already pushed to QB Time.
var SentBadge = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorGreen).
	PaddingLeft(1)

// DBStatusLabel renders the remote store status the way the header
// badge shows it.
func DBStatusLabel(status string) string {
	switch status {
	case "ok":
		return SuccessStyle.Render("DB Synced")
	case "error":
		return ErrorStyle.Render("DB Offline")
	default:
		return MutedStyle.Render("Loading…")
	}
}

// WeekSwatch renders label on the week color of a day.
func WeekSwatch(hex, label string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(hex)).
		Padding(0, 1).
		Render(label)
}

// SendSummary renders the outcome of sending one day.
func SendSummary(label string, created, failed int) string {
	switch {
	case created > 0 && failed == 0:
		return SuccessStyle.Render(fmt.Sprintf("✓ %d schedule event(s) created for %s", created, label))
	case created > 0:
		return WarnStyle.Render(fmt.Sprintf("Partial success: %d created, %d failed", created, failed))
	default:
		return ErrorStyle.Render("Failed to send schedule. Please check your data and try again.")
	}
}
