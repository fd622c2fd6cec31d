package commands

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. Each color has a light and a dark terminal variant.
var (
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#6d28d9", Dark: "#a78bfa"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#a16207", Dark: "#facc15"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	ColorDim     = lipgloss.AdaptiveColor{Light: "#9ca3af", Dark: "#4b5563"}
	ColorText    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#f9fafb"}
)

// isTTY reports whether stdout gets styled output
func isTTY() bool {
	if OutputFormat == "plain" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// stdinIsTTY reports whether stdin can be prompted
func stdinIsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	StyleHeader    = fg(ColorText).Bold(true)
	StyleSubheader = fg(ColorMuted).Bold(true)
	StyleAccent    = fg(ColorAccent).Bold(true)
	StyleSuccess   = fg(ColorSuccess)
	StyleWarning   = fg(ColorWarning)
	StyleError     = fg(ColorError)
	StyleInfo      = fg(ColorInfo)
	StyleMuted     = fg(ColorMuted)
	StyleDim       = fg(ColorDim)
	StyleLabel     = fg(ColorMuted).Width(16)
	StyleValue     = fg(ColorText)

	StyleBox       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorDim).Padding(0, 1)
	StyleBoxAccent = StyleBox.BorderForeground(ColorAccent)

	StyleTableHeader = fg(ColorAccent).Bold(true).Padding(0, 1)
	StyleTableRow    = fg(ColorText).Padding(0, 1)
	StyleTableRowAlt = fg(ColorMuted).Padding(0, 1)
)

// badgeColors maps connection and position states to badge backgrounds
var badgeColors = map[string]lipgloss.AdaptiveColor{
	"connected":    ColorSuccess,
	"ok":           ColorSuccess,
	"auto-renew":   ColorSuccess,
	"disconnected": ColorError,
	"failed":       ColorError,
	"mock":         ColorWarning,
	"pending":      ColorWarning,
	"locked":       ColorWarning,
}

// StatusBadge renders a short colored status label
func StatusBadge(status string) string {
	if !isTTY() {
		return "[" + status + "]"
	}
	bg, ok := badgeColors[status]
	if !ok {
		bg = ColorMuted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(bg).
		Padding(0, 1).
		Bold(true).
		Render(status)
}

// Logo returns the styled program name
func Logo() string {
	return StyleAccent.Render("vestake")
}
