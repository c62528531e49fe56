package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// fitWidth truncates a styled line to maxWidth visual columns, ending it
// with "..." when cut. A non-positive maxWidth leaves the line as is, which
// is the case until the first WindowSizeMsg arrives.
func fitWidth(s string, maxWidth int) string {
	if maxWidth <= 0 || lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return "..."
	}
	// ansi.Truncate counts the tail toward the final width
	return ansi.Truncate(s, maxWidth, "...")
}
