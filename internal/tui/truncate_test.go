package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestFitWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"no width yet", "ad.received", 0, "ad.received"},
		{"fits", "ad.received", 20, "ad.received"},
		{"exact", "ad.received", 11, "ad.received"},
		{"truncated", "ad.will_leave_app", 10, "ad.will..."},
		{"tiny width", "ad.received", 2, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fitWidth(tt.input, tt.maxWidth); got != tt.expected {
				t.Errorf("fitWidth(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.expected)
			}
		})
	}
}

func TestFitWidth_Styled(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("ad.did_dismiss cycle=0123abcd")
	got := fitWidth(styled, 12)
	if w := lipgloss.Width(got); w > 12 {
		t.Errorf("visual width = %d, want <= 12", w)
	}
}
