package styles

import "testing"

func TestPhaseColor(t *testing.T) {
	tests := []struct {
		phase    string
		expected string // Expected color hex value
	}{
		{"idle", "#9CA3AF"},
		{"loading", "#60A5FA"},
		{"ready", "#10B981"},
		{"showing", "#A78BFA"},
		{"unknown", "#9CA3AF"}, // Should fall back to MutedColor
	}

	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			got := PhaseColor(tt.phase)
			if string(got) != tt.expected {
				t.Errorf("PhaseColor(%q) = %q, want %q", tt.phase, got, tt.expected)
			}
		})
	}
}

func TestPhaseIcon(t *testing.T) {
	tests := []struct {
		phase    string
		expected string
	}{
		{"idle", "○"},
		{"loading", "◌"},
		{"ready", "●"},
		{"showing", "▶"},
		{"closed", "?"}, // Should fall back to default
	}

	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			got := PhaseIcon(tt.phase)
			if got != tt.expected {
				t.Errorf("PhaseIcon(%q) = %q, want %q", tt.phase, got, tt.expected)
			}
		})
	}
}

func TestEventColor(t *testing.T) {
	tests := []struct {
		eventType string
		expected  string
	}{
		{"ad.received", "#10B981"},
		{"ad.failed", "#F87171"},
		{"ad.will_present", "#A78BFA"},
		{"ad.did_dismiss", "#A78BFA"},
		{"ad.did_click", "#F59E0B"},
		{"ad.impression", "#60A5FA"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			got := EventColor(tt.eventType)
			if string(got) != tt.expected {
				t.Errorf("EventColor(%q) = %q, want %q", tt.eventType, got, tt.expected)
			}
		})
	}
}
