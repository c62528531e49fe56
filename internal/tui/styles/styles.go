package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Phase colors
	PhaseIdle    = lipgloss.Color("#9CA3AF") // Gray
	PhaseLoading = lipgloss.Color("#60A5FA") // Blue
	PhaseReady   = lipgloss.Color("#10B981") // Green
	PhaseShowing = lipgloss.Color("#A78BFA") // Purple

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Header
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1).
		PaddingBottom(1)

	// Phase badge; the background is set per phase
	PhaseBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(SurfaceColor).
			Padding(0, 1).
			MarginRight(1)

	// Label in the status panel
	Label = lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(10)

	// Status panel
	StatusBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	// Event log
	EventLog = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1).
			MarginTop(1)

	EventTime = lipgloss.NewStyle().
			Foreground(MutedColor).
			MarginRight(1)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Footer / status bar
	StatusBar = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	// Error message
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Success message
	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	// Warning message
	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)
)

// PhaseColor returns the color for a lifecycle phase name
func PhaseColor(phase string) lipgloss.Color {
	switch phase {
	case "idle":
		return PhaseIdle
	case "loading":
		return PhaseLoading
	case "ready":
		return PhaseReady
	case "showing":
		return PhaseShowing
	default:
		return MutedColor
	}
}

// PhaseIcon returns an icon for a lifecycle phase name
func PhaseIcon(phase string) string {
	switch phase {
	case "idle":
		return "○"
	case "loading":
		return "◌"
	case "ready":
		return "●"
	case "showing":
		return "▶"
	default:
		return "?"
	}
}

// EventColor returns the color for an observer event type
func EventColor(eventType string) lipgloss.Color {
	switch eventType {
	case "ad.received":
		return SecondaryColor
	case "ad.failed":
		return ErrorColor
	case "ad.will_present", "ad.did_dismiss":
		return PrimaryColor
	case "ad.did_click", "ad.will_leave_app":
		return WarningColor
	default:
		return BlueColor
	}
}
