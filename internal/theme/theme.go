package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/repowatch/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the title line of command output.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// RepoStyle renders a repository full name.
var RepoStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// PanelStyle wraps a block of status output.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HelpStyle is used for hints and empty-state text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle is used for failures reported to the user.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// BadgeStyle returns the style of a badge with the given color hint. An
// empty hint renders as plain text.
func BadgeStyle(color string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if color == "" {
		return base.Foreground(ColorGray)
	}
	return base.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(color))
}

// CategoryStyle returns a color-coded style for a notification category.
func CategoryStyle(c model.Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).PaddingLeft(2)

	switch c {
	case model.CategoryIssues:
		return base.Foreground(ColorGreen)
	case model.CategoryNewPRs:
		return base.Foreground(ColorBlue)
	case model.CategoryAssignedPRs:
		return base.Foreground(ColorMagenta)
	case model.CategoryActions:
		return base.Foreground(ColorYellow)
	case model.CategoryNewReleases:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}
