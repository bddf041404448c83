// Package theme holds the terminal palette shared by the console
// notifier and the CLI table.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/git-tkc/self-assistant/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for box titles and table headers.
var HeaderStyle = lipgloss.NewStyle().Bold(true)

// CellStyle pads table cells.
var CellStyle = lipgloss.NewStyle().Padding(0, 1)

// ErrorStyle marks failed sources.
var ErrorStyle = lipgloss.NewStyle().Foreground(ColorRed)

// BoxStyle frames a cycle summary.
var BoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// StatusStyle returns a color-coded style for a normalized status.
func StatusStyle(status model.Status) lipgloss.Style {
	base := CellStyle
	switch status {
	case model.StatusOpen:
		return base.Foreground(ColorBlue)
	case model.StatusInProgress:
		return base.Foreground(ColorYellow)
	case model.StatusCompleted:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for a normalized priority.
func PriorityStyle(priority model.Priority) lipgloss.Style {
	base := CellStyle.Bold(true)
	switch priority {
	case model.PriorityHigh:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorOrange)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// SourceStyle returns a color-coded style for a source label.
func SourceStyle(name model.SourceName) lipgloss.Style {
	base := CellStyle
	switch name {
	case model.SourceGroupware:
		return base.Foreground(ColorYellow)
	case model.SourceMail:
		return base.Foreground(ColorGreen)
	case model.SourceTracker:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}
