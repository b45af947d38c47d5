package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Focused lipgloss.Style
	Blurred lipgloss.Style
	Button  lipgloss.Style
	Active  lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Frame   lipgloss.Style
}

func newStyles(out io.Writer, noColor bool) styles {
	r := lipgloss.NewRenderer(out)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}

	accent := lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	return styles{
		Title:   r.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Label:   r.NewStyle().Width(16),
		Focused: r.NewStyle().Foreground(accent),
		Blurred: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
		Button:  r.NewStyle().Padding(0, 1),
		Active:  r.NewStyle().Padding(0, 1).Bold(true).Reverse(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Muted:   r.NewStyle().Faint(true),
		Frame:   r.NewStyle().Padding(1, 2),
	}
}
