// Package tui implements the terminal dashboard (`autodev dashboard`): a
// bubbletea program that polls the status snapshot and repo registry on a
// refresh tick.
package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	accent     = lipgloss.Color("#14B8A6")
	accentSoft = lipgloss.Color("#0F766E")
	green      = lipgloss.Color("#22C55E")
	yellow     = lipgloss.Color("#F59E0B")
	red        = lipgloss.Color("#EF4444")
	blue       = lipgloss.Color("#38BDF8")
	slate      = lipgloss.Color("#94A3B8")
	slateDim   = lipgloss.Color("#64748B")
	panelBg    = lipgloss.Color("#111827")
	bgDark     = lipgloss.Color("#0B1220")
	line       = lipgloss.Color("#1F2937")
	ink        = lipgloss.Color("#E5E7EB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ink).
			Background(bgDark).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderForeground(accent).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(line).
			Background(panelBg).
			Padding(1, 1)

	panelHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ink)

	mutedBadgeStyle = lipgloss.NewStyle().
				Foreground(slate).
				Background(bgDark).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(line).
				Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(line).
			Background(panelBg).
			Padding(1, 2)

	dimStyle = lipgloss.NewStyle().Foreground(slateDim)

	wipStyle    = lipgloss.NewStyle().Bold(true).Foreground(blue)
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(green)
	skipStyle   = lipgloss.NewStyle().Bold(true).Foreground(yellow)
	failedStyle = lipgloss.NewStyle().Bold(true).Foreground(red)
)

func phaseBadge(phase string) string {
	style := mutedBadgeStyle
	switch phase {
	case "ANALYZING", "IMPLEMENTING", "REVIEWING", "IMPROVING", "MERGING":
		style = lipgloss.NewStyle().Foreground(bgDark).Background(blue).Padding(0, 1)
	case "READY", "REVIEW_DONE", "IMPROVED":
		style = lipgloss.NewStyle().Foreground(bgDark).Background(green).Padding(0, 1)
	case "CONFLICT":
		style = lipgloss.NewStyle().Foreground(bgDark).Background(red).Padding(0, 1)
	}
	return style.Render(phase)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}

// tableStyles themes a bubbles/table.Model to match the rest of the
// dashboard's dark palette.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(line).
		BorderBottom(true).
		Bold(true).
		Foreground(ink)
	s.Selected = s.Selected.
		Foreground(bgDark).
		Background(accentSoft)
	s.Cell = s.Cell.Foreground(ink)
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
