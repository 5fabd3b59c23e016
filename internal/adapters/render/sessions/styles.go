package sessions

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	app     lipgloss.Style
	detail  lipgloss.Style
	meta    lipgloss.Style
	warning lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
	idle    lipgloss.Style
	running lipgloss.Style
	stale   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		app:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
		idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		running: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78")),
		stale:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}
