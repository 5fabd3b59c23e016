package sessions

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

func renderView(views []ports.SessionView, opts RenderOptions, s styles) string {
	stale, pending := 0, 0
	for _, view := range views {
		if view.IsStale {
			stale++
		}
		if view.KillRequested {
			pending++
		}
	}

	lines := []string{
		s.title.Render("Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d  stale: %d  kill pending: %d", len(views), stale, pending)),
	}

	if len(views) == 0 {
		lines = append(lines, s.empty.Render("No active sessions."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, view := range views {
		lines = append(lines, s.section.Render(renderSession(view, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(view ports.SessionView, opts RenderOptions, s styles) string {
	title := s.app.Render(sessionTitle(view))
	if view.KillRequested {
		title += " " + s.warning.Render("[kill pending]")
	}

	parts := []string{
		title,
		lipgloss.JoinHorizontal(lipgloss.Top,
			statusStyle(view.DisplayStatus, s).Render(string(view.DisplayStatus)),
			s.detail.Render(taskLabel(view.CurrentTask)),
		),
		s.meta.Render(fmt.Sprintf("up %s, heartbeat %s", formatDuration(time.Duration(view.DurationSeconds)*time.Second), heartbeatAge(view.LastHeartbeatAt, opts))),
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sessionTitle(view ports.SessionView) string {
	user := strings.TrimSpace(view.UserID)
	if user == "" {
		return fmt.Sprintf("%s (%s)", view.AppName, view.ID)
	}
	return fmt.Sprintf("%s (%s) user %s", view.AppName, view.ID, user)
}

func statusStyle(status domain.Status, s styles) lipgloss.Style {
	switch status {
	case domain.StatusRunning:
		return s.running
	case domain.StatusStale:
		return s.stale
	default:
		return s.idle
	}
}

func taskLabel(task string) string {
	if strings.TrimSpace(task) == "" {
		return ""
	}
	return ": " + task
}

func heartbeatAge(last time.Time, opts RenderOptions) string {
	if opts.Now.IsZero() || last.IsZero() {
		return "at " + last.Format(time.RFC3339)
	}

	age := opts.Now.Sub(last)
	if age < 0 {
		age = 0
	}

	label := formatDuration(age) + " ago"
	if opts.StaleAfter > 0 && age > opts.StaleAfter {
		label += " (stale after " + formatDuration(opts.StaleAfter) + ")"
	}
	return label
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
