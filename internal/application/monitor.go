package application

import (
	"context"
	"time"

	"github.com/bnema/sessiond/internal/ports"
)

// Monitor bundles the registry with the operator operations so a single value
// can back both the agent-facing and the dashboard-facing API.
type Monitor struct {
	*Registry
	*KillCoordinator
	reaper *Reaper
}

var (
	_ ports.Registry  = (*Monitor)(nil)
	_ ports.Dashboard = (*Monitor)(nil)
)

func NewMonitor(sessions ports.SessionRepository, clock ports.Clock, staleThreshold time.Duration) *Monitor {
	return &Monitor{
		Registry:        NewRegistry(sessions, clock, staleThreshold),
		KillCoordinator: NewKillCoordinator(sessions),
		reaper:          NewReaper(sessions, clock),
	}
}

func (m *Monitor) SweepStale(ctx context.Context, evictionAge time.Duration) (int, error) {
	return m.reaper.Sweep(ctx, evictionAge)
}
