package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/sessiond/internal/ports"
)

const DefaultEvictionAge = 10 * time.Minute

type Reaper struct {
	sessions ports.SessionRepository
	clock    ports.Clock
}

func NewReaper(sessions ports.SessionRepository, clock ports.Clock) *Reaper {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Reaper{sessions: sessions, clock: clock}
}

// Sweep removes sessions whose last heartbeat is older than evictionAge,
// kill flag or not. Non-positive ages fall back to DefaultEvictionAge.
func (r *Reaper) Sweep(ctx context.Context, evictionAge time.Duration) (int, error) {
	if evictionAge <= 0 {
		evictionAge = DefaultEvictionAge
	}

	removed, err := r.sessions.DeleteHeartbeatBefore(ctx, r.clock.Now().Add(-evictionAge))
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}

	return removed, nil
}
