package ports

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/sessiond/internal/domain"
)

// ErrRegistryUnavailable marks transport failures: unreachable registry,
// timeouts and server-side faults.
var ErrRegistryUnavailable = errors.New("session registry unavailable")

// Registry is the agent-facing side of the session registry.
type Registry interface {
	Register(ctx context.Context, appName, userID string) (domain.SessionID, error)
	Remove(ctx context.Context, id domain.SessionID) (bool, error)
	Heartbeat(ctx context.Context, id domain.SessionID) (bool, error)
	SetStatus(ctx context.Context, id domain.SessionID, status domain.Status, currentTask string) (bool, error)
}

// SessionView is a session record plus the values computed at read time.
type SessionView struct {
	domain.Session
	DurationSeconds int64
	IsStale         bool
	DisplayStatus   domain.Status
}

// Dashboard is the operator-facing side: listing, reaping and kill requests.
type Dashboard interface {
	List(ctx context.Context) ([]SessionView, error)
	SweepStale(ctx context.Context, evictionAge time.Duration) (int, error)
	RequestKill(ctx context.Context, id domain.SessionID) (bool, error)
	RequestKillForApp(ctx context.Context, appName string) (int, error)
}
