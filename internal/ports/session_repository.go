package ports

import (
	"context"
	"time"

	"github.com/bnema/sessiond/internal/domain"
)

// SessionRepository is the durable keyed session store. Implementations
// serialize read-modify-write on a single record; unrelated records need not
// share a lock.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)
	Delete(ctx context.Context, id domain.SessionID) (bool, error)
	// Touch advances last_heartbeat_at to at (never backwards) and returns the
	// kill flag read in the same atomic step.
	Touch(ctx context.Context, id domain.SessionID, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id domain.SessionID, status domain.Status, currentTask string, at time.Time) error
	MarkKill(ctx context.Context, id domain.SessionID) error
	MarkKillForApp(ctx context.Context, appName string) (int, error)
	DeleteHeartbeatBefore(ctx context.Context, cutoff time.Time) (int, error)
}
