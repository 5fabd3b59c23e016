package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/google/uuid"
)

const DefaultStaleThreshold = 2 * time.Minute

type Registry struct {
	sessions       ports.SessionRepository
	clock          ports.Clock
	staleThreshold time.Duration
	newID          func() domain.SessionID
}

var _ ports.Registry = (*Registry)(nil)

func NewRegistry(sessions ports.SessionRepository, clock ports.Clock, staleThreshold time.Duration) *Registry {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}

	return &Registry{
		sessions:       sessions,
		clock:          clock,
		staleThreshold: staleThreshold,
		newID: func() domain.SessionID {
			return domain.SessionID(uuid.NewString())
		},
	}
}

func (r *Registry) Register(ctx context.Context, appName, userID string) (domain.SessionID, error) {
	if err := domain.ValidateAppName(appName); err != nil {
		return "", err
	}

	now := r.clock.Now()
	session := domain.Session{
		ID:              r.newID(),
		AppName:         strings.TrimSpace(appName),
		UserID:          strings.TrimSpace(userID),
		Status:          domain.StatusIdle,
		CreatedAt:       now,
		LastHeartbeatAt: now,
	}

	if err := r.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return session.ID, nil
}

func (r *Registry) Remove(ctx context.Context, id domain.SessionID) (bool, error) {
	removed, err := r.sessions.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}

	return removed, nil
}

// Heartbeat returns domain.ErrSessionNotFound for unknown ids so the caller
// can tell a reaped session from a live one.
func (r *Registry) Heartbeat(ctx context.Context, id domain.SessionID) (bool, error) {
	killRequested, err := r.sessions.Touch(ctx, id, r.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, err
		}
		return false, fmt.Errorf("touch session: %w", err)
	}

	return killRequested, nil
}

func (r *Registry) SetStatus(ctx context.Context, id domain.SessionID, status domain.Status, currentTask string) (bool, error) {
	if !status.Settable() {
		return false, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	err := r.sessions.UpdateStatus(ctx, id, status, currentTask, r.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("update session status: %w", err)
	}

	return true, nil
}

func (r *Registry) List(ctx context.Context) ([]ports.SessionView, error) {
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := r.clock.Now()
	views := make([]ports.SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, viewFromSession(session, now, r.staleThreshold))
	}

	return views, nil
}

func viewFromSession(session domain.Session, now time.Time, staleThreshold time.Duration) ports.SessionView {
	stale := session.IsStale(now, staleThreshold)
	display := session.Status
	if stale {
		display = domain.StatusStale
	}

	return ports.SessionView{
		Session:         session,
		DurationSeconds: int64(session.Duration(now) / time.Second),
		IsStale:         stale,
		DisplayStatus:   display,
	}
}
