package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
)

// KillCoordinator sets kill flags. A flag is only observed at the target
// agent's next heartbeat, so a successful call says nothing about whether the
// session has stopped yet.
type KillCoordinator struct {
	sessions ports.SessionRepository
}

func NewKillCoordinator(sessions ports.SessionRepository) *KillCoordinator {
	return &KillCoordinator{sessions: sessions}
}

func (k *KillCoordinator) RequestKill(ctx context.Context, id domain.SessionID) (bool, error) {
	if err := k.sessions.MarkKill(ctx, id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("mark session kill: %w", err)
	}

	return true, nil
}

func (k *KillCoordinator) RequestKillForApp(ctx context.Context, appName string) (int, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return 0, nil
	}

	count, err := k.sessions.MarkKillForApp(ctx, appName)
	if err != nil {
		return 0, fmt.Errorf("mark app kill: %w", err)
	}

	return count, nil
}
