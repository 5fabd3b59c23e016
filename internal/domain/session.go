package domain

import (
	"fmt"
	"strings"
	"time"
)

type SessionID string

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	// StatusStale is computed for display and never stored.
	StatusStale Status = "stale"
)

// Settable reports whether an agent may store this status.
func (s Status) Settable() bool {
	switch s {
	case StatusIdle, StatusRunning:
		return true
	default:
		return false
	}
}

type Session struct {
	ID              SessionID
	AppName         string
	UserID          string
	Status          Status
	CurrentTask     string
	CreatedAt       time.Time
	LastHeartbeatAt time.Time
	KillRequested   bool
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSession)
	}
	if err := ValidateAppName(s.AppName); err != nil {
		return err
	}
	if !s.Status.Settable() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}

	return nil
}

func ValidateAppName(appName string) error {
	if strings.TrimSpace(appName) == "" {
		return fmt.Errorf("%w: app name is required", ErrInvalidSession)
	}

	return nil
}

func (s Session) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(s.LastHeartbeatAt) > threshold
}

func (s Session) Duration(now time.Time) time.Duration {
	d := now.Sub(s.CreatedAt)
	if d < 0 {
		return 0
	}

	return d
}

// Touch advances the heartbeat without ever moving it backwards.
func (s *Session) Touch(at time.Time) {
	if s == nil {
		return
	}
	if at.After(s.LastHeartbeatAt) {
		s.LastHeartbeatAt = at
	}
}
