package httpapi

import (
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
)

// JSON bodies shared by the server and the client adapter.

type CreateSessionRequest struct {
	AppName string `json:"app_name"`
	UserID  string `json:"user_id,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type HeartbeatResponse struct {
	KillRequested bool `json:"kill_requested"`
}

type StatusRequest struct {
	Status      string `json:"status"`
	CurrentTask string `json:"current_task,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type CleanupResponse struct {
	DeletedCount int `json:"deleted_count"`
}

type AppKillResponse struct {
	Affected int `json:"affected"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type Session struct {
	SessionID       string    `json:"session_id"`
	AppName         string    `json:"app_name"`
	UserID          string    `json:"user_id"`
	StartTime       time.Time `json:"start_time"`
	LastHeartbeat   time.Time `json:"last_heartbeat"`
	DurationSeconds int64     `json:"duration_seconds"`
	Status          string    `json:"status"`
	CurrentTask     string    `json:"current_task"`
	IsStale         bool      `json:"is_stale"`
	KillRequested   bool      `json:"kill_requested"`
}

type SessionList struct {
	Sessions []Session `json:"sessions"`
}

// FromView encodes a view. Status carries the display status, so a stale
// session reads "stale".
func FromView(view ports.SessionView) Session {
	return Session{
		SessionID:       string(view.ID),
		AppName:         view.AppName,
		UserID:          view.UserID,
		StartTime:       view.CreatedAt,
		LastHeartbeat:   view.LastHeartbeatAt,
		DurationSeconds: view.DurationSeconds,
		Status:          string(view.DisplayStatus),
		CurrentTask:     view.CurrentTask,
		IsStale:         view.IsStale,
		KillRequested:   view.KillRequested,
	}
}

// ToView decodes a wire session. The stored status is not on the wire; a
// stale row keeps "stale" as both stored and display status.
func (s Session) ToView() ports.SessionView {
	status := domain.Status(s.Status)
	return ports.SessionView{
		Session: domain.Session{
			ID:              domain.SessionID(s.SessionID),
			AppName:         s.AppName,
			UserID:          s.UserID,
			Status:          status,
			CurrentTask:     s.CurrentTask,
			CreatedAt:       s.StartTime,
			LastHeartbeatAt: s.LastHeartbeat,
			KillRequested:   s.KillRequested,
		},
		DurationSeconds: s.DurationSeconds,
		IsStale:         s.IsStale,
		DisplayStatus:   status,
	}
}
