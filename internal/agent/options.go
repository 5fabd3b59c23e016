package agent

import (
	"log/slog"
	"time"

	"github.com/bnema/sessiond/internal/ports"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultTimeout           = 10 * time.Second
	DefaultGrace             = 500 * time.Millisecond

	// CloseGoingAway is the websocket close code sent to the host connection
	// when a session is terminated.
	CloseGoingAway = 1001
	CloseReason    = "Session terminated by administrator"
)

type AppInfo struct {
	AppName string
	UserID  string
}

type options struct {
	heartbeatInterval time.Duration
	timeout           time.Duration
	grace             time.Duration
	logger            *slog.Logger
	host              ports.HostConn
	onClosed          func(*Agent)
}

type Option func(*options)

func defaultOptions() options {
	return options{
		heartbeatInterval: DefaultHeartbeatInterval,
		timeout:           DefaultTimeout,
		grace:             DefaultGrace,
	}
}

// WithHeartbeatInterval sets the heartbeat period, which also bounds how long
// a kill request takes to be observed.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.heartbeatInterval = d
		}
	}
}

// WithTimeout bounds every registry call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithGrace sets the delay between closing the host connection and
// deregistering. Zero disables it.
func WithGrace(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.grace = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithHostConn(conn ports.HostConn) Option {
	return func(o *options) {
		o.host = conn
	}
}

func withOnClosed(fn func(*Agent)) Option {
	return func(o *options) {
		o.onClosed = fn
	}
}
