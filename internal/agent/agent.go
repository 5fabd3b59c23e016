// Package agent is the client side of session tracking: one Agent per hosted
// session registers with the registry, heartbeats in the background, reports
// task status and shuts itself down when a kill request arrives.
//
// Tracking never fails the hosted code. Once the registry is unreachable the
// Agent goes offline for good and every further registry call is skipped.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/logging"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/google/uuid"
)

var errOffline = errors.New("agent is offline")

type state int

const (
	stateActive state = iota
	stateClosed
)

type Agent struct {
	registry ports.Registry
	app      AppInfo
	id       domain.SessionID
	opts     options
	logger   *slog.Logger

	online        atomic.Bool
	offlineOnce   sync.Once
	killRequested atomic.Bool

	// mu guards state, callbacks and host. The active->closed transition
	// happens exactly once under it, whichever path triggers it.
	mu        sync.Mutex
	state     state
	callbacks []func()
	host      ports.HostConn

	loopCancel context.CancelFunc
	loopDone   chan struct{}
	done       chan struct{}
}

// New registers a session for app and starts its heartbeat loop. Only an
// invalid app name is reported as an error; an unreachable registry yields an
// offline Agent with a locally generated id.
func New(ctx context.Context, registry ports.Registry, app AppInfo, opts ...Option) (*Agent, error) {
	if err := domain.ValidateAppName(app.AppName); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	a := &Agent{
		registry: registry,
		app:      app,
		opts:     o,
		host:     o.host,
		done:     make(chan struct{}),
	}
	a.online.Store(true)

	regCtx, cancel := context.WithTimeout(ctx, o.timeout)
	id, err := registry.Register(regCtx, app.AppName, app.UserID)
	cancel()
	switch {
	case err == nil:
		a.id = id
	case errors.Is(err, domain.ErrInvalidSession):
		return nil, err
	default:
		a.id = domain.SessionID(uuid.NewString())
		a.logger = logging.OrDiscard(o.logger).With("session_id", string(a.id), "app", app.AppName)
		a.goOffline("register", err)
		return a, nil
	}

	a.logger = logging.OrDiscard(o.logger).With("session_id", string(a.id), "app", app.AppName)
	a.logger.Debug("session registered")

	loopCtx, loopCancel := context.WithCancel(context.Background())
	a.loopCancel = loopCancel
	a.loopDone = make(chan struct{})
	go a.heartbeatLoop(loopCtx)

	return a, nil
}

func (a *Agent) ID() domain.SessionID {
	return a.id
}

func (a *Agent) App() AppInfo {
	return a.app
}

// Online is false once a registry call has failed at the transport level.
func (a *Agent) Online() bool {
	return a.online.Load()
}

// KillRequested is the kill flag returned by the latest heartbeat.
func (a *Agent) KillRequested() bool {
	return a.killRequested.Load()
}

func (a *Agent) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == stateClosed
}

// Done is closed after the shutdown sequence has completed.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// AttachHost sets the realtime connection closed on shutdown. Attaching to an
// already closed Agent closes conn right away.
func (a *Agent) AttachHost(conn ports.HostConn) {
	a.mu.Lock()
	if a.state == stateActive {
		a.host = conn
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	a.closeHost(conn)
}

// OnKill registers a cleanup callback. Callbacks run once, in registration
// order, on the first shutdown. On an Agent that is already closed cb runs
// immediately in the caller's goroutine.
func (a *Agent) OnKill(cb func()) {
	if cb == nil {
		return
	}

	a.mu.Lock()
	if a.state == stateActive {
		a.callbacks = append(a.callbacks, cb)
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	a.fire([]func(){cb})
}

// Task runs fn with the session marked running under name, and resets the
// session to idle on every exit path including panics. Status updates are
// best effort; fn's error or panic reaches the caller untouched.
func (a *Agent) Task(ctx context.Context, name string, fn func(context.Context) error) error {
	a.setStatus(ctx, domain.StatusRunning, name)
	defer a.setStatus(context.WithoutCancel(ctx), domain.StatusIdle, "")

	return fn(ctx)
}

// Stop shuts the Agent down as if a kill had been observed. It returns once
// the heartbeat loop has exited; a second call, or a call racing a kill, is a
// no-op.
func (a *Agent) Stop(ctx context.Context) {
	if !a.shutdown(ctx, "stop") {
		return
	}
	if a.loopDone != nil {
		select {
		case <-a.loopDone:
		case <-ctx.Done():
		}
	}
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	defer close(a.loopDone)

	ticker := time.NewTicker(a.opts.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if a.Closed() || !a.Online() {
			return
		}

		var kill bool
		err := a.call(ctx, "heartbeat", func(callCtx context.Context) error {
			var err error
			kill, err = a.registry.Heartbeat(callCtx, a.id)
			return err
		})
		if err != nil {
			if ctx.Err() != nil || a.Closed() {
				return
			}
			if errors.Is(err, domain.ErrSessionNotFound) {
				a.goOffline("heartbeat", err)
			}
			if !a.Online() {
				return
			}
			a.logger.Debug("heartbeat failed", "error", err)
			continue
		}

		a.killRequested.Store(kill)
		if kill {
			a.logger.Info("kill requested")
			a.shutdown(context.Background(), "kill")
			return
		}
	}
}

// shutdown runs the closing sequence on the first call only and reports
// whether this call performed it.
func (a *Agent) shutdown(ctx context.Context, trigger string) bool {
	a.mu.Lock()
	if a.state == stateClosed {
		a.mu.Unlock()
		return false
	}
	a.state = stateClosed
	callbacks := a.callbacks
	a.callbacks = nil
	host := a.host
	a.host = nil
	a.mu.Unlock()

	a.logger.Info("session shutting down", "trigger", trigger, "callbacks", len(callbacks))

	a.fire(callbacks)

	if host != nil {
		a.closeHost(host)
		if a.opts.grace > 0 {
			timer := time.NewTimer(a.opts.grace)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}
	}

	_ = a.call(context.WithoutCancel(ctx), "remove", func(callCtx context.Context) error {
		_, err := a.registry.Remove(callCtx, a.id)
		return err
	})

	if a.loopCancel != nil {
		a.loopCancel()
	}
	if a.opts.onClosed != nil {
		a.opts.onClosed(a)
	}
	close(a.done)

	return true
}

func (a *Agent) fire(callbacks []func()) {
	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Warn("on_kill callback failed", "index", i, "panic", fmt.Sprint(r))
				}
			}()
			cb()
		}()
	}
}

func (a *Agent) closeHost(conn ports.HostConn) {
	if err := conn.Close(CloseGoingAway, CloseReason); err != nil {
		a.logger.Debug("close host connection", "error", err)
	}
}

func (a *Agent) setStatus(ctx context.Context, status domain.Status, task string) {
	if a.Closed() {
		return
	}

	err := a.call(ctx, "set_status", func(callCtx context.Context) error {
		_, err := a.registry.SetStatus(callCtx, a.id, status, task)
		return err
	})
	if err != nil && !errors.Is(err, errOffline) {
		a.logger.Debug("set status failed", "status", string(status), "error", err)
	}
}

// call runs fn under the registry timeout unless the Agent is offline, and
// switches the Agent offline on transport failures. A call aborted by the
// caller's own ctx leaves the Agent online.
func (a *Agent) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if !a.Online() {
		return errOffline
	}

	callCtx, cancel := context.WithTimeout(ctx, a.opts.timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && isTransportFailure(err, callCtx) {
		a.goOffline(op, err)
	}

	return err
}

func (a *Agent) goOffline(op string, err error) {
	a.online.Store(false)
	a.offlineOnce.Do(func() {
		a.logger.Warn("session registry unavailable, tracking disabled", "op", op, "error", err)
	})
}

func isTransportFailure(err error, callCtx context.Context) bool {
	if errors.Is(err, ports.ErrRegistryUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return errors.Is(callCtx.Err(), context.DeadlineExceeded)
}
