// Package host serves tracked sessions over websocket. Every connection is one
// session: it registers on connect, runs tasks on request, and is closed with
// a going-away frame when an operator kills it.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bnema/sessiond/internal/adapters/hostconn/wsconn"
	"github.com/bnema/sessiond/internal/agent"
	"github.com/bnema/sessiond/internal/logging"
	"github.com/bnema/sessiond/internal/pool"
	"github.com/google/uuid"
)

const (
	WorkersPerRun   = 2
	defaultTaskName = "Unnamed Task"
)

var (
	errKilled = errors.New("session terminated")
	errBusy   = errors.New("a task is already running")
)

// Message is both the client request and the host reply.
type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Online    bool   `json:"online,omitempty"`
	Task      string `json:"task,omitempty"`
	Seconds   int    `json:"seconds,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

const (
	TypeSession = "session"
	TypeRun     = "run"
	TypeStatus  = "status"
	TypeError   = "error"
)

// WorkFactory builds the pool work for one worker of a run.
type WorkFactory func(logger *slog.Logger, label string) pool.Work

type Options struct {
	AppName string
	UserID  string
	// Pool, when set, makes every run submit WorkersPerRun workers to the
	// shared pool instead of sleeping in-process.
	Pool *pool.Manager
	Work WorkFactory
	// TaskUnit scales Message.Seconds. Defaults to a second.
	TaskUnit time.Duration
	Logger   *slog.Logger
}

type Host struct {
	agents *agent.Manager
	opts   Options
	logger *slog.Logger
}

func New(agents *agent.Manager, opts Options) *Host {
	if opts.TaskUnit <= 0 {
		opts.TaskUnit = time.Second
	}
	if opts.Work == nil {
		opts.Work = func(logger *slog.Logger, label string) pool.Work {
			return pool.Ticker(logger, label, pool.DefaultPollInterval)
		}
	}

	return &Host{
		agents: agents,
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger).With("component", "host", "app", opts.AppName),
	}
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsconn.Upgrade(w, r)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.serve(context.WithoutCancel(r.Context()), conn)
}

type session struct {
	host   *Host
	conn   *wsconn.Conn
	agent  *agent.Agent
	logger *slog.Logger

	token    *pool.Token
	executor *pool.Executor

	mu      sync.Mutex
	running bool
	tasks   sync.WaitGroup
}

func (h *Host) serve(ctx context.Context, conn *wsconn.Conn) {
	key := uuid.NewString()
	a, err := h.agents.GetOrCreate(ctx, key, agent.AppInfo{AppName: h.opts.AppName, UserID: h.opts.UserID}, agent.WithHostConn(conn))
	if err != nil {
		h.logger.Error("create session agent", "error", err)
		_ = conn.WriteJSON(Message{Type: TypeError, Error: err.Error()})
		_ = conn.Close(agent.CloseGoingAway, "session unavailable")
		return
	}

	s := &session{
		host:   h,
		conn:   conn,
		agent:  a,
		logger: h.logger.With("session_id", string(a.ID())),
	}

	if h.opts.Pool != nil {
		s.token = pool.NewToken()
		s.executor = h.opts.Pool.Acquire()
		a.OnKill(s.token.Cancel)
	}

	s.logger.Info("session connected", "online", a.Online())
	s.send(Message{Type: TypeSession, SessionID: string(a.ID()), Online: a.Online()})

	s.readLoop(ctx)
	s.close(ctx)
}

func (s *session) readLoop(ctx context.Context) {
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !s.agent.Closed() {
				s.logger.Debug("client disconnected", "error", err)
			}
			return
		}

		switch msg.Type {
		case TypeRun:
			if err := s.startTask(ctx, msg); err != nil {
				s.send(Message{Type: TypeError, Error: err.Error()})
			}
		default:
			s.send(Message{Type: TypeError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
		}
	}
}

func (s *session) startTask(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent.Closed() {
		return errKilled
	}
	if s.running {
		return errBusy
	}
	s.running = true

	name := strings.TrimSpace(msg.Task)
	if name == "" {
		name = defaultTaskName
	}
	duration := time.Duration(msg.Seconds) * s.host.opts.TaskUnit

	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		s.send(Message{Type: TypeStatus, Status: "running", Task: name})
		err := s.agent.Task(ctx, name, func(ctx context.Context) error {
			if s.executor != nil {
				return s.runOnPool(ctx, name, duration)
			}
			return s.sleep(ctx, duration)
		})
		if err != nil {
			s.logger.Info("task ended", "task", name, "error", err)
			return
		}
		s.send(Message{Type: TypeStatus, Status: "idle", Task: name})
	}()

	return nil
}

func (s *session) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-s.agent.Done():
		return errKilled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runOnPool runs WorkersPerRun workers until the session token fires. A
// positive duration cancels the token after it elapses.
func (s *session) runOnPool(ctx context.Context, name string, d time.Duration) error {
	s.token.Reset()
	if d > 0 {
		stop := time.AfterFunc(d, s.token.Cancel)
		defer stop.Stop()
	}

	results := make([]<-chan error, 0, WorkersPerRun)
	for i := 1; i <= WorkersPerRun; i++ {
		label := fmt.Sprintf("worker-%d", i)
		results = append(results, s.executor.Submit(ctx, s.token, s.host.opts.Work(s.logger, label)))
	}

	var errs []error
	for _, result := range results {
		errs = append(errs, <-result)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if s.agent.Closed() {
		return errKilled
	}

	return nil
}

func (s *session) close(ctx context.Context) {
	s.agent.Stop(ctx)

	if s.token != nil {
		s.token.Cancel()
	}
	s.tasks.Wait()
	if s.executor != nil {
		s.host.opts.Pool.Release()
	}

	_ = s.conn.Close(agent.CloseGoingAway, "session closed")
	s.logger.Info("session closed", "killed", s.agent.KillRequested())
}

func (s *session) send(msg Message) {
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("write to client failed", "type", msg.Type, "error", err)
	}
}
