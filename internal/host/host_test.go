package host

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bnema/sessiond/internal/adapters/hostconn/wsconn"
	"github.com/bnema/sessiond/internal/adapters/repo/memory"
	"github.com/bnema/sessiond/internal/agent"
	"github.com/bnema/sessiond/internal/application"
	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/pool"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

type fixture struct {
	monitor *application.Monitor
	agents  *agent.Manager
	server  *httptest.Server
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	monitor := application.NewMonitor(memory.NewRepository(), ports.SystemClock{}, 0)
	agents := agent.NewManager(monitor, nil, agent.WithHeartbeatInterval(10*time.Millisecond), agent.WithGrace(0))
	if opts.AppName == "" {
		opts.AppName = "task_runner"
	}
	server := httptest.NewServer(New(agents, opts))
	t.Cleanup(func() {
		agents.StopAll(context.Background())
		server.Close()
	})

	return &fixture{monitor: monitor, agents: agents, server: server}
}

func (f *fixture) dial(t *testing.T) (*websocket.Conn, Message) {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var hello Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, TypeSession, hello.Type)
	require.NotEmpty(t, hello.SessionID)

	return conn, hello
}

func readUntil(t *testing.T, conn *websocket.Conn, want func(Message) bool) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if want(msg) {
			return msg
		}
	}
}

func expectGoingAway(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		assert.True(t, wsconn.IsGoingAway(err), "unexpected read error: %v", err)

		var closeErr *websocket.CloseError
		if assert.ErrorAs(t, err, &closeErr) {
			assert.Equal(t, agent.CloseReason, closeErr.Text)
		}
		return
	}
}

func TestHostRegistersSessionPerConnection(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{UserID: "alice"})
	_, first := f.dial(t)
	_, second := f.dial(t)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.True(t, first.Online)

	views, err := f.monitor.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, view := range views {
		assert.Equal(t, "task_runner", view.AppName)
		assert.Equal(t, "alice", view.UserID)
	}
}

func TestHostRunsTaskAndReportsStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{TaskUnit: 20 * time.Millisecond})
	conn, hello := f.dial(t)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRun, Task: "export", Seconds: 5}))
	running := readUntil(t, conn, func(m Message) bool { return m.Type == TypeStatus })
	assert.Equal(t, "running", running.Status)
	assert.Equal(t, "export", running.Task)

	views, err := f.monitor.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.SessionID(hello.SessionID), views[0].ID)

	idle := readUntil(t, conn, func(m Message) bool { return m.Type == TypeStatus && m.Status == "idle" })
	assert.Equal(t, "export", idle.Task)

	require.Eventually(t, func() bool {
		views, err := f.monitor.List(context.Background())
		return err == nil && len(views) == 1 && views[0].Status == domain.StatusIdle
	}, waitFor, 10*time.Millisecond)
}

func TestHostRejectsSecondConcurrentTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	conn, _ := f.dial(t)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRun, Task: "long", Seconds: 60}))
	readUntil(t, conn, func(m Message) bool { return m.Type == TypeStatus && m.Status == "running" })

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRun, Task: "other"}))
	msg := readUntil(t, conn, func(m Message) bool { return m.Type == TypeError })
	assert.Contains(t, msg.Error, "already running")

	require.NoError(t, conn.WriteJSON(Message{Type: "bogus"}))
	msg = readUntil(t, conn, func(m Message) bool { return m.Type == TypeError })
	assert.Contains(t, msg.Error, "unknown message type")
}

func TestHostKillClosesConnectionWithGoingAway(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	conn, hello := f.dial(t)
	_, other := f.dial(t)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRun, Task: "long", Seconds: 60}))
	readUntil(t, conn, func(m Message) bool { return m.Type == TypeStatus })

	killed, err := f.monitor.RequestKill(context.Background(), domain.SessionID(hello.SessionID))
	require.NoError(t, err)
	require.True(t, killed)

	expectGoingAway(t, conn)

	require.Eventually(t, func() bool {
		views, err := f.monitor.List(context.Background())
		return err == nil && len(views) == 1 && views[0].ID == domain.SessionID(other.SessionID)
	}, waitFor, 10*time.Millisecond)
}

func TestHostClientDisconnectRemovesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	conn, _ := f.dial(t)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		views, err := f.monitor.List(context.Background())
		return err == nil && len(views) == 0
	}, waitFor, 10*time.Millisecond)
	require.Eventually(t, func() bool { return f.agents.Len() == 0 }, waitFor, 10*time.Millisecond)
}

func TestHostPoolKillStopsOnlyThatSession(t *testing.T) {
	t.Parallel()

	shared := pool.NewManager(4, nil)
	t.Cleanup(shared.Shutdown)

	f := newFixture(t, Options{
		Pool: shared,
		Work: func(logger *slog.Logger, label string) pool.Work {
			return pool.Ticker(logger, label, 5*time.Millisecond)
		},
	})

	connA, helloA := f.dial(t)
	connB, _ := f.dial(t)
	require.Equal(t, 2, shared.Refs())

	for _, conn := range []*websocket.Conn{connA, connB} {
		require.NoError(t, conn.WriteJSON(Message{Type: TypeRun, Task: "Processing (2 workers)"}))
		readUntil(t, conn, func(m Message) bool { return m.Type == TypeStatus && m.Status == "running" })
	}

	killed, err := f.monitor.RequestKill(context.Background(), domain.SessionID(helloA.SessionID))
	require.NoError(t, err)
	require.True(t, killed)
	expectGoingAway(t, connA)

	require.Eventually(t, func() bool { return shared.Refs() == 1 }, waitFor, 10*time.Millisecond)
	assert.True(t, shared.Alive())

	views, err := f.monitor.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.StatusRunning, views[0].Status)

	require.NoError(t, connB.Close())
	require.Eventually(t, func() bool { return !shared.Alive() }, waitFor, 10*time.Millisecond)
	assert.Equal(t, 0, shared.Refs())
}
