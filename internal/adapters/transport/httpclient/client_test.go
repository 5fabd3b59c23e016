package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/sessiond/internal/adapters/repo/memory"
	"github.com/bnema/sessiond/internal/adapters/transport/httpapi"
	"github.com/bnema/sessiond/internal/agent"
	"github.com/bnema/sessiond/internal/application"
	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	id, err := client.Register(ctx, "demo", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	kill, err := client.Heartbeat(ctx, id)
	require.NoError(t, err)
	assert.False(t, kill)

	updated, err := client.SetStatus(ctx, id, domain.StatusRunning, "build")
	require.NoError(t, err)
	assert.True(t, updated)

	views, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, id, views[0].ID)
	assert.Equal(t, "demo", views[0].AppName)
	assert.Equal(t, domain.StatusRunning, views[0].DisplayStatus)
	assert.Equal(t, "build", views[0].CurrentTask)

	marked, err := client.RequestKill(ctx, id)
	require.NoError(t, err)
	assert.True(t, marked)

	kill, err = client.Heartbeat(ctx, id)
	require.NoError(t, err)
	assert.True(t, kill)

	removed, err := client.Remove(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = client.Remove(ctx, id)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestClientMapsErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Register(ctx, " ", "")
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = client.Heartbeat(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	updated, err := client.SetStatus(ctx, "missing", domain.StatusIdle, "")
	require.NoError(t, err)
	assert.False(t, updated)

	marked, err := client.RequestKill(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, marked)

	id, err := client.Register(ctx, "demo", "")
	require.NoError(t, err)
	_, err = client.SetStatus(ctx, id, domain.StatusStale, "")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestClientKillForAppAndSweep(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	for _, app := range []string{"X", "X", "Y"} {
		_, err := client.Register(ctx, app, "")
		require.NoError(t, err)
	}

	affected, err := client.RequestKillForApp(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	deleted, err := client.SweepStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestClientServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := New(server.URL)
	client.HTTPClient = server.Client()

	_, err := client.Heartbeat(context.Background(), "s-1")
	require.ErrorIs(t, err, ports.ErrRegistryUnavailable)
}

func TestClientUnreachableIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url)
	_, err := client.Register(context.Background(), "demo", "")
	require.ErrorIs(t, err, ports.ErrRegistryUnavailable)
}

func TestClientTimeoutIsUnavailable(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client := New(server.URL)
	client.HTTPClient = server.Client()
	client.RequestTimeout = 20 * time.Millisecond

	_, err := client.List(context.Background())
	require.ErrorIs(t, err, ports.ErrRegistryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAgentOverHTTPObservesKill(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	a, err := agent.New(context.Background(), client, agent.AppInfo{AppName: "remote"},
		agent.WithHeartbeatInterval(10*time.Millisecond),
		agent.WithGrace(0),
	)
	require.NoError(t, err)
	require.True(t, a.Online())

	fired := make(chan struct{})
	a.OnKill(func() { close(fired) })

	marked, err := client.RequestKill(context.Background(), a.ID())
	require.NoError(t, err)
	require.True(t, marked)

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not observe the kill request")
	}
	<-fired

	views, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestClientReturnsCallerContextError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.List(cancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ports.ErrRegistryUnavailable)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	_, err = client.Register(expired, "demo", "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ports.ErrRegistryUnavailable)
}

func TestAgentOverHTTPKeepsTrackingAfterCallerCancel(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	a, err := agent.New(context.Background(), client, agent.AppInfo{AppName: "remote"},
		agent.WithHeartbeatInterval(10*time.Millisecond),
		agent.WithGrace(0),
	)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = a.Task(cancelled, "cancelled", func(context.Context) error { return nil })
	require.NoError(t, err)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	err = a.Task(expired, "expired", func(context.Context) error { return nil })
	require.NoError(t, err)

	require.True(t, a.Online())

	marked, err := client.RequestKill(context.Background(), a.ID())
	require.NoError(t, err)
	require.True(t, marked)

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("agent stopped observing kill requests")
	}
	assert.True(t, a.KillRequested())
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	monitor := application.NewMonitor(memory.NewRepository(), ports.SystemClock{}, 0)
	server := httptest.NewServer(httpapi.NewHandler(monitor, nil))
	t.Cleanup(server.Close)

	client := New(server.URL)
	client.HTTPClient = server.Client()
	return client
}
