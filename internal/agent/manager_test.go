package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/sessiond/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerGetOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()

	monitor := newMonitor()
	manager := NewManager(monitor, logging.Discard(), WithHeartbeatInterval(time.Hour), WithGrace(0))
	t.Cleanup(func() { manager.StopAll(context.Background()) })

	first, err := manager.GetOrCreate(context.Background(), "conn-1", AppInfo{AppName: "demo"})
	require.NoError(t, err)
	again, err := manager.GetOrCreate(context.Background(), "conn-1", AppInfo{AppName: "demo"})
	require.NoError(t, err)
	assert.Same(t, first, again)

	other, err := manager.GetOrCreate(context.Background(), "conn-2", AppInfo{AppName: "demo"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), other.ID())
	assert.Equal(t, 2, manager.Len())

	views, err := monitor.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestManagerForgetsClosedAgents(t *testing.T) {
	t.Parallel()

	monitor := newMonitor()
	manager := NewManager(monitor, nil, WithHeartbeatInterval(time.Hour), WithGrace(0))
	t.Cleanup(func() { manager.StopAll(context.Background()) })

	first, err := manager.GetOrCreate(context.Background(), "conn-1", AppInfo{AppName: "demo"})
	require.NoError(t, err)

	first.Stop(context.Background())

	_, ok := manager.Get("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 0, manager.Len())

	fresh, err := manager.GetOrCreate(context.Background(), "conn-1", AppInfo{AppName: "demo"})
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.NotEqual(t, first.ID(), fresh.ID())
}

func TestManagerStopAllFiresEveryAgentOnce(t *testing.T) {
	t.Parallel()

	monitor := newMonitor()
	manager := NewManager(monitor, nil, WithHeartbeatInterval(time.Hour), WithGrace(0))

	var fired atomic.Int32
	for _, key := range []string{"a", "b", "c"} {
		a, err := manager.GetOrCreate(context.Background(), key, AppInfo{AppName: "demo"})
		require.NoError(t, err)
		a.OnKill(func() { fired.Add(1) })
	}

	manager.StopAll(context.Background())
	manager.StopAll(context.Background())

	assert.Equal(t, int32(3), fired.Load())
	assert.Equal(t, 0, manager.Len())

	views, err := monitor.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestManagerGetOrCreatePropagatesValidationError(t *testing.T) {
	t.Parallel()

	manager := NewManager(newMonitor(), nil)

	_, err := manager.GetOrCreate(context.Background(), "conn-1", AppInfo{AppName: ""})
	require.Error(t, err)
	assert.Equal(t, 0, manager.Len())
}
