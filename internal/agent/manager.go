package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bnema/sessiond/internal/logging"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/sourcegraph/conc"
)

// Manager resolves the Agent owned by a caller handle, creating it on first
// use. Closed Agents detach themselves so the handle gets a fresh one next time.
type Manager struct {
	registry ports.Registry
	logger   *slog.Logger
	opts     []Option

	mu     sync.Mutex
	agents map[string]*Agent
}

func NewManager(registry ports.Registry, logger *slog.Logger, opts ...Option) *Manager {
	return &Manager{
		registry: registry,
		logger:   logging.OrDiscard(logger),
		opts:     opts,
		agents:   make(map[string]*Agent),
	}
}

// GetOrCreate returns the live Agent for key or registers a new one. Options
// given here are applied after the manager's defaults.
func (m *Manager) GetOrCreate(ctx context.Context, key string, app AppInfo, opts ...Option) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.agents[key]; ok && !a.Closed() {
		return a, nil
	}

	all := make([]Option, 0, len(m.opts)+len(opts)+2)
	all = append(all, WithLogger(m.logger))
	all = append(all, m.opts...)
	all = append(all, opts...)
	all = append(all, withOnClosed(func(a *Agent) { m.forget(key, a) }))

	a, err := New(ctx, m.registry, app, all...)
	if err != nil {
		return nil, err
	}
	m.agents[key] = a

	return a, nil
}

func (m *Manager) Get(key string) (*Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[key]
	if !ok || a.Closed() {
		return nil, false
	}
	return a, true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.agents)
}

// StopAll stops every live Agent concurrently. It is the process exit hook.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	agents := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		agents = append(agents, a)
	}
	m.mu.Unlock()

	var wg conc.WaitGroup
	for _, a := range agents {
		wg.Go(func() {
			a.Stop(ctx)
		})
	}
	wg.Wait()
}

func (m *Manager) forget(key string, a *Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.agents[key] == a {
		delete(m.agents, key)
	}
}
