package pool

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/sessiond/internal/logging"
)

const (
	DefaultWorkers      = 4
	DefaultPollInterval = 5 * time.Second
)

// Manager owns the shared Executor. The executor exists while at least one
// session holds a reference; acquire, release and shutdown are serialized by
// one mutex so a release to zero never races a concurrent acquire.
type Manager struct {
	workers int
	logger  *slog.Logger

	mu       sync.Mutex
	refs     int
	executor *Executor
}

func NewManager(workers int, logger *slog.Logger) *Manager {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Manager{
		workers: workers,
		logger:  logging.OrDiscard(logger).With("component", "pool"),
	}
}

// Acquire takes a reference and returns the shared executor, starting it on
// the first reference.
func (m *Manager) Acquire() *Executor {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs++
	if m.executor == nil {
		m.executor = newExecutor(m.workers, m.logger)
		m.logger.Info("pool started", "workers", m.workers)
	}
	m.logger.Debug("pool acquired", "refs", m.refs)

	return m.executor
}

// Release drops a reference. The last release terminates the executor and
// waits for its workers.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs > 0 {
		m.refs--
	}
	m.logger.Debug("pool released", "refs", m.refs)

	if m.refs == 0 {
		m.terminateLocked()
	}
}

// Shutdown terminates the executor regardless of outstanding references.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs = 0
	m.terminateLocked()
}

func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

func (m *Manager) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executor != nil
}

func (m *Manager) terminateLocked() {
	if m.executor == nil {
		return
	}

	m.executor.terminate()
	m.executor = nil
	m.logger.Info("pool terminated")
}
