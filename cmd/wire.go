package cmd

import (
	"fmt"
	"log/slog"
	"time"

	sessionsrender "github.com/bnema/sessiond/internal/adapters/render/sessions"
	"github.com/bnema/sessiond/internal/adapters/repo/memory"
	"github.com/bnema/sessiond/internal/adapters/repo/sqlite"
	"github.com/bnema/sessiond/internal/adapters/transport/httpclient"
	"github.com/bnema/sessiond/internal/agent"
	"github.com/bnema/sessiond/internal/config"
	"github.com/bnema/sessiond/internal/logging"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	cfg       config.Config
	configDir string
	serverURL string
	logger    *slog.Logger
	renderer  func([]ports.SessionView, sessionsrender.RenderOptions) (string, error)
	now       func() time.Time
}

func wireApp() (*app, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}

	cfg, err := config.Load(viper.New(), dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &app{
		cfg:       cfg,
		configDir: dir,
		serverURL: cfg.Server.URL,
		logger:    logging.Discard(),
		renderer:  sessionsrender.Render,
		now:       time.Now,
	}, nil
}

// client talks to the monitor at --server. It serves both agents and
// operator commands.
func (a *app) client() *httpclient.Client {
	client := httpclient.New(a.serverURL)
	client.RequestTimeout = a.cfg.Agent.Timeout
	return client
}

func (a *app) agentOptions() []agent.Option {
	return []agent.Option{
		agent.WithHeartbeatInterval(a.cfg.Agent.HeartbeatInterval),
		agent.WithTimeout(a.cfg.Agent.Timeout),
		agent.WithGrace(a.cfg.Agent.Grace),
		agent.WithLogger(a.logger),
	}
}

func openStore(driver, path string) (ports.SessionRepository, func() error, error) {
	switch driver {
	case config.StoreMemory:
		return memory.NewRepository(), func() error { return nil }, nil
	case config.StoreSQLite:
		repo, err := sqlite.NewRepository(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
