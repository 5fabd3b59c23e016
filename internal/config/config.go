// Package config loads sessiond settings from ~/.sessiond/config.toml and
// SESSIOND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".sessiond"
	envPrefix  = "SESSIOND"
	// DirEnv overrides the directory holding config.toml and the default
	// database.
	DirEnv = "SESSIOND_CONFIG"

	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

const (
	keyServerAddr        = "server.addr"
	keyServerURL         = "server.url"
	keyStoreDriver       = "store.driver"
	keyStorePath         = "store.path"
	keyStaleThreshold    = "registry.stale_threshold"
	keyEvictionAge       = "reaper.eviction_age"
	keyHeartbeatInterval = "agent.heartbeat_interval"
	keyAgentTimeout      = "agent.timeout"
	keyAgentGrace        = "agent.grace"
	keyPoolWorkers       = "pool.workers"
	keyPoolPollInterval  = "pool.poll_interval"
	keyLogLevel          = "log.level"
	keyLogFormat         = "log.format"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Registry RegistryConfig
	Reaper   ReaperConfig
	Agent    AgentConfig
	Pool     PoolConfig
	Log      LogConfig

	// File is the config file that was read, empty when only defaults and
	// environment applied.
	File string
}

type ServerConfig struct {
	Addr string
	URL  string
}

type StoreConfig struct {
	Driver string
	Path   string
}

type RegistryConfig struct {
	StaleThreshold time.Duration
}

type ReaperConfig struct {
	EvictionAge time.Duration
}

type AgentConfig struct {
	HeartbeatInterval time.Duration
	Timeout           time.Duration
	Grace             time.Duration
}

type PoolConfig struct {
	Workers      int
	PollInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Dir returns the configuration directory: $SESSIOND_CONFIG or ~/.sessiond.
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(DirEnv)); dir != "" {
		return filepath.Abs(dir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, configDir), nil
}

// Default is the configuration used when nothing is set.
func Default(dir string) Config {
	return Config{
		Server:   ServerConfig{Addr: "127.0.0.1:8000", URL: "http://127.0.0.1:8000"},
		Store:    StoreConfig{Driver: StoreSQLite, Path: filepath.Join(dir, "sessions.db")},
		Registry: RegistryConfig{StaleThreshold: 2 * time.Minute},
		Reaper:   ReaperConfig{EvictionAge: 10 * time.Minute},
		Agent: AgentConfig{
			HeartbeatInterval: 30 * time.Second,
			Timeout:           10 * time.Second,
			Grace:             500 * time.Millisecond,
		},
		Pool: PoolConfig{Workers: 4, PollInterval: 5 * time.Second},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads dir/config.toml if present, then applies environment overrides.
// A missing file is not an error.
func Load(cfg *viper.Viper, dir string) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	setDefaults(cfg, Default(dir))

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(dir)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	loaded := Config{
		Server: ServerConfig{
			Addr: cfg.GetString(keyServerAddr),
			URL:  strings.TrimRight(cfg.GetString(keyServerURL), "/"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(cfg.GetString(keyStoreDriver))),
			Path:   cfg.GetString(keyStorePath),
		},
		Registry: RegistryConfig{StaleThreshold: cfg.GetDuration(keyStaleThreshold)},
		Reaper:   ReaperConfig{EvictionAge: cfg.GetDuration(keyEvictionAge)},
		Agent: AgentConfig{
			HeartbeatInterval: cfg.GetDuration(keyHeartbeatInterval),
			Timeout:           cfg.GetDuration(keyAgentTimeout),
			Grace:             cfg.GetDuration(keyAgentGrace),
		},
		Pool: PoolConfig{
			Workers:      cfg.GetInt(keyPoolWorkers),
			PollInterval: cfg.GetDuration(keyPoolPollInterval),
		},
		Log: LogConfig{
			Level:  cfg.GetString(keyLogLevel),
			Format: cfg.GetString(keyLogFormat),
		},
		File: cfg.ConfigFileUsed(),
	}

	if err := loaded.Validate(); err != nil {
		return Config{}, err
	}

	return loaded, nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("store.path is required for the sqlite store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store.driver %q (want %s or %s)", c.Store.Driver, StoreSQLite, StoreMemory)
	}

	if c.Pool.Workers < 0 {
		return fmt.Errorf("pool.workers must not be negative, got %d", c.Pool.Workers)
	}
	if c.Agent.Grace < 0 {
		return fmt.Errorf("agent.grace must not be negative, got %s", c.Agent.Grace)
	}

	return nil
}

func setDefaults(cfg *viper.Viper, d Config) {
	cfg.SetDefault(keyServerAddr, d.Server.Addr)
	cfg.SetDefault(keyServerURL, d.Server.URL)
	cfg.SetDefault(keyStoreDriver, d.Store.Driver)
	cfg.SetDefault(keyStorePath, d.Store.Path)
	cfg.SetDefault(keyStaleThreshold, d.Registry.StaleThreshold)
	cfg.SetDefault(keyEvictionAge, d.Reaper.EvictionAge)
	cfg.SetDefault(keyHeartbeatInterval, d.Agent.HeartbeatInterval)
	cfg.SetDefault(keyAgentTimeout, d.Agent.Timeout)
	cfg.SetDefault(keyAgentGrace, d.Agent.Grace)
	cfg.SetDefault(keyPoolWorkers, d.Pool.Workers)
	cfg.SetDefault(keyPoolPollInterval, d.Pool.PollInterval)
	cfg.SetDefault(keyLogLevel, d.Log.Level)
	cfg.SetDefault(keyLogFormat, d.Log.Format)
}
