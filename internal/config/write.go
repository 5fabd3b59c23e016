package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	FileName        = "config.toml"
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"
)

var ErrConfigExists = errors.New("config file already exists")

type fileSchema struct {
	Server   serverSchema   `toml:"server"`
	Store    storeSchema    `toml:"store"`
	Registry registrySchema `toml:"registry"`
	Reaper   reaperSchema   `toml:"reaper"`
	Agent    agentSchema    `toml:"agent"`
	Pool     poolSchema     `toml:"pool"`
	Log      logSchema      `toml:"log"`
}

type serverSchema struct {
	Addr string `toml:"addr"`
	URL  string `toml:"url"`
}

type storeSchema struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

type registrySchema struct {
	StaleThreshold string `toml:"stale_threshold"`
}

type reaperSchema struct {
	EvictionAge string `toml:"eviction_age"`
}

type agentSchema struct {
	HeartbeatInterval string `toml:"heartbeat_interval"`
	Timeout           string `toml:"timeout"`
	Grace             string `toml:"grace"`
}

type poolSchema struct {
	Workers      int    `toml:"workers"`
	PollInterval string `toml:"poll_interval"`
}

type logSchema struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func toSchema(c Config) fileSchema {
	return fileSchema{
		Server:   serverSchema{Addr: c.Server.Addr, URL: c.Server.URL},
		Store:    storeSchema{Driver: c.Store.Driver, Path: c.Store.Path},
		Registry: registrySchema{StaleThreshold: c.Registry.StaleThreshold.String()},
		Reaper:   reaperSchema{EvictionAge: c.Reaper.EvictionAge.String()},
		Agent: agentSchema{
			HeartbeatInterval: c.Agent.HeartbeatInterval.String(),
			Timeout:           c.Agent.Timeout.String(),
			Grace:             c.Agent.Grace.String(),
		},
		Pool: poolSchema{Workers: c.Pool.Workers, PollInterval: c.Pool.PollInterval.String()},
		Log:  logSchema{Level: c.Log.Level, Format: c.Log.Format},
	}
}

// Write stores c as dir/config.toml through a temp file and rename. An
// existing file is kept unless overwrite is set.
func Write(dir string, c Config, overwrite bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if err := os.MkdirAll(dir, configDirMode); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(toSchema(c))
	if err != nil {
		return "", fmt.Errorf("encode config file: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return "", fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("write temp config file: %w", err)
	}

	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("chmod temp config file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return "", fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false

	return path, nil
}
