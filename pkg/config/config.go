// Package config loads the TOML configuration shared by the server and
// CLI, with optional live reloading through a file watcher.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/JimmyLeeSnow/xyflow/pkg/errors"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
)

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Session SessionConfig `toml:"session"`
	Cache   CacheConfig   `toml:"cache"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig configures the editor store defaults.
type StoreConfig struct {
	MinZoom        float64 `toml:"min_zoom"`
	MaxZoom        float64 `toml:"max_zoom"`
	FitViewPadding float64 `toml:"fit_view_padding"`
	AllowSelfLoops bool    `toml:"allow_self_loops"`

	SnapGrid struct {
		Enabled bool    `toml:"enabled"`
		X       float64 `toml:"x"`
		Y       float64 `toml:"y"`
	} `toml:"snap_grid"`
}

// Options converts the section into store options.
func (c StoreConfig) Options() store.Options {
	return store.Options{
		MinZoom:        c.MinZoom,
		MaxZoom:        c.MaxZoom,
		FitViewPadding: c.FitViewPadding,
		AllowSelfLoops: c.AllowSelfLoops,
		SnapGrid: flow.SnapGrid{
			Enabled: c.SnapGrid.Enabled,
			X:       c.SnapGrid.X,
			Y:       c.SnapGrid.Y,
		},
	}
}

// SessionConfig selects and configures the session backend.
type SessionConfig struct {
	// Backend is one of "memory", "file", "redis", "mongo".
	Backend string `toml:"backend"`

	// Dir is the storage directory for the file backend.
	Dir string `toml:"dir"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Mongo struct {
		URI        string `toml:"uri"`
		Database   string `toml:"database"`
		Collection string `toml:"collection"`
	} `toml:"mongo"`
}

// CacheConfig selects and configures the snapshot cache.
type CacheConfig struct {
	// Backend is one of "memory", "file", "none".
	Backend string `toml:"backend"`

	// Dir is the storage directory for the file backend.
	Dir string `toml:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	cfg.Store.MinZoom = store.DefaultMinZoom
	cfg.Store.MaxZoom = store.DefaultMaxZoom
	cfg.Store.FitViewPadding = store.DefaultFitViewPadding
	cfg.Session.Backend = "memory"
	cfg.Cache.Backend = "memory"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads and validates a TOML configuration file. Fields missing
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New(errors.ErrCodeInvalidConfig, "server port %d out of range", c.Server.Port)
	}
	if c.Store.MinZoom <= 0 || c.Store.MaxZoom < c.Store.MinZoom {
		return errors.New(errors.ErrCodeInvalidConfig,
			"zoom bounds [%g, %g] invalid", c.Store.MinZoom, c.Store.MaxZoom)
	}
	switch c.Session.Backend {
	case "memory", "file", "redis", "mongo":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown session backend %q", c.Session.Backend)
	}
	switch c.Cache.Backend {
	case "memory", "file", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown log level %q", c.Log.Level)
	}
	return nil
}
