package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JimmyLeeSnow/xyflow/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xyflow.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("default addr = %s", cfg.Server.Addr())
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 9000

[store]
max_zoom = 4.0
allow_self_loops = true

[store.snap_grid]
enabled = true
x = 16.0
y = 16.0

[session]
backend = "file"
dir = "/tmp/sessions"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "0.0.0.0:9000" {
		t.Errorf("addr = %s", cfg.Server.Addr())
	}
	if cfg.Store.MaxZoom != 4 || !cfg.Store.AllowSelfLoops {
		t.Errorf("store section = %+v", cfg.Store)
	}
	// Unset fields keep defaults.
	if cfg.Store.MinZoom != 0.5 {
		t.Errorf("MinZoom = %g, want default 0.5", cfg.Store.MinZoom)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %s, want default memory", cfg.Cache.Backend)
	}

	opts := cfg.Store.Options()
	if !opts.SnapGrid.Enabled || opts.SnapGrid.X != 16 {
		t.Errorf("snap grid options = %+v", opts.SnapGrid)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `server =`},
		{"bad backend", "[session]\nbackend = \"carrier-pigeon\"\n"},
		{"bad zoom", "[store]\nmin_zoom = 2.0\nmax_zoom = 1.0\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
				t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidConfig)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9000\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(ctx, path, log.New(io.Discard), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[server]\nport = 9001\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Server.Port != 9001 {
			t.Errorf("reloaded port = %d, want 9001", cfg.Server.Port)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver the reload")
	}

	cancel()
	<-done
}

func TestWatchSkipsInvalid(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9000\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	go Watch(ctx, path, log.New(io.Discard), func(cfg *Config) { reloaded <- cfg })

	time.Sleep(100 * time.Millisecond)
	// Invalid content: the callback must not fire for it.
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	select {
	case <-reloaded:
		t.Fatal("invalid config must not reach the callback")
	default:
	}

	// A valid write afterwards recovers.
	if err := os.WriteFile(path, []byte("[server]\nport = 9002\n"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		if cfg.Server.Port != 9002 {
			t.Errorf("recovered port = %d", cfg.Server.Port)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not recover after an invalid write")
	}
}
