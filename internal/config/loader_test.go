package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joshcough/letsplayscrabble-sub002/internal/config"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlayd.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := config.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Addr != ":9090" {
			t.Errorf("Addr = %q", cfg.Addr)
		}
		if cfg.BackendURL != "http://localhost:8080" {
			t.Errorf("BackendURL = %q", cfg.BackendURL)
		}
		if cfg.ChannelName != "letsplayscrabble" {
			t.Errorf("ChannelName = %q", cfg.ChannelName)
		}
		if cfg.TransportBuffer != 64 {
			t.Errorf("TransportBuffer = %d", cfg.TransportBuffer)
		}
		if cfg.DefaultDimension != "standings" {
			t.Errorf("DefaultDimension = %q", cfg.DefaultDimension)
		}
		if cfg.FeedURL != "" {
			t.Errorf("FeedURL = %q, want empty", cfg.FeedURL)
		}
	})

	t.Run("env overrides defaults", func(t *testing.T) {
		t.Setenv("OVERLAYD_ADDR", ":7001")
		t.Setenv("OVERLAYD_BACKEND_URL", "https://api.example.test")
		t.Setenv("OVERLAYD_DEFAULT_DIMENSION", "high_score")
		t.Setenv("OVERLAYD_FEED_URL", "ws://api.example.test/ws")

		cfg, err := config.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Addr != ":7001" {
			t.Errorf("Addr = %q", cfg.Addr)
		}
		if cfg.BackendURL != "https://api.example.test" {
			t.Errorf("BackendURL = %q", cfg.BackendURL)
		}
		if cfg.DefaultDimension != "high_score" {
			t.Errorf("DefaultDimension = %q", cfg.DefaultDimension)
		}
		if cfg.FeedURL != "ws://api.example.test/ws" {
			t.Errorf("FeedURL = %q", cfg.FeedURL)
		}
	})

	t.Run("file layers over defaults", func(t *testing.T) {
		path := writeConfig(t, "addr: \":7002\"\nlog_level: debug\ntransport_buffer: 8\n")
		t.Setenv("OVERLAYD_CONFIG", path)

		cfg, err := config.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Addr != ":7002" {
			t.Errorf("Addr = %q", cfg.Addr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q", cfg.LogLevel)
		}
		if cfg.TransportBuffer != 8 {
			t.Errorf("TransportBuffer = %d", cfg.TransportBuffer)
		}
		// Untouched keys keep their defaults.
		if cfg.BackendURL != "http://localhost:8080" {
			t.Errorf("BackendURL = %q", cfg.BackendURL)
		}
	})

	t.Run("env layers over file", func(t *testing.T) {
		path := writeConfig(t, "addr: \":7002\"\ntransport_buffer: 8\n")
		t.Setenv("OVERLAYD_CONFIG", path)
		t.Setenv("OVERLAYD_ADDR", ":7003")

		cfg, err := config.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Addr != ":7003" {
			t.Errorf("Addr = %q, env should win", cfg.Addr)
		}
		if cfg.TransportBuffer != 8 {
			t.Errorf("TransportBuffer = %d, file value should survive", cfg.TransportBuffer)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		t.Setenv("OVERLAYD_CONFIG", "/nonexistent/overlayd.yaml")
		if _, err := config.Load(context.Background()); !errors.Is(err, config.ErrLoadConfig) {
			t.Fatalf("err = %v, want ErrLoadConfig", err)
		}
	})

	t.Run("unknown dimension fails validation", func(t *testing.T) {
		t.Setenv("OVERLAYD_DEFAULT_DIMENSION", "vibes")
		if _, err := config.Load(context.Background()); !errors.Is(err, config.ErrInvalidConfig) {
			t.Fatalf("err = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("empty addr fails validation", func(t *testing.T) {
		path := writeConfig(t, "addr: \"\"\n")
		t.Setenv("OVERLAYD_CONFIG", path)
		if _, err := config.Load(context.Background()); !errors.Is(err, config.ErrInvalidConfig) {
			t.Fatalf("err = %v, want ErrInvalidConfig", err)
		}
	})
}
