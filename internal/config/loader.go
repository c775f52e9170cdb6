package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/stats"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if OVERLAYD_CONFIG is set
//  3. env (prefix OVERLAYD_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("OVERLAYD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: OVERLAYD_ADDR, OVERLAYD_BACKEND_URL, ...
	// Map env keys like OVERLAYD_BACKEND_URL -> backend_url (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("OVERLAYD_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "overlayd_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("%w: backend_url must not be empty", ErrInvalidConfig)
	}
	if c.ChannelName == "" {
		return fmt.Errorf("%w: channel_name must not be empty", ErrInvalidConfig)
	}
	if _, err := stats.ParseDimension(c.DefaultDimension); err != nil {
		return fmt.Errorf("%w: default_dimension %q", ErrInvalidConfig, c.DefaultDimension)
	}
	return nil
}
