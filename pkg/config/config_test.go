package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults validate", func(t *testing.T) {
		cfg := LoadFromEnv()
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, 50, cfg.Lifecycle.FrameBudget)
		assert.Equal(t, 2*time.Minute, cfg.Eviction.TTL)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("ELITEGRAPH_FRAME_BUDGET", "25")
		t.Setenv("ELITEGRAPH_EVICT_TTL", "90s")
		t.Setenv("ELITEGRAPH_FETCH_RATE", "2.5")
		t.Setenv("ELITEGRAPH_LOG_LEVEL", "debug")

		cfg := LoadFromEnv()
		assert.Equal(t, 25, cfg.Lifecycle.FrameBudget)
		assert.Equal(t, 90*time.Second, cfg.Eviction.TTL)
		assert.Equal(t, 2.5, cfg.FetchRate)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("bare duration numbers are seconds", func(t *testing.T) {
		t.Setenv("ELITEGRAPH_EVICT_INTERVAL", "45")
		cfg := LoadFromEnv()
		assert.Equal(t, 45*time.Second, cfg.Eviction.Interval)
	})

	t.Run("malformed values fall back to defaults", func(t *testing.T) {
		t.Setenv("ELITEGRAPH_FRAME_BUDGET", "lots")
		cfg := LoadFromEnv()
		assert.Equal(t, 50, cfg.Lifecycle.FrameBudget)
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("yaml file supplies base values, env overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
dataset: ./corpus.json
lifecycle:
  frame_budget: 30
  fade_delay: 150ms
eviction:
  ttl: 5m
`), 0o644))
		t.Setenv("ELITEGRAPH_FRAME_BUDGET", "40")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "./corpus.json", cfg.Dataset)
		assert.Equal(t, 40, cfg.Lifecycle.FrameBudget, "env wins over file")
		assert.Equal(t, 150*time.Millisecond, cfg.Lifecycle.FadeDelay)
		assert.Equal(t, 5*time.Minute, cfg.Eviction.TTL)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero frame budget", func(c *Config) { c.Lifecycle.FrameBudget = 0 }},
		{"negative fade delay", func(c *Config) { c.Lifecycle.FadeDelay = -time.Second }},
		{"zero eviction interval", func(c *Config) { c.Eviction.Interval = 0 }},
		{"zero ttl", func(c *Config) { c.Eviction.TTL = 0 }},
		{"zero path limit", func(c *Config) { c.Interaction.PathLimit = 0 }},
		{"zero fetch rate", func(c *Config) { c.FetchRate = 0 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
