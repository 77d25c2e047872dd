// Package config handles engine configuration via environment variables
// and an optional YAML file.
//
// Configuration is loaded with LoadFromEnv() and validated with
// Validate() before use. Every variable carries the ELITEGRAPH_ prefix.
// A YAML file, when given, supplies base values that environment
// variables override.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables:
//   - ELITEGRAPH_DATASET="./data/graph.json"
//   - ELITEGRAPH_CACHE_DIR="./data/cache"
//   - ELITEGRAPH_FRAME_BUDGET=50
//   - ELITEGRAPH_FRAME_INTERVAL=16ms
//   - ELITEGRAPH_FADE_DELAY=300ms
//   - ELITEGRAPH_VIEWPORT_W=1920 / ELITEGRAPH_VIEWPORT_H=1080
//   - ELITEGRAPH_EVICT_INTERVAL=30s
//   - ELITEGRAPH_EVICT_TTL=2m
//   - ELITEGRAPH_PATH_LIMIT=5
//   - ELITEGRAPH_REVEAL_DWELL=2200ms
//   - ELITEGRAPH_FETCH_RATE=10
//   - ELITEGRAPH_LOG_LEVEL="debug" | "info" | "warn" | "error"
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration.
type Config struct {
	// Dataset is the path to the graph source JSON document.
	Dataset string `yaml:"dataset"`
	// CacheDir is the on-disk cache directory for lazily streamed
	// records.
	CacheDir string `yaml:"cache_dir"`

	// Lifecycle holds lifecycle queue tuning.
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	// Eviction holds destruction scheduler tuning.
	Eviction EvictionConfig `yaml:"eviction"`
	// Interaction holds path search and highlight tuning.
	Interaction InteractionConfig `yaml:"interaction"`

	// FetchRate bounds lazy fetches per second.
	FetchRate float64 `yaml:"fetch_rate"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// LifecycleConfig holds per-frame scheduling settings.
type LifecycleConfig struct {
	// FrameBudget caps removal tasks, and separately creation tasks,
	// per frame.
	FrameBudget int `yaml:"frame_budget"`
	// FrameInterval is the internal pump cadence.
	FrameInterval time.Duration `yaml:"frame_interval"`
	// FadeDelay separates the phases of a staged node removal.
	FadeDelay time.Duration `yaml:"fade_delay"`
	// ViewportW and ViewportH bound the on-screen spawn area.
	ViewportW float64 `yaml:"viewport_w"`
	ViewportH float64 `yaml:"viewport_h"`
}

// EvictionConfig holds TTL eviction settings.
type EvictionConfig struct {
	// Interval is the wall-clock sweep cadence.
	Interval time.Duration `yaml:"interval"`
	// TTL is how long an inactive ephemeral node survives.
	TTL time.Duration `yaml:"ttl"`
}

// InteractionConfig holds selection and path search settings.
type InteractionConfig struct {
	// PathLimit caps the number of paths a search returns.
	PathLimit int `yaml:"path_limit"`
	// RevealDwell is the delay between revealing consecutive paths.
	RevealDwell time.Duration `yaml:"reveal_dwell"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Dataset:  "./data/graph.json",
		CacheDir: "./data/cache",
		Lifecycle: LifecycleConfig{
			FrameBudget:   50,
			FrameInterval: 16 * time.Millisecond,
			FadeDelay:     300 * time.Millisecond,
			ViewportW:     1920,
			ViewportH:     1080,
		},
		Eviction: EvictionConfig{
			Interval: 30 * time.Second,
			TTL:      2 * time.Minute,
		},
		Interaction: InteractionConfig{
			PathLimit:   5,
			RevealDwell: 2200 * time.Millisecond,
		},
		FetchRate: 10,
		LogLevel:  "info",
	}
}

// LoadFromEnv builds a Config from defaults overridden by environment
// variables.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML config file, then applies environment overrides
// on top of it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Dataset = getEnv("ELITEGRAPH_DATASET", c.Dataset)
	c.CacheDir = getEnv("ELITEGRAPH_CACHE_DIR", c.CacheDir)
	c.Lifecycle.FrameBudget = getEnvInt("ELITEGRAPH_FRAME_BUDGET", c.Lifecycle.FrameBudget)
	c.Lifecycle.FrameInterval = getEnvDuration("ELITEGRAPH_FRAME_INTERVAL", c.Lifecycle.FrameInterval)
	c.Lifecycle.FadeDelay = getEnvDuration("ELITEGRAPH_FADE_DELAY", c.Lifecycle.FadeDelay)
	c.Lifecycle.ViewportW = getEnvFloat("ELITEGRAPH_VIEWPORT_W", c.Lifecycle.ViewportW)
	c.Lifecycle.ViewportH = getEnvFloat("ELITEGRAPH_VIEWPORT_H", c.Lifecycle.ViewportH)
	c.Eviction.Interval = getEnvDuration("ELITEGRAPH_EVICT_INTERVAL", c.Eviction.Interval)
	c.Eviction.TTL = getEnvDuration("ELITEGRAPH_EVICT_TTL", c.Eviction.TTL)
	c.Interaction.PathLimit = getEnvInt("ELITEGRAPH_PATH_LIMIT", c.Interaction.PathLimit)
	c.Interaction.RevealDwell = getEnvDuration("ELITEGRAPH_REVEAL_DWELL", c.Interaction.RevealDwell)
	c.FetchRate = getEnvFloat("ELITEGRAPH_FETCH_RATE", c.FetchRate)
	c.LogLevel = getEnv("ELITEGRAPH_LOG_LEVEL", c.LogLevel)
}

// Validate checks the configuration for values the engine cannot run
// with.
func (c *Config) Validate() error {
	if c.Lifecycle.FrameBudget <= 0 {
		return fmt.Errorf("frame budget must be positive, got %d", c.Lifecycle.FrameBudget)
	}
	if c.Lifecycle.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %s", c.Lifecycle.FrameInterval)
	}
	if c.Lifecycle.FadeDelay < 0 {
		return fmt.Errorf("fade delay must not be negative, got %s", c.Lifecycle.FadeDelay)
	}
	if c.Eviction.Interval <= 0 {
		return fmt.Errorf("eviction interval must be positive, got %s", c.Eviction.Interval)
	}
	if c.Eviction.TTL <= 0 {
		return fmt.Errorf("eviction TTL must be positive, got %s", c.Eviction.TTL)
	}
	if c.Interaction.PathLimit <= 0 {
		return fmt.Errorf("path limit must be positive, got %d", c.Interaction.PathLimit)
	}
	if c.FetchRate <= 0 {
		return fmt.Errorf("fetch rate must be positive, got %f", c.FetchRate)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Bare numbers are seconds.
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
