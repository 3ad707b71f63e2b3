// Package config holds the viewer settings persisted between runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Viewer    ViewerConfig    `toml:"viewer"`
	Chunks    ChunksConfig    `toml:"chunks"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type ViewerConfig struct {
	ZoomSpeed  float64 `toml:"zoom_speed"`
	StartLevel string  `toml:"start_level"`
	ShowHUD    bool    `toml:"show_hud"`
}

type ChunksConfig struct {
	Dir                string `toml:"dir"`
	DisableTransitions bool   `toml:"disable_transitions"`
	HotReload          bool   `toml:"hot_reload"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

type TelemetryConfig struct {
	MetricsAddr string `toml:"metrics_addr"` // empty disables the listener
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Viewer.ZoomSpeed <= 0 {
		return fmt.Errorf("viewer.zoom_speed must be positive, got %v", c.Viewer.ZoomSpeed)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Viewer: ViewerConfig{
			ZoomSpeed:  0.1,
			StartLevel: "town",
			ShowHUD:    true,
		},
		Chunks: ChunksConfig{
			Dir:       "chunkmaps",
			HotReload: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Default returns a fresh copy of the default settings.
func Default() *Config { return defaults() }
