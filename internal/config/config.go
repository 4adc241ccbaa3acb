// Package config loads runtime settings from an optional YAML file and the
// OBJGRAPH_ environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "OBJGRAPH_"

type Config struct {
	LogLevel   string `yaml:"logLevel" env:"LOG_LEVEL"`
	EditorMode bool   `yaml:"editorMode" env:"EDITOR_MODE"`

	// Manifests are class manifest files registered at startup, in order.
	Manifests []string `yaml:"manifests" env:"MANIFESTS" envSeparator:","`

	Assets AssetsConfig `yaml:"assets" envPrefix:"ASSETS_"`
}

type AssetsConfig struct {
	// Dir holds <uuid>.json files loaded on demand. Empty disables loading.
	Dir         string `yaml:"dir" env:"DIR"`
	Shards      int    `yaml:"shards" env:"SHARDS"`
	Concurrency int    `yaml:"concurrency" env:"CONCURRENCY"`

	// Preload lists asset uuids loaded from Dir before any command runs.
	Preload []string `yaml:"preload" env:"PRELOAD" envSeparator:","`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		LogLevel: "info",
		Assets: AssetsConfig{
			Shards:      16,
			Concurrency: 8,
		},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides. Variables that are not set leave the value alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Assets.Shards <= 0 {
		return fmt.Errorf("assets.shards must be positive, got %d", c.Assets.Shards)
	}
	if c.Assets.Concurrency < 0 {
		return fmt.Errorf("assets.concurrency must not be negative, got %d", c.Assets.Concurrency)
	}
	if len(c.Assets.Preload) > 0 && c.Assets.Dir == "" {
		return fmt.Errorf("assets.preload needs assets.dir")
	}
	return nil
}
