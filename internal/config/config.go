// Package config loads the viewer settings file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/joeblew999/plat-viewer/internal/asset"
	"github.com/joeblew999/plat-viewer/internal/logging"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: VIEWER_ASSETS__TOKEN sets assets.token.
const EnvPrefix = "VIEWER_"

// Config is the viewer configuration, corresponding to viewer.yaml.
type Config struct {
	Catalog   string        `yaml:"catalog" koanf:"catalog"`
	DataDir   string        `yaml:"data_dir" koanf:"data_dir"`
	Permalink string        `yaml:"permalink" koanf:"permalink"` // initial permalink query
	Assets    AssetsConfig  `yaml:"assets" koanf:"assets"`
	Imagery   ImageryConfig `yaml:"imagery" koanf:"imagery"`
	Quakes    QuakesConfig  `yaml:"quakes" koanf:"quakes"`
	Log       LogConfig     `yaml:"log" koanf:"log"`
}

// AssetsConfig configures asset resolution.
type AssetsConfig struct {
	Endpoint  string        `yaml:"endpoint" koanf:"endpoint"` // fmt template, %s is the asset id
	Token     string        `yaml:"token" koanf:"token"`
	CacheSize int           `yaml:"cache_size" koanf:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl" koanf:"cache_ttl"`
}

// ImageryConfig configures base-map imagery.
type ImageryConfig struct {
	Template string `yaml:"template" koanf:"template"` // {layer} is the layer name
}

// QuakesConfig configures the seismic event source.
type QuakesConfig struct {
	CSV string `yaml:"csv" koanf:"csv"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	File  string `yaml:"file" koanf:"file"` // empty logs to stderr
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Catalog: "catalog.yaml",
		DataDir: ".data",
		Assets: AssetsConfig{
			Endpoint:  asset.DefaultEndpoint,
			CacheSize: 256,
			CacheTTL:  time.Hour,
		},
		Imagery: ImageryConfig{Template: asset.DefaultImageryTemplate},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (VIEWER_*). A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Assets.Endpoint != "" && strings.Count(c.Assets.Endpoint, "%s") != 1 {
		return fmt.Errorf("invalid assets.endpoint %q: needs exactly one %%s", c.Assets.Endpoint)
	}
	if c.Assets.CacheSize < 0 {
		return fmt.Errorf("assets.cache_size must be non-negative")
	}
	if c.Assets.CacheTTL < 0 {
		return fmt.Errorf("assets.cache_ttl must be non-negative")
	}
	if c.Imagery.Template != "" && !strings.Contains(c.Imagery.Template, "{layer}") {
		return fmt.Errorf("invalid imagery.template %q: missing {layer}", c.Imagery.Template)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}
