package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Catalog != "catalog.yaml" {
		t.Errorf("expected default catalog %q, got %q", "catalog.yaml", cfg.Catalog)
	}
	if cfg.Assets.CacheTTL != time.Hour {
		t.Errorf("expected default cache_ttl 1h, got %v", cfg.Assets.CacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viewer.yaml")
	data := `
catalog: layers.yaml
data_dir: /srv/viewer
assets:
  token: file-token
  cache_ttl: 5m
quakes:
  csv: quakes.csv
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VIEWER_ASSETS__TOKEN", "env-token")
	t.Setenv("VIEWER_PERMALINK", "layers=faults")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Catalog != "layers.yaml" || cfg.DataDir != "/srv/viewer" {
		t.Errorf("catalog/data_dir: got %q %q", cfg.Catalog, cfg.DataDir)
	}
	if cfg.Assets.Token != "env-token" {
		t.Errorf("token: got %q, want env override", cfg.Assets.Token)
	}
	if cfg.Assets.CacheTTL != 5*time.Minute {
		t.Errorf("cache_ttl: got %v", cfg.Assets.CacheTTL)
	}
	if cfg.Assets.CacheSize != 256 {
		t.Errorf("cache_size default lost: %d", cfg.Assets.CacheSize)
	}
	if cfg.Permalink != "layers=faults" || cfg.Quakes.CSV != "quakes.csv" || cfg.Log.Level != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != ".data" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no catalog", func(c *Config) { c.Catalog = "" }},
		{"no data dir", func(c *Config) { c.DataDir = "" }},
		{"endpoint without placeholder", func(c *Config) { c.Assets.Endpoint = "https://example.com/assets" }},
		{"negative cache", func(c *Config) { c.Assets.CacheSize = -1 }},
		{"imagery without layer", func(c *Config) { c.Imagery.Template = "https://tiles/{z}/{x}/{y}.png" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
