package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plenum/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Fatalf("expected default max_retries=3, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Downloads.Concurrency != 1 {
		t.Fatalf("expected default concurrency=1, got %d", cfg.Downloads.Concurrency)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
download_dir = "` + filepath.Join(dir, "downloads") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[downloads]
concurrency = 2
requests_per_minute = 10

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Downloads.Concurrency != 2 {
		t.Fatalf("expected concurrency=2, got %d", cfg.Downloads.Concurrency)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized format json, got %q", cfg.Logging.Format)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected absolute data_dir, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		keyword string
	}{
		{"zero rate", func(c *config.Config) { c.Downloads.RequestsPerMinute = 0 }, "requests_per_minute"},
		{"concurrency too high", func(c *config.Config) { c.Downloads.Concurrency = 9 }, "concurrency"},
		{"negative retries", func(c *config.Config) { c.Retry.MaxRetries = -1 }, "max_retries"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "yaml" }, "logging.format"},
		{"empty data dir", func(c *config.Config) { c.Paths.DataDir = "" }, "data_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.keyword) {
				t.Fatalf("expected error mentioning %q, got %v", tc.keyword, err)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[downloads]") {
		t.Fatal("sample config missing downloads section")
	}
	// The sample must itself parse and validate.
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
