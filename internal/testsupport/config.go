package testsupport

import (
	"path/filepath"
	"testing"

	"plenum/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	// Tests never want multi-minute backoffs.
	cfg.Retry.BaseDelaySeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxRetries overrides the retry budget on the test config.
func WithMaxRetries(n int) ConfigOption {
	return func(c *config.Config) {
		c.Retry.MaxRetries = n
	}
}

// WithConcurrency overrides the in-partition worker pool size.
func WithConcurrency(n int) ConfigOption {
	return func(c *config.Config) {
		c.Downloads.Concurrency = n
	}
}
