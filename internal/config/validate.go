package config

import (
	"errors"
	"fmt"
	"strings"
)

// maxConcurrency bounds the in-partition worker pool; downloads are long
// blocking transfers and upstream parliament servers throttle aggressively.
const maxConcurrency = 4

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownloads(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	return nil
}

func (c *Config) validateDownloads() error {
	if err := ensurePositiveMap(map[string]int{
		"downloads.request_timeout":     c.Downloads.RequestTimeout,
		"downloads.requests_per_minute": c.Downloads.RequestsPerMinute,
	}); err != nil {
		return err
	}
	if c.Downloads.Concurrency < 1 || c.Downloads.Concurrency > maxConcurrency {
		return fmt.Errorf("downloads.concurrency must be between 1 and %d", maxConcurrency)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.BaseDelaySeconds <= 0 {
		return errors.New("retry.base_delay_seconds must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must not be negative")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.StaleAfterMinutes <= 0 {
		return errors.New("workers.stale_after_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
