// Package config loads, normalizes, and validates plenum configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and partition workers need: data and download directories, fetch
// timeouts and rate limits, the retry schedule, and logging output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
