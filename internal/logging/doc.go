// Package logging builds slog loggers with plenum's console and JSON output
// formats and supplies typed attribute helpers plus standardized field keys so
// ledger, worker, and CLI log lines stay greppable across partition runs.
package logging
