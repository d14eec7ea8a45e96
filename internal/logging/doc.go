// Package logging assembles the structured slog loggers used across spool.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so pipeline code tags log lines
// with run IDs and item names in one consistent shape. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
