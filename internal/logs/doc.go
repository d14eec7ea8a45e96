// Package logs reads back the daemon log file for the CLI, with optional
// follow mode that streams appended lines as they arrive.
package logs
