// Package daemon runs the pipeline on a schedule. It enforces single-instance
// execution with a file lock, triggers runs from a cron expression and from
// watch-directory activity, and serializes runs so two can never overlap.
package daemon
