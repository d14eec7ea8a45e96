// Command spool is the operator CLI for the spool pipeline: one-off runs,
// queue inspection and retention, status, configuration, and notification
// checks.
package main
