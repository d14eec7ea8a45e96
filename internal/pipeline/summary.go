package pipeline

import "time"

// Summary aggregates the outcome of one run. Per-item failures are recorded
// here and on the items themselves; they never fail the run.
type Summary struct {
	RunID     string
	Scanned   int
	Scheduled int
	Completed int
	Failed    int
	Errors    []string
	StartedAt time.Time
	Duration  time.Duration
}
