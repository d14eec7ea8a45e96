package testsupport

import (
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WatchDir = filepath.Join(base, "incoming")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDriver selects the item store backend for the test config.
func WithDriver(driver string) ConfigOption {
	return func(c *config.Config) {
		c.Store.Driver = driver
	}
}

// WithScheduling overrides the slot planning knobs on the test config.
func WithScheduling(timezone string, dailyCap int, windows ...string) ConfigOption {
	return func(c *config.Config) {
		c.Scheduling.Timezone = timezone
		c.Scheduling.DailyCap = dailyCap
		c.Scheduling.Windows = windows
	}
}
