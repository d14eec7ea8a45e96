package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateScheduling(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverJSON:
		return nil
	default:
		return fmt.Errorf("store.driver: unknown driver %q (expected %q or %q)", c.Store.Driver, DriverSQLite, DriverJSON)
	}
}

func (c *Config) validateScheduling() error {
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("scheduling.timezone: %w", err)
	}
	if c.Scheduling.DailyCap <= 0 {
		return errors.New("scheduling.daily_cap must be positive")
	}
	for _, window := range c.Scheduling.Windows {
		if err := checkWindowFormat(window); err != nil {
			return fmt.Errorf("scheduling.windows: %w", err)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if strings.TrimSpace(c.Workflow.RunSchedule) == "" {
		return errors.New("workflow.run_schedule must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"workflow.watch_debounce_seconds":       c.Workflow.WatchDebounceSeconds,
		"workflow.collaborator_timeout_seconds": c.Workflow.CollaboratorTimeoutSeconds,
		"notifications.request_timeout":         c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// checkWindowFormat accepts HH:MM 24-hour clock values. The schedule package
// owns the real parsing; this keeps config errors close to the file they
// came from.
func checkWindowFormat(window string) error {
	parts := strings.Split(window, ":")
	if len(parts) != 2 {
		return fmt.Errorf("window %q must use HH:MM", window)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("window %q has an invalid hour", window)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("window %q has an invalid minute", window)
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
