package config

// Store driver names accepted by store.driver.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

const (
	defaultWatchDir             = "~/.local/share/spool/incoming"
	defaultLibraryDir           = "~/.local/share/spool/library"
	defaultStagingDir           = "~/.local/share/spool/staging"
	defaultLogDir               = "~/.local/share/spool/logs"
	defaultTimezone             = "UTC"
	defaultDailyCap             = 3
	defaultRunSchedule          = "*/15 * * * *"
	defaultWatchDebounceSeconds = 10
	defaultCollaboratorTimeout  = 600
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

func defaultWindows() []string {
	return []string{"09:00", "12:30", "17:00"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:   defaultWatchDir,
			LibraryDir: defaultLibraryDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Store: Store{
			Driver: DriverSQLite,
		},
		Scheduling: Scheduling{
			Timezone: defaultTimezone,
			Windows:  defaultWindows(),
			DailyCap: defaultDailyCap,
		},
		Workflow: Workflow{
			RunSchedule:                defaultRunSchedule,
			WatchDebounceSeconds:       defaultWatchDebounceSeconds,
			CollaboratorTimeoutSeconds: defaultCollaboratorTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunSummary:     true,
			Publishes:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
