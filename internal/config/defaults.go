package config

const (
	defaultLogRoot            = "~/.claude/projects"
	defaultLogDir             = "~/.local/share/lookout/logs"
	defaultSocket             = "~/.local/share/lookout/lookoutd.sock"
	defaultPollIntervalMillis = 100
	defaultDebounceMillis     = 200
	defaultMaxLineLength      = 32768
	defaultMaxContextLines    = 1000
	defaultEncoding           = "utf-8"
	defaultMaxWatchDepth      = 3
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogRoot: defaultLogRoot,
			LogDir:  defaultLogDir,
			Socket:  defaultSocket,
		},
		Monitor: Monitor{
			PollIntervalMillis: defaultPollIntervalMillis,
			DebounceMillis:     defaultDebounceMillis,
			MaxLineLength:      defaultMaxLineLength,
			MaxContextLines:    defaultMaxContextLines,
			Encoding:           defaultEncoding,
			ExcludePatterns:    []string{"*.tmp", "*.swp"},
			IncludeTempFiles:   false,
			TrackStatistics:    true,
			MaxWatchDepth:      defaultMaxWatchDepth,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			SessionStarted: true,
			SessionEnded:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
