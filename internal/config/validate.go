package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

var supportedEncodings = map[string]struct{}{
	"utf-8":        {},
	"utf8":         {},
	"utf-16le":     {},
	"utf-16be":     {},
	"iso-8859-1":   {},
	"latin1":       {},
	"windows-1252": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LogRoot == "" {
		return errors.New("paths.log_root must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.Socket == "" {
		return errors.New("paths.socket must be set")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if err := ensurePositiveMap(map[string]int{
		"monitor.poll_interval_ms":  c.Monitor.PollIntervalMillis,
		"monitor.debounce_ms":       c.Monitor.DebounceMillis,
		"monitor.max_line_length":   c.Monitor.MaxLineLength,
		"monitor.max_context_lines": c.Monitor.MaxContextLines,
		"monitor.max_watch_depth":   c.Monitor.MaxWatchDepth,
	}); err != nil {
		return err
	}
	if _, ok := supportedEncodings[c.Monitor.Encoding]; !ok {
		return fmt.Errorf("monitor.encoding: unsupported value %q", c.Monitor.Encoding)
	}
	for _, pattern := range c.Monitor.ExcludePatterns {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("monitor.exclude_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
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
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
