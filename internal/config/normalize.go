package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMonitor()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogRoot) == "" {
		c.Paths.LogRoot = defaultLogRoot
	}
	if c.Paths.LogRoot, err = expandPath(c.Paths.LogRoot); err != nil {
		return fmt.Errorf("paths.log_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Socket) == "" {
		c.Paths.Socket = defaultSocket
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeMonitor() {
	if c.Monitor.PollIntervalMillis <= 0 {
		c.Monitor.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Monitor.DebounceMillis <= 0 {
		c.Monitor.DebounceMillis = defaultDebounceMillis
	}
	if c.Monitor.MaxLineLength <= 0 {
		c.Monitor.MaxLineLength = defaultMaxLineLength
	}
	if c.Monitor.MaxContextLines <= 0 {
		c.Monitor.MaxContextLines = defaultMaxContextLines
	}
	if c.Monitor.MaxWatchDepth <= 0 {
		c.Monitor.MaxWatchDepth = defaultMaxWatchDepth
	}
	c.Monitor.Encoding = strings.ToLower(strings.TrimSpace(c.Monitor.Encoding))
	if c.Monitor.Encoding == "" {
		c.Monitor.Encoding = defaultEncoding
	}
	patterns := make([]string, 0, len(c.Monitor.ExcludePatterns))
	for _, pattern := range c.Monitor.ExcludePatterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		patterns = append(patterns, trimmed)
	}
	c.Monitor.ExcludePatterns = patterns
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
