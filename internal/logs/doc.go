// Package logs reads the daemon's own log file for CLI consumption.
//
// Tail is offset-based so clients can page and follow without the server
// keeping per-client state. Missing files and truncation are normal
// conditions here, not errors.
package logs
