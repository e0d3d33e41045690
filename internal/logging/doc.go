// Package logging configures slog for the daemon and CLI.
//
// Two output formats are supported: a compact single-line console format that
// folds the component attribute into the message prefix, and standard JSON for
// machine consumption. Field* constants standardize attribute keys so log
// queries stay consistent across packages.
package logging
