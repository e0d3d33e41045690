// Package notifications delivers monitoring events via ntfy.
//
// The service publishes to the topic configured in config.toml and
// degrades to a no-op when no topic is set, so callers never need to
// check whether notifications are enabled. Session starts, session
// ends, and monitor errors can each be toggled independently.
package notifications
