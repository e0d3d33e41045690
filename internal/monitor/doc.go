// Package monitor is the session log monitoring service.
//
// The service joins the watcher and the tailer: filesystem signals for a
// project tree are translated into session lifecycle events and the new lines
// appended to each session file. Only files named `<uuid-v4>.jsonl` are
// treated as sessions. Monitoring can cover the whole log root (global) or
// individual projects, and every internal failure surfaces as an error event
// rather than stopping the service.
package monitor
