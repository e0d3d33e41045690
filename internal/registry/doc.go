// Package registry holds the in-memory state of monitored projects and their
// sessions.
//
// The registry is a pure state container: it never touches the filesystem and
// never blocks. Ownership runs one direction — the monitor service owns watch
// handles and tailers, the registry owns the logical project/session records.
// Mutating calls on missing projects or sessions are deliberate no-ops so
// signal handlers racing a teardown stay harmless.
package registry
