// Package daemon coordinates the long-running lookout process.
//
// It wires configuration, the monitor service, project persistence, and
// notifications into a single lifecycle with flock-based locking to prevent
// multiple instances. On start the daemon resumes monitoring for every
// project persisted from previous runs; monitor events are translated into
// logs and optional ntfy notifications here, keeping the monitor itself free
// of delivery concerns.
package daemon
