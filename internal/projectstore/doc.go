// Package projectstore persists which projects are being monitored.
//
// The store holds only control state: the project paths an operator asked the
// daemon to watch, so monitoring resumes across restarts. Session events and
// log content are deliberately never persisted.
package projectstore
