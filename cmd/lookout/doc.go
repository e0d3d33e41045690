// Command lookout is the control CLI for the lookout daemon.
//
// It talks to a running lookoutd over the Unix domain socket and renders
// status, project, and session information for terminals.
package main
