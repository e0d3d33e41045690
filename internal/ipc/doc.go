// Package ipc carries daemon control over JSON-RPC on a Unix domain socket.
//
// The server registers the daemon surface under the "Lookout" service name;
// the client wraps each method in a typed call. Request and response structs
// are plain data so the wire format stays stable as internals move.
package ipc
