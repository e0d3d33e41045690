// Package watchfs wraps filesystem notifications into a small signal stream.
//
// A Watcher covers registered directory trees down to a depth bound, filters
// temp files and configured exclude globs, and coalesces write bursts per path
// through a debounce window so a rapidly appended file yields one change
// signal instead of dozens. Subscribers read a single channel; Close ends it.
package watchfs
