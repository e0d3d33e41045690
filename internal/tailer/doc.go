// Package tailer reads newly appended lines from line-delimited log files.
//
// A Tailer never replays history: Open positions the cursor at the current end
// of file, and each Poll surfaces only complete lines appended since. Partial
// trailing writes are held back until their line feed arrives, file shrinks
// reset the cursor and re-read from the start, and oversized lines are cut at
// the configured maximum with a trailing marker.
package tailer
