// Package fsops provides small filesystem helpers and the error kinds shared
// by the watcher, tailer, and monitor packages.
package fsops

import "os"

// FileSize stats path and returns its current size in bytes. Failures come
// back as a FileSystemError with op "stat".
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, NewFileSystemError("stat", path, err)
	}
	return info.Size(), nil
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
