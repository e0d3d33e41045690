package fsops

import (
	"errors"
	"fmt"
	"io/fs"
)

// FileSystemError reports a failed filesystem operation with enough context to
// log and retry. It is always recoverable: callers surface it as an error event
// and try again on the next change signal.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// NewFileSystemError wraps err with the operation and path it failed on.
func NewFileSystemError(op, path string, err error) *FileSystemError {
	return &FileSystemError{Op: op, Path: path, Err: err}
}

// ProjectError reports a project path that has no corresponding encoded
// directory under the log root.
type ProjectError struct {
	ProjectPath string
	EncodedPath string
}

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project %s not found under log root (looked for %s)", e.ProjectPath, e.EncodedPath)
}

// IsNotExist reports whether err ultimately stems from a missing file, looking
// through FileSystemError wrapping.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
