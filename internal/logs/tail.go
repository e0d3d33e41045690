package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Options controls one tail call against the daemon log file.
type Options struct {
	// Offset is the byte position to resume from. Negative means "start from
	// the end": return the last Limit lines and the end-of-file offset.
	Offset int64
	// Limit caps the number of lines returned. Zero means unbounded for
	// forward reads and nothing for end-anchored reads.
	Limit int
	// Follow keeps the call open up to Wait when no new lines exist yet.
	Follow bool
	Wait   time.Duration
}

// Result carries tailed lines and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail reads daemon log lines. A missing file is not an error; it yields an
// empty result at offset zero so pollers keep working across log rotation.
// Partial trailing lines are held back, mirroring how session files are read.
func Tail(ctx context.Context, path string, opts Options) (Result, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		result, err := tailEnd(path, opts.Limit)
		if err != nil {
			return result, err
		}
		if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
			return awaitLines(ctx, path, result.Offset, opts)
		}
		return result, nil
	}

	result, err := readAhead(path, opts.Offset, opts.Limit)
	if err != nil {
		return result, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return awaitLines(ctx, path, result.Offset, opts)
	}
	return result, nil
}

// tailEnd returns the last limit complete lines and the offset of the file
// end, so a follow-up forward read resumes where this call stopped.
func tailEnd(path string, limit int) (Result, error) {
	full, err := readAhead(path, 0, 0)
	if err != nil {
		return Result{}, err
	}
	if limit > 0 && len(full.Lines) > limit {
		full.Lines = full.Lines[len(full.Lines)-limit:]
	}
	if limit <= 0 {
		full.Lines = nil
	}
	return full, nil
}

// readAhead returns complete lines at or after offset, advancing the returned
// offset only past the last line terminator seen.
func readAhead(path string, offset int64, limit int) (Result, error) {
	result := Result{Offset: offset}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if offset > info.Size() {
		// Truncated or rotated underneath us; start over.
		offset = 0
		result.Offset = 0
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return result, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			result.Offset += int64(len(line))
			result.Lines = append(result.Lines, line[:len(line)-1])
			if limit > 0 && len(result.Lines) >= limit {
				return result, nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			// Whatever remains has no terminator yet; leave it for next time.
			return result, nil
		}
		return result, fmt.Errorf("read log file: %w", err)
	}
}

// awaitLines polls for new lines until something arrives or the wait expires.
func awaitLines(ctx context.Context, path string, offset int64, opts Options) (Result, error) {
	deadline := time.Now().Add(opts.Wait)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	result := Result{Offset: offset}
	for {
		next, err := readAhead(path, result.Offset, opts.Limit)
		if err != nil {
			return result, err
		}
		result = next
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
