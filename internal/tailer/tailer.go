package tailer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"lookout/internal/fsops"
)

// TruncationMarker is appended to lines cut at the configured maximum length.
const TruncationMarker = "... [truncated]"

// Cursor is the per-file bookkeeping used to resume tailing incrementally.
// Offset never exceeds the file's current size; a detected truncation resets
// it to zero before the file is re-read.
type Cursor struct {
	Path           string
	Offset         int64
	LineNumber     int
	LastModifiedAt time.Time
	Active         bool
}

// Line is one complete line surfaced by a poll, numbered from 1 per file.
type Line struct {
	Text   string
	Number int
}

// Options configures a Tailer.
type Options struct {
	// MaxLineLength bounds surfaced lines in bytes; longer lines are cut and
	// suffixed with TruncationMarker. Zero means unbounded.
	MaxLineLength int
	// Encoding names the text encoding of the tailed files (default utf-8).
	Encoding string
}

// Tailer reads newly appended bytes of line-delimited files. A Tailer is
// stateless across files; all per-file state lives in the Cursor. Cursor
// mutation is not safe for concurrent callers — the monitor serializes polls
// per file.
type Tailer struct {
	maxLineLength int
	decoder       encoding.Encoding
}

// New constructs a Tailer. The encoding name must be one of the supported
// config values.
func New(opts Options) (*Tailer, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	return &Tailer{maxLineLength: opts.MaxLineLength, decoder: enc}, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1, nil
	case "windows-1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// Open starts tailing path. The cursor's offset is initialized to the current
// end of file so existing history is not replayed.
func (t *Tailer) Open(path string) (*Cursor, error) {
	size, err := fsops.FileSize(path)
	if err != nil {
		return nil, err
	}
	return &Cursor{
		Path:           path,
		Offset:         size,
		Active:         true,
		LastModifiedAt: time.Now(),
	}, nil
}

// Poll reads bytes appended since the cursor's offset and returns the complete
// lines found. An incomplete trailing segment (no line feed yet) is held back;
// the offset advances only past the last complete line so the next poll picks
// the fragment up again. A file shrink is treated as truncation: the cursor
// resets to (0,0) and the file is re-read from the beginning in the same call.
func (t *Tailer) Poll(cursor *Cursor) ([]Line, error) {
	size, err := fsops.FileSize(cursor.Path)
	if err != nil {
		return nil, err
	}

	if size < cursor.Offset {
		cursor.Offset = 0
		cursor.LineNumber = 0
	}
	if size == cursor.Offset {
		return nil, nil
	}

	raw, err := t.readRange(cursor.Path, cursor.Offset, size-cursor.Offset)
	if err != nil {
		return nil, err
	}

	segments := bytes.Split(raw, []byte{'\n'})
	// A buffer ending in a line feed splits into a final empty segment; a
	// non-empty final segment is an incomplete line still being written.
	segments = segments[:len(segments)-1]

	cursor.LastModifiedAt = time.Now()

	var lines []Line
	for _, segment := range segments {
		// Commit the offset per line so a failure mid-batch leaves the
		// remaining lines in place for the next poll. An undecodable line is
		// skipped, not retried: its bytes will never decode differently.
		consumed := int64(len(segment)) + 1
		text, err := t.decode(bytes.TrimSuffix(segment, []byte{'\r'}))
		if err != nil {
			cursor.Offset += consumed
			return lines, fsops.NewFileSystemError("decode", cursor.Path, err)
		}
		cursor.Offset += consumed
		if strings.TrimSpace(text) == "" {
			continue
		}
		cursor.LineNumber++
		lines = append(lines, Line{Text: t.clip(text), Number: cursor.LineNumber})
	}
	return lines, nil
}

func (t *Tailer) readRange(path string, offset, length int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fsops.NewFileSystemError("open", path, err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, fsops.NewFileSystemError("seek", path, err)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fsops.NewFileSystemError("read", path, err)
	}
	return buf[:n], nil
}

func (t *Tailer) decode(raw []byte) (string, error) {
	if t.decoder == unicode.UTF8 {
		return string(raw), nil
	}
	decoded, err := t.decoder.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// clip bounds a line at the configured maximum, backing up to a rune boundary
// before appending the truncation marker.
func (t *Tailer) clip(line string) string {
	if t.maxLineLength <= 0 || len(line) <= t.maxLineLength {
		return line
	}
	cut := t.maxLineLength
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + TruncationMarker
}
