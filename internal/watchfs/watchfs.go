package watchfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"lookout/internal/fsops"
)

// SignalKind classifies a filesystem signal.
type SignalKind string

const (
	SignalAdded      SignalKind = "added"
	SignalChanged    SignalKind = "changed"
	SignalRemoved    SignalKind = "removed"
	SignalWatchError SignalKind = "watch_error"
)

// Signal is one observation delivered to the subscriber. Err is set only for
// SignalWatchError.
type Signal struct {
	Kind SignalKind
	Path string
	Err  error
}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow coalesces bursts of writes to the same path into a
	// single change signal. Zero disables debouncing.
	DebounceWindow time.Duration
	// ExcludePatterns are shell globs matched against base names; matching
	// paths produce no signals.
	ExcludePatterns []string
	// IncludeTempFiles disables the built-in suppression of editor and
	// download temp files (.tmp, .swp, trailing ~).
	IncludeTempFiles bool
}

type watchRoot struct {
	path     string
	maxDepth int
}

// Watcher delivers debounced filesystem signals for registered trees and
// files. Signals for a given path are delivered in observation order; Close is
// idempotent and terminates the signal channel.
type Watcher struct {
	notifier *fsnotify.Watcher
	opts     Options
	signals  chan Signal

	mu         sync.Mutex
	roots      []watchRoot
	debouncers map[string]func(func())
	closed     bool

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New constructs a Watcher and starts its delivery loop.
func New(opts Options) (*Watcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		notifier:   notifier,
		opts:       opts,
		signals:    make(chan Signal, 64),
		debouncers: make(map[string]func(func())),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Signals returns the delivery channel. It is closed by Close.
func (w *Watcher) Signals() <-chan Signal {
	return w.signals
}

// WatchTree registers root and its subdirectories down to maxDepth levels
// below it (0 watches only root itself). Directories created later inside the
// tree are picked up automatically.
func (w *Watcher) WatchTree(root string, maxDepth int) error {
	root = filepath.Clean(root)
	if !fsops.DirExists(root) {
		return fsops.NewFileSystemError("watch", root, fs.ErrNotExist)
	}

	w.mu.Lock()
	w.roots = append(w.roots, watchRoot{path: root, maxDepth: maxDepth})
	w.mu.Unlock()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are reported, not fatal.
			w.emit(Signal{Kind: SignalWatchError, Path: path, Err: err})
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return fs.SkipDir
		}
		if depthBelow(root, path) > maxDepth {
			return fs.SkipDir
		}
		if err := w.notifier.Add(path); err != nil {
			return fsops.NewFileSystemError("watch", path, err)
		}
		return nil
	})
}

// WatchDir registers a single directory without descending into it.
func (w *Watcher) WatchDir(path string) error {
	path = filepath.Clean(path)
	if !fsops.DirExists(path) {
		return fsops.NewFileSystemError("watch", path, fs.ErrNotExist)
	}
	if err := w.notifier.Add(path); err != nil {
		return fsops.NewFileSystemError("watch", path, err)
	}
	return nil
}

// Unwatch removes the watch on a single directory. Unknown paths are a no-op.
func (w *Watcher) Unwatch(path string) {
	_ = w.notifier.Remove(filepath.Clean(path))
}

// Close stops delivery and closes the signal channel. Safe to call more than
// once and safe to race with in-flight signals.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.notifier.Close()
		w.wg.Wait()
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.signals)
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.notifier.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.notifier.Errors:
			if !ok {
				return
			}
			w.emit(Signal{Kind: SignalWatchError, Err: err})
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.excluded(path) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		w.maybeWatchNewDir(path)
		w.emit(Signal{Kind: SignalAdded, Path: path})
	case event.Op.Has(fsnotify.Write):
		w.debounced(path)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.emit(Signal{Kind: SignalRemoved, Path: path})
	}
}

// maybeWatchNewDir adds a watch for directories created inside a registered
// tree, as long as they sit within the tree's depth bound.
func (w *Watcher) maybeWatchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	roots := make([]watchRoot, len(w.roots))
	copy(roots, w.roots)
	w.mu.Unlock()

	for _, root := range roots {
		depth := depthBelow(root.path, path)
		if depth < 0 || depth > root.maxDepth {
			continue
		}
		if err := w.notifier.Add(path); err != nil {
			w.emit(Signal{Kind: SignalWatchError, Path: path, Err: err})
		}
		return
	}
}

func (w *Watcher) debounced(path string) {
	if w.opts.DebounceWindow <= 0 {
		w.emit(Signal{Kind: SignalChanged, Path: path})
		return
	}

	w.mu.Lock()
	fire, ok := w.debouncers[path]
	if !ok {
		fire = debounce.New(w.opts.DebounceWindow)
		w.debouncers[path] = fire
	}
	w.mu.Unlock()

	fire(func() {
		w.emit(Signal{Kind: SignalChanged, Path: path})
	})
}

func (w *Watcher) emit(signal Signal) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	// Debounce timers can still fire while Close drains; recover keeps a
	// racing send from panicking the process.
	defer func() { _ = recover() }()
	select {
	case w.signals <- signal:
	case <-time.After(time.Second):
		// Subscriber stalled; drop rather than wedge the notify loop.
	}
}

func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	if !w.opts.IncludeTempFiles && isTempName(base) {
		return true
	}
	for _, pattern := range w.opts.ExcludePatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func isTempName(base string) bool {
	return strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, "~")
}

// depthBelow reports how many levels path sits below root, or -1 when path is
// outside root. root itself is depth 0.
func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return -1
	}
	if rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
