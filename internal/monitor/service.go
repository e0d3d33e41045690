package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lookout/internal/config"
	"lookout/internal/fsops"
	"lookout/internal/logging"
	"lookout/internal/pathcodec"
	"lookout/internal/registry"
	"lookout/internal/tailer"
	"lookout/internal/watchfs"
)

// fileState is the per-session-file tracking record: one cursor, one owner.
type fileState struct {
	cursor      *tailer.Cursor
	projectPath string
	sessionID   string
}

// Service watches the session log root, tails session files, and publishes
// events to subscribers. All public methods are safe for concurrent use.
type Service struct {
	cfg   *config.Config
	log   *slog.Logger
	reg   *registry.Registry
	tail  *tailer.Tailer
	stats *statsCollector
	subs  *subscribers

	mu       sync.Mutex
	running  bool
	global   bool
	watcher  *watchfs.Watcher
	cancel   context.CancelFunc
	files    map[string]*fileState        // session file path -> state
	dirs     map[string]string            // project dir -> project path
	explicit map[string]bool              // project path -> started individually
	contexts map[string]*contextBuffer    // project path + session id
	wg       sync.WaitGroup
}

// New builds a stopped monitor service from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	tail, err := tailer.New(tailer.Options{
		MaxLineLength: cfg.Monitor.MaxLineLength,
		Encoding:      cfg.Monitor.Encoding,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		log:      logging.WithComponent(logger, "monitor"),
		reg:      registry.New(),
		tail:     tail,
		stats:    newStatsCollector(cfg.Monitor.TrackStatistics),
		subs:     newSubscribers(),
		files:    make(map[string]*fileState),
		dirs:     make(map[string]string),
		explicit: make(map[string]bool),
		contexts: make(map[string]*contextBuffer),
	}, nil
}

// Subscribe registers an event handler and returns its removal func.
func (s *Service) Subscribe(handler Handler) func() {
	return s.subs.add(handler)
}

// Running reports whether any monitoring is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// GlobalActive reports whether root-wide monitoring is active.
func (s *Service) GlobalActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global
}

// StartGlobal begins monitoring every project directory under the log root
// and keeps watching for new ones. It returns false without error when global
// monitoring is already active.
func (s *Service) StartGlobal(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.global {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.ensureStartedLocked(ctx); err != nil {
		s.mu.Unlock()
		return false, err
	}

	root := s.cfg.Paths.LogRoot
	if err := s.watcher.WatchTree(root, s.cfg.Monitor.MaxWatchDepth); err != nil {
		s.stats.recordError()
		s.mu.Unlock()
		s.publishError(root, "", "", err)
		return false, err
	}
	s.global = true

	entries, err := os.ReadDir(root)
	if err != nil {
		s.global = false
		s.stats.recordError()
		s.mu.Unlock()
		s.publishError(root, "", "", err)
		return false, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		s.registerProjectLocked(pathcodec.Decode(entry.Name()), filepath.Join(root, entry.Name()), false)
	}
	count := len(s.dirs)
	s.mu.Unlock()

	s.log.Info("global monitoring started",
		logging.String(logging.FieldPath, root),
		logging.Int("projects", count))
	return true, nil
}

// StopGlobal ends root-wide monitoring and drops every project that was
// discovered by it. Individually started projects keep running. Returns false
// when global monitoring was not active.
func (s *Service) StopGlobal() bool {
	s.mu.Lock()
	if !s.global {
		s.mu.Unlock()
		return false
	}
	s.global = false
	s.watcher.Unwatch(s.cfg.Paths.LogRoot)
	for dir, projectPath := range s.dirs {
		if !s.explicit[projectPath] {
			s.removeProjectLocked(projectPath, dir)
		}
	}
	remaining := len(s.dirs)
	s.mu.Unlock()

	s.log.Info("global monitoring stopped", logging.Int("projects_remaining", remaining))
	if remaining == 0 {
		s.shutdownIfIdle()
	}
	return true
}

// StartProject begins monitoring a single project. The project's log
// directory must already exist under the root. Returns false without error
// when the project is already explicitly monitored; a project previously
// discovered by global monitoring is promoted to explicit and reports true.
func (s *Service) StartProject(ctx context.Context, projectPath string) (bool, error) {
	dir := filepath.Join(s.cfg.Paths.LogRoot, pathcodec.Encode(projectPath))

	s.mu.Lock()
	if _, ok := s.reg.Project(projectPath); ok {
		promoted := !s.explicit[projectPath]
		s.explicit[projectPath] = true
		s.mu.Unlock()
		if promoted {
			s.log.Info("project monitoring started",
				logging.String(logging.FieldProject, projectPath),
				logging.String(logging.FieldPath, dir))
		}
		return promoted, nil
	}
	if !fsops.DirExists(dir) {
		err := &fsops.ProjectError{ProjectPath: projectPath, EncodedPath: filepath.Base(dir)}
		s.stats.recordError()
		s.mu.Unlock()
		s.publishError(dir, projectPath, "", err)
		return false, err
	}
	if err := s.ensureStartedLocked(ctx); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if err := s.watcher.WatchDir(dir); err != nil {
		s.stats.recordError()
		s.mu.Unlock()
		s.publishError(dir, projectPath, "", err)
		return false, fmt.Errorf("project %s: %w", projectPath, err)
	}
	s.registerProjectLocked(projectPath, dir, true)
	s.mu.Unlock()

	s.log.Info("project monitoring started",
		logging.String(logging.FieldProject, projectPath),
		logging.String(logging.FieldPath, dir))
	return true, nil
}

// StopProject ends monitoring for one project and discards its sessions.
// Returns false when the project was not monitored.
func (s *Service) StopProject(projectPath string) bool {
	s.mu.Lock()
	if _, ok := s.reg.Project(projectPath); !ok {
		s.mu.Unlock()
		return false
	}
	var dir string
	for d, p := range s.dirs {
		if p == projectPath {
			dir = d
			break
		}
	}
	s.removeProjectLocked(projectPath, dir)
	idle := len(s.dirs) == 0 && !s.global
	s.mu.Unlock()

	s.log.Info("project monitoring stopped", logging.String(logging.FieldProject, projectPath))
	if idle {
		s.shutdownIfIdle()
	}
	return true
}

// Projects returns snapshots of all monitored projects.
func (s *Service) Projects() []registry.Project {
	return s.reg.Projects()
}

// Sessions returns the sessions of one project in discovery order.
func (s *Service) Sessions(projectPath string) []registry.Session {
	return s.reg.ListSessions(projectPath)
}

// SessionContext returns the most recent lines of one session, oldest first.
func (s *Service) SessionContext(projectPath, sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.contexts[contextKey(projectPath, sessionID)]
	if !ok {
		return nil
	}
	return buf.snapshot()
}

// Stats snapshots monitoring throughput.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	tailed := len(s.files)
	s.mu.Unlock()
	return s.stats.snapshot(tailed)
}

// ResetStats zeroes the throughput counters and restarts the window.
func (s *Service) ResetStats() {
	s.stats.reset()
}

// Close stops all monitoring. Safe to call on a stopped service.
func (s *Service) Close() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.global = false
	watcher := s.watcher
	cancel := s.cancel
	s.watcher = nil
	s.cancel = nil
	s.files = make(map[string]*fileState)
	s.dirs = make(map[string]string)
	s.explicit = make(map[string]bool)
	s.contexts = make(map[string]*contextBuffer)
	s.mu.Unlock()

	cancel()
	_ = watcher.Close()
	s.wg.Wait()
	s.log.Info("monitor stopped")
}

// ensureStartedLocked lazily brings up the watcher and worker goroutines.
// Caller holds s.mu.
func (s *Service) ensureStartedLocked(ctx context.Context) error {
	if s.running {
		return nil
	}
	watcher, err := watchfs.New(watchfs.Options{
		DebounceWindow:   s.cfg.DebounceWindow(),
		ExcludePatterns:  s.cfg.Monitor.ExcludePatterns,
		IncludeTempFiles: s.cfg.Monitor.IncludeTempFiles,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.watcher = watcher
	s.cancel = cancel
	s.running = true

	s.wg.Add(2)
	go s.pump(watcher)
	go s.sweep(runCtx)
	return nil
}

// shutdownIfIdle closes the worker machinery when the last project is gone.
func (s *Service) shutdownIfIdle() {
	s.mu.Lock()
	idle := s.running && !s.global && len(s.dirs) == 0
	s.mu.Unlock()
	if idle {
		s.Close()
	}
}

// registerProjectLocked records a project and scans its existing session
// files. Existing files are tailed from their current end so history is not
// replayed. Caller holds s.mu.
func (s *Service) registerProjectLocked(projectPath, dir string, explicit bool) {
	s.reg.StartProject(projectPath, filepath.Base(dir))
	s.dirs[dir] = projectPath
	if explicit {
		s.explicit[projectPath] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("project scan failed",
			logging.String(logging.FieldProject, projectPath),
			logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		sessionID, ok := sessionIDFromPath(path)
		if !ok {
			continue
		}
		if _, tracked := s.files[path]; tracked {
			continue
		}
		cursor, err := s.tail.Open(path)
		if err != nil {
			s.stats.recordError()
			s.log.Warn("session open failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			continue
		}
		s.files[path] = &fileState{cursor: cursor, projectPath: projectPath, sessionID: sessionID}
		s.reg.UpsertSession(projectPath, sessionID, registry.FileMeta{Path: path, Size: cursor.Offset})
		s.contexts[contextKey(projectPath, sessionID)] = newContextBuffer(s.cfg.Monitor.MaxContextLines)
	}
}

// removeProjectLocked tears down a project's watches, cursors, and registry
// state. Caller holds s.mu.
func (s *Service) removeProjectLocked(projectPath, dir string) {
	if dir != "" && s.watcher != nil {
		s.watcher.Unwatch(dir)
	}
	for path, state := range s.files {
		if state.projectPath == projectPath {
			delete(s.files, path)
			delete(s.contexts, contextKey(projectPath, state.sessionID))
		}
	}
	delete(s.dirs, dir)
	delete(s.explicit, projectPath)
	s.reg.StopProject(projectPath)
}

// pump routes watcher signals until the watcher closes.
func (s *Service) pump(watcher *watchfs.Watcher) {
	defer s.wg.Done()
	for signal := range watcher.Signals() {
		switch signal.Kind {
		case watchfs.SignalAdded:
			s.handleAdded(signal.Path)
		case watchfs.SignalChanged:
			s.pollPath(signal.Path)
		case watchfs.SignalRemoved:
			s.handleRemoved(signal.Path)
		case watchfs.SignalWatchError:
			s.stats.recordError()
			s.publishError(signal.Path, "", "", signal.Err)
		}
	}
}

// sweep polls every tracked file on the configured interval as a safety net
// for writes the notifier missed.
func (s *Service) sweep(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			paths := make([]string, 0, len(s.files))
			for path := range s.files {
				paths = append(paths, path)
			}
			s.mu.Unlock()
			for _, path := range paths {
				s.pollPath(path)
			}
		}
	}
}

func (s *Service) handleAdded(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Created and removed before we could look; the remove signal will
		// follow if we were tracking it.
		return
	}
	if info.IsDir() {
		s.handleDirAdded(path)
		return
	}

	sessionID, ok := sessionIDFromPath(path)
	if !ok {
		return
	}

	s.mu.Lock()
	projectPath, monitored := s.dirs[filepath.Dir(path)]
	if !monitored || s.files[path] != nil {
		s.mu.Unlock()
		return
	}
	// New files are read from the start: content written between creation and
	// this signal must not be lost.
	state := &fileState{
		cursor:      &tailer.Cursor{Path: path, Active: true, LastModifiedAt: time.Now()},
		projectPath: projectPath,
		sessionID:   sessionID,
	}
	s.files[path] = state
	_, created := s.reg.UpsertSession(projectPath, sessionID, registry.FileMeta{Path: path, Size: 0})
	s.contexts[contextKey(projectPath, sessionID)] = newContextBuffer(s.cfg.Monitor.MaxContextLines)
	s.mu.Unlock()

	now := time.Now()
	s.publish(Event{Kind: EventFileCreated, Timestamp: now, ProjectPath: projectPath, SessionID: sessionID, FilePath: path})
	if created {
		s.publish(Event{Kind: EventSessionStarted, Timestamp: now, ProjectPath: projectPath, SessionID: sessionID, FilePath: path})
	}
	s.pollPath(path)
}

// handleDirAdded registers a project directory that appeared under the root
// while global monitoring is active.
func (s *Service) handleDirAdded(dir string) {
	root := s.cfg.Paths.LogRoot
	if filepath.Dir(dir) != filepath.Clean(root) {
		return
	}
	s.mu.Lock()
	if !s.global {
		s.mu.Unlock()
		return
	}
	if _, known := s.dirs[dir]; known {
		s.mu.Unlock()
		return
	}
	projectPath := pathcodec.Decode(filepath.Base(dir))
	s.registerProjectLocked(projectPath, dir, false)
	s.mu.Unlock()

	s.log.Info("project discovered",
		logging.String(logging.FieldProject, projectPath),
		logging.String(logging.FieldPath, dir))
}

func (s *Service) handleRemoved(path string) {
	s.mu.Lock()
	if projectPath, ok := s.dirs[path]; ok {
		// Whole project directory disappeared.
		s.removeProjectLocked(projectPath, path)
		s.mu.Unlock()
		s.log.Info("project directory removed", logging.String(logging.FieldProject, projectPath))
		return
	}
	state, ok := s.files[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.files, path)
	delete(s.contexts, contextKey(state.projectPath, state.sessionID))
	s.reg.RemoveSession(state.projectPath, state.sessionID)
	s.mu.Unlock()

	now := time.Now()
	s.publish(Event{Kind: EventFileDeleted, Timestamp: now, ProjectPath: state.projectPath, SessionID: state.sessionID, FilePath: path})
	s.publish(Event{Kind: EventSessionEnded, Timestamp: now, ProjectPath: state.projectPath, SessionID: state.sessionID, FilePath: path})
}

// pollPath reads new lines from one tracked file and publishes them. Every
// failure becomes an error event; polling never stops the service.
func (s *Service) pollPath(path string) {
	s.mu.Lock()
	state, ok := s.files[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	before := state.cursor.Offset
	lines, err := s.tail.Poll(state.cursor)
	delta := state.cursor.Offset - before
	if delta < 0 {
		delta = state.cursor.Offset
	}
	buf := s.contexts[contextKey(state.projectPath, state.sessionID)]
	for _, line := range lines {
		if buf != nil {
			buf.append(line.Text)
		}
	}
	if len(lines) > 0 {
		s.reg.RecordLines(state.projectPath, state.sessionID, len(lines), state.cursor.Offset)
		s.stats.recordLines(len(lines), delta)
	}
	projectPath, sessionID := state.projectPath, state.sessionID
	s.mu.Unlock()

	if err != nil {
		s.stats.recordError()
		s.publishError(path, projectPath, sessionID, err)
	}
	for _, line := range lines {
		s.publish(Event{
			Kind:        EventNewLine,
			Timestamp:   time.Now(),
			ProjectPath: projectPath,
			SessionID:   sessionID,
			FilePath:    path,
			Content:     line.Text,
			LineNumber:  line.Number,
		})
	}
}

func (s *Service) publish(event Event) {
	s.subs.publish(event)
}

func (s *Service) publishError(path, projectPath, sessionID string, err error) {
	message := "watch error"
	if err != nil {
		message = err.Error()
	}
	s.log.Warn("monitor error",
		logging.String(logging.FieldPath, path),
		logging.Error(err))
	s.publish(Event{
		Kind:        EventError,
		Timestamp:   time.Now(),
		ProjectPath: projectPath,
		SessionID:   sessionID,
		FilePath:    path,
		Message:     message,
	})
}

// sessionIDFromPath accepts only `<uuid-v4>.jsonl` names, the layout session
// logs use. Everything else in a project directory is ignored.
func sessionIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	stem, found := strings.CutSuffix(base, ".jsonl")
	if !found {
		return "", false
	}
	id, err := uuid.Parse(stem)
	if err != nil || id.Version() != 4 {
		return "", false
	}
	return stem, true
}

func contextKey(projectPath, sessionID string) string {
	return projectPath + "\x00" + sessionID
}
