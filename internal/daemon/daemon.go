package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"lookout/internal/config"
	"lookout/internal/logging"
	"lookout/internal/monitor"
	"lookout/internal/notifications"
	"lookout/internal/projectstore"
	"lookout/internal/registry"
)

// Daemon coordinates the monitor, project persistence, and notifications, and
// enforces single-instance execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *projectstore.Store
	monitor  *monitor.Service
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running     atomic.Bool
	startedAt   time.Time
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc

	countsMu sync.Mutex
	counts   map[string]int64 // project path + session id -> lines seen
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	MonitoringActive bool
	GlobalActive     bool
	PID              int
	StartedAt        time.Time
	LogRoot          string
	DatabasePath     string
	LockFilePath     string
	SocketPath       string
	ProjectCount     int
	Stats            monitor.Stats
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *projectstore.Store, logger *slog.Logger, svc *monitor.Service) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil {
		return nil, errors.New("daemon requires config, store, and monitor service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		monitor:  svc,
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		counts:   make(map[string]int64),
	}, nil
}

// Start acquires the instance lock, subscribes to monitor events, and resumes
// monitoring for every project persisted from previous runs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lookout daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.unsubscribe = d.monitor.Subscribe(d.handleEvent)
	d.startedAt = time.Now()
	d.running.Store(true)

	records, err := d.store.List(d.ctx)
	if err != nil {
		d.logger.Warn("project resume list failed", logging.Error(err))
	}
	for _, record := range records {
		if _, err := d.monitor.StartProject(d.ctx, record.ProjectPath); err != nil {
			d.logger.Warn("project resume failed",
				logging.String(logging.FieldProject, record.ProjectPath),
				logging.Error(err))
		}
	}

	d.logger.Info("lookout daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("resumed_projects", len(records)))
	return nil
}

// Stop halts monitoring and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	d.monitor.Close()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("lookout daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartMonitoring begins root-wide monitoring. The boolean mirrors the
// monitor: false means it was already active.
func (d *Daemon) StartMonitoring(ctx context.Context) (bool, error) {
	if !d.running.Load() {
		return false, errors.New("daemon not running")
	}
	return d.monitor.StartGlobal(d.ctx)
}

// StopMonitoring ends root-wide monitoring. False means it was not active.
func (d *Daemon) StopMonitoring() bool {
	return d.monitor.StopGlobal()
}

// StartProject begins monitoring one project and persists it for resumption.
func (d *Daemon) StartProject(ctx context.Context, projectPath string) (bool, error) {
	trimmed := strings.TrimSpace(projectPath)
	if trimmed == "" {
		return false, errors.New("project path is required")
	}
	if !d.running.Load() {
		return false, errors.New("daemon not running")
	}

	started, err := d.monitor.StartProject(d.ctx, trimmed)
	if err != nil {
		return false, err
	}
	for _, project := range d.monitor.Projects() {
		if project.ProjectPath != trimmed {
			continue
		}
		if err := d.store.Add(ctx, trimmed, project.EncodedPath); err != nil {
			d.logger.Warn("project persist failed",
				logging.String(logging.FieldProject, trimmed),
				logging.Error(err))
		}
		break
	}
	return started, nil
}

// StopProject ends monitoring for one project and forgets it.
func (d *Daemon) StopProject(ctx context.Context, projectPath string) (bool, error) {
	trimmed := strings.TrimSpace(projectPath)
	if trimmed == "" {
		return false, errors.New("project path is required")
	}
	stopped := d.monitor.StopProject(trimmed)
	if err := d.store.Remove(ctx, trimmed); err != nil {
		d.logger.Warn("project forget failed",
			logging.String(logging.FieldProject, trimmed),
			logging.Error(err))
	}
	return stopped, nil
}

// Projects returns snapshots of all monitored projects.
func (d *Daemon) Projects() []registry.Project {
	return d.monitor.Projects()
}

// Sessions returns the sessions of one project.
func (d *Daemon) Sessions(projectPath string) []registry.Session {
	return d.monitor.Sessions(projectPath)
}

// SessionContext returns the recent lines of one session.
func (d *Daemon) SessionContext(projectPath, sessionID string) []string {
	return d.monitor.SessionContext(projectPath, sessionID)
}

// Stats snapshots monitoring throughput.
func (d *Daemon) Stats() monitor.Stats {
	return d.monitor.Stats()
}

// ResetStats zeroes the throughput counters.
func (d *Daemon) ResetStats() {
	d.monitor.ResetStats()
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:          d.running.Load(),
		MonitoringActive: d.monitor.Running(),
		GlobalActive:     d.monitor.GlobalActive(),
		PID:              os.Getpid(),
		StartedAt:        d.startedAt,
		LogRoot:          d.cfg.Paths.LogRoot,
		DatabasePath:     d.store.Path(),
		LockFilePath:     d.lockPath,
		SocketPath:       d.cfg.Paths.Socket,
		ProjectCount:     len(d.monitor.Projects()),
		Stats:            d.monitor.Stats(),
	}
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.cfg.LogFilePath()
}

// handleEvent runs on the monitor's dispatch goroutine; anything slow is
// pushed onto a separate goroutine.
func (d *Daemon) handleEvent(event monitor.Event) {
	switch event.Kind {
	case monitor.EventNewLine:
		d.countsMu.Lock()
		d.counts[event.ProjectPath+"\x00"+event.SessionID]++
		d.countsMu.Unlock()
		d.logger.Debug("session line",
			logging.String(logging.FieldProject, event.ProjectPath),
			logging.String(logging.FieldSession, event.SessionID),
			logging.Int("line", event.LineNumber))
	case monitor.EventSessionStarted:
		d.logger.Info("session started",
			logging.String(logging.FieldProject, event.ProjectPath),
			logging.String(logging.FieldSession, event.SessionID))
		d.notifyAsync(func(ctx context.Context) error {
			return d.notifier.NotifySessionStarted(ctx, filepath.Base(event.ProjectPath), event.SessionID)
		})
	case monitor.EventSessionEnded:
		key := event.ProjectPath + "\x00" + event.SessionID
		d.countsMu.Lock()
		count := d.counts[key]
		delete(d.counts, key)
		d.countsMu.Unlock()
		d.logger.Info("session ended",
			logging.String(logging.FieldProject, event.ProjectPath),
			logging.String(logging.FieldSession, event.SessionID),
			logging.Int64("events", count))
		d.notifyAsync(func(ctx context.Context) error {
			return d.notifier.NotifySessionEnded(ctx, filepath.Base(event.ProjectPath), event.SessionID, count)
		})
	case monitor.EventError:
		d.logger.Warn("monitor error",
			logging.String(logging.FieldPath, event.FilePath),
			logging.String("detail", event.Message))
		message := event.Message
		d.notifyAsync(func(ctx context.Context) error {
			return d.notifier.NotifyMonitorError(ctx, errors.New(message), event.FilePath)
		})
	}
}

func (d *Daemon) notifyAsync(send func(context.Context) error) {
	ctx := d.ctx
	if ctx == nil {
		return
	}
	go func() {
		if err := send(ctx); err != nil {
			d.logger.Warn("notification failed", logging.Error(err))
		}
	}()
}
