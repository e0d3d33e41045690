package projectstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lookout/internal/config"
)

// Record is one persisted project monitoring entry.
type Record struct {
	ProjectPath string
	EncodedPath string
	AddedAt     time.Time
}

// Store persists the set of individually monitored projects so the daemon can
// resume them after a restart. Event data is never written here.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the project database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS monitored_projects (
    project_path TEXT PRIMARY KEY,
    encoded_path TEXT NOT NULL,
    added_at     TEXT NOT NULL
);`
	if err := s.execWithRetry(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Add records a project for resumption. Re-adding an existing project
// refreshes its encoded path and keeps the original timestamp.
func (s *Store) Add(ctx context.Context, projectPath, encodedPath string) error {
	const query = `
INSERT INTO monitored_projects (project_path, encoded_path, added_at)
VALUES (?, ?, ?)
ON CONFLICT(project_path) DO UPDATE SET encoded_path = excluded.encoded_path`
	if err := s.execWithRetry(ctx, query, projectPath, encodedPath, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("add project %s: %w", projectPath, err)
	}
	return nil
}

// Remove drops a project from the resumption set. Unknown projects are a
// no-op.
func (s *Store) Remove(ctx context.Context, projectPath string) error {
	if err := s.execWithRetry(ctx, `DELETE FROM monitored_projects WHERE project_path = ?`, projectPath); err != nil {
		return fmt.Errorf("remove project %s: %w", projectPath, err)
	}
	return nil
}

// List returns all persisted projects ordered by when they were added.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	ctx = ensureContext(ctx)
	var rows *sql.Rows
	err := retryOnBusy(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx,
			`SELECT project_path, encoded_path, added_at FROM monitored_projects ORDER BY added_at, project_path`)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		var addedAt string
		if err := rows.Scan(&record.ProjectPath, &record.EncodedPath, &addedAt); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339, addedAt); parseErr == nil {
			record.AddedAt = parsed
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	return records, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}
