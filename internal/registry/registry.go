package registry

import (
	"sync"
	"time"
)

// Project is a snapshot of one monitored project.
type Project struct {
	ProjectPath     string
	EncodedPath     string
	DisplayName     string
	Monitoring      bool
	LastActivity    time.Time
	TotalEventCount int64
	SessionCount    int
}

// Session is a snapshot of one discovered session file.
type Session struct {
	SessionID     string
	JSONLFilePath string
	ProjectPath   string
	IsActive      bool
	EventCount    int64
	StartTime     time.Time
	LastActivity  time.Time
	FileSize      int64
}

// FileMeta carries the file facts recorded when a session is created or updated.
type FileMeta struct {
	Path string
	Size int64
}

type projectState struct {
	Project
	sessions map[string]*Session
	order    []string
}

// Registry is the in-memory directory of monitored projects and their
// sessions. It performs no I/O; a single mutex serializes all mutation so it
// can be called from independent file-signal handlers.
type Registry struct {
	mu       sync.Mutex
	projects map[string]*projectState
	order    []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{projects: make(map[string]*projectState)}
}

// StartProject registers projectPath for monitoring and returns its snapshot.
// Registering an already-known project refreshes nothing and returns the
// existing state.
func (r *Registry) StartProject(projectPath, encodedPath string) Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.projects[projectPath]; ok {
		return existing.Project
	}

	state := &projectState{
		Project: Project{
			ProjectPath: projectPath,
			EncodedPath: encodedPath,
			DisplayName: displayName(projectPath),
			Monitoring:  true,
		},
		sessions: make(map[string]*Session),
	}
	r.projects[projectPath] = state
	r.order = append(r.order, projectPath)
	return state.Project
}

// StopProject removes the project and all of its sessions. Unknown projects
// are a no-op.
func (r *Registry) StopProject(projectPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[projectPath]; !ok {
		return
	}
	delete(r.projects, projectPath)
	for i, path := range r.order {
		if path == projectPath {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Project returns the snapshot for projectPath.
func (r *Registry) Project(projectPath string) (Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.projects[projectPath]
	if !ok {
		return Project{}, false
	}
	return r.snapshotProject(state), true
}

// Projects returns all monitored projects in registration order.
func (r *Registry) Projects() []Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Project, 0, len(r.order))
	for _, path := range r.order {
		if state, ok := r.projects[path]; ok {
			out = append(out, r.snapshotProject(state))
		}
	}
	return out
}

// UpsertSession creates or refreshes a session under projectPath. Creation
// records the start time and appends to discovery order; refresh only updates
// the file facts. The call is a no-op returning ok=false when the project is
// not monitored.
func (r *Registry) UpsertSession(projectPath, sessionID string, meta FileMeta) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.projects[projectPath]
	if !ok {
		return Session{}, false
	}

	session, exists := state.sessions[sessionID]
	if !exists {
		now := time.Now()
		session = &Session{
			SessionID:     sessionID,
			JSONLFilePath: meta.Path,
			ProjectPath:   projectPath,
			IsActive:      true,
			StartTime:     now,
			LastActivity:  now,
		}
		state.sessions[sessionID] = session
		state.order = append(state.order, sessionID)
	}
	if meta.Path != "" {
		session.JSONLFilePath = meta.Path
	}
	session.FileSize = meta.Size
	return *session, true
}

// RecordLines accumulates emitted lines against a session and its project,
// refreshing activity timestamps. Unknown project or session is a no-op.
func (r *Registry) RecordLines(projectPath, sessionID string, lines int, fileSize int64) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.projects[projectPath]
	if !ok {
		return Session{}, false
	}
	session, ok := state.sessions[sessionID]
	if !ok {
		return Session{}, false
	}

	now := time.Now()
	session.EventCount += int64(lines)
	session.FileSize = fileSize
	session.LastActivity = now
	state.TotalEventCount += int64(lines)
	state.LastActivity = now
	return *session, true
}

// RemoveSession drops a session from its project. Unknown references are a
// no-op.
func (r *Registry) RemoveSession(projectPath, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.projects[projectPath]
	if !ok {
		return
	}
	if _, ok := state.sessions[sessionID]; !ok {
		return
	}
	delete(state.sessions, sessionID)
	for i, id := range state.order {
		if id == sessionID {
			state.order = append(state.order[:i], state.order[i+1:]...)
			break
		}
	}
}

// ListSessions returns the project's sessions in discovery order. An unknown
// project yields an empty slice.
func (r *Registry) ListSessions(projectPath string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.projects[projectPath]
	if !ok {
		return nil
	}
	out := make([]Session, 0, len(state.order))
	for _, id := range state.order {
		if session, ok := state.sessions[id]; ok {
			out = append(out, *session)
		}
	}
	return out
}

// Session returns the snapshot for one session.
func (r *Registry) Session(projectPath, sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.projects[projectPath]
	if !ok {
		return Session{}, false
	}
	session, ok := state.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

func (r *Registry) snapshotProject(state *projectState) Project {
	snapshot := state.Project
	snapshot.SessionCount = len(state.sessions)
	return snapshot
}

func displayName(projectPath string) string {
	if projectPath == "" {
		return ""
	}
	// Last path segment, tolerating both separators.
	end := len(projectPath)
	for end > 0 && (projectPath[end-1] == '/' || projectPath[end-1] == '\\') {
		end--
	}
	start := end
	for start > 0 && projectPath[start-1] != '/' && projectPath[start-1] != '\\' {
		start--
	}
	if start == end {
		return projectPath
	}
	return projectPath[start:end]
}
