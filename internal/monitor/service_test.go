package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lookout/internal/config"
	"lookout/internal/fsops"
	"lookout/internal/pathcodec"
)

const sessionID = "11111111-1111-4111-8111-111111111111"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogRoot = t.TempDir()
	cfg.Monitor.PollIntervalMillis = 20
	cfg.Monitor.DebounceMillis = 10
	return &cfg
}

// eventSink collects published events for assertions.
type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventSink) handle(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *eventSink) wait(t *testing.T, match func(Event) bool) Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, event := range c.events {
			if match(event) {
				c.mu.Unlock()
				return event
			}
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for event")
	return Event{}
}

func newTestService(t *testing.T, cfg *config.Config) (*Service, *eventSink) {
	t.Helper()
	svc, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Close)
	sink := &eventSink{}
	svc.Subscribe(sink.handle)
	return svc, sink
}

func makeProjectDir(t *testing.T, cfg *config.Config, projectPath string) string {
	t.Helper()
	dir := filepath.Join(cfg.Paths.LogRoot, pathcodec.Encode(projectPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func TestNewSessionFileEmitsFullSequence(t *testing.T) {
	cfg := testConfig(t)
	svc, sink := newTestService(t, cfg)
	dir := makeProjectDir(t, cfg, "/proj/a")

	started, err := svc.StartProject(context.Background(), "/proj/a")
	if err != nil || !started {
		t.Fatalf("StartProject: started=%v err=%v", started, err)
	}

	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte("{\"x\":1}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sink.wait(t, func(e Event) bool { return e.Kind == EventFileCreated && e.FilePath == path })
	sink.wait(t, func(e Event) bool { return e.Kind == EventSessionStarted && e.SessionID == sessionID })
	line := sink.wait(t, func(e Event) bool { return e.Kind == EventNewLine })
	if line.Content != `{"x":1}` {
		t.Errorf("line content: got %q", line.Content)
	}
	if line.LineNumber != 1 {
		t.Errorf("line number: got %d, want 1", line.LineNumber)
	}
	if line.ProjectPath != "/proj/a" || line.SessionID != sessionID {
		t.Errorf("line attribution: project=%q session=%q", line.ProjectPath, line.SessionID)
	}
}

func TestNonSessionFilesIgnored(t *testing.T) {
	cfg := testConfig(t)
	svc, sink := newTestService(t, cfg)
	dir := makeProjectDir(t, cfg, "/proj/a")

	if _, err := svc.StartProject(context.Background(), "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}

	// Wrong extension, non-UUID stem, and a UUID of the wrong version.
	for _, name := range []string{"notes.txt", "session.jsonl", "11111111-1111-1111-8111-111111111111.jsonl"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	valid := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(valid, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	event := sink.wait(t, func(e Event) bool { return e.Kind == EventFileCreated })
	if event.FilePath != valid {
		t.Errorf("non-session file surfaced: %q", event.FilePath)
	}
}

func TestExistingFileNotReplayed(t *testing.T) {
	cfg := testConfig(t)
	svc, sink := newTestService(t, cfg)
	dir := makeProjectDir(t, cfg, "/proj/a")
	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte("{\"old\":1}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := svc.StartProject(context.Background(), "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	sessions := svc.Sessions("/proj/a")
	if len(sessions) != 1 || sessions[0].SessionID != sessionID {
		t.Fatalf("existing session not registered: %v", sessions)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{\"new\":2}\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	line := sink.wait(t, func(e Event) bool { return e.Kind == EventNewLine })
	if line.Content != `{"new":2}` {
		t.Errorf("history replayed or wrong line: %q", line.Content)
	}
}

func TestStartBooleans(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)
	makeProjectDir(t, cfg, "/proj/a")
	ctx := context.Background()

	if started, err := svc.StartProject(ctx, "/proj/a"); err != nil || !started {
		t.Fatalf("first StartProject: %v %v", started, err)
	}
	if started, err := svc.StartProject(ctx, "/proj/a"); err != nil || started {
		t.Errorf("second StartProject should be false, got %v %v", started, err)
	}

	if started, err := svc.StartGlobal(ctx); err != nil || !started {
		t.Fatalf("first StartGlobal: %v %v", started, err)
	}
	if started, err := svc.StartGlobal(ctx); err != nil || started {
		t.Errorf("second StartGlobal should be false, got %v %v", started, err)
	}

	if !svc.StopGlobal() {
		t.Error("StopGlobal while active returned false")
	}
	if svc.StopGlobal() {
		t.Error("StopGlobal while inactive returned true")
	}

	if !svc.StopProject("/proj/a") {
		t.Error("StopProject for monitored project returned false")
	}
	if svc.StopProject("/proj/a") {
		t.Error("StopProject for unknown project returned true")
	}
}

func TestGlobalDiscoversNewProjectDir(t *testing.T) {
	cfg := testConfig(t)
	svc, sink := newTestService(t, cfg)

	if started, err := svc.StartGlobal(context.Background()); err != nil || !started {
		t.Fatalf("StartGlobal: %v %v", started, err)
	}

	dir := makeProjectDir(t, cfg, "/proj/new")
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(svc.Projects()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	projects := svc.Projects()
	if len(projects) != 1 || projects[0].ProjectPath != "/proj/new" {
		t.Fatalf("project not discovered: %v", projects)
	}

	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte("{\"x\":1}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink.wait(t, func(e Event) bool { return e.Kind == EventNewLine && e.ProjectPath == "/proj/new" })
}

func TestStopGlobalKeepsExplicitProjects(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)
	makeProjectDir(t, cfg, "/proj/pinned")
	makeProjectDir(t, cfg, "/proj/ambient")
	ctx := context.Background()

	if _, err := svc.StartProject(ctx, "/proj/pinned"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	if _, err := svc.StartGlobal(ctx); err != nil {
		t.Fatalf("StartGlobal: %v", err)
	}
	if len(svc.Projects()) != 2 {
		t.Fatalf("projects before stop: %v", svc.Projects())
	}

	svc.StopGlobal()
	projects := svc.Projects()
	if len(projects) != 1 || projects[0].ProjectPath != "/proj/pinned" {
		t.Errorf("explicit project dropped by StopGlobal: %v", projects)
	}
}

func TestFileDeletionEndsSession(t *testing.T) {
	cfg := testConfig(t)
	svc, sink := newTestService(t, cfg)
	dir := makeProjectDir(t, cfg, "/proj/a")

	if _, err := svc.StartProject(context.Background(), "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink.wait(t, func(e Event) bool { return e.Kind == EventFileCreated })

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	sink.wait(t, func(e Event) bool { return e.Kind == EventFileDeleted && e.FilePath == path })
	sink.wait(t, func(e Event) bool { return e.Kind == EventSessionEnded && e.SessionID == sessionID })

	if got := svc.Sessions("/proj/a"); len(got) != 0 {
		t.Errorf("session survived deletion: %v", got)
	}
}

func TestStatsAccumulateAndReset(t *testing.T) {
	cfg := testConfig(t)
	svc, sink := newTestService(t, cfg)
	dir := makeProjectDir(t, cfg, "/proj/a")

	if _, err := svc.StartProject(context.Background(), "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte("{\"a\":1}\n{\"a\":2}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink.wait(t, func(e Event) bool { return e.Kind == EventNewLine && e.LineNumber == 2 })

	stats := svc.Stats()
	if stats.LinesEmitted != 2 {
		t.Errorf("lines emitted: got %d, want 2", stats.LinesEmitted)
	}
	if stats.BytesProcessed != 16 {
		t.Errorf("bytes processed: got %d, want 16", stats.BytesProcessed)
	}
	if stats.FilesTailed != 1 {
		t.Errorf("files tailed: got %d, want 1", stats.FilesTailed)
	}

	svc.ResetStats()
	stats = svc.Stats()
	if stats.LinesEmitted != 0 || stats.BytesProcessed != 0 || stats.Errors != 0 {
		t.Errorf("counters survived reset: %+v", stats)
	}
	if stats.FilesTailed != 1 {
		t.Errorf("reset must not drop tailed files: %d", stats.FilesTailed)
	}
}

func TestSessionContextWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitor.MaxContextLines = 3
	svc, sink := newTestService(t, cfg)
	dir := makeProjectDir(t, cfg, "/proj/a")

	if _, err := svc.StartProject(context.Background(), "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\nfive\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink.wait(t, func(e Event) bool { return e.Kind == EventNewLine && e.LineNumber == 5 })

	got := svc.SessionContext("/proj/a", sessionID)
	want := []string{"three", "four", "five"}
	if len(got) != len(want) {
		t.Fatalf("context window: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("context[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContextBufferWrap(t *testing.T) {
	buf := newContextBuffer(2)
	if got := buf.snapshot(); len(got) != 0 {
		t.Errorf("empty buffer snapshot: %v", got)
	}
	buf.append("a")
	buf.append("b")
	buf.append("c")
	got := buf.snapshot()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("wrapped snapshot: %v", got)
	}
}

func TestStartProjectMissingDirectory(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)

	started, err := svc.StartProject(context.Background(), "/proj/absent")
	if err == nil || started {
		t.Fatalf("StartProject for missing dir: started=%v err=%v", started, err)
	}
	var projectErr *fsops.ProjectError
	if !errors.As(err, &projectErr) {
		t.Errorf("expected ProjectError, got %T: %v", err, err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)
	makeProjectDir(t, cfg, "/proj/a")

	if _, err := svc.StartProject(context.Background(), "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	svc.Close()
	svc.Close()
	if svc.Running() {
		t.Error("service still running after Close")
	}
}

func TestStartProjectPromotesDiscoveredProject(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	if started, err := svc.StartGlobal(ctx); err != nil || !started {
		t.Fatalf("StartGlobal: %v %v", started, err)
	}

	makeProjectDir(t, cfg, "/proj/a")
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(svc.Projects()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(svc.Projects()) != 1 {
		t.Fatalf("project not discovered: %v", svc.Projects())
	}

	// Explicitly starting a globally discovered project pins it and counts
	// as a fresh start for the caller.
	if started, err := svc.StartProject(ctx, "/proj/a"); err != nil || !started {
		t.Fatalf("promoting StartProject: started=%v err=%v", started, err)
	}
	if started, err := svc.StartProject(ctx, "/proj/a"); err != nil || started {
		t.Errorf("repeated StartProject should be false, got %v %v", started, err)
	}

	svc.StopGlobal()
	projects := svc.Projects()
	if len(projects) != 1 || projects[0].ProjectPath != "/proj/a" {
		t.Errorf("promoted project dropped by StopGlobal: %v", projects)
	}
}

func TestStartGlobalMissingRootEmitsErrorEvent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.LogRoot = filepath.Join(cfg.Paths.LogRoot, "missing")
	svc, sink := newTestService(t, cfg)

	started, err := svc.StartGlobal(context.Background())
	if err == nil || started {
		t.Fatalf("StartGlobal on missing root: started=%v err=%v", started, err)
	}
	event := sink.wait(t, func(e Event) bool { return e.Kind == EventError })
	if event.FilePath != cfg.Paths.LogRoot {
		t.Errorf("error event path: got %q, want %q", event.FilePath, cfg.Paths.LogRoot)
	}
	if count := svc.Stats().Errors; count != 1 {
		t.Errorf("error counter: got %d, want 1", count)
	}
}

func TestStartProjectMissingDirectoryEmitsErrorEvent(t *testing.T) {
	cfg := testConfig(t)
	svc, sink := newTestService(t, cfg)

	if started, err := svc.StartProject(context.Background(), "/proj/absent"); err == nil || started {
		t.Fatalf("StartProject for missing dir: started=%v err=%v", started, err)
	}
	event := sink.wait(t, func(e Event) bool { return e.Kind == EventError })
	if event.ProjectPath != "/proj/absent" {
		t.Errorf("error event project: got %q", event.ProjectPath)
	}
	if count := svc.Stats().Errors; count != 1 {
		t.Errorf("error counter: got %d, want 1", count)
	}
}

func TestStatisticsTrackingDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitor.TrackStatistics = false
	svc, sink := newTestService(t, cfg)
	dir := makeProjectDir(t, cfg, "/proj/a")

	if _, err := svc.StartProject(context.Background(), "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte("{\"x\":1}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink.wait(t, func(e Event) bool { return e.Kind == EventNewLine })

	stats := svc.Stats()
	if stats.LinesEmitted != 0 || stats.BytesProcessed != 0 {
		t.Errorf("counters collected while tracking disabled: %+v", stats)
	}
	if stats.FilesTailed != 1 {
		t.Errorf("files tailed gauge: got %d, want 1", stats.FilesTailed)
	}
}
