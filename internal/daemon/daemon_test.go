package daemon

import (
	"context"
	"testing"
	"time"

	"lookout/internal/config"
	"lookout/internal/monitor"
	"lookout/internal/projectstore"
	"lookout/internal/testsupport"
)

const sessionID = "22222222-2222-4222-a222-222222222222"

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	store, err := projectstore.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc, err := monitor.New(cfg, nil)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	d, err := New(cfg, store, nil, svc)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Error("second Start should fail while running")
	}

	status := d.Status()
	if !status.Running {
		t.Error("status not running after Start")
	}
	if status.PID <= 0 {
		t.Errorf("status PID: %d", status.PID)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Errorf("lock path: %q", status.LockFilePath)
	}

	d.Stop()
	if d.Status().Running {
		t.Error("status still running after Stop")
	}
	d.Stop()
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newTestDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second := newTestDaemon(t, cfg)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second instance acquired the lock")
	}
}

func TestProjectPersistedAndResumed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MakeProjectDir(t, cfg, "/proj/a")
	ctx := context.Background()

	d := newTestDaemon(t, cfg)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started, err := d.StartProject(ctx, "/proj/a"); err != nil || !started {
		t.Fatalf("StartProject: started=%v err=%v", started, err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	resumed := newTestDaemon(t, cfg)
	if err := resumed.Start(ctx); err != nil {
		t.Fatalf("resumed Start: %v", err)
	}
	projects := resumed.Projects()
	if len(projects) != 1 || projects[0].ProjectPath != "/proj/a" {
		t.Errorf("project not resumed: %v", projects)
	}
}

func TestStopProjectForgets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MakeProjectDir(t, cfg, "/proj/a")
	ctx := context.Background()

	d := newTestDaemon(t, cfg)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := d.StartProject(ctx, "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}
	if stopped, err := d.StopProject(ctx, "/proj/a"); err != nil || !stopped {
		t.Fatalf("StopProject: stopped=%v err=%v", stopped, err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	resumed := newTestDaemon(t, cfg)
	if err := resumed.Start(ctx); err != nil {
		t.Fatalf("resumed Start: %v", err)
	}
	if got := resumed.Projects(); len(got) != 0 {
		t.Errorf("forgotten project resumed: %v", got)
	}
}

func TestMonitoringToggle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)
	ctx := context.Background()

	if _, err := d.StartMonitoring(ctx); err == nil {
		t.Error("StartMonitoring before Start should fail")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if started, err := d.StartMonitoring(ctx); err != nil || !started {
		t.Fatalf("StartMonitoring: %v %v", started, err)
	}
	if started, _ := d.StartMonitoring(ctx); started {
		t.Error("second StartMonitoring should be false")
	}
	if !d.Status().GlobalActive {
		t.Error("status does not show global monitoring")
	}
	if !d.StopMonitoring() {
		t.Error("StopMonitoring returned false while active")
	}
	if d.StopMonitoring() {
		t.Error("StopMonitoring returned true while inactive")
	}
}

func TestSessionLinesFlowThroughDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.MakeProjectDir(t, cfg, "/proj/a")
	ctx := context.Background()

	d := newTestDaemon(t, cfg)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := d.StartProject(ctx, "/proj/a"); err != nil {
		t.Fatalf("StartProject: %v", err)
	}

	testsupport.WriteSessionFile(t, dir, sessionID, "{\"x\":1}\n{\"x\":2}\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if d.Stats().LinesEmitted == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := d.Stats().LinesEmitted; got != 2 {
		t.Fatalf("lines emitted: got %d, want 2", got)
	}

	sessions := d.Sessions("/proj/a")
	if len(sessions) != 1 || sessions[0].EventCount != 2 {
		t.Errorf("sessions: %v", sessions)
	}
	recent := d.SessionContext("/proj/a", sessionID)
	if len(recent) != 2 || recent[1] != `{"x":2}` {
		t.Errorf("session context: %v", recent)
	}

	d.ResetStats()
	if got := d.Stats().LinesEmitted; got != 0 {
		t.Errorf("stats after reset: %d", got)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Error("notification reported sent without a topic")
	}
	if message == "" {
		t.Error("empty message for unconfigured notifications")
	}
}
