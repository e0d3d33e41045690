package registry

import (
	"sync"
	"testing"
)

func TestStartProjectIsIdempotent(t *testing.T) {
	r := New()
	first := r.StartProject("/proj/a", "-proj-a")
	second := r.StartProject("/proj/a", "-other")
	if second.EncodedPath != first.EncodedPath {
		t.Errorf("re-registration changed encoded path: %q", second.EncodedPath)
	}
	if len(r.Projects()) != 1 {
		t.Errorf("project count: got %d, want 1", len(r.Projects()))
	}
}

func TestDisplayName(t *testing.T) {
	r := New()
	p := r.StartProject("/home/user/work", "-home-user-work")
	if p.DisplayName != "work" {
		t.Errorf("display name: got %q, want work", p.DisplayName)
	}
}

func TestUpsertSessionOrderAndRefresh(t *testing.T) {
	r := New()
	r.StartProject("/proj/a", "-proj-a")

	first, ok := r.UpsertSession("/proj/a", "s1", FileMeta{Path: "/p/s1.jsonl", Size: 10})
	if !ok {
		t.Fatal("upsert rejected for monitored project")
	}
	if first.StartTime.IsZero() {
		t.Error("start time not recorded")
	}
	r.UpsertSession("/proj/a", "s2", FileMeta{Path: "/p/s2.jsonl", Size: 0})

	refreshed, ok := r.UpsertSession("/proj/a", "s1", FileMeta{Path: "/p/s1.jsonl", Size: 25})
	if !ok || refreshed.FileSize != 25 {
		t.Errorf("refresh: got size %d, want 25", refreshed.FileSize)
	}

	sessions := r.ListSessions("/proj/a")
	if len(sessions) != 2 {
		t.Fatalf("session count: got %d, want 2", len(sessions))
	}
	if sessions[0].SessionID != "s1" || sessions[1].SessionID != "s2" {
		t.Errorf("discovery order lost: %v, %v", sessions[0].SessionID, sessions[1].SessionID)
	}
}

func TestUpsertSessionUnknownProject(t *testing.T) {
	r := New()
	if _, ok := r.UpsertSession("/nope", "s1", FileMeta{}); ok {
		t.Error("upsert accepted for unmonitored project")
	}
}

func TestRecordLinesUpdatesCounters(t *testing.T) {
	r := New()
	r.StartProject("/proj/a", "-proj-a")
	r.UpsertSession("/proj/a", "s1", FileMeta{Size: 5})

	session, ok := r.RecordLines("/proj/a", "s1", 3, 42)
	if !ok {
		t.Fatal("RecordLines rejected")
	}
	if session.EventCount != 3 || session.FileSize != 42 {
		t.Errorf("session counters: events=%d size=%d", session.EventCount, session.FileSize)
	}
	project, _ := r.Project("/proj/a")
	if project.TotalEventCount != 3 {
		t.Errorf("project event count: got %d, want 3", project.TotalEventCount)
	}
	if project.LastActivity.IsZero() {
		t.Error("project activity not refreshed")
	}
}

func TestRemoveSessionCascade(t *testing.T) {
	r := New()
	r.StartProject("/proj/a", "-proj-a")
	r.UpsertSession("/proj/a", "s1", FileMeta{})
	r.UpsertSession("/proj/a", "s2", FileMeta{})

	r.RemoveSession("/proj/a", "s1")
	sessions := r.ListSessions("/proj/a")
	if len(sessions) != 1 || sessions[0].SessionID != "s2" {
		t.Errorf("sessions after removal: %v", sessions)
	}

	// Removing again, or removing unknown references, must not panic or error.
	r.RemoveSession("/proj/a", "s1")
	r.RemoveSession("/nope", "s1")
}

func TestStopProjectRemovesSessions(t *testing.T) {
	r := New()
	r.StartProject("/proj/a", "-proj-a")
	r.UpsertSession("/proj/a", "s1", FileMeta{})
	r.StopProject("/proj/a")

	if _, ok := r.Project("/proj/a"); ok {
		t.Error("project survived StopProject")
	}
	if got := r.ListSessions("/proj/a"); len(got) != 0 {
		t.Errorf("sessions survived StopProject: %v", got)
	}
	r.StopProject("/proj/a")
}

func TestConcurrentMutation(t *testing.T) {
	r := New()
	r.StartProject("/proj/a", "-proj-a")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			r.UpsertSession("/proj/a", id, FileMeta{})
			r.RecordLines("/proj/a", id, 1, 1)
			r.ListSessions("/proj/a")
		}(i)
	}
	wg.Wait()

	if got := len(r.ListSessions("/proj/a")); got != 8 {
		t.Errorf("session count after concurrent upserts: got %d, want 8", got)
	}
}
