package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	want := []string{"status", "start", "stop", "project", "sessions", "stats", "logs", "notify", "config"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestAbsProjectPath(t *testing.T) {
	if _, err := absProjectPath("   "); err == nil {
		t.Error("blank path accepted")
	}
	got, err := absProjectPath("/proj/a")
	if err != nil || got != "/proj/a" {
		t.Errorf("absolute path: got %q, %v", got, err)
	}
	rel, err := absProjectPath("some/dir")
	if err != nil {
		t.Fatalf("relative path: %v", err)
	}
	if !filepath.IsAbs(rel) {
		t.Errorf("relative path not resolved: %q", rel)
	}
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Daemon", statusOK, "pid 42", false)
	if !strings.Contains(plain, "Daemon:") || !strings.Contains(plain, "[OK] pid 42") {
		t.Errorf("plain line: %q", plain)
	}
	if strings.Contains(plain, ansiGreen) {
		t.Errorf("color applied without colorize: %q", plain)
	}
	colored := renderStatusLine("Daemon", statusOK, "", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Errorf("colored line: %q", colored)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{{"alpha", "1"}, {"beta", "22"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "alpha") || !strings.Contains(out, "22") {
		t.Errorf("table output: %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty table should render nothing")
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "conf", "config.toml")

	cmd := newConfigInitCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out.String(), target) {
		t.Errorf("output missing target path: %q", out.String())
	}

	// A second run without --overwrite must refuse.
	cmd = newConfigInitCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--path", target})
	if err := cmd.Execute(); err == nil {
		t.Error("config init overwrote existing file without --overwrite")
	}
}
