package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("session started",
		String(FieldComponent, "monitor"),
		String(FieldSession, "abc123"),
		Int("lines", 3),
	)

	out := buf.String()
	if !strings.Contains(out, " INFO monitor: session started") {
		t.Errorf("missing component prefix: %q", out)
	}
	if !strings.Contains(out, "session=abc123") || !strings.Contains(out, "lines=3") {
		t.Errorf("missing attributes: %q", out)
	}
	if strings.Contains(out, "component=") {
		t.Errorf("component should be folded into prefix: %q", out)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Warn("odd value", String("detail", "has spaces"))

	if !strings.Contains(buf.String(), `detail="has spaces"`) {
		t.Errorf("value not quoted: %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record emitted below level: %q", buf.String())
	}
	logger.Error("kept")
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("error record missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"  WARN ": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q): got %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("New accepted unknown format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
