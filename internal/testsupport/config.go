package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lookout/internal/config"
	"lookout/internal/pathcodec"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogRoot = filepath.Join(base, "root")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.Socket = filepath.Join(base, "run", "lookoutd.sock")
	cfgVal.Monitor.PollIntervalMillis = 20
	cfgVal.Monitor.DebounceMillis = 10

	if err := os.MkdirAll(cfgVal.Paths.LogRoot, 0o755); err != nil {
		t.Fatalf("mkdir log root: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNtfyTopic sets the notification endpoint on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithEncoding overrides the session file encoding on the test config.
func WithEncoding(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Monitor.Encoding = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogRoot)
}

// MakeProjectDir creates the encoded log directory for projectPath under the
// config's root and returns it.
func MakeProjectDir(t testing.TB, cfg *config.Config, projectPath string) string {
	t.Helper()
	dir := filepath.Join(cfg.Paths.LogRoot, pathcodec.Encode(projectPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir project dir: %v", err)
	}
	return dir
}

// WriteSessionFile writes a session log under dir and returns its path.
func WriteSessionFile(t testing.TB, dir, sessionID, content string) string {
	t.Helper()
	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write session file: %v", err)
	}
	return path
}

// AppendSessionFile appends content to an existing session log.
func AppendSessionFile(t testing.TB, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open session file: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append session file: %v", err)
	}
}
