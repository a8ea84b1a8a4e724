package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"syncdctl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Protocol waits are shortened so tests that exercise timeouts stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CommandSocket = filepath.Join(base, "command_socket")
	cfgVal.Paths.InterfaceSocket = filepath.Join(base, "iface_socket")
	cfgVal.Paths.SyncRoot = filepath.Join(base, "Dropbox")
	cfgVal.Paths.DistDir = filepath.Join(base, ".dropbox-dist")
	cfgVal.Paths.LogDir = ""
	cfgVal.Protocol.RequestTimeoutSeconds = 2
	cfgVal.Protocol.DrainAttempts = 3
	cfgVal.Protocol.DrainWaitMillis = 10
	cfgVal.Protocol.ConfirmAttempts = 3
	cfgVal.Protocol.ConfirmWaitMillis = 50
	cfgVal.Daemon.StartupTimeoutSeconds = 2
	cfgVal.Daemon.StartupSettleSeconds = 0
	cfgVal.Daemon.AutoStart = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := os.MkdirAll(builder.cfg.Paths.SyncRoot, 0o755); err != nil {
		t.Fatalf("mkdir sync root: %v", err)
	}
	return builder.cfg
}

// WithFakeDaemon points the socket paths at d.
func WithFakeDaemon(d *FakeDaemon) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.CommandSocket = d.CommandPath()
		b.cfg.Paths.InterfaceSocket = d.InterfacePath()
	}
}

// WithDownloadURL overrides the installer download URL.
func WithDownloadURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.DownloadURL = url
	}
}

// WithStubDaemon writes an executable script as the daemon launcher.
func WithStubDaemon(script string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.MkdirAll(b.cfg.Paths.DistDir, 0o755); err != nil {
			b.t.Fatalf("mkdir dist dir: %v", err)
		}
		target := b.cfg.DaemonExecutable()
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub daemon: %v", err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SyncRoot)
}

// WriteFile creates path with content, making parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
