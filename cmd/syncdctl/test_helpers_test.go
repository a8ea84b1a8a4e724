package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"syncdctl/internal/config"
	"syncdctl/internal/protocol"
	"syncdctl/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *testsupport.FakeDaemon
	configPath string
	homeDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("SYNCD_COMMAND_SOCKET", "")
	t.Setenv("SYNCD_IFACE_SOCKET", "")
	t.Setenv("SYNCD_SYNC_ROOT", "")

	d := testsupport.NewFakeDaemon(t)
	cfg := testsupport.NewConfig(t, testsupport.WithFakeDaemon(d))

	configPath := filepath.Join(homeDir, ".config", "syncdctl", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, daemon: d, configPath: configPath, homeDir: homeDir}
}

// scriptWatched makes every path a watched, up-to-date entry offering options.
func (e *cliTestEnv) scriptWatched(options string) {
	e.daemon.Respond(protocol.VerbFileStatus, testsupport.Response{Reply: testsupport.Reply("ok", "status\tup to date")})
	e.daemon.Respond(protocol.VerbContextOptions, testsupport.Response{Reply: testsupport.Reply("ok", "options\t"+options)})
	e.daemon.Respond(protocol.VerbFolderTag, testsupport.Response{Reply: testsupport.Reply("ok", "tag\tshared")})
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...))
}

func runCLI(t *testing.T, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
