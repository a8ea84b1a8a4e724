package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"syncdctl/internal/protocol"
	"syncdctl/internal/testsupport"
)

func TestStatusReportsSyncFolder(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder\tbrowse~View on website")

	out, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Folder ==")
	requireContains(t, out, "up to date")
	requireContains(t, out, "shared")
	requireContains(t, out, "Share this folder")

	req := env.daemon.Requests()[0]
	if got, _ := req.Get("path"); got != env.cfg.Paths.SyncRoot {
		t.Fatalf("status asked about %q, want %q", got, env.cfg.Paths.SyncRoot)
	}
}

func TestFileStatusExpandsTilde(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("revisions~Previous versions")
	target := filepath.Join(env.homeDir, "notes.txt")
	testsupport.WriteFile(t, target, "x")

	out, _, err := env.run(t, "file", "~/notes.txt")
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	requireContains(t, out, "== File ==")
	requireContains(t, out, "revisions")
	if strings.Contains(out, "Tag:") {
		t.Fatalf("file output should not show a folder tag: %q", out)
	}
	if got, _ := env.daemon.Requests()[0].Get("path"); got != target {
		t.Fatalf("expected expanded path %q, got %q", target, got)
	}
}

func TestFileStatusUnwatched(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Respond(protocol.VerbFileStatus, testsupport.Response{Reply: testsupport.Reply("ok", "status\tunwatched")})

	out, _, err := env.run(t, "file", "/etc/hosts")
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	requireContains(t, out, "not watched")
}

func TestFileStatusRefused(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Respond(protocol.VerbFileStatus, testsupport.Response{Reply: "notok\tpath does not exist\ndone\n"})

	_, _, err := env.run(t, "file", "/nope")
	if err == nil || !strings.Contains(err.Error(), "path does not exist") {
		t.Fatalf("expected daemon refusal, got %v", err)
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder")

	out, _, err := env.run(t, "--json", "folder", env.cfg.Paths.SyncRoot)
	if err != nil {
		t.Fatalf("folder --json: %v", err)
	}
	var view struct {
		Kind      string `json:"kind"`
		State     string `json:"state"`
		FolderTag string `json:"folder_tag"`
		Options   []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"options"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode json: %v (%q)", err, out)
	}
	if view.Kind != "folder" || view.State != "up to date" || view.FolderTag != "shared" {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(view.Options) != 1 || view.Options[0].Name != "share" {
		t.Fatalf("unexpected options %+v", view.Options)
	}
}

func TestActionConfirmed(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder\tbrowse~View on website")
	env.daemon.Respond(protocol.VerbContextAction, testsupport.Response{
		Reply:  testsupport.Reply("ok"),
		Notify: "nop\ndone\nlaunch_url\nhttp://example.com/x\n",
	})

	out, _, err := env.run(t, "browse", env.cfg.Paths.SyncRoot)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	requireContains(t, out, "confirmed")
	requireContains(t, out, "http://example.com/x")

	want := []string{protocol.VerbFileStatus, protocol.VerbContextOptions, protocol.VerbFolderTag, protocol.VerbContextAction}
	if got := env.daemon.Verbs(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected request sequence %v", got)
	}
}

func TestActionPartialSuccess(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder")
	env.daemon.Respond(protocol.VerbContextAction, testsupport.Response{Reply: testsupport.Reply("ok")})

	out, _, err := env.run(t, "share", env.cfg.Paths.SyncRoot)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	requireContains(t, out, "no confirmation received")
}

func TestActionUnknownOptionListsAvailable(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder\tbrowse~View on website")

	out, _, err := env.run(t, "action", "Share", env.cfg.Paths.SyncRoot)
	if !errors.Is(err, errOptionUnavailable) {
		t.Fatalf("expected errOptionUnavailable, got %v", err)
	}
	requireContains(t, out, "Available options")
	requireContains(t, out, "browse")
	for _, verb := range env.daemon.Verbs() {
		if verb == protocol.VerbContextAction {
			t.Fatal("unavailable action must not be dispatched")
		}
	}
}

func TestActionRefusedByDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder")
	env.daemon.Respond(protocol.VerbContextAction, testsupport.Response{Reply: "notok\tquota exceeded\ndone\n"})

	_, _, err := env.run(t, "share", env.cfg.Paths.SyncRoot)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestCopyGalleryDefaultsToPhotos(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder")
	env.daemon.Respond(protocol.VerbContextAction, testsupport.Response{
		Reply:  testsupport.Reply("ok"),
		Notify: "copy_to_clipboard\nurl\thttps://db.example/gallery\n",
	})

	out, _, err := env.run(t, "copygallery")
	if err != nil {
		t.Fatalf("copygallery: %v", err)
	}
	requireContains(t, out, "https://db.example/gallery")

	reqs := env.daemon.Requests()
	last := reqs[len(reqs)-1]
	if verb, _ := last.Get("verb"); verb != "copygallery" {
		t.Fatalf("unexpected verb %q", verb)
	}
	if paths, _ := last.Get("paths"); paths != filepath.Join(env.cfg.Paths.SyncRoot, "Photos") {
		t.Fatalf("unexpected gallery path %q", paths)
	}
}

func TestActionApplyShellTouch(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("revisions~Previous versions")
	target := filepath.Join(env.cfg.Paths.SyncRoot, "doc.txt")
	testsupport.WriteFile(t, target, "x")
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(target, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	env.daemon.Respond(protocol.VerbContextAction, testsupport.Response{
		Reply:  testsupport.Reply("ok"),
		Notify: "shell_touch\n" + target + "\n",
	})

	out, _, err := env.run(t, "revisions", "--apply", target)
	if err != nil {
		t.Fatalf("revisions --apply: %v", err)
	}
	requireContains(t, out, "Applied")
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.ModTime().After(old.Add(time.Hour)) {
		t.Fatalf("expected refreshed mod time, got %s", info.ModTime())
	}
}

func TestDaemonDownSuggestsStart(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Close()

	_, _, err := env.run(t, "status")
	if err == nil || !strings.Contains(err.Error(), "syncdctl start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestSocketFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	other := testsupport.NewFakeDaemon(t)
	other.Respond(protocol.VerbFileStatus, testsupport.Response{Reply: testsupport.Reply("ok", "status\tunwatched")})

	out, _, err := env.run(t,
		"--command-socket", other.CommandPath(),
		"--iface-socket", other.InterfacePath(),
		"file", "/tmp/x",
	)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	requireContains(t, out, "not watched")
	if len(env.daemon.Requests()) != 0 {
		t.Fatal("configured daemon should not have been used")
	}
}

func TestDoctorWithRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.scriptWatched("share~Share this folder")

	out, _, err := env.run(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v (%s)", err, out)
	}
	requireContains(t, out, "Command socket")
	requireContains(t, out, "responding (up to date)")
	requireContains(t, out, "[WARN]")
}

func TestDoctorFailsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Close()

	out, _, err := env.run(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out, "[ERROR]")
}

func TestStartReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "start")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon already running")
}

func TestInstallRejectsPlatform(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Close()
	_, _, err := env.run(t, "install", "sparc")
	if err == nil || !strings.Contains(err.Error(), "unsupported platform") {
		t.Fatalf("expected unsupported platform, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.daemon.CommandPath())

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}
