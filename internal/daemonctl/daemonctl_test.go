package daemonctl_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"syncdctl/internal/daemonctl"
	"syncdctl/internal/testsupport"
)

type archiveEntry struct {
	name string
	body string
	mode int64
	dir  bool
}

func buildArchive(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		header := &tar.Header{Name: e.name, Mode: e.mode, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			header = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if !e.dir {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func archiveServer(t *testing.T, archive []byte, gotPlatform *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		*gotPlatform = r.URL.Query().Get("plat")
		http.Redirect(w, r, "/files/syncd-lnx.x86_64-1.2.3.tar.gz", http.StatusFound)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
		_, _ = w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestInstallDownloadsAndUnpacks(t *testing.T) {
	archive := buildArchive(t,
		archiveEntry{name: ".dropbox-dist/", dir: true},
		archiveEntry{name: ".dropbox-dist/dropboxd", body: "#!/bin/sh\nexit 0\n", mode: 0o755},
		archiveEntry{name: ".dropbox-dist/VERSION", body: "1.2.3\n", mode: 0o644},
	)
	var platform string
	srv := archiveServer(t, archive, &platform)
	cfg := testsupport.NewConfig(t, testsupport.WithDownloadURL(srv.URL+"/download"))

	// A stale file from a previous install must not survive.
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DistDir, "stale"), "old")

	var reports []daemonctl.Progress
	result, err := daemonctl.Install(context.Background(), cfg, "x86_64", func(p daemonctl.Progress) {
		reports = append(reports, p)
	}, nil)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if platform != "lnx.x86_64" {
		t.Fatalf("unexpected plat query %q", platform)
	}
	if result.Archive != "syncd-lnx.x86_64-1.2.3.tar.gz" {
		t.Fatalf("unexpected archive name %q", result.Archive)
	}
	if result.Bytes != int64(len(archive)) {
		t.Fatalf("unexpected byte count %d", result.Bytes)
	}

	info, err := os.Stat(cfg.DaemonExecutable())
	if err != nil {
		t.Fatalf("stat daemon: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("daemon not executable: %v", info.Mode())
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DistDir, result.Archive)); err != nil {
		t.Fatalf("archive not kept in install dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DistDir, "stale")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected previous install removed, got %v", err)
	}

	if len(reports) == 0 {
		t.Fatal("expected progress reports")
	}
	last := reports[len(reports)-1]
	if last.Read != int64(len(archive)) || last.Total != int64(len(archive)) {
		t.Fatalf("unexpected final progress %+v", last)
	}
	if len(reports) > 11 {
		t.Fatalf("expected roughly one report per tenth, got %d", len(reports))
	}
}

func TestInstallRejectsUnsupportedPlatform(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.Install(context.Background(), cfg, "arm64", nil, nil)
	if !errors.Is(err, daemonctl.ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestInstallRespectsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	held := flock.New(cfg.Paths.DistDir + ".lock")
	if err := held.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	_, err := daemonctl.Install(context.Background(), cfg, "x86", nil, nil)
	if !errors.Is(err, daemonctl.ErrInstallInProgress) {
		t.Fatalf("expected ErrInstallInProgress, got %v", err)
	}
}

func TestInstallRejectsEscapingEntries(t *testing.T) {
	archive := buildArchive(t, archiveEntry{name: "../evil", body: "x", mode: 0o644})
	var platform string
	srv := archiveServer(t, archive, &platform)
	cfg := testsupport.NewConfig(t, testsupport.WithDownloadURL(srv.URL+"/download"))

	if _, err := daemonctl.Install(context.Background(), cfg, "x86", nil, nil); err == nil {
		t.Fatal("expected escaping entry to fail")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cfg.InstallRoot()), "evil")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("escaping entry was written: %v", err)
	}
}

func TestInstallKeepsPreviousInstallOnBadArchive(t *testing.T) {
	cases := map[string][]byte{
		"corrupt":      []byte("not a gzip stream"),
		"wrong-layout": buildArchive(t, archiveEntry{name: "other/dropboxd", body: "x", mode: 0o755}),
	}
	for name, archive := range cases {
		t.Run(name, func(t *testing.T) {
			var platform string
			srv := archiveServer(t, archive, &platform)
			cfg := testsupport.NewConfig(t,
				testsupport.WithDownloadURL(srv.URL+"/download"),
				testsupport.WithStubDaemon("#!/bin/sh\nexit 0\n"),
			)

			if _, err := daemonctl.Install(context.Background(), cfg, "x86_64", nil, nil); err == nil {
				t.Fatal("expected unpack failure")
			}
			if _, err := os.Stat(cfg.DaemonExecutable()); err != nil {
				t.Fatalf("previous install was removed: %v", err)
			}
			leftovers, err := filepath.Glob(filepath.Join(cfg.InstallRoot(), ".syncdctl-*"))
			if err != nil {
				t.Fatalf("glob: %v", err)
			}
			if len(leftovers) != 0 {
				t.Fatalf("temporary files left behind: %v", leftovers)
			}
		})
	}
}

func TestInstallReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithDownloadURL(srv.URL+"/download"))

	if _, err := daemonctl.Install(context.Background(), cfg, "x86", nil, nil); err == nil {
		t.Fatal("expected download failure")
	}
}

func TestLaunchMissingDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := daemonctl.Launch(cfg); !errors.Is(err, daemonctl.ErrDaemonMissing) {
		t.Fatalf("expected ErrDaemonMissing, got %v", err)
	}
}

func TestLaunchRunsDetached(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDaemon("#!/bin/sh\ntouch launched\n"))
	if err := daemonctl.Launch(cfg); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	marker := filepath.Join(cfg.Paths.DistDir, "launched")
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("stub daemon did not run")
}

func TestWaitForSocketsSeesLateListeners(t *testing.T) {
	dir, err := os.MkdirTemp("", "syncd")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	cmdPath := filepath.Join(dir, "command_socket")
	ifacePath := filepath.Join(dir, "iface_socket")

	go func() {
		time.Sleep(100 * time.Millisecond)
		for _, p := range []string{cmdPath, ifacePath} {
			ln, err := net.Listen("unix", p)
			if err != nil {
				return
			}
			t.Cleanup(func() { _ = ln.Close() })
		}
	}()

	if err := daemonctl.WaitForSockets(context.Background(), cmdPath, ifacePath, 3*time.Second); err != nil {
		t.Fatalf("WaitForSockets: %v", err)
	}
}

func TestWaitForSocketsTimesOut(t *testing.T) {
	dir := t.TempDir()
	err := daemonctl.WaitForSockets(context.Background(), filepath.Join(dir, "a"), filepath.Join(dir, "b"), 100*time.Millisecond)
	if !errors.Is(err, daemonctl.ErrSocketsUnavailable) {
		t.Fatalf("expected ErrSocketsUnavailable, got %v", err)
	}
}

func TestEnsureRunningDetectsRunningDaemon(t *testing.T) {
	d := testsupport.NewFakeDaemon(t)
	cfg := testsupport.NewConfig(t, testsupport.WithFakeDaemon(d))

	result, err := daemonctl.EnsureRunning(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("EnsureRunning: %v", err)
	}
	if result.State != daemonctl.StartStateAlreadyRunning || result.Launched {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestEnsureRunningWithoutInstall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.EnsureRunning(context.Background(), cfg, nil); !errors.Is(err, daemonctl.ErrDaemonMissing) {
		t.Fatalf("expected ErrDaemonMissing, got %v", err)
	}
}
