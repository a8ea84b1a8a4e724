package daemonctl

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"syncdctl/internal/config"
	"syncdctl/internal/logging"
)

const (
	defaultArchiveName = "daemon.tar.gz"
	unknownSizeStep    = 1 << 20
	copyBufferSize     = 32 * 1024
)

// Progress reports download state. Total is -1 when the server sent no length.
type Progress struct {
	Archive string
	Read    int64
	Total   int64
}

// ProgressFunc receives roughly one report per tenth of the download.
type ProgressFunc func(Progress)

// InstallResult describes a finished install.
type InstallResult struct {
	Platform string `json:"platform"`
	Archive  string `json:"archive"`
	Bytes    int64  `json:"bytes"`
	DistDir  string `json:"dist_dir"`
}

// Install downloads the daemon archive for platform and unpacks it, replacing
// any previous install in paths.dist_dir.
func Install(ctx context.Context, cfg *config.Config, platform string, progress ProgressFunc, logger *slog.Logger) (InstallResult, error) {
	if cfg == nil {
		return InstallResult{}, errors.New("configuration not available")
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if !cfg.Daemon.SupportsPlatform(platform) {
		return InstallResult{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedPlatform, platform, strings.Join(cfg.Daemon.Platforms, ", "))
	}
	logger = logging.NewComponentLogger(logger, "installer")

	root := cfg.InstallRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return InstallResult{}, fmt.Errorf("create install root: %w", err)
	}
	lock := flock.New(cfg.Paths.DistDir + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return InstallResult{}, fmt.Errorf("acquire install lock: %w", err)
	}
	if !locked {
		return InstallResult{}, ErrInstallInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release install lock", logging.Error(err))
		}
	}()

	source, err := downloadURL(cfg.Daemon.DownloadURL, platform)
	if err != nil {
		return InstallResult{}, err
	}
	logger.Info("downloading daemon", logging.String("url", source), logging.String("platform", platform))

	tmpPath := filepath.Join(root, ".syncdctl-"+uuid.NewString()+".tar.gz")
	defer os.Remove(tmpPath)

	archive, size, err := download(ctx, cfg, source, tmpPath, progress)
	if err != nil {
		return InstallResult{}, err
	}

	if err := unpackInto(tmpPath, root, cfg.Paths.DistDir); err != nil {
		return InstallResult{}, fmt.Errorf("unpack %s: %w", archive, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(cfg.Paths.DistDir, archive)); err != nil {
		return InstallResult{}, fmt.Errorf("keep archive: %w", err)
	}
	logger.Info("daemon installed", logging.String("dist_dir", cfg.Paths.DistDir), logging.Int64("bytes", size))

	return InstallResult{Platform: platform, Archive: archive, Bytes: size, DistDir: cfg.Paths.DistDir}, nil
}

func downloadURL(base, platform string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	query := parsed.Query()
	query.Set("plat", "lnx."+platform)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func download(ctx context.Context, cfg *config.Config, source, dest string, progress ProgressFunc) (string, int64, error) {
	if timeout := cfg.Daemon.DownloadDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch daemon archive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("fetch daemon archive: unexpected status %s", resp.Status)
	}

	archive := archiveName(resp)
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create download file: %w", err)
	}
	defer file.Close()

	reporter := newProgressReporter(archive, resp.ContentLength, progress)
	written, err := io.CopyBuffer(file, io.TeeReader(resp.Body, reporter), make([]byte, copyBufferSize))
	if err != nil {
		return "", 0, fmt.Errorf("download %s: %w", archive, err)
	}
	reporter.finish()
	if err := file.Close(); err != nil {
		return "", 0, fmt.Errorf("write download file: %w", err)
	}
	return archive, written, nil
}

// archiveName takes the file name from the final URL after redirects.
func archiveName(resp *http.Response) string {
	if resp.Request != nil && resp.Request.URL != nil {
		if name := path.Base(resp.Request.URL.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	return defaultArchiveName
}

type progressReporter struct {
	progress Progress
	step     int64
	next     int64
	reported int64
	report   ProgressFunc
}

func newProgressReporter(archive string, total int64, report ProgressFunc) *progressReporter {
	if total <= 0 {
		total = -1
	}
	step := int64(unknownSizeStep)
	if total > 0 {
		step = max(total/10, 1)
	}
	return &progressReporter{
		progress: Progress{Archive: archive, Total: total},
		step:     step,
		next:     step,
		report:   report,
	}
}

func (r *progressReporter) Write(p []byte) (int, error) {
	r.progress.Read += int64(len(p))
	if r.report != nil && r.progress.Read >= r.next {
		r.report(r.progress)
		r.reported = r.progress.Read
		for r.next <= r.progress.Read {
			r.next += r.step
		}
	}
	return len(p), nil
}

// finish emits a final report unless the last one already covered every byte.
func (r *progressReporter) finish() {
	if r.report != nil && r.reported != r.progress.Read {
		r.report(r.progress)
	}
}

// unpackInto extracts the archive into a staging directory under root and
// only then swaps the staged install directory in for distDir. A broken
// archive leaves the previous install untouched.
func unpackInto(archivePath, root, distDir string) error {
	staging, err := os.MkdirTemp(root, ".syncdctl-stage-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extractTarGz(archivePath, staging); err != nil {
		return err
	}
	staged := filepath.Join(staging, filepath.Base(distDir))
	if info, err := os.Stat(staged); err != nil || !info.IsDir() {
		return fmt.Errorf("archive has no %s directory", filepath.Base(distDir))
	}
	if err := os.RemoveAll(distDir); err != nil {
		return fmt.Errorf("remove previous install: %w", err)
	}
	if err := os.Rename(staged, distDir); err != nil {
		return fmt.Errorf("move install into place: %w", err)
	}
	return nil
}

func extractTarGz(archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("symlink %s points outside the archive", header.Name)
			}
			if _, err := safeJoin(filepath.Dir(target), header.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, name)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes %s", name, root)
	}
	return target, nil
}
