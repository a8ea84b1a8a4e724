package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"syncdctl/internal/config"
	"syncdctl/internal/logging"
)

const (
	socketPollInterval = 200 * time.Millisecond
	socketDialTimeout  = time.Second
)

// StartState reports whether EnsureRunning launched the daemon.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState `json:"state"`
	Launched bool       `json:"launched"`
}

// Launch starts the installed launcher detached from the CLI.
func Launch(cfg *config.Config) error {
	executable := cfg.DaemonExecutable()
	info, err := os.Stat(executable)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s not found (run `syncdctl install <platform>`)", ErrDaemonMissing, executable)
		}
		return fmt.Errorf("stat daemon: %w", err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrDaemonMissing, executable)
	}

	proc := exec.Command(executable)
	proc.Dir = cfg.Paths.DistDir
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// SocketsReady reports whether both sockets accept connections right now.
func SocketsReady(commandPath, interfacePath string) error {
	for _, path := range []string{commandPath, interfacePath} {
		conn, err := net.DialTimeout("unix", path, socketDialTimeout)
		if err != nil {
			return err
		}
		_ = conn.Close()
	}
	return nil
}

// WaitForSockets blocks until both sockets accept connections. Socket
// directory events trigger an immediate probe; a ticker covers directories
// that do not exist yet.
func WaitForSockets(ctx context.Context, commandPath, interfacePath string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		for _, dir := range socketDirs(commandPath, interfacePath) {
			_ = watcher.Add(dir)
		}
		events, errs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(socketPollInterval)
	defer ticker.Stop()

	lastErr := SocketsReady(commandPath, interfacePath)
	for lastErr != nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrSocketsUnavailable, lastErr)
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		case <-ticker.C:
		}
		lastErr = SocketsReady(commandPath, interfacePath)
	}
	return nil
}

func socketDirs(paths ...string) []string {
	seen := make(map[string]struct{}, len(paths))
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

// EnsureRunning probes the daemon and launches it when it is not reachable,
// waiting for both sockets plus the configured settle delay.
func EnsureRunning(ctx context.Context, cfg *config.Config, logger *slog.Logger) (StartResult, error) {
	logger = logging.NewComponentLogger(logger, "daemonctl")
	if err := SocketsReady(cfg.Paths.CommandSocket, cfg.Paths.InterfaceSocket); err == nil {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	logger.Info("launching daemon", logging.String("executable", cfg.DaemonExecutable()))
	if err := Launch(cfg); err != nil {
		return StartResult{}, err
	}
	if err := WaitForSockets(ctx, cfg.Paths.CommandSocket, cfg.Paths.InterfaceSocket, cfg.Daemon.StartupTimeout()); err != nil {
		return StartResult{}, fmt.Errorf("daemon failed to start: %w", err)
	}

	if settle := cfg.Daemon.StartupSettle(); settle > 0 {
		logger.Debug("waiting for daemon to settle", logging.Duration("delay", settle))
		timer := time.NewTimer(settle)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return StartResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}
