package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"syncdctl/internal/config"
	"syncdctl/internal/ipc"
)

const (
	socketDialTimeout = 2 * time.Second
	daemonTimeout     = 10 * time.Second
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckExecutable verifies that path is an executable regular file.
func CheckExecutable(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (not installed: run `syncdctl install <platform>`)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (installed)", path)}
}

// CheckSocket verifies that path is a unix socket that accepts connections.
func CheckSocket(name, path string) Result {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (missing: daemon not running? try `syncdctl start`)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode().Type() != fs.ModeSocket {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a socket)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	conn, err := net.DialTimeout("unix", path, socketDialTimeout)
	if err != nil {
		if errors.Is(err, unix.ECONNREFUSED) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (stale: nothing is listening)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (accepting connections)", path)}
}

// CheckDaemon performs a status round trip against the sync folder.
func CheckDaemon(ctx context.Context, cfg *config.Config) Result {
	const name = "Daemon"

	checkCtx, cancel := context.WithTimeout(ctx, daemonTimeout)
	defer cancel()

	session, err := ipc.Dial(checkCtx, cfg.Paths.CommandSocket, cfg.Paths.InterfaceSocket,
		ipc.WithSyncRoot(cfg.Paths.SyncRoot),
		ipc.WithLimits(ipc.Limits{ReadChunkSize: cfg.Protocol.ReadChunkSize, RequestTimeout: daemonTimeout}),
	)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("connect failed (%v)", err)}
	}
	defer session.Close()

	result, err := session.GeneralStatus(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status failed (%v)", err)}
	}
	switch result.Kind {
	case ipc.StatusError:
		return Result{Name: name, Detail: fmt.Sprintf("refused: %s", result.Message)}
	case ipc.StatusUnwatched:
		return Result{Name: name, Detail: fmt.Sprintf("%s is not watched by the daemon", cfg.Paths.SyncRoot)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("responding (%s)", result.State)}
	}
}
