package daemonctl

import "errors"

var (
	// ErrUnsupportedPlatform means the requested platform is not offered.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrDaemonMissing means the launcher is not installed.
	ErrDaemonMissing = errors.New("daemon not installed")
	// ErrInstallInProgress means another process holds the install lock.
	ErrInstallInProgress = errors.New("another install is in progress")
	// ErrSocketsUnavailable means the daemon did not open its sockets in time.
	ErrSocketsUnavailable = errors.New("daemon sockets unavailable")
)
