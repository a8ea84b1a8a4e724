package ipc

import (
	"errors"

	"syncdctl/internal/protocol"
)

var (
	// ErrConnectFailed means either socket could not be reached. No partial
	// connection is kept.
	ErrConnectFailed = errors.New("connect failed")
	// ErrNotConnected is returned by every operation on a session that is not
	// Connected.
	ErrNotConnected = errors.New("not connected")
	// ErrPeerClosed means the daemon closed a socket mid-exchange. The session
	// is Broken afterwards.
	ErrPeerClosed = errors.New("peer closed connection")
	// ErrTimeout means the daemon did not finish a reply before the deadline.
	// The command stream cannot be resynchronized, so the session is Broken.
	ErrTimeout = errors.New("daemon reply timed out")
	// ErrNoSyncRoot is returned by GeneralStatus when no root is configured.
	ErrNoSyncRoot = errors.New("sync root not configured")

	// ErrProtocolViolation re-exports the decoder's violation marker so callers
	// can tell "we mis-parsed" apart from a daemon refusal.
	ErrProtocolViolation = protocol.ErrProtocolViolation
)

// DaemonError is the daemon's explanation for a refused request.
type DaemonError = protocol.DaemonError
