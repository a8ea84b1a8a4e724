package ipc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"syncdctl/internal/protocol"
)

// Session is one caller-owned conversation with the daemon over a connection
// pair. Its methods are safe for concurrent use but run one at a time: the
// sockets are owned exclusively by the session.
type Session struct {
	commandPath   string
	interfacePath string
	syncRoot      string
	limits        Limits
	stat          func(string) (fs.FileInfo, error)

	mu       sync.Mutex
	state    State
	pair     *pair
	listener *listener
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithLimits overrides the read bounds. Zero fields keep their defaults.
func WithLimits(limits Limits) SessionOption {
	return func(s *Session) {
		s.limits = limits.withDefaults()
	}
}

// WithSyncRoot sets the directory GeneralStatus reports on.
func WithSyncRoot(path string) SessionOption {
	return func(s *Session) {
		s.syncRoot = strings.TrimSpace(path)
	}
}

// WithStat replaces os.Stat for the file-or-folder decision.
func WithStat(stat func(string) (fs.FileInfo, error)) SessionOption {
	return func(s *Session) {
		if stat != nil {
			s.stat = stat
		}
	}
}

// NewSession prepares an unconnected session for the given socket paths.
func NewSession(commandPath, interfacePath string, opts ...SessionOption) *Session {
	s := &Session{
		commandPath:   commandPath,
		interfacePath: interfacePath,
		limits:        DefaultLimits(),
		stat:          os.Stat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial creates a session and connects it.
func Dial(ctx context.Context, commandPath, interfacePath string, opts ...SessionOption) (*Session, error) {
	s := NewSession(commandPath, interfacePath, opts...)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect opens both sockets. It succeeds only from StateDisconnected; a
// Broken or Closed session must be replaced.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnected:
		return nil
	case StateBroken, StateClosed:
		return fmt.Errorf("%w: session is %s", ErrNotConnected, s.state)
	}
	p, err := dialPair(ctx, s.commandPath, s.interfacePath, s.limits.ReadChunkSize)
	if err != nil {
		return err
	}
	s.pair = p
	s.listener = newListener(p.iface)
	s.state = StateConnected
	return nil
}

// State reports the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears the session down. It is idempotent and never fails.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair.close()
	s.pair = nil
	s.listener = nil
	s.state = StateClosed
	return nil
}

// Status asks the daemon for the sync state of path together with the
// context options it offers there, plus the folder tag for directories.
// A refusal at any step ends the sequence with a StatusError result; errors
// are reserved for transport and decoding failures.
func (s *Session) Status(ctx context.Context, path string) (StatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return StatusResult{}, err
	}
	return s.status(ctx, path)
}

// GeneralStatus is Status for the synchronized root directory.
func (s *Session) GeneralStatus(ctx context.Context) (StatusResult, error) {
	if s.syncRoot == "" {
		return StatusResult{}, ErrNoSyncRoot
	}
	return s.Status(ctx, s.syncRoot)
}

// SyncRoot returns the directory GeneralStatus reports on.
func (s *Session) SyncRoot() string {
	return s.syncRoot
}

// PerformAction dispatches a context action for path and waits for the
// daemon's confirmation on the interface socket.
//
// Callers are expected to have checked verb against the options returned by
// Status for the same path just before; the session does not re-check. The
// wait matches the first effect command to arrive: the protocol carries no
// correlation id, so an unrelated effect issued by the daemon during the
// window would be taken as this action's confirmation.
func (s *Session) PerformAction(ctx context.Context, path, verb string) (ActionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return ActionOutcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return ActionOutcome{}, err
	}

	if _, err := s.listener.drain(ctx, s.limits.DrainAttempts, s.limits.DrainWait); err != nil {
		return ActionOutcome{}, s.fail(err)
	}

	reply, err := s.roundTrip(ctx, protocol.VerbContextAction, "verb", verb, "paths", path)
	if err != nil {
		return ActionOutcome{}, err
	}
	if !reply.OK() {
		return ActionOutcome{Kind: OutcomeError, Message: reply.Message()}, nil
	}

	conf, ok, err := s.listener.await(ctx, s.limits.ConfirmAttempts, s.limits.ConfirmWait)
	if err != nil {
		return ActionOutcome{}, s.fail(err)
	}
	if !ok {
		return ActionOutcome{Kind: OutcomePartialSuccess}, nil
	}
	return ActionOutcome{Kind: OutcomeConfirmed, Confirmation: conf}, nil
}

func (s *Session) status(ctx context.Context, path string) (StatusResult, error) {
	reply, err := s.roundTrip(ctx, protocol.VerbFileStatus, "path", path)
	if err != nil {
		return StatusResult{}, err
	}
	if !reply.OK() {
		return refused(protocol.VerbFileStatus, reply), nil
	}
	line, err := reply.Line(protocol.VerbFileStatus, 0)
	if err != nil {
		return StatusResult{}, err
	}
	state, unwatched, err := protocol.DecodeStatus(line)
	if err != nil {
		return StatusResult{}, err
	}
	if unwatched {
		return StatusResult{Kind: StatusUnwatched}, nil
	}

	reply, err = s.roundTrip(ctx, protocol.VerbContextOptions, "paths", path)
	if err != nil {
		return StatusResult{}, err
	}
	if !reply.OK() {
		return refused(protocol.VerbContextOptions, reply), nil
	}
	line, err = reply.Line(protocol.VerbContextOptions, 0)
	if err != nil {
		return StatusResult{}, err
	}
	options, err := protocol.DecodeOptions(line)
	if err != nil {
		return StatusResult{}, err
	}

	if !s.isDir(path) {
		return StatusResult{Kind: StatusFile, State: state, Options: options}, nil
	}

	reply, err = s.roundTrip(ctx, protocol.VerbFolderTag, "path", path)
	if err != nil {
		return StatusResult{}, err
	}
	if !reply.OK() {
		return refused(protocol.VerbFolderTag, reply), nil
	}
	line, err = reply.Line(protocol.VerbFolderTag, 0)
	if err != nil {
		return StatusResult{}, err
	}
	tag, err := protocol.DecodeFolderTag(line)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Kind: StatusFolder, State: state, Options: options, FolderTag: tag}, nil
}

// roundTrip sends one request and decodes its reply. Transport failures
// break the session; decoding failures leave it usable because the reply was
// fully framed.
func (s *Session) roundTrip(ctx context.Context, verb string, kv ...string) (protocol.Reply, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Reply{}, err
	}
	payload, err := protocol.EncodeRequest(verb, kv...)
	if err != nil {
		return protocol.Reply{}, err
	}
	if err := s.pair.command.send(ctx, payload, s.limits.RequestTimeout); err != nil {
		return protocol.Reply{}, s.fail(err)
	}
	raw, err := s.pair.command.readUntilTerminator(ctx, s.limits.RequestTimeout)
	if err != nil {
		return protocol.Reply{}, s.fail(err)
	}
	reply, err := protocol.Decode(raw)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("%s: %w", verb, err)
	}
	return reply, nil
}

func (s *Session) ready() error {
	if s.state != StateConnected {
		return fmt.Errorf("%w: session is %s", ErrNotConnected, s.state)
	}
	return nil
}

// fail moves the session to Broken for errors that leave a stream unusable.
// Context cancellation mid-read also desynchronizes the stream.
func (s *Session) fail(err error) error {
	if errors.Is(err, ErrPeerClosed) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.pair.close()
		s.state = StateBroken
	}
	return err
}

func (s *Session) isDir(path string) bool {
	info, err := s.stat(path)
	return err == nil && info.IsDir()
}
