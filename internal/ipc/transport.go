package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"syncdctl/internal/protocol"
)

// stream is one side of the connection pair.
type stream struct {
	name  string
	conn  net.Conn
	chunk int
}

// pair holds the two live connections of a session.
type pair struct {
	command *stream
	iface   *stream
}

// dialPair connects both sockets. A failure on either closes whatever was
// opened and yields ErrConnectFailed.
func dialPair(ctx context.Context, commandPath, interfacePath string, chunk int) (*pair, error) {
	var dialer net.Dialer
	cmdConn, err := dialer.DialContext(ctx, "unix", commandPath)
	if err != nil {
		return nil, fmt.Errorf("%w: command socket %s: %w", ErrConnectFailed, commandPath, err)
	}
	ifaceConn, err := dialer.DialContext(ctx, "unix", interfacePath)
	if err != nil {
		_ = cmdConn.Close()
		return nil, fmt.Errorf("%w: interface socket %s: %w", ErrConnectFailed, interfacePath, err)
	}
	return &pair{
		command: &stream{name: "command", conn: cmdConn, chunk: chunk},
		iface:   &stream{name: "interface", conn: ifaceConn, chunk: chunk},
	}, nil
}

func (p *pair) close() {
	if p == nil {
		return
	}
	p.command.close()
	p.iface.close()
}

func (s *stream) close() {
	if s == nil || s.conn == nil {
		return
	}
	_ = s.conn.Close()
}

// send writes one encoded request in a single call.
func (s *stream) send(ctx context.Context, payload []byte, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(deadlineFor(ctx, timeout))
	defer s.conn.SetWriteDeadline(time.Time{})
	if _, err := s.conn.Write(payload); err != nil {
		return s.classify(ctx, err)
	}
	return nil
}

// readUntilTerminator accumulates fixed-size chunks until the buffer ends
// with the terminator line. A zero-length read means the peer went away.
func (s *stream) readUntilTerminator(ctx context.Context, timeout time.Duration) ([]byte, error) {
	stop := s.armRead(ctx, deadlineFor(ctx, timeout))
	defer stop()

	buf := make([]byte, 0, s.chunk)
	chunk := make([]byte, s.chunk)
	for !protocol.Complete(buf) {
		n, err := s.conn.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			if protocol.Complete(buf) {
				break
			}
			return nil, s.classify(ctx, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s socket returned an empty read", ErrPeerClosed, s.name)
		}
	}
	return buf, nil
}

// readAvailable performs one read bounded by wait. A read that times out
// returns no data and no error: nothing was pending.
func (s *stream) readAvailable(ctx context.Context, wait time.Duration) ([]byte, error) {
	stop := s.armRead(ctx, deadlineFor(ctx, wait))
	defer stop()

	chunk := make([]byte, s.chunk)
	n, err := s.conn.Read(chunk)
	switch {
	case n > 0:
		return chunk[:n], nil
	case err == nil:
		return nil, fmt.Errorf("%w: %s socket returned an empty read", ErrPeerClosed, s.name)
	case ctx.Err() == nil && isTimeout(err):
		return nil, nil
	default:
		return nil, s.classify(ctx, err)
	}
}

// armRead sets the read deadline and cuts it short if ctx is canceled while
// a read is blocked.
func (s *stream) armRead(ctx context.Context, deadline time.Time) func() {
	_ = s.conn.SetReadDeadline(deadline)
	stopAfter := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	return func() {
		stopAfter()
		_ = s.conn.SetReadDeadline(time.Time{})
	}
}

func (s *stream) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %s socket: %w", ErrTimeout, s.name, err)
	}
	return fmt.Errorf("%w: %s socket: %w", ErrPeerClosed, s.name, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func deadlineFor(ctx context.Context, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}
