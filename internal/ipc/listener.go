package ipc

import (
	"bytes"
	"context"
	"time"

	"syncdctl/internal/protocol"
)

// listener interprets the interface socket. It keeps incomplete lines between
// reads so a payload split across reads is still matched.
type listener struct {
	stream *stream
	buf    []byte
}

func newListener(s *stream) *listener {
	return &listener{stream: s}
}

// drain discards whatever the daemon queued before an action so a stale
// effect command cannot confirm it. It stops at the first read that finds
// nothing pending or after attempts reads.
func (l *listener) drain(ctx context.Context, attempts int, wait time.Duration) (int, error) {
	// Lines left over from an earlier await are as stale as unread ones.
	discarded := l.discardComplete()
	for i := 0; i < attempts; i++ {
		data, err := l.stream.readAvailable(ctx, wait)
		if err != nil {
			return discarded, err
		}
		if len(data) == 0 {
			break
		}
		l.buf = append(l.buf, data...)
		discarded += l.discardComplete()
	}
	return discarded, nil
}

// discardComplete drops every complete line and keeps a partial tail.
func (l *listener) discardComplete() int {
	last := bytes.LastIndexByte(l.buf, '\n')
	if last < 0 {
		return 0
	}
	lines := bytes.Count(l.buf[:last+1], []byte{'\n'})
	l.buf = append(l.buf[:0], l.buf[last+1:]...)
	return lines
}

// await reads until an effect command and its payload line arrive or the
// attempt bound runs out. Heartbeats are discarded; they never confirm.
func (l *listener) await(ctx context.Context, attempts int, wait time.Duration) (protocol.Confirmation, bool, error) {
	if conf, ok := l.scan(); ok {
		return conf, true, nil
	}
	for i := 0; i < attempts; i++ {
		data, err := l.stream.readAvailable(ctx, wait)
		if err != nil {
			return protocol.Confirmation{}, false, err
		}
		if len(data) == 0 {
			continue
		}
		l.buf = append(l.buf, data...)
		if conf, ok := l.scan(); ok {
			return conf, true, nil
		}
	}
	return protocol.Confirmation{}, false, nil
}

func (l *listener) scan() (protocol.Confirmation, bool) {
	if len(l.buf) == 0 {
		return protocol.Confirmation{}, false
	}
	result := protocol.ScanNotifications(l.buf)
	l.buf = append(l.buf[:0], result.Rest...)
	if result.Confirmation == nil {
		return protocol.Confirmation{}, false
	}
	return *result.Confirmation, true
}
