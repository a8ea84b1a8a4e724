package ipc

import (
	"time"

	"syncdctl/internal/protocol"
)

// Limits bounds every blocking loop in a session. Attempt counts cap the
// number of reads; the durations turn each read into a deadline-bound call.
type Limits struct {
	// ReadChunkSize is the size of each command-socket read.
	ReadChunkSize int
	// RequestTimeout bounds one whole request/reply exchange. Zero disables it.
	RequestTimeout time.Duration
	// DrainAttempts caps the reads used to flush pending heartbeats before an
	// action is dispatched.
	DrainAttempts int
	// DrainWait is how long one drain read waits for pending data.
	DrainWait time.Duration
	// ConfirmAttempts caps the reads spent waiting for an action confirmation.
	ConfirmAttempts int
	// ConfirmWait is how long one confirmation read waits.
	ConfirmWait time.Duration
}

// DefaultLimits mirrors the daemon's stock client: 512-byte reads, up to 500
// drain reads and 5 confirmation reads.
func DefaultLimits() Limits {
	return Limits{
		ReadChunkSize:   protocol.ReadChunkSize,
		RequestTimeout:  30 * time.Second,
		DrainAttempts:   500,
		DrainWait:       100 * time.Millisecond,
		ConfirmAttempts: 5,
		ConfirmWait:     2 * time.Second,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.ReadChunkSize <= 0 {
		l.ReadChunkSize = def.ReadChunkSize
	}
	if l.RequestTimeout < 0 {
		l.RequestTimeout = 0
	}
	if l.DrainAttempts <= 0 {
		l.DrainAttempts = def.DrainAttempts
	}
	if l.DrainWait <= 0 {
		l.DrainWait = def.DrainWait
	}
	if l.ConfirmAttempts <= 0 {
		l.ConfirmAttempts = def.ConfirmAttempts
	}
	if l.ConfirmWait <= 0 {
		l.ConfirmWait = def.ConfirmWait
	}
	return l
}
