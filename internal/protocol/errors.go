package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation marks a reply that did not match the expected shape.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrInvalidField marks a request field that would corrupt the framing.
	ErrInvalidField = errors.New("invalid request field")
)

// DaemonError is returned when the daemon answers with a non-ok status token.
// Message is the daemon's explanation, passed through verbatim.
type DaemonError struct {
	Verb    string
	Message string
}

func (e *DaemonError) Error() string {
	if e.Verb == "" {
		return "daemon: " + e.Message
	}
	return fmt.Sprintf("daemon: %s: %s", e.Verb, e.Message)
}

func violation(verb, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	if verb == "" {
		return fmt.Errorf("%w: %s", ErrProtocolViolation, detail)
	}
	return fmt.Errorf("%w: %s: %s", ErrProtocolViolation, verb, detail)
}
