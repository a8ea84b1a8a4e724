package ipc

// State is the lifecycle state of a Session.
type State int

const (
	// StateDisconnected is a session that has not connected yet.
	StateDisconnected State = iota
	// StateConnected means both sockets are up.
	StateConnected
	// StateBroken means a peer closed a socket or a reply lost its framing.
	StateBroken
	// StateClosed is terminal and follows an explicit Close.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateBroken:
		return "broken"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
