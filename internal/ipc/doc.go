// Package ipc is the client side of the sync daemon's Unix socket protocol.
//
// A Session owns one pair of connections: the command socket, used for
// framed request/response exchanges, and the interface socket, on which the
// daemon pushes heartbeats and the effect commands that confirm a context
// action. Session exposes the three daemon operations (file status, general
// status, and context actions) and returns closed result types decoded once by
// the protocol package.
//
// Sessions are explicit, caller-owned values. They never reconnect on their
// own: once a peer closes a socket mid-read the session is Broken and every
// further call fails with ErrNotConnected. Construct a new Session instead.
// Nothing in this package logs or exits; every failure is a returned error.
package ipc
