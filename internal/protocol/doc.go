// Package protocol encodes requests for and decodes replies from the sync
// daemon's line-oriented socket protocol.
//
// Every request is a verb line followed by tab-separated key/value lines and a
// literal "done" line. Replies start with a status token ("ok" or "notok"),
// carry tab-separated payload lines, and end with the same terminator. The
// interface socket streams newline-delimited notifications: heartbeats ("nop")
// and effect commands each followed by one payload line.
//
// The package performs no I/O. The ipc package owns the sockets and feeds the
// accumulated bytes through these decoders exactly once, so callers only ever
// see typed results.
package protocol
