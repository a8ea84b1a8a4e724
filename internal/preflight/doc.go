// Package preflight provides readiness checks for the daemon's sockets,
// its install, and the synchronized folder.
//
// The CLI "syncdctl doctor" command runs RunAll and prints each Result.
// Socket checks distinguish a missing socket, a stale file left by a crashed
// daemon, and a socket that refuses connections, because each has a
// different fix.
package preflight
