// Package main hosts the syncdctl CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into calls on
// an ipc.Session: status queries, context actions with their confirmations,
// plus daemon install/start, diagnostics, and configuration scaffolding. It
// centralizes configuration resolution, socket discovery, and structured
// logging setup so subcommands can focus on output.
//
// Keep this package lean: protocol behavior belongs in internal/ipc and
// internal/protocol; commands here only resolve paths, check options, and
// render results.
package main
