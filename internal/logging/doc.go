// Package logging assembles structured slog loggers for syncdctl.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and tags each CLI invocation with a component and correlation id.
// Command output goes to stdout; logs default to stderr so the two never mix.
// A no-op logger is provided for tests and for library code handed a nil
// logger.
package logging
