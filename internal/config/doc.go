// Package config loads, normalizes, and validates syncdctl configuration.
//
// It supplies defaults that match a stock daemon install (sockets under
// ~/.dropbox, the synchronized tree at ~/Dropbox), expands user paths, reads
// TOML files, and honours SYNCD_* environment overrides. The protocol section
// turns the client's bounded read loops into tunable attempt counts and
// per-read waits instead of literals scattered through the engine.
//
// Always obtain settings through this package so the CLI and installer see
// expanded paths and clear validation errors.
package config
