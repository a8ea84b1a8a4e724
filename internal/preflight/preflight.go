package preflight

import (
	"context"

	"syncdctl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// RunAll executes every check for the given config. The daemon handshake runs
// only when both sockets accept connections.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Sync folder", cfg.Paths.SyncRoot),
		CheckExecutable("Daemon install", cfg.DaemonExecutable()),
	}
	results[1].Optional = true

	command := CheckSocket("Command socket", cfg.Paths.CommandSocket)
	iface := CheckSocket("Interface socket", cfg.Paths.InterfaceSocket)
	results = append(results, command, iface)

	if command.Passed && iface.Passed {
		results = append(results, CheckDaemon(ctx, cfg))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
