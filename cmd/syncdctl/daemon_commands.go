package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"syncdctl/internal/daemonctl"
	"syncdctl/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install <platform>",
		Short: "Download and unpack the daemon (platforms: x86, x86_64)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if daemonctl.SocketsReady(cfg.Paths.CommandSocket, cfg.Paths.InterfaceSocket) == nil {
				fmt.Fprintln(stdout, "The daemon is already installed and running.")
				return nil
			}

			var progress daemonctl.ProgressFunc
			if !ctx.jsonOutput() {
				started := false
				progress = func(p daemonctl.Progress) {
					if !started {
						fmt.Fprintf(stdout, "Starting to download %s...\n", p.Archive)
						started = true
					}
					total := "N/A kB"
					if p.Total > 0 {
						total = fmt.Sprintf("%d kB", p.Total/1024)
					}
					fmt.Fprintf(stdout, "  ... %d kB of %s\n", p.Read/1024, total)
				}
			}

			result, err := daemonctl.Install(cmd.Context(), cfg, args[0], progress, ctx.loggerFor(cmd))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(stdout, "Installed %s into %s\n", result.Archive, result.DistDir)
			fmt.Fprintln(stdout, "Start the daemon with `syncdctl start`.")
			return nil
		},
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon if it is not running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if !ctx.jsonOutput() {
				fmt.Fprintln(stdout, "Trying to start the daemon.")
			}
			result, err := daemonctl.EnsureRunning(cmd.Context(), cfg, ctx.loggerFor(cmd))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the daemon install, sockets, and sync folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("diagnostics", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					fmt.Fprintln(out, renderStatusLine(r.Name, doctorKind(r), r.Detail, colorize))
				}
			}
			if preflight.Failed(results) {
				return fmt.Errorf("%d check(s) failed", countFailed(results))
			}
			return nil
		},
	}

	return []*cobra.Command{installCmd, startCmd, doctorCmd}
}

func doctorKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func countFailed(results []preflight.Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed && !r.Optional {
			n++
		}
	}
	return n
}

func platformList(platforms []string) string {
	return strings.Join(platforms, ", ")
}
