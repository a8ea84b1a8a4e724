package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"syncdctl/internal/ipc"
	"syncdctl/internal/logging"
	"syncdctl/internal/protocol"
)

type statusView struct {
	Path      string           `json:"path"`
	Kind      ipc.StatusKind   `json:"kind"`
	State     string           `json:"state,omitempty"`
	FolderTag string           `json:"folder_tag,omitempty"`
	Options   protocol.Options `json:"options,omitempty"`
	Step      string           `json:"step,omitempty"`
	Message   string           `json:"message,omitempty"`
}

func newStatusView(path string, result ipc.StatusResult) statusView {
	return statusView{
		Path:      path,
		Kind:      result.Kind,
		State:     result.State,
		FolderTag: result.FolderTag,
		Options:   result.Options,
		Step:      result.Step,
		Message:   result.Message,
	}
}

func newStatusCommands(ctx *commandContext) []*cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sync status of the whole synchronized folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, session *ipc.Session) error {
				result, err := session.GeneralStatus(c)
				if err != nil {
					return err
				}
				return ctx.reportStatus(cmd, session.SyncRoot(), result)
			})
		},
	}

	pathStatus := func(use, short string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <path>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := resolvePath(args[0])
				if err != nil {
					return err
				}
				return ctx.withSession(cmd, func(c context.Context, session *ipc.Session) error {
					result, err := session.Status(c, path)
					if err != nil {
						return err
					}
					return ctx.reportStatus(cmd, path, result)
				})
			},
		}
	}

	return []*cobra.Command{
		statusCmd,
		pathStatus("file", "Show sync status and available actions for a file"),
		pathStatus("folder", "Show sync status, tag, and available actions for a folder"),
	}
}

func (c *commandContext) reportStatus(cmd *cobra.Command, path string, result ipc.StatusResult) error {
	c.loggerFor(cmd).Debug("status received",
		logging.Path(path),
		logging.String("kind", result.Kind.String()),
	)
	if c.jsonOutput() {
		if err := writeJSON(cmd, newStatusView(path, result)); err != nil {
			return err
		}
		return result.Err()
	}
	if err := result.Err(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printStatus(out, path, result, shouldColorize(out))
	return nil
}

func printStatus(out io.Writer, path string, result ipc.StatusResult, colorize bool) {
	if !result.Watched() {
		fmt.Fprintln(out, renderStatusLine("Status", statusWarn, path+" is not watched by the daemon", colorize))
		return
	}
	for _, line := range renderSectionHeader(result.Kind.String(), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderField("Path", path))
	fmt.Fprintln(out, renderStatusLine("Status", syncStateKind(result.State), result.State, colorize))
	if result.Kind == ipc.StatusFolder {
		tag := strings.TrimSpace(result.FolderTag)
		if tag == "" {
			tag = "(none)"
		}
		fmt.Fprintln(out, renderField("Tag", tag))
	}
	if len(result.Options) == 0 {
		fmt.Fprintln(out, renderField("Options", "(none)"))
		return
	}
	fmt.Fprintf(out, "\nAvailable options for the %s:\n", result.Kind)
	fmt.Fprintln(out, renderOptionsTable(result.Options))
}
