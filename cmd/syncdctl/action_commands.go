package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"syncdctl/internal/effects"
	"syncdctl/internal/ipc"
	"syncdctl/internal/logging"
	"syncdctl/internal/protocol"
)

var errOptionUnavailable = errors.New("option not available")

type actionView struct {
	Path         string                 `json:"path"`
	Verb         string                 `json:"verb"`
	Outcome      ipc.OutcomeKind        `json:"outcome"`
	Confirmation *protocol.Confirmation `json:"confirmation,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Applied      *effects.Result        `json:"applied,omitempty"`
}

type actionFlags struct {
	apply bool
}

func newActionCommands(ctx *commandContext) []*cobra.Command {
	shortcut := func(verb, short string) *cobra.Command {
		var flags actionFlags
		cmd := &cobra.Command{
			Use:   verb + " <path>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.runAction(cmd, verb, args[0], flags)
			},
		}
		cmd.Flags().BoolVar(&flags.apply, "apply", false, "Carry out the daemon's follow-up (copy, open URL) locally")
		return cmd
	}

	var galleryFlags actionFlags
	galleryCmd := &cobra.Command{
		Use:   protocol.AlwaysAllowedAction + " [path]",
		Short: "Copy the public gallery link for a folder (default: Photos in the sync folder)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := filepath.Join(ctx.config.Paths.SyncRoot, "Photos")
			if len(args) == 1 {
				target = args[0]
			}
			return ctx.runAction(cmd, protocol.AlwaysAllowedAction, target, galleryFlags)
		},
	}
	galleryCmd.Flags().BoolVar(&galleryFlags.apply, "apply", false, "Copy the link to the clipboard")

	var genericFlags actionFlags
	actionCmd := &cobra.Command{
		Use:   "action <verb> <path>",
		Short: "Run any context action the daemon offers for a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAction(cmd, args[0], args[1], genericFlags)
		},
	}
	actionCmd.Flags().BoolVar(&genericFlags.apply, "apply", false, "Carry out the daemon's follow-up locally")

	return []*cobra.Command{
		shortcut("share", "Share a folder"),
		shortcut("browse", "Open the web view of a file or folder"),
		shortcut("revisions", "Show previous versions of a file"),
		shortcut("copypublic", "Copy the public link of a file in the Public folder"),
		galleryCmd,
		actionCmd,
	}
}

// runAction checks verb against the options the daemon offers for the path
// right now, then dispatches it and reports the outcome.
func (c *commandContext) runAction(cmd *cobra.Command, verb, rawPath string, flags actionFlags) error {
	verb = strings.TrimSpace(verb)
	if verb == "" {
		return errors.New("action verb is required")
	}
	path, err := resolvePath(rawPath)
	if err != nil {
		return err
	}
	logger := c.loggerFor(cmd).With(
		logging.Verb(verb),
		logging.Path(path),
	)

	return c.withSession(cmd, func(ctx context.Context, session *ipc.Session) error {
		status, err := session.Status(ctx, path)
		if err != nil {
			return err
		}
		if err := status.Err(); err != nil {
			return err
		}
		if !status.Watched() {
			return fmt.Errorf("%s is not watched by the daemon", path)
		}
		if !status.Options.Allows(verb) {
			return c.reportUnavailable(cmd, verb, path, status.Options)
		}

		outcome, err := session.PerformAction(ctx, path, verb)
		if err != nil {
			return err
		}
		logger.Info("action finished", logging.String("outcome", outcome.Kind.String()))

		view := actionView{Path: path, Verb: verb, Outcome: outcome.Kind, Message: outcome.Message}
		if outcome.Kind == ipc.OutcomeConfirmed {
			conf := outcome.Confirmation
			view.Confirmation = &conf
			if flags.apply {
				applier := &effects.Applier{Logger: logger}
				result, err := applier.Apply(ctx, conf)
				if err != nil {
					return err
				}
				view.Applied = &result
			}
		}
		if c.jsonOutput() {
			if err := writeJSON(cmd, view); err != nil {
				return err
			}
			return outcome.Err()
		}
		if err := outcome.Err(); err != nil {
			return err
		}
		printAction(cmd, view)
		return nil
	})
}

func (c *commandContext) reportUnavailable(cmd *cobra.Command, verb, path string, options protocol.Options) error {
	out := cmd.OutOrStdout()
	if c.jsonOutput() {
		view := unavailableView{Path: path, Verb: verb, Error: errOptionUnavailable.Error(), Available: options.Names()}
		if err := writeJSON(cmd, view); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Option %q is not available for %s.\n", verb, path)
		if len(options) == 0 {
			fmt.Fprintln(out, "The daemon offers no options here.")
		} else {
			fmt.Fprintln(out, "Available options:")
			fmt.Fprintln(out, renderOptionsTable(options))
		}
	}
	return fmt.Errorf("%w: %s", errOptionUnavailable, verb)
}

func printAction(cmd *cobra.Command, view actionView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	switch view.Outcome {
	case ipc.OutcomePartialSuccess:
		fmt.Fprintln(out, renderStatusLine(view.Verb, statusWarn, "request accepted; no confirmation received", colorize))
	case ipc.OutcomeConfirmed:
		conf := view.Confirmation
		fmt.Fprintln(out, renderStatusLine(view.Verb, statusOK, "confirmed", colorize))
		fmt.Fprintln(out, renderField(titleCaser.String(strings.ReplaceAll(conf.Effect.String(), "_", " ")), conf.Value()))
		if view.Applied != nil {
			fmt.Fprintln(out, renderField("Applied", yesNo(true)))
		}
	}
}
