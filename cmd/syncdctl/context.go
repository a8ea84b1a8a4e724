package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"syncdctl/internal/config"
	"syncdctl/internal/daemonctl"
	"syncdctl/internal/ipc"
	"syncdctl/internal/logging"
)

type globalFlags struct {
	configPath    string
	commandSocket string
	ifaceSocket   string
	logLevel      string
	json          bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyOverrides layers command-line flags over the loaded file.
func (c *commandContext) applyOverrides(cfg *config.Config) error {
	for _, o := range []struct {
		flag   string
		target *string
	}{
		{c.flags.commandSocket, &cfg.Paths.CommandSocket},
		{c.flags.ifaceSocket, &cfg.Paths.InterfaceSocket},
	} {
		if strings.TrimSpace(o.flag) == "" {
			continue
		}
		expanded, err := config.ExpandPath(strings.TrimSpace(o.flag))
		if err != nil {
			return err
		}
		*o.target = expanded
	}
	if level := strings.ToLower(strings.TrimSpace(c.flags.logLevel)); level != "" {
		cfg.Logging.Level = level
	}
	return cfg.Validate()
}

// loggerFor returns the invocation logger tagged with a fresh correlation id.
func (c *commandContext) loggerFor(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		base, err := logging.NewFromConfig(c.config)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: logging disabled: %v\n", err)
			base = logging.NewNop()
		}
		ctx := logging.WithCorrelationID(cmd.Context(), uuid.NewString())
		c.logger = logging.NewComponentLogger(logging.WithContext(ctx, base), "cli").
			With(logging.String("command", cmd.CommandPath()))
	})
	return c.logger
}

func (c *commandContext) jsonOutput() bool {
	return c.flags != nil && c.flags.json
}

func (c *commandContext) limits() ipc.Limits {
	p := c.config.Protocol
	return ipc.Limits{
		ReadChunkSize:   p.ReadChunkSize,
		RequestTimeout:  p.RequestTimeout(),
		DrainAttempts:   p.DrainAttempts,
		DrainWait:       p.DrainWait(),
		ConfirmAttempts: p.ConfirmAttempts,
		ConfirmWait:     p.ConfirmWait(),
	}
}

// withSession dials the daemon, launching it first when auto_start is set and
// it is installed, and closes the session after fn returns.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(context.Context, *ipc.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := c.loggerFor(cmd)

	session, err := c.dial(ctx)
	if err != nil && cfg.Daemon.AutoStart && errors.Is(err, ipc.ErrConnectFailed) {
		logger.Info("daemon unreachable, starting it", logging.Error(err))
		if _, startErr := daemonctl.EnsureRunning(ctx, cfg, logger); startErr == nil {
			session, err = c.dial(ctx)
		} else {
			logger.Warn("auto start failed",
				logging.Error(startErr),
				logging.String(logging.FieldEventType, "daemon_auto_start"),
				logging.Hint("run `syncdctl start` or `syncdctl doctor`"),
			)
		}
	}
	if err != nil {
		return wrapDialError(err, cfg)
	}
	defer session.Close()
	return fn(ctx, session)
}

func (c *commandContext) dial(ctx context.Context) (*ipc.Session, error) {
	cfg := c.config
	return ipc.Dial(ctx, cfg.Paths.CommandSocket, cfg.Paths.InterfaceSocket,
		ipc.WithLimits(c.limits()),
		ipc.WithSyncRoot(cfg.Paths.SyncRoot),
	)
}

func wrapDialError(err error, cfg *config.Config) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket not found (%s, %s); start the daemon with `syncdctl start`",
			cfg.Paths.CommandSocket, cfg.Paths.InterfaceSocket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: connection refused; the daemon may have crashed, run `syncdctl doctor`")
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

// resolvePath expands ~ and environment variables in a user-supplied path.
func resolvePath(arg string) (string, error) {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return "", errors.New("path is required")
	}
	return config.ExpandPath(trimmed)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
