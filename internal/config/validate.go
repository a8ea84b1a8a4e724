package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProtocol(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CommandSocket) == "" {
		return errors.New("paths.command_socket must be set")
	}
	if strings.TrimSpace(c.Paths.InterfaceSocket) == "" {
		return errors.New("paths.iface_socket must be set")
	}
	if c.Paths.CommandSocket == c.Paths.InterfaceSocket {
		return errors.New("paths.command_socket and paths.iface_socket must differ")
	}
	if strings.TrimSpace(c.Paths.SyncRoot) == "" {
		return errors.New("paths.sync_root must be set")
	}
	return nil
}

func (c *Config) validateProtocol() error {
	if c.Protocol.ReadChunkSize < minReadChunkSize || c.Protocol.ReadChunkSize > maxReadChunkSize {
		return fmt.Errorf("protocol.read_chunk_size must be between %d and %d", minReadChunkSize, maxReadChunkSize)
	}
	if c.Protocol.RequestTimeoutSeconds < 0 {
		return errors.New("protocol.request_timeout_seconds must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"protocol.drain_attempts":   c.Protocol.DrainAttempts,
		"protocol.drain_wait_ms":    c.Protocol.DrainWaitMillis,
		"protocol.confirm_attempts": c.Protocol.ConfirmAttempts,
		"protocol.confirm_wait_ms":  c.Protocol.ConfirmWaitMillis,
	})
}

func (c *Config) validateDaemon() error {
	parsed, err := url.Parse(c.Daemon.DownloadURL)
	if err != nil {
		return fmt.Errorf("daemon.download_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("daemon.download_url must be an http(s) URL")
	}
	if strings.ContainsAny(c.Daemon.Binary, `/\`) {
		return errors.New("daemon.binary must be a file name inside paths.dist_dir")
	}
	if c.Daemon.StartupTimeoutSeconds <= 0 {
		return errors.New("daemon.startup_timeout_seconds must be positive")
	}
	if c.Daemon.StartupSettleSeconds < 0 {
		return errors.New("daemon.startup_settle_seconds must be >= 0")
	}
	if c.Daemon.DownloadTimeout < 0 {
		return errors.New("daemon.download_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q (use debug, info, warn, or error)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
