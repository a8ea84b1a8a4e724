package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProtocol()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	envOverride(&c.Paths.CommandSocket, "SYNCD_COMMAND_SOCKET")
	envOverride(&c.Paths.InterfaceSocket, "SYNCD_IFACE_SOCKET")
	envOverride(&c.Paths.SyncRoot, "SYNCD_SYNC_ROOT")
	envOverride(&c.Paths.DistDir, "SYNCD_DIST_DIR")

	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.command_socket", &c.Paths.CommandSocket, defaultCommandSocket},
		{"paths.iface_socket", &c.Paths.InterfaceSocket, defaultInterfaceSocket},
		{"paths.sync_root", &c.Paths.SyncRoot, defaultSyncRoot},
		{"paths.dist_dir", &c.Paths.DistDir, defaultDistDir},
		{"paths.log_dir", &c.Paths.LogDir, ""},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

// envOverride replaces target with a non-empty environment value.
func envOverride(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeProtocol() {
	if c.Protocol.ReadChunkSize == 0 {
		c.Protocol.ReadChunkSize = defaultReadChunkSize
	}
	if c.Protocol.DrainAttempts == 0 {
		c.Protocol.DrainAttempts = defaultDrainAttempts
	}
	if c.Protocol.DrainWaitMillis == 0 {
		c.Protocol.DrainWaitMillis = defaultDrainWaitMillis
	}
	if c.Protocol.ConfirmAttempts == 0 {
		c.Protocol.ConfirmAttempts = defaultConfirmAttempts
	}
	if c.Protocol.ConfirmWaitMillis == 0 {
		c.Protocol.ConfirmWaitMillis = defaultConfirmWaitMillis
	}
}

func (c *Config) normalizeDaemon() {
	c.Daemon.DownloadURL = strings.TrimSpace(c.Daemon.DownloadURL)
	if c.Daemon.DownloadURL == "" {
		c.Daemon.DownloadURL = defaultDownloadURL
	}
	c.Daemon.Binary = strings.TrimSpace(c.Daemon.Binary)
	if c.Daemon.Binary == "" {
		c.Daemon.Binary = defaultDaemonBinary
	}
	platforms := make([]string, 0, len(c.Daemon.Platforms))
	seen := make(map[string]struct{}, len(c.Daemon.Platforms))
	for _, platform := range c.Daemon.Platforms {
		normalized := strings.ToLower(strings.TrimSpace(platform))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		platforms = append(platforms, normalized)
	}
	if len(platforms) == 0 {
		platforms = append(platforms, defaultPlatforms...)
	}
	c.Daemon.Platforms = platforms
	if c.Daemon.DownloadTimeout == 0 {
		c.Daemon.DownloadTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
