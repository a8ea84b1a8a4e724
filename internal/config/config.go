package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains socket and directory locations.
type Paths struct {
	CommandSocket   string `toml:"command_socket"`
	InterfaceSocket string `toml:"iface_socket"`
	SyncRoot        string `toml:"sync_root"`
	DistDir         string `toml:"dist_dir"`
	LogDir          string `toml:"log_dir"`
}

// Protocol bounds the client's socket reads.
type Protocol struct {
	ReadChunkSize         int `toml:"read_chunk_size"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	DrainAttempts         int `toml:"drain_attempts"`
	DrainWaitMillis       int `toml:"drain_wait_ms"`
	ConfirmAttempts       int `toml:"confirm_attempts"`
	ConfirmWaitMillis     int `toml:"confirm_wait_ms"`
}

// Daemon contains installer and launcher settings.
type Daemon struct {
	DownloadURL           string   `toml:"download_url"`
	Binary                string   `toml:"binary"`
	Platforms             []string `toml:"platforms"`
	AutoStart             bool     `toml:"auto_start"`
	StartupTimeoutSeconds int      `toml:"startup_timeout_seconds"`
	StartupSettleSeconds  int      `toml:"startup_settle_seconds"`
	DownloadTimeout       int      `toml:"download_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for syncdctl.
//
// Configuration sections:
//   - Paths: daemon sockets, synchronized root, install and log directories
//   - Protocol: read chunk size, request timeout, drain/confirm bounds
//   - Daemon: download URL, executable name, startup timing
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Protocol Protocol `toml:"protocol"`
	Daemon   Daemon   `toml:"daemon"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strictErr *toml.StrictMissingError
			if errors.As(err, &strictErr) {
				return nil, "", false, fmt.Errorf("parse config: %s", strictErr.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("syncdctl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory when file logging is enabled.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// DaemonExecutable is the launcher path inside the install directory.
func (c *Config) DaemonExecutable() string {
	return filepath.Join(c.Paths.DistDir, c.Daemon.Binary)
}

// InstallRoot is the directory the daemon archive is unpacked into. The
// archive carries the install directory name itself.
func (c *Config) InstallRoot() string {
	return filepath.Dir(c.Paths.DistDir)
}

// RequestTimeout bounds one request/reply exchange.
func (p Protocol) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}

// DrainWait is the wait applied to each heartbeat-drain read.
func (p Protocol) DrainWait() time.Duration {
	return time.Duration(p.DrainWaitMillis) * time.Millisecond
}

// ConfirmWait is the wait applied to each confirmation read.
func (p Protocol) ConfirmWait() time.Duration {
	return time.Duration(p.ConfirmWaitMillis) * time.Millisecond
}

// StartupTimeout bounds how long a freshly launched daemon may take to open
// its sockets.
func (d Daemon) StartupTimeout() time.Duration {
	return time.Duration(d.StartupTimeoutSeconds) * time.Second
}

// StartupSettle is the pause after the sockets appear before first use.
func (d Daemon) StartupSettle() time.Duration {
	return time.Duration(d.StartupSettleSeconds) * time.Second
}

// DownloadDuration bounds the archive download.
func (d Daemon) DownloadDuration() time.Duration {
	return time.Duration(d.DownloadTimeout) * time.Second
}

// SupportsPlatform reports whether the installer knows the platform name.
func (d Daemon) SupportsPlatform(platform string) bool {
	for _, p := range d.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	pathValue = os.ExpandEnv(pathValue)
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
// Environment variables and a leading tilde are expanded.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
