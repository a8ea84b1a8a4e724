package config

const (
	defaultConfigPath            = "~/.config/syncdctl/config.toml"
	defaultCommandSocket         = "~/.dropbox/command_socket"
	defaultInterfaceSocket       = "~/.dropbox/iface_socket"
	defaultSyncRoot              = "~/Dropbox"
	defaultDistDir               = "~/.dropbox-dist"
	defaultReadChunkSize         = 512
	defaultRequestTimeoutSeconds = 30
	defaultDrainAttempts         = 500
	defaultDrainWaitMillis       = 100
	defaultConfirmAttempts       = 5
	defaultConfirmWaitMillis     = 2000
	defaultDownloadURL           = "https://www.dropbox.com/download"
	defaultDaemonBinary          = "dropboxd"
	defaultStartupTimeoutSeconds = 30
	defaultStartupSettleSeconds  = 5
	defaultDownloadTimeout       = 600
	defaultLogFormat             = "console"
	defaultLogLevel              = "warn"

	minReadChunkSize = 16
	maxReadChunkSize = 1 << 16
)

var defaultPlatforms = []string{"x86", "x86_64"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CommandSocket:   defaultCommandSocket,
			InterfaceSocket: defaultInterfaceSocket,
			SyncRoot:        defaultSyncRoot,
			DistDir:         defaultDistDir,
		},
		Protocol: Protocol{
			ReadChunkSize:         defaultReadChunkSize,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			DrainAttempts:         defaultDrainAttempts,
			DrainWaitMillis:       defaultDrainWaitMillis,
			ConfirmAttempts:       defaultConfirmAttempts,
			ConfirmWaitMillis:     defaultConfirmWaitMillis,
		},
		Daemon: Daemon{
			DownloadURL:           defaultDownloadURL,
			Binary:                defaultDaemonBinary,
			Platforms:             append([]string(nil), defaultPlatforms...),
			AutoStart:             true,
			StartupTimeoutSeconds: defaultStartupTimeoutSeconds,
			StartupSettleSeconds:  defaultStartupSettleSeconds,
			DownloadTimeout:       defaultDownloadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
