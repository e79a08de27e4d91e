package config

// Default values for configuration options, the bottom layer of the
// override chain.
const (
	defaultFilename         = "README.md"
	defaultSyncMode         = "folder"
	defaultFolderName       = "osmosmemo"
	defaultLogLevel         = "info"
	defaultLogFormat        = LogFormatAuto
	defaultLogRetentionDays = 30
	defaultConnectTimeout   = "10s"
	defaultDataTimeout      = "60s"
	defaultControlAddr      = "127.0.0.1:47821"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		GitHubConfig: GitHubConfig{
			Filename: defaultFilename,
		},
		BookmarksConfig: BookmarksConfig{
			SyncMode:   defaultSyncMode,
			FolderName: defaultFolderName,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:         defaultLogLevel,
			LogFormat:        defaultLogFormat,
			LogRetentionDays: defaultLogRetentionDays,
		},
		NetworkConfig: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
		},
		DaemonConfig: DaemonConfig{
			ControlAddr: defaultControlAddr,
		},
	}
}
