// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for osmosync. Settings resolve through
// four layers: defaults -> config file -> environment -> CLI flags.
package config

// Config is the top-level configuration parsed from a TOML file. All keys
// are flat; the embedded structs only group related fields in code.
type Config struct {
	GitHubConfig
	BookmarksConfig
	LoggingConfig
	NetworkConfig
	DaemonConfig
}

// GitHubConfig locates the bookmark document and authenticates against it.
type GitHubConfig struct {
	AccessToken string `toml:"access_token"`
	Username    string `toml:"username"`
	Repo        string `toml:"repo"`
	Filename    string `toml:"filename"`
	Branch      string `toml:"branch"`
}

// BookmarksConfig controls which browser folder is reconciled and how often.
type BookmarksConfig struct {
	SyncToBookmarksBar  bool   `toml:"sync_to_bookmarks_bar"`
	SyncMode            string `toml:"bookmarks_sync_mode"`
	SyncIntervalMinutes int    `toml:"bookmarks_sync_interval_minutes"`
	BookmarksFile       string `toml:"bookmarks_file"`
	FolderName          string `toml:"folder_name"`
}

// LoggingConfig controls log output behavior: level, format, and rotation.
type LoggingConfig struct {
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogFormat        string `toml:"log_format"`
	LogRetentionDays int    `toml:"log_retention_days"`
}

// NetworkConfig controls HTTP client behavior for the GitHub API.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// DaemonConfig controls the long-running trigger surface.
type DaemonConfig struct {
	ControlAddr string `toml:"control_addr"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath    string  // --config flag (empty = use default)
	BookmarksFile *string // --bookmarks-file flag
}
