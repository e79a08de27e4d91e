package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig        = "OSMOSYNC_CONFIG"
	EnvToken         = "OSMOSYNC_TOKEN"
	EnvBookmarksFile = "OSMOSYNC_BOOKMARKS_FILE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath    string // OSMOSYNC_CONFIG: override config file path
	Token         string // OSMOSYNC_TOKEN: access token when the file has none
	BookmarksFile string // OSMOSYNC_BOOKMARKS_FILE: Chromium Bookmarks file
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:    os.Getenv(EnvConfig),
		Token:         os.Getenv(EnvToken),
		BookmarksFile: os.Getenv(EnvBookmarksFile),
	}
}
