package browser

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultBookmarksFile returns the Bookmarks file of Google Chrome's default
// profile for the current platform, or "" when the home directory is unknown.
func DefaultBookmarksFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Google", "Chrome", "User Data", "Default", "Bookmarks")
		}

		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "Default", "Bookmarks")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "google-chrome", "Default", "Bookmarks")
		}

		return filepath.Join(home, ".config", "google-chrome", "Default", "Bookmarks")
	}
}
