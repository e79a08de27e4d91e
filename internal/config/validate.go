package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// Validation range constants.
const (
	minLogRetention   = 1
	minConnectTimeout = 1 * time.Second
	minDataTimeout    = 5 * time.Second
	maxIntervalMins   = 7 * 24 * 60
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateGitHub(&cfg.GitHubConfig)...)
	errs = append(errs, validateBookmarks(&cfg.BookmarksConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)
	errs = append(errs, validateDaemon(&cfg.DaemonConfig)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints on the final merged result, after
// environment and CLI overrides have been applied.
func ValidateResolved(r *Resolved) error {
	var errs []error

	if r.BookmarksFile != "" && !filepath.IsAbs(r.BookmarksFile) {
		errs = append(errs, fmt.Errorf("bookmarks_file: must be absolute after expansion, got %q", r.BookmarksFile))
	}

	return errors.Join(errs...)
}

func validateGitHub(g *GitHubConfig) []error {
	var errs []error

	if strings.Contains(g.Repo, "/") {
		errs = append(errs, fmt.Errorf("repo: must be a repository name without owner, got %q (set the owner in username)", g.Repo))
	}

	if strings.ContainsAny(g.Username, "/ ") {
		errs = append(errs, fmt.Errorf("username: invalid GitHub owner %q", g.Username))
	}

	errs = append(errs, validateFilename(g.Filename)...)

	if strings.ContainsAny(g.Branch, " \t~^:?*[\\") {
		errs = append(errs, fmt.Errorf("branch: invalid branch name %q", g.Branch))
	}

	return errs
}

func validateFilename(name string) []error {
	if name == "" {
		return []error{errors.New("filename: must not be empty")}
	}

	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return []error{fmt.Errorf("filename: must be a path relative to the repository root, got %q", name)}
	}

	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return []error{fmt.Errorf("filename: invalid path segment in %q", name)}
		}
	}

	return nil
}

func validateBookmarks(b *BookmarksConfig) []error {
	var errs []error

	if _, err := isync.ParseMode(b.SyncMode); err != nil {
		errs = append(errs, fmt.Errorf("bookmarks_sync_mode: must be one of bar, folder; got %q", b.SyncMode))
	}

	if b.SyncIntervalMinutes < 0 || b.SyncIntervalMinutes > maxIntervalMins {
		errs = append(errs, fmt.Errorf("bookmarks_sync_interval_minutes: must be between 0 and %d, got %d",
			maxIntervalMins, b.SyncIntervalMinutes))
	}

	if strings.TrimSpace(b.FolderName) == "" {
		errs = append(errs, errors.New("folder_name: must not be empty"))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	if l.LogRetentionDays < minLogRetention {
		errs = append(errs, fmt.Errorf("log_retention_days: must be >= %d, got %d",
			minLogRetention, l.LogRetentionDays))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

// Accepted log_format values. Auto picks text on a terminal, JSON otherwise.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var validLogFormats = map[string]bool{
	LogFormatAuto: true,
	LogFormatText: true,
	LogFormatJSON: true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", n.DataTimeout, minDataTimeout)...)

	return errs
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}

// validateDaemon allows an empty control_addr, which disables the control
// endpoint.
func validateDaemon(d *DaemonConfig) []error {
	if d.ControlAddr == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(d.ControlAddr); err != nil {
		return []error{fmt.Errorf("control_addr: %w", err)}
	}

	return nil
}
