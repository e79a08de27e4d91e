package config

import (
	"fmt"
	"io"
)

// tokenMask replaces a token in human-readable output.
const tokenMask = "********"

// RenderEffective writes the resolved configuration as an annotated
// summary to w. The access token is never printed, only its source.
func RenderEffective(r *Resolved, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", path)

	renderGitHub(ew, r)
	renderBookmarks(ew, r)
	renderLogging(ew, &r.LoggingConfig)
	renderNetwork(ew, &r.NetworkConfig)

	ew.printf("# daemon\n")
	ew.printf("control_addr = %q\n", r.ControlAddr)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderGitHub(ew *errWriter, r *Resolved) {
	ew.printf("# github\n")

	if r.Token != "" {
		ew.printf("access_token = %q  # from %s\n", tokenMask, r.TokenSource)
	} else {
		ew.printf("access_token = \"\"  # not set\n")
	}

	ew.printf("username     = %q\n", r.Username)
	ew.printf("repo         = %q\n", r.Repo)
	ew.printf("filename     = %q\n", r.Filename)

	if r.Branch != "" {
		ew.printf("branch       = %q\n", r.Branch)
	}

	ew.printf("\n")
}

func renderBookmarks(ew *errWriter, r *Resolved) {
	ew.printf("# bookmarks\n")
	ew.printf("sync_to_bookmarks_bar           = %t\n", r.SyncToBookmarksBar)
	ew.printf("bookmarks_sync_mode             = %q\n", r.Mode)
	ew.printf("bookmarks_sync_interval_minutes = %d\n", r.SyncIntervalMinutes)
	ew.printf("bookmarks_file                  = %q\n", r.BookmarksFile)
	ew.printf("folder_name                     = %q\n", r.FolderName)
	ew.printf("\n")
}

func renderLogging(ew *errWriter, l *LoggingConfig) {
	ew.printf("# logging\n")
	ew.printf("log_level          = %q\n", l.LogLevel)

	if l.LogFile != "" {
		ew.printf("log_file           = %q\n", l.LogFile)
	}

	ew.printf("log_format         = %q\n", l.LogFormat)
	ew.printf("log_retention_days = %d\n", l.LogRetentionDays)
	ew.printf("\n")
}

func renderNetwork(ew *errWriter, n *NetworkConfig) {
	ew.printf("# network\n")
	ew.printf("connect_timeout = %q\n", n.ConnectTimeout)
	ew.printf("data_timeout    = %q\n", n.DataTimeout)

	if n.UserAgent != "" {
		ew.printf("user_agent      = %q\n", n.UserAgent)
	}

	ew.printf("\n")
}

// EffectiveValues returns the resolved settings keyed by config key, for
// machine-readable output. The token is masked like in RenderEffective.
func EffectiveValues(r *Resolved) map[string]any {
	token := ""
	if r.Token != "" {
		token = tokenMask
	}

	return map[string]any{
		"access_token":                    token,
		"token_source":                    string(r.TokenSource),
		"username":                        r.Username,
		"repo":                            r.Repo,
		"filename":                        r.Filename,
		"branch":                          r.Branch,
		"sync_to_bookmarks_bar":           r.SyncToBookmarksBar,
		"bookmarks_sync_mode":             string(r.Mode),
		"bookmarks_sync_interval_minutes": r.SyncIntervalMinutes,
		"bookmarks_file":                  r.BookmarksFile,
		"folder_name":                     r.FolderName,
		"log_level":                       r.LogLevel,
		"log_file":                        r.LogFile,
		"log_format":                      r.LogFormat,
		"log_retention_days":              r.LogRetentionDays,
		"connect_timeout":                 r.NetworkConfig.ConnectTimeout,
		"data_timeout":                    r.NetworkConfig.DataTimeout,
		"user_agent":                      r.UserAgent,
		"control_addr":                    r.ControlAddr,
	}
}
