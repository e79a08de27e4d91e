package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/osmoscraft/osmosync/internal/browser"
	"github.com/osmoscraft/osmosync/internal/config"
	"github.com/osmoscraft/osmosync/internal/github"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// githubBaseURL selects the API endpoint; empty means api.github.com.
// Tests point it at an httptest server.
var githubBaseURL = ""

// runLogPath returns where the run history is kept. Tests override it.
var runLogPath = config.DefaultRunLogPath

const runLogOpenTimeout = 5 * time.Second

// newHTTPClient returns the client used for GitHub calls. connect_timeout
// bounds dialing and the TLS handshake; data_timeout bounds a whole request.
func newHTTPClient(r *config.Resolved) *http.Client {
	dialer := &net.Dialer{Timeout: r.ConnectTimeout}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = r.ConnectTimeout

	return &http.Client{Transport: transport, Timeout: r.DataTimeout}
}

// newContentStore wires the GitHub contents API client.
func newContentStore(r *config.Resolved, logger *slog.Logger) *github.ContentStore {
	client := github.NewClient(githubBaseURL, newHTTPClient(r), logger, r.UserAgent)

	return github.NewContentStore(github.ContentStoreConfig{Client: client, Logger: logger})
}

// newSession builds a Session over the configured Bookmarks file. settings
// is consulted at the start of every run; the Bookmarks file itself is
// fixed for the life of the session. runLog may be nil.
func newSession(r *config.Resolved, settings func() isync.Settings, runLog *isync.RunLog, logger *slog.Logger) *isync.Session {
	cfg := isync.SessionConfig{
		Host:     browser.NewChromiumHost(browser.ChromiumHostConfig{Path: r.BookmarksFile, Logger: logger}),
		Store:    newContentStore(r, logger),
		Settings: settings,
		Logger:   logger,
	}

	// A nil *RunLog must not become a non-nil Recorder.
	if runLog != nil {
		cfg.RunLog = runLog
	}

	return isync.NewSession(cfg)
}

// openRunLog opens the run history and drops entries older than the log
// retention. History is best effort: on failure it logs and returns nil.
func openRunLog(ctx context.Context, retentionDays int, logger *slog.Logger) *isync.RunLog {
	ctx, cancel := context.WithTimeout(ctx, runLogOpenTimeout)
	defer cancel()

	path := runLogPath()

	runLog, err := isync.OpenRunLog(ctx, path, logger)
	if err != nil {
		logger.Warn("run history unavailable",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	if retentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		if _, err := runLog.Prune(ctx, cutoff); err != nil {
			logger.Warn("pruning run history failed", slog.String("error", err.Error()))
		}
	}

	return runLog
}
