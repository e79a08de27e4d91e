package config

import (
	"fmt"
	"time"

	"github.com/osmoscraft/osmosync/internal/browser"
	"github.com/osmoscraft/osmosync/internal/github"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// Resolved is a Config after the override chain and token resolution, with
// string values parsed into their typed forms.
type Resolved struct {
	Config

	Token          string
	TokenSource    TokenSource
	Mode           isync.Mode
	Interval       time.Duration
	ConnectTimeout time.Duration
	DataTimeout    time.Duration
}

// Resolve applies environment and CLI overrides to cfg and resolves the
// access token. cfg is not modified.
func Resolve(cfg *Config, env EnvOverrides, cli CLIOverrides, tokenPath string) (*Resolved, error) {
	r := &Resolved{Config: *cfg}

	if env.BookmarksFile != "" {
		r.BookmarksFile = env.BookmarksFile
	}

	if cli.BookmarksFile != nil {
		r.BookmarksFile = *cli.BookmarksFile
	}

	if r.BookmarksFile == "" {
		r.BookmarksFile = browser.DefaultBookmarksFile()
	}

	r.BookmarksFile = expandTilde(r.BookmarksFile)
	if r.LogFile != "" {
		r.LogFile = expandTilde(r.LogFile)
	}

	mode, err := isync.ParseMode(r.SyncMode)
	if err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	r.Mode = mode
	r.Interval = time.Duration(r.SyncIntervalMinutes) * time.Minute

	// Durations were checked by Validate; a hand-built Config may skip that.
	if r.ConnectTimeout, err = time.ParseDuration(r.NetworkConfig.ConnectTimeout); err != nil {
		return nil, fmt.Errorf("config validation: connect_timeout: %w", err)
	}

	if r.DataTimeout, err = time.ParseDuration(r.NetworkConfig.DataTimeout); err != nil {
		return nil, fmt.Errorf("config validation: data_timeout: %w", err)
	}

	r.Token, r.TokenSource, err = ResolveToken(cfg, env, tokenPath)
	if err != nil {
		return nil, err
	}

	if err := ValidateResolved(r); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return r, nil
}

// Target returns the document location described by r.
func (r *Resolved) Target() github.Target {
	return github.Target{
		Token:  r.Token,
		Owner:  r.Username,
		Repo:   r.Repo,
		Path:   r.Filename,
		Branch: r.Branch,
	}
}

// Settings returns the per-run settings a sync session reads.
func (r *Resolved) Settings() isync.Settings {
	return isync.Settings{
		Enabled:    r.SyncToBookmarksBar,
		Mode:       r.Mode,
		FolderName: r.FolderName,
		Target:     r.Target(),
	}
}
