// Package sync reconciles a browser bookmark folder with a Markdown
// document kept in a GitHub repository. Browser bookmarks missing from the
// document are imported into it first; the document is then projected back
// onto the folder, which gains, renames and (in folder mode) loses bookmarks
// until it matches.
package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/osmoscraft/osmosync/internal/github"
)

// Mode selects the browser folder a session reconciles.
type Mode string

// Sync modes as stored in the bookmarks_sync_mode config key.
const (
	// ModeBar targets the bookmarks bar itself and never removes anything.
	ModeBar Mode = "bar"
	// ModeFolder targets a dedicated folder on the bar and mirrors the
	// document exactly, removing bookmarks the document does not list.
	ModeFolder Mode = "folder"
)

// DefaultFolderName is the folder created on the bar in ModeFolder.
const DefaultFolderName = "osmosmemo"

// ParseMode converts a config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBar, ModeFolder:
		return m, nil
	default:
		return "", fmt.Errorf("sync: invalid mode %q (must be %q or %q)", s, ModeBar, ModeFolder)
	}
}

// Status is the outcome class of a session.
type Status string

// Result statuses.
const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Trigger names what started a session. It is recorded in the run log.
type Trigger string

// Known triggers.
const (
	TriggerTimer   Trigger = "timer"
	TriggerManual  Trigger = "manual"
	TriggerStartup Trigger = "startup"
	TriggerEnable  Trigger = "enable"
)

// Counts tallies the mutations a session applied.
type Counts struct {
	Imported int `json:"imported"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Removed  int `json:"removed"`
}

// Zero reports whether no mutation was applied.
func (c Counts) Zero() bool {
	return c == Counts{}
}

// Result is the value a session returns to its trigger. Sessions never
// return a Go error; failures are folded into an error Result.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Counts  Counts `json:"counts"`
}

// Request carries the per-invocation inputs of a session.
type Request struct {
	Trigger Trigger
	// Markdown, when set, is used as the document text instead of fetching
	// it from the remote store. Imports are still written to the store.
	Markdown *string
}

// Settings is the configuration a session reads at the start of each run.
type Settings struct {
	Enabled    bool
	Mode       Mode
	FolderName string
	Target     github.Target
}

// RemoteStore is the document store a session reads and commits to.
// *github.ContentStore satisfies it.
type RemoteStore interface {
	GetContent(ctx context.Context, target github.Target) (string, error)
	UpdateContent(ctx context.Context, target github.Target, transform func(existing *string) (string, error)) (string, error)
}
