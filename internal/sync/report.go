package sync

import (
	"fmt"
	"strings"
)

// Messages for results that carry no counts.
const (
	MsgInProgress   = "Sync already in progress"
	MsgDisabled     = "Bookmarks sync is disabled"
	MsgNoPermission = "Bookmarks permission not granted"
	MsgUnconfigured = "GitHub connection is not configured"
	MsgBarNotFound  = "Bookmarks bar not found"
	MsgInSync       = "Bookmarks already in sync"
)

// Summary renders the non-zero counts as comma-separated clauses, or ""
// when every count is zero.
func (c Counts) Summary() string {
	var parts []string

	if c.Imported > 0 {
		parts = append(parts, fmt.Sprintf("%d imported from browser", c.Imported))
	}

	if c.Created > 0 {
		parts = append(parts, fmt.Sprintf("%d added to bar/folder", c.Created))
	}

	if c.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", c.Updated))
	}

	if c.Removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", c.Removed))
	}

	return strings.Join(parts, ", ")
}

func skipped(msg string) Result {
	return Result{Status: StatusSkipped, Message: msg}
}

func okResult(c Counts) Result {
	if c.Zero() {
		return Result{Status: StatusOK, Message: MsgInSync, Counts: c}
	}

	return Result{Status: StatusOK, Message: "Synced: " + c.Summary(), Counts: c}
}

func errorResult(c Counts, err error) Result {
	if c.Zero() {
		return Result{Status: StatusError, Message: "Sync failed: " + err.Error(), Counts: c}
	}

	return Result{
		Status:  StatusError,
		Message: fmt.Sprintf("Sync failed (%s): %s", c.Summary(), err.Error()),
		Counts:  c,
	}
}
