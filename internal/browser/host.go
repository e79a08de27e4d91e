// Package browser provides access to the browser's native bookmark tree.
// The Host interface mirrors the browser extension bookmarks API; the
// ChromiumHost implementation reads and writes a Chromium profile's
// Bookmarks file. Collect flattens a folder into bookmark entries.
package browser

import (
	"context"
	"errors"

	"github.com/osmoscraft/osmosync/internal/entry"
)

// Sentinel errors returned by Host implementations.
var (
	ErrNodeNotFound = errors.New("browser: bookmark node not found")
	ErrNotFolder    = errors.New("browser: node is not a folder")
	ErrRootNode     = errors.New("browser: permanent root nodes cannot be modified")
)

// Node is one node of the bookmark tree: a folder (URL empty) or a
// bookmark (URL set). Children is populated only by GetTree.
type Node struct {
	ID       string
	ParentID string
	Title    string
	URL      string
	Children []Node
}

// IsFolder reports whether n is a folder.
func (n Node) IsFolder() bool {
	return n.URL == ""
}

// CreateDetails describes a node to create. An empty URL creates a folder.
type CreateDetails struct {
	ParentID string
	Title    string
	URL      string
}

// Host is the bookmark store of a browser profile. All methods may block
// on I/O; implementations must be safe for sequential use by one session.
type Host interface {
	// GetTree returns the whole tree under a synthetic root whose first
	// child is the bookmarks bar.
	GetTree(ctx context.Context) (*Node, error)
	// GetChildren returns the immediate children of a folder, in order,
	// without their descendants.
	GetChildren(ctx context.Context, folderID string) ([]Node, error)
	Create(ctx context.Context, details CreateDetails) (*Node, error)
	Update(ctx context.Context, id, title string) error
	// Remove deletes a node and, for folders, its whole subtree.
	Remove(ctx context.Context, id string) error
	// HasPermission reports whether the host may be read and written.
	HasPermission(ctx context.Context) (bool, error)
}

// Bookmark is a flattened copy of a bookmark node. It holds no reference
// into the host's tree.
type Bookmark struct {
	ID    string
	Title string
	URL   string
}

// Entry converts b to its identity-only form.
func (b Bookmark) Entry() entry.Entry {
	return entry.Entry{Title: b.Title, Href: b.URL}
}

// Entries converts bookmarks to entries, preserving order.
func Entries(bookmarks []Bookmark) []entry.Entry {
	out := make([]entry.Entry, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.Entry()
	}

	return out
}
