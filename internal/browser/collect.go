package browser

import (
	"context"
	"fmt"

	"github.com/osmoscraft/osmosync/internal/entry"
)

// CollectBookmarks walks folderID depth-first and returns every bookmark
// beneath it, including those in nested folders. Folders themselves are not
// returned. Output follows the host's child order, pre-order; callers must
// not rely on that order for anything but presentation.
//
// Collection is all-or-nothing: if any folder cannot be listed the partial
// result is discarded and the error returned.
func CollectBookmarks(ctx context.Context, host Host, folderID string) ([]Bookmark, error) {
	c := collector{host: host, visited: make(map[string]bool)}

	if err := c.walk(ctx, folderID); err != nil {
		return nil, err
	}

	return c.out, nil
}

// Collect is CollectBookmarks reduced to entries.
func Collect(ctx context.Context, host Host, folderID string) ([]entry.Entry, error) {
	bookmarks, err := CollectBookmarks(ctx, host, folderID)
	if err != nil {
		return nil, err
	}

	return Entries(bookmarks), nil
}

type collector struct {
	host Host
	// visited guards against hosts reporting a folder as its own descendant.
	visited map[string]bool
	out     []Bookmark
}

func (c *collector) walk(ctx context.Context, folderID string) error {
	if c.visited[folderID] {
		return nil
	}

	c.visited[folderID] = true

	children, err := c.host.GetChildren(ctx, folderID)
	if err != nil {
		return fmt.Errorf("browser: listing folder %s: %w", folderID, err)
	}

	for _, child := range children {
		if child.URL != "" {
			c.out = append(c.out, Bookmark{ID: child.ID, Title: child.Title, URL: child.URL})

			continue
		}

		if child.ID == "" {
			continue
		}

		if err := c.walk(ctx, child.ID); err != nil {
			return err
		}
	}

	return nil
}
