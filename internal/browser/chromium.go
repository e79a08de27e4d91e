package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// Node types as stored in the Bookmarks file "type" field.
const (
	chromiumTypeFolder = "folder"
	chromiumTypeURL    = "url"
)

// RootID is the id of the synthetic node returned by GetTree. Its children
// are the permanent roots: bookmarks bar, other bookmarks, mobile bookmarks.
const RootID = "0"

// webkitEpochOffset is the number of microseconds between 1601-01-01 (the
// epoch Chromium uses for timestamps) and the Unix epoch.
const webkitEpochOffset = 11644473600 * 1_000_000

// chromiumFile is the on-disk layout of a Chromium Bookmarks file.
type chromiumFile struct {
	Checksum     string        `json:"checksum,omitempty"`
	Roots        chromiumRoots `json:"roots"`
	SyncMetadata string        `json:"sync_metadata,omitempty"`
	Version      int           `json:"version"`
}

type chromiumRoots struct {
	BookmarkBar *chromiumNode `json:"bookmark_bar,omitempty"`
	Other       *chromiumNode `json:"other,omitempty"`
	Synced      *chromiumNode `json:"synced,omitempty"`
}

// list returns the permanent roots in checksum order, skipping absent ones.
func (r *chromiumRoots) list() []*chromiumNode {
	var out []*chromiumNode

	for _, n := range []*chromiumNode{r.BookmarkBar, r.Other, r.Synced} {
		if n != nil {
			out = append(out, n)
		}
	}

	return out
}

type chromiumNode struct {
	Children     []*chromiumNode   `json:"children,omitempty"`
	DateAdded    string            `json:"date_added,omitempty"`
	DateLastUsed string            `json:"date_last_used,omitempty"`
	DateModified string            `json:"date_modified,omitempty"`
	GUID         string            `json:"guid,omitempty"`
	ID           string            `json:"id"`
	MetaInfo     map[string]string `json:"meta_info,omitempty"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	URL          string            `json:"url,omitempty"`
}

// MarshalJSON always emits "children" for folders, even when empty, since
// Chromium rejects folder nodes without a children list.
func (n *chromiumNode) MarshalJSON() ([]byte, error) {
	type plain chromiumNode

	if n.Type != chromiumTypeFolder {
		return json.Marshal((*plain)(n))
	}

	children := n.Children
	if children == nil {
		children = []*chromiumNode{}
	}

	return json.Marshal(struct {
		*plain
		Children []*chromiumNode `json:"children"`
	}{plain: (*plain)(n), Children: children})
}

// ChromiumHostConfig holds the options for NewChromiumHost.
type ChromiumHostConfig struct {
	Path   string // absolute path to the profile's Bookmarks file
	Logger *slog.Logger
}

// ChromiumHost is a Host backed by a Chromium-family browser's Bookmarks
// JSON file. Every call re-reads the file, so edits made by the browser
// between calls are observed. Mutations are written back atomically with a
// recomputed checksum. The browser should not be running while the file is
// written; it keeps its own in-memory copy and overwrites the file on exit.
type ChromiumHost struct {
	mu     stdsync.Mutex
	path   string
	logger *slog.Logger

	nowFunc  func() time.Time
	guidFunc func() string
}

// NewChromiumHost creates a host for the given Bookmarks file. The file is
// not opened until the first call.
func NewChromiumHost(cfg ChromiumHostConfig) *ChromiumHost {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ChromiumHost{
		path:     cfg.Path,
		logger:   logger,
		nowFunc:  time.Now,
		guidFunc: uuid.NewString,
	}
}

// Path returns the Bookmarks file path.
func (h *ChromiumHost) Path() string {
	return h.path
}

// HasPermission reports whether the Bookmarks file exists and can be opened
// for reading and writing.
func (h *ChromiumHost) HasPermission(_ context.Context) (bool, error) {
	f, err := os.OpenFile(h.path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			h.logger.Debug("bookmarks file not accessible",
				slog.String("path", h.path),
				slog.String("error", err.Error()),
			)

			return false, nil
		}

		return false, fmt.Errorf("browser: checking %s: %w", h.path, err)
	}

	f.Close()

	return true, nil
}

// GetTree returns the synthetic root with the full tree beneath it.
func (h *ChromiumHost) GetTree(ctx context.Context) (*Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := h.load(ctx)
	if err != nil {
		return nil, err
	}

	root := &Node{ID: RootID}
	for _, r := range file.Roots.list() {
		root.Children = append(root.Children, toNode(r, RootID, true))
	}

	return root, nil
}

// GetChildren returns the immediate children of folderID.
func (h *ChromiumHost) GetChildren(ctx context.Context, folderID string) ([]Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := h.load(ctx)
	if err != nil {
		return nil, err
	}

	var children []*chromiumNode

	if folderID == RootID {
		children = file.Roots.list()
	} else {
		n, _ := findNode(file, folderID)
		if n == nil {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, folderID)
		}

		if n.Type != chromiumTypeFolder {
			return nil, fmt.Errorf("%w: %s", ErrNotFolder, folderID)
		}

		children = n.Children
	}

	out := make([]Node, 0, len(children))
	for _, c := range children {
		if !listed(c) {
			continue
		}

		out = append(out, toNode(c, folderID, false))
	}

	return out, nil
}

// Create appends a new node to the end of the parent folder.
func (h *ChromiumHost) Create(ctx context.Context, details CreateDetails) (*Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := h.load(ctx)
	if err != nil {
		return nil, err
	}

	parent, _ := findNode(file, details.ParentID)
	if parent == nil {
		return nil, fmt.Errorf("%w: parent %s", ErrNodeNotFound, details.ParentID)
	}

	if parent.Type != chromiumTypeFolder {
		return nil, fmt.Errorf("%w: parent %s", ErrNotFolder, details.ParentID)
	}

	now := h.webkitNow()
	n := &chromiumNode{
		DateAdded: now,
		GUID:      h.guidFunc(),
		ID:        strconv.FormatInt(maxID(file)+1, 10),
		Name:      details.Title,
		Type:      chromiumTypeURL,
		URL:       details.URL,
	}

	if details.URL == "" {
		n.Type = chromiumTypeFolder
		n.DateModified = now
		n.Children = []*chromiumNode{}
	}

	parent.Children = append(parent.Children, n)
	parent.DateModified = now

	if err := h.save(file); err != nil {
		return nil, err
	}

	h.logger.Debug("created bookmark node",
		slog.String("id", n.ID),
		slog.String("parent_id", details.ParentID),
		slog.String("type", n.Type),
	)

	node := toNode(n, details.ParentID, false)

	return &node, nil
}

// Update sets the title of a node.
func (h *ChromiumHost) Update(ctx context.Context, id, title string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := h.load(ctx)
	if err != nil {
		return err
	}

	if isPermanent(file, id) {
		return fmt.Errorf("%w: %s", ErrRootNode, id)
	}

	n, _ := findNode(file, id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	n.Name = title
	if n.Type == chromiumTypeFolder {
		n.DateModified = h.webkitNow()
	}

	return h.save(file)
}

// Remove deletes a node and its subtree.
func (h *ChromiumHost) Remove(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := h.load(ctx)
	if err != nil {
		return err
	}

	if isPermanent(file, id) {
		return fmt.Errorf("%w: %s", ErrRootNode, id)
	}

	_, parent := findNode(file, id)
	if parent == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	for i, c := range parent.Children {
		if c.ID == id {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)

			break
		}
	}

	parent.DateModified = h.webkitNow()

	return h.save(file)
}

func (h *ChromiumHost) load(ctx context.Context) (*chromiumFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("browser: reading %s: %w", h.path, err)
	}

	var file chromiumFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("browser: decoding %s: %w", h.path, err)
	}

	return &file, nil
}

func (h *ChromiumHost) save(file *chromiumFile) error {
	file.Checksum = checksum(file)

	data, err := json.MarshalIndent(file, "", "   ")
	if err != nil {
		return fmt.Errorf("browser: encoding bookmarks: %w", err)
	}

	if err := atomic.WriteFile(h.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("browser: writing %s: %w", h.path, err)
	}

	return nil
}

func (h *ChromiumHost) webkitNow() string {
	return strconv.FormatInt(h.nowFunc().UnixMicro()+webkitEpochOffset, 10)
}

// toNode copies a file node into a Node. Descendants are copied only when
// deep is set.
func toNode(n *chromiumNode, parentID string, deep bool) Node {
	node := Node{ID: n.ID, ParentID: parentID, Title: n.Name}
	if n.Type == chromiumTypeURL {
		node.URL = n.URL
	}

	if deep {
		for _, c := range n.Children {
			if listed(c) {
				node.Children = append(node.Children, toNode(c, n.ID, true))
			}
		}
	}

	return node
}

// listed reports whether n is exposed through the Host interface. A
// bookmark without a URL would read as an empty folder, so it is hidden.
func listed(n *chromiumNode) bool {
	return n.Type == chromiumTypeFolder || n.URL != ""
}

// findNode returns the node with the given id and its parent. The parent of
// a permanent root is nil.
func findNode(file *chromiumFile, id string) (node, parent *chromiumNode) {
	var search func(n, p *chromiumNode) bool

	search = func(n, p *chromiumNode) bool {
		if n.ID == id {
			node, parent = n, p

			return true
		}

		for _, c := range n.Children {
			if search(c, n) {
				return true
			}
		}

		return false
	}

	for _, r := range file.Roots.list() {
		if search(r, nil) {
			return node, parent
		}
	}

	return nil, nil
}

func isPermanent(file *chromiumFile, id string) bool {
	if id == RootID {
		return true
	}

	for _, r := range file.Roots.list() {
		if r.ID == id {
			return true
		}
	}

	return false
}

func maxID(file *chromiumFile) int64 {
	var highest int64

	var walk func(n *chromiumNode)

	walk = func(n *chromiumNode) {
		if v, err := strconv.ParseInt(n.ID, 10, 64); err == nil && v > highest {
			highest = v
		}

		for _, c := range n.Children {
			walk(c)
		}
	}

	for _, r := range file.Roots.list() {
		walk(r)
	}

	return highest
}
