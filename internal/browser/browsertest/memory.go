// Package browsertest provides an in-memory browser.Host for tests.
package browsertest

import (
	"context"
	"fmt"
	"strconv"
	stdsync "sync"

	"github.com/osmoscraft/osmosync/internal/browser"
)

// BarID is the id of the bookmarks bar in a new Host.
const BarID = "1"

// Call records one mutating call made against a Host.
type Call struct {
	Op    string // "create", "update" or "remove"
	ID    string
	Title string
	URL   string
}

// Host is an in-memory browser.Host. The tree starts with the synthetic
// root, a bookmarks bar and an "Other bookmarks" folder. Failure fields may
// be set between calls to inject errors.
type Host struct {
	mu     stdsync.Mutex
	nodes  map[string]*node
	nextID int
	calls  []Call

	// Denied makes HasPermission report false.
	Denied bool
	// NoBar makes GetTree return a root without children.
	NoBar bool
	// ListErr maps folder ids to errors returned by GetChildren.
	ListErr map[string]error
	// CreateErr, UpdateErr and RemoveErr are returned by their operation
	// once FailAfter mutations have succeeded. FailAfter 0 fails the first.
	CreateErr error
	UpdateErr error
	RemoveErr error
	FailAfter int

	// OnCreate, if set, runs before every create.
	OnCreate func()
}

type node struct {
	browser.Node
	children []string
}

// New returns a Host holding only the permanent folders.
func New() *Host {
	h := &Host{nodes: make(map[string]*node), nextID: 3}
	h.nodes[browser.RootID] = &node{Node: browser.Node{ID: browser.RootID}, children: []string{"1", "2"}}
	h.nodes["1"] = &node{Node: browser.Node{ID: "1", ParentID: browser.RootID, Title: "Bookmarks bar"}}
	h.nodes["2"] = &node{Node: browser.Node{ID: "2", ParentID: browser.RootID, Title: "Other bookmarks"}}

	return h
}

// Add inserts a node directly, bypassing failure injection and the call
// log. It returns the new id.
func (h *Host) Add(parentID, title, url string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.add(parentID, title, url)
}

func (h *Host) add(parentID, title, url string) string {
	id := strconv.Itoa(h.nextID)
	h.nextID++

	h.nodes[id] = &node{Node: browser.Node{ID: id, ParentID: parentID, Title: title, URL: url}}
	parent := h.nodes[parentID]
	parent.children = append(parent.children, id)

	return id
}

// Calls returns the mutating calls made so far.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Call(nil), h.calls...)
}

// Bookmarks returns every bookmark under folderID, depth-first.
func (h *Host) Bookmarks(folderID string) []browser.Bookmark {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []browser.Bookmark

	var walk func(id string)

	walk = func(id string) {
		for _, c := range h.nodes[id].children {
			n := h.nodes[c]
			if n.URL != "" {
				out = append(out, browser.Bookmark{ID: n.ID, Title: n.Title, URL: n.URL})

				continue
			}

			walk(c)
		}
	}

	walk(folderID)

	return out
}

// FindFolder returns the id of the first folder titled title directly under
// parentID, or "".
func (h *Host) FindFolder(parentID, title string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.nodes[parentID].children {
		if n := h.nodes[c]; n.URL == "" && n.Title == title {
			return c
		}
	}

	return ""
}

func (h *Host) HasPermission(_ context.Context) (bool, error) {
	return !h.Denied, nil
}

func (h *Host) GetTree(ctx context.Context) (*browser.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.NoBar {
		return &browser.Node{ID: browser.RootID}, nil
	}

	root := h.deep(browser.RootID)

	return &root, nil
}

func (h *Host) deep(id string) browser.Node {
	n := h.nodes[id]
	out := n.Node
	out.Children = nil

	for _, c := range n.children {
		out.Children = append(out.Children, h.deep(c))
	}

	return out
}

func (h *Host) GetChildren(ctx context.Context, folderID string) ([]browser.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ListErr[folderID]; err != nil {
		return nil, err
	}

	n, ok := h.nodes[folderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrNodeNotFound, folderID)
	}

	if n.URL != "" {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFolder, folderID)
	}

	out := make([]browser.Node, 0, len(n.children))
	for _, c := range n.children {
		child := h.nodes[c].Node
		child.Children = nil
		out = append(out, child)
	}

	return out, nil
}

func (h *Host) Create(ctx context.Context, details browser.CreateDetails) (*browser.Node, error) {
	if h.OnCreate != nil {
		h.OnCreate()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.injected(h.CreateErr); err != nil {
		return nil, err
	}

	parent, ok := h.nodes[details.ParentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrNodeNotFound, details.ParentID)
	}

	if parent.URL != "" {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFolder, details.ParentID)
	}

	id := h.add(details.ParentID, details.Title, details.URL)
	h.calls = append(h.calls, Call{Op: "create", ID: id, Title: details.Title, URL: details.URL})

	created := h.nodes[id].Node

	return &created, nil
}

func (h *Host) Update(ctx context.Context, id, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.injected(h.UpdateErr); err != nil {
		return err
	}

	n, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", browser.ErrNodeNotFound, id)
	}

	n.Title = title
	h.calls = append(h.calls, Call{Op: "update", ID: id, Title: title})

	return nil
}

func (h *Host) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.injected(h.RemoveErr); err != nil {
		return err
	}

	n, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", browser.ErrNodeNotFound, id)
	}

	if n.ParentID == browser.RootID || id == browser.RootID {
		return fmt.Errorf("%w: %s", browser.ErrRootNode, id)
	}

	parent := h.nodes[n.ParentID]
	for i, c := range parent.children {
		if c == id {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)

			break
		}
	}

	h.drop(id)
	h.calls = append(h.calls, Call{Op: "remove", ID: id})

	return nil
}

func (h *Host) drop(id string) {
	for _, c := range h.nodes[id].children {
		h.drop(c)
	}

	delete(h.nodes, id)
}

// injected returns err once FailAfter successful mutations have happened.
func (h *Host) injected(err error) error {
	if err == nil {
		return nil
	}

	if len(h.calls) >= h.FailAfter {
		return err
	}

	return nil
}
