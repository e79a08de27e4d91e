package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/osmoscraft/osmosync/internal/browser"
	"github.com/osmoscraft/osmosync/internal/entry"
	"github.com/osmoscraft/osmosync/internal/github"
	"github.com/osmoscraft/osmosync/internal/markdown"
)

var errBarNotFound = errors.New("sync: bookmarks bar not found")

// Recorder persists finished runs. *RunLog satisfies it.
type Recorder interface {
	Record(ctx context.Context, rec RunRecord) error
}

// SessionConfig holds the collaborators of a Session.
type SessionConfig struct {
	Host  browser.Host
	Store RemoteStore
	// Settings is called once at the start of every run, so configuration
	// reloads take effect without rebuilding the session.
	Settings func() Settings
	// RunLog is optional.
	RunLog Recorder
	Logger *slog.Logger
}

// Session runs reconciliations. At most one run is in flight at a time;
// a run started while another is active is skipped, not queued.
type Session struct {
	host     browser.Host
	store    RemoteStore
	settings func() Settings
	runLog   Recorder
	logger   *slog.Logger
	guard    *semaphore.Weighted

	nowFunc func() time.Time
	idFunc  func() string
}

// NewSession creates a Session.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		host:     cfg.Host,
		store:    cfg.Store,
		settings: cfg.Settings,
		runLog:   cfg.RunLog,
		logger:   logger,
		guard:    semaphore.NewWeighted(1),
		nowFunc:  time.Now,
		idFunc:   uuid.NewString,
	}
}

// run is the mutable state of one invocation.
type run struct {
	settings Settings
	req      Request
	counts   Counts
}

// Run performs one reconciliation and reports its outcome. It never
// panics and never returns a Go error; every failure becomes an error
// Result carrying the counts applied before it.
func (s *Session) Run(ctx context.Context, req Request) Result {
	started := s.nowFunc()

	if !s.guard.TryAcquire(1) {
		s.logger.Info("sync already in progress, skipping", slog.String("trigger", string(req.Trigger)))

		res := skipped(MsgInProgress)
		s.record(ctx, req, Settings{}, res, started)

		return res
	}
	defer s.guard.Release(1)

	r := &run{req: req}
	res := s.guarded(ctx, r)

	s.logger.Info("sync finished",
		slog.String("trigger", string(req.Trigger)),
		slog.String("status", string(res.Status)),
		slog.String("message", res.Message),
		slog.Duration("duration", s.nowFunc().Sub(started)),
	)

	s.record(ctx, req, r.settings, res, started)

	return res
}

// guarded runs the body of a reconciliation with panic recovery.
func (s *Session) guarded(ctx context.Context, r *run) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("panic during sync", slog.Any("panic", p))
			res = errorResult(r.counts, fmt.Errorf("panic: %v", p))
		}
	}()

	if s.settings != nil {
		r.settings = s.settings()
	}

	if !r.settings.Enabled {
		return skipped(MsgDisabled)
	}

	permitted, err := s.host.HasPermission(ctx)
	if err != nil {
		return errorResult(r.counts, err)
	}

	if !permitted {
		return skipped(MsgNoPermission)
	}

	if !r.settings.Target.Complete() {
		return skipped(MsgUnconfigured)
	}

	if err := s.reconcile(ctx, r); err != nil {
		if errors.Is(err, errBarNotFound) {
			return Result{Status: StatusError, Message: MsgBarNotFound, Counts: r.counts}
		}

		return errorResult(r.counts, err)
	}

	return okResult(r.counts)
}

func (s *Session) reconcile(ctx context.Context, r *run) error {
	mode := r.settings.Mode
	if mode == "" {
		mode = ModeFolder
	}

	folderID, err := s.resolveFolder(ctx, mode, r.settings.FolderName)
	if err != nil {
		return err
	}

	current, err := browser.CollectBookmarks(ctx, s.host, folderID)
	if err != nil {
		return err
	}

	text, missing, err := s.remoteText(ctx, r)
	if err != nil {
		return err
	}

	if missing && len(current) == 0 {
		return fmt.Errorf("sync: document %s not found and there is nothing to import", r.settings.Target.Path)
	}

	// Phase 1: absorb browser-only entries into the document.
	imports := PlanImport(markdown.ParseAll(text), browser.Entries(current))
	if len(imports) > 0 {
		final, imported, err := s.importEntries(ctx, r.settings.Target, imports)
		if err != nil {
			return err
		}

		r.counts.Imported = imported
		text = final
	}

	// Phase 2: project the committed document onto the folder.
	proj := PlanProjection(markdown.ParseAll(text), current, mode)

	s.logger.Debug("projection planned",
		slog.String("folder_id", folderID),
		slog.Int("create", len(proj.Create)),
		slog.Int("update", len(proj.Update)),
		slog.Int("remove", len(proj.Remove)),
	)

	return s.apply(ctx, folderID, proj, &r.counts)
}

// resolveFolder returns the id of the folder a run reconciles: the bar
// itself, or a named folder on the bar created on first use.
func (s *Session) resolveFolder(ctx context.Context, mode Mode, name string) (string, error) {
	barID, folderID, err := s.locateFolder(ctx, mode, name)
	if err != nil || folderID != "" {
		return folderID, err
	}

	name = folderName(name)

	folder, err := s.host.Create(ctx, browser.CreateDetails{ParentID: barID, Title: name})
	if err != nil {
		return "", fmt.Errorf("sync: creating folder %q: %w", name, err)
	}

	s.logger.Info("created bookmark folder", slog.String("name", name), slog.String("id", folder.ID))

	return folder.ID, nil
}

// locateFolder finds the bar and the folder a run reconciles without
// changing anything. folderID is empty when the named folder does not
// exist yet.
func (s *Session) locateFolder(ctx context.Context, mode Mode, name string) (barID, folderID string, err error) {
	tree, err := s.host.GetTree(ctx)
	if err != nil {
		return "", "", fmt.Errorf("sync: reading bookmark tree: %w", err)
	}

	if tree == nil || len(tree.Children) == 0 {
		return "", "", errBarNotFound
	}

	bar := tree.Children[0]
	if mode == ModeBar {
		return bar.ID, bar.ID, nil
	}

	name = folderName(name)

	for _, c := range bar.Children {
		if c.IsFolder() && c.Title == name {
			return bar.ID, c.ID, nil
		}
	}

	return bar.ID, "", nil
}

func folderName(name string) string {
	if name == "" {
		return DefaultFolderName
	}

	return name
}

// remoteText returns the document text from the request or the store.
// missing is set when the store has no such file yet. Empty supplied text
// counts as not supplied.
func (s *Session) remoteText(ctx context.Context, r *run) (text string, missing bool, err error) {
	if r.req.Markdown != nil && *r.req.Markdown != "" {
		return *r.req.Markdown, false, nil
	}

	text, err = s.store.GetContent(ctx, r.settings.Target)
	if errors.Is(err, github.ErrNotFound) {
		s.logger.Warn("bookmark document not found, it will be created",
			slog.String("path", r.settings.Target.Path),
		)

		return "", true, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("sync: fetching document: %w", err)
	}

	return text, false, nil
}

// importEntries prepends entries to the stored document and returns the
// committed text. Entries the store's current text already lists are not
// added again, so the count reflects what was actually written.
func (s *Session) importEntries(ctx context.Context, target github.Target, entries []entry.Entry) (string, int, error) {
	var imported int

	final, err := s.store.UpdateContent(ctx, target, func(existing *string) (string, error) {
		var base string
		if existing != nil {
			base = *existing
		}

		add := entry.NewSet(entries).Difference(entry.NewSet(markdown.ParseAll(base)))
		imported = len(add)

		return markdown.Prepend(base, add), nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("sync: importing %d bookmarks: %w", len(entries), err)
	}

	if imported > 0 {
		s.logger.Info("imported bookmarks into document", slog.Int("count", imported))
	}

	return final, imported, nil
}

// apply performs creates, then updates, then removals. The first failing
// call stops everything after it.
func (s *Session) apply(ctx context.Context, folderID string, p Projection, counts *Counts) error {
	for _, e := range p.Create {
		if _, err := s.host.Create(ctx, browser.CreateDetails{ParentID: folderID, Title: e.Title, URL: e.Href}); err != nil {
			return fmt.Errorf("sync: creating bookmark %s: %w", e.Href, err)
		}

		counts.Created++
	}

	for _, u := range p.Update {
		if err := s.host.Update(ctx, u.ID, u.Title); err != nil {
			return fmt.Errorf("sync: renaming bookmark %s: %w", u.Href, err)
		}

		counts.Updated++
	}

	for _, b := range p.Remove {
		if err := s.host.Remove(ctx, b.ID); err != nil {
			return fmt.Errorf("sync: removing bookmark %s: %w", b.URL, err)
		}

		counts.Removed++
	}

	return nil
}

func (s *Session) record(ctx context.Context, req Request, settings Settings, res Result, started time.Time) {
	if s.runLog == nil {
		return
	}

	rec := RunRecord{
		ID:         s.idFunc(),
		Trigger:    req.Trigger,
		Mode:       settings.Mode,
		Status:     res.Status,
		Message:    res.Message,
		Counts:     res.Counts,
		StartedAt:  started,
		FinishedAt: s.nowFunc(),
	}

	// Recording must not be cut short by a caller that canceled the run.
	if err := s.runLog.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("recording sync run failed", slog.String("error", err.Error()))
	}
}
