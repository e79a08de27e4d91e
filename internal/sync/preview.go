package sync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/osmoscraft/osmosync/internal/browser"
	"github.com/osmoscraft/osmosync/internal/markdown"
)

// Preview errors.
var (
	ErrNoPermission = errors.New("sync: " + MsgNoPermission)
	ErrUnconfigured = errors.New("sync: " + MsgUnconfigured)
)

// Preview computes the plan a run would apply now, without writing to the
// document or the browser and regardless of whether sync is enabled. A
// target folder that does not exist yet counts as empty. text, when
// non-empty, stands in for the stored document as in Request.Markdown.
//
// Preview does not take the run guard, so it may observe a run in flight.
func (s *Session) Preview(ctx context.Context, text *string) (Plan, error) {
	r := &run{req: Request{Markdown: text}}
	if s.settings != nil {
		r.settings = s.settings()
	}

	permitted, err := s.host.HasPermission(ctx)
	if err != nil {
		return Plan{}, err
	}

	if !permitted {
		return Plan{}, ErrNoPermission
	}

	supplied := text != nil && *text != ""
	if !supplied && !r.settings.Target.Complete() {
		return Plan{}, ErrUnconfigured
	}

	mode := r.settings.Mode
	if mode == "" {
		mode = ModeFolder
	}

	_, folderID, err := s.locateFolder(ctx, mode, r.settings.FolderName)
	if err != nil {
		return Plan{}, err
	}

	var current []browser.Bookmark

	if folderID != "" {
		if current, err = browser.CollectBookmarks(ctx, s.host, folderID); err != nil {
			return Plan{}, err
		}
	}

	doc, _, err := s.remoteText(ctx, r)
	if err != nil {
		return Plan{}, err
	}

	plan := BuildPlan(markdown.ParseAll(doc), current, mode)

	s.logger.Debug("sync previewed",
		slog.String("folder_id", folderID),
		slog.Int("import", len(plan.Import)),
		slog.Int("create", len(plan.Projection.Create)),
		slog.Int("update", len(plan.Projection.Update)),
		slog.Int("remove", len(plan.Projection.Remove)),
	)

	return plan, nil
}
