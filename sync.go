package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/osmoscraft/osmosync/internal/daemon"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// errSyncFailed is returned after an error Result has been printed, so main
// exits non-zero without printing it again.
var errSyncFailed = errors.New("sync failed")

const exitSyncFailed = 1

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile bookmarks with the Markdown document now",
		Long: `Run one reconciliation. Bookmarks present only in the browser are
imported into the document on GitHub, then the document is mirrored onto
the bookmark folder.

When a daemon is running, the request is sent to it so the two never race.
Otherwise, or with --local, the sync runs in this process.

With --dry-run nothing is written: the changes a sync would make are listed
instead. The preview always runs in this process.`,
		Example: examples(`
			osmosync sync
			osmosync sync --local
			osmosync sync --markdown-file ./README.md --json
			osmosync sync --dry-run
		`),
		RunE: runSync,
	}

	cmd.Flags().Bool("local", false, "run in this process even if a daemon is running")
	cmd.Flags().String("markdown-file", "", "use this file's text instead of fetching the document")
	cmd.Flags().Bool("dry-run", false, "list the changes a sync would make without applying them")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	local, _ := cmd.Flags().GetBool("local")
	mdPath, _ := cmd.Flags().GetString("markdown-file")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var markdown *string

	if mdPath != "" {
		data, err := os.ReadFile(mdPath)
		if err != nil {
			return fmt.Errorf("reading markdown file: %w", err)
		}

		text := string(data)
		markdown = &text
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	if dryRun {
		return previewSync(ctx, cmd, cc, markdown)
	}

	res, err := syncOnce(ctx, cc, local, markdown)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else if !cc.Flags.Quiet || res.Status == isync.StatusError {
		printResult(cmd.OutOrStdout(), res)
	}

	if res.Status == isync.StatusError {
		return errSyncFailed
	}

	return nil
}

// syncOnce asks the daemon to sync and falls back to an in-process session
// when none is listening.
func syncOnce(ctx context.Context, cc *CLIContext, local bool, markdown *string) (isync.Result, error) {
	r := cc.Resolved

	if !local && r.ControlAddr != "" {
		reply, err := daemon.SendControl(ctx, r.ControlAddr, daemon.Message{
			Type:           daemon.MsgSyncNow,
			MarkdownString: markdown,
		})

		switch {
		case err == nil && reply.Result != nil:
			cc.Logger.Debug("sync ran in daemon", slog.String("addr", r.ControlAddr))

			return *reply.Result, nil
		case err == nil:
			return isync.Result{}, fmt.Errorf("daemon returned no result")
		case !errors.Is(err, daemon.ErrNoDaemon):
			return isync.Result{}, err
		}

		cc.Logger.Debug("no daemon listening, syncing in process", slog.String("error", err.Error()))
	}

	runLog := openRunLog(ctx, r.LogRetentionDays, cc.Logger)
	if runLog != nil {
		defer runLog.Close()
	}

	session := newSession(r, r.Settings, runLog, cc.Logger)

	return session.Run(ctx, isync.Request{Trigger: isync.TriggerManual, Markdown: markdown}), nil
}

func previewSync(ctx context.Context, cmd *cobra.Command, cc *CLIContext, markdown *string) error {
	r := cc.Resolved

	plan, err := newSession(r, r.Settings, nil, cc.Logger).Preview(ctx, markdown)
	if err != nil {
		return fmt.Errorf("previewing sync: %w", err)
	}

	actions := planActions(plan)

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), actions)
	}

	printPlan(cmd.OutOrStdout(), actions)

	return nil
}
