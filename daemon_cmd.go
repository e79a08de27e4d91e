package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/osmoscraft/osmosync/internal/config"
	"github.com/osmoscraft/osmosync/internal/daemon"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// pidPath returns the daemon's PID file location. Tests override it.
var pidPath = config.DefaultPIDPath

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the background sync daemon in the foreground",
		Long: `Run the sync daemon until interrupted.

The daemon syncs once at start when sync_to_bookmarks_bar is true, then every
bookmarks_sync_interval_minutes (0 disables the timer). It reloads its
settings when the config file changes, on SIGHUP, and when a client sends
SYNC_SETTINGS_CHANGED to the control endpoint at control_addr.`,
		Example: examples(`
			osmosync daemon
			osmosync daemon --verbose --bookmarks-file ~/.config/chromium/Default/Bookmarks
		`),
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger
	ctx := shutdownContext(cmd.Context(), logger)

	cleanup, err := writePIDFile(pidPath())
	if err != nil {
		return err
	}
	defer cleanup()

	live := newLiveConfig(cc, logger)

	runLog := openRunLog(ctx, cc.Resolved.LogRetentionDays, logger)
	if runLog != nil {
		defer runLog.Close()
	}

	d := daemon.New(daemon.Config{
		Runner:      newSession(cc.Resolved, live.settings, runLog, logger),
		Reload:      live.reload,
		Schedule:    live.schedule,
		ControlAddr: cc.Resolved.ControlAddr,
		ConfigPath:  cc.ConfigPath,
		SIGHUP:      hangupChannel(ctx),
		Logger:      logger,
	})

	if err := d.Listen(); err != nil {
		return fmt.Errorf("starting control endpoint: %w", err)
	}

	logger.Info("daemon starting",
		slog.Int("pid", os.Getpid()),
		slog.String("control_addr", d.ControlAddr()),
		slog.String("config", cc.ConfigPath),
		slog.String("bookmarks_file", cc.Resolved.BookmarksFile),
	)

	return d.Run(ctx)
}

// liveConfig is the daemon's view of the settings. Reloads swap in a new
// snapshot; a reload that fails keeps the previous one.
type liveConfig struct {
	holder    *config.Holder
	tokenPath string
	current   atomic.Pointer[config.Resolved]
	logger    *slog.Logger
}

func newLiveConfig(cc *CLIContext, logger *slog.Logger) *liveConfig {
	holder := config.NewHolder(cc.Cfg, cc.ConfigPath)
	holder.SetOverrides(cc.Env, cc.CLI)

	l := &liveConfig{holder: holder, tokenPath: cc.TokenPath, logger: logger}
	l.current.Store(cc.Resolved)

	return l
}

func (l *liveConfig) reload() error {
	if err := l.holder.Reload(); err != nil {
		return err
	}

	r, err := l.holder.Resolved(l.tokenPath)
	if err != nil {
		return err
	}

	if prev := l.current.Load(); prev.BookmarksFile != r.BookmarksFile {
		l.logger.Warn("bookmarks_file changed, restart the daemon to use it",
			slog.String("current", prev.BookmarksFile),
			slog.String("configured", r.BookmarksFile),
		)
	}

	l.current.Store(r)

	return nil
}

func (l *liveConfig) settings() isync.Settings {
	return l.current.Load().Settings()
}

func (l *liveConfig) schedule() daemon.Schedule {
	r := l.current.Load()

	return daemon.Schedule{Enabled: r.SyncToBookmarksBar, Interval: r.Interval}
}
