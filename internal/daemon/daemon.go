package daemon

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// Runner runs one sync. *sync.Session satisfies it.
type Runner interface {
	Run(ctx context.Context, req isync.Request) isync.Result
}

// Schedule is what the daemon needs from the current settings.
type Schedule struct {
	Enabled  bool
	Interval time.Duration
}

// Config holds the collaborators of a Daemon.
type Config struct {
	Runner Runner
	// Reload re-reads persisted settings. It is called on SIGHUP, on a
	// config file change and on SYNC_SETTINGS_CHANGED.
	Reload func() error
	// Schedule reports the settings currently in effect.
	Schedule func() Schedule
	// ControlAddr is the control endpoint address; empty disables it.
	ControlAddr string
	// ConfigPath is watched for changes when set.
	ConfigPath string
	// SIGHUP is optional; nil never fires.
	SIGHUP <-chan os.Signal
	Logger *slog.Logger
}

// Daemon runs the timer, control endpoint and config watcher together.
type Daemon struct {
	cfg       Config
	scheduler *Scheduler
	control   *ControlServer
	logger    *slog.Logger
}

// New creates a Daemon.
func New(cfg Config) *Daemon {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		cfg:       cfg,
		scheduler: NewScheduler(logger),
		logger:    logger,
	}

	if cfg.ControlAddr != "" {
		d.control = NewControlServer(cfg.ControlAddr, d, logger)
	}

	return d
}

// Listen binds the control endpoint early, so a second daemon or a port
// conflict is reported before any sync runs.
func (d *Daemon) Listen() error {
	if d.control == nil {
		return nil
	}

	return d.control.Listen()
}

// ControlAddr returns the bound control address, or "" when disabled.
func (d *Daemon) ControlAddr() string {
	if d.control == nil {
		return ""
	}

	return d.control.Addr()
}

// Run starts every trigger and blocks until ctx is canceled or one of
// them fails. When sync is enabled it first runs a startup sync.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Listen(); err != nil {
		return err
	}

	sched := d.reschedule()

	if sched.Enabled {
		d.runSync(ctx, isync.Request{Trigger: isync.TriggerStartup})
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.scheduler.Run(gctx, func(ctx context.Context) {
			d.runSync(ctx, isync.Request{Trigger: isync.TriggerTimer})
		})
	})

	if d.control != nil {
		g.Go(func() error { return d.control.Serve(gctx) })
	}

	if d.cfg.ConfigPath != "" {
		watcher := NewConfigWatcher(d.cfg.ConfigPath, d.logger)

		g.Go(func() error {
			return watcher.Run(gctx, func(context.Context) { d.reload("config file changed") })
		})
	}

	if d.cfg.SIGHUP != nil {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-d.cfg.SIGHUP:
					d.reload("SIGHUP received")
				}
			}
		})
	}

	d.logger.Info("daemon started")

	err := g.Wait()

	d.logger.Info("daemon stopped")

	return err
}

// SyncNow implements Handler.
func (d *Daemon) SyncNow(ctx context.Context, markdown *string) isync.Result {
	return d.runSync(ctx, isync.Request{Trigger: isync.TriggerManual, Markdown: markdown})
}

// SettingsChanged implements Handler.
func (d *Daemon) SettingsChanged(_ context.Context) error {
	return d.reload("settings changed")
}

func (d *Daemon) runSync(ctx context.Context, req isync.Request) isync.Result {
	res := d.cfg.Runner.Run(ctx, req)

	if res.Status == isync.StatusError {
		d.logger.Warn("sync failed",
			slog.String("trigger", string(req.Trigger)),
			slog.String("message", res.Message),
		)
	}

	return res
}

// reload re-reads settings and re-derives the timer. A failed reload keeps
// the previous settings and timer.
func (d *Daemon) reload(reason string) error {
	d.logger.Info("reloading settings", slog.String("reason", reason))

	if d.cfg.Reload != nil {
		if err := d.cfg.Reload(); err != nil {
			d.logger.Warn("settings reload failed, keeping current settings",
				slog.String("error", err.Error()),
			)

			return err
		}
	}

	d.reschedule()

	return nil
}

// reschedule arms the timer only when sync is enabled with a positive
// interval.
func (d *Daemon) reschedule() Schedule {
	var sched Schedule
	if d.cfg.Schedule != nil {
		sched = d.cfg.Schedule()
	}

	if sched.Enabled && sched.Interval > 0 {
		d.scheduler.ResetInterval(sched.Interval)
	} else {
		d.scheduler.ResetInterval(0)
	}

	return sched
}
