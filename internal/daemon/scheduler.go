// Package daemon hosts the long-running triggers of bookmark sync: a
// periodic timer, a local WebSocket control endpoint, and a config file
// watcher that reloads settings.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler fires on a fixed interval that can be changed while it runs.
// A zero interval disables firing without stopping the loop.
type Scheduler struct {
	mu       sync.Mutex
	ticker   *time.Ticker
	interval time.Duration
	reset    chan struct{}
	logger   *slog.Logger
}

// NewScheduler creates a disabled Scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		reset:  make(chan struct{}, 1),
		logger: logger,
	}
}

// ResetInterval replaces the timer. The next tick is a full interval away.
// d <= 0 disables the timer.
func (s *Scheduler) ResetInterval(d time.Duration) {
	d = max(d, 0)

	s.mu.Lock()

	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}

	if d > 0 {
		s.ticker = time.NewTicker(d)
	}

	changed := s.interval != d
	s.interval = d
	s.mu.Unlock()

	if changed {
		if d > 0 {
			s.logger.Info("sync timer set", slog.Duration("interval", d))
		} else {
			s.logger.Info("sync timer cleared")
		}
	}

	// Wake Run so it selects on the new ticker.
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

// Interval returns the current interval, zero when disabled.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interval
}

func (s *Scheduler) tick() <-chan time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return nil // blocks forever in select
	}

	return s.ticker.C
}

// Run calls fire on every tick until ctx is canceled. fire runs on the
// loop goroutine, so ticks that arrive while it runs are coalesced.
func (s *Scheduler) Run(ctx context.Context, fire func(context.Context)) error {
	defer func() {
		s.mu.Lock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.reset:
			continue
		case <-s.tick():
			fire(ctx)
		}
	}
}
