package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// testLogger returns a debug-level logger on stderr. Server goroutines may
// log after a test returns, which t.Log does not allow.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeRunner records requests and returns a fixed result.
type fakeRunner struct {
	mu     sync.Mutex
	reqs   []isync.Request
	result isync.Result
}

func (r *fakeRunner) Run(_ context.Context, req isync.Request) isync.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reqs = append(r.reqs, req)

	return r.result
}

func (r *fakeRunner) requests() []isync.Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]isync.Request(nil), r.reqs...)
}

func (r *fakeRunner) count(trigger isync.Trigger) int {
	n := 0

	for _, req := range r.requests() {
		if req.Trigger == trigger {
			n++
		}
	}

	return n
}
