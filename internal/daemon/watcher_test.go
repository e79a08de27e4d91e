package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) *atomic.Int32 {
	t.Helper()

	w := NewConfigWatcher(path, testLogger(t))
	w.debounce = 20 * time.Millisecond

	var n atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, func(context.Context) { n.Add(1) }) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	// Give the watch time to register before the test writes.
	time.Sleep(50 * time.Millisecond)

	return &n
}

func TestConfigWatcher_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("repo = \"a\"\n"), 0o600))

	n := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("repo = \"b\"\n"), 0o600))

	require.Eventually(t, func() bool { return n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestConfigWatcher_RenameIntoPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	n := startWatcher(t, path)

	tmp := filepath.Join(dir, ".config.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("repo = \"b\"\n"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestConfigWatcher_DebouncesBurst(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	n := startWatcher(t, path)

	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o600))
	}

	require.Eventually(t, func() bool { return n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	n := startWatcher(t, filepath.Join(dir, "config.toml"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o600))

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, n.Load())
}

func TestConfigWatcher_MissingDirectory(t *testing.T) {
	t.Parallel()

	w := NewConfigWatcher(filepath.Join(t.TempDir(), "nope", "config.toml"), testLogger(t))

	err := w.Run(context.Background(), func(context.Context) {})
	assert.NoError(t, err)
}
