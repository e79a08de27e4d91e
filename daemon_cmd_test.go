package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmoscraft/osmosync/internal/config"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

func newTestLiveConfig(t *testing.T, body string) (*liveConfig, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	bookmarks := filepath.Join(dir, "Bookmarks")
	cli := config.CLIOverrides{BookmarksFile: &bookmarks}

	r, err := config.Resolve(cfg, config.EnvOverrides{}, cli, "")
	require.NoError(t, err)

	cc := &CLIContext{Cfg: cfg, Resolved: r, ConfigPath: path, CLI: cli}

	return newLiveConfig(cc, testLogger()), path
}

func TestLiveConfig_ReloadSwapsSnapshot(t *testing.T) {
	t.Parallel()

	live, path := newTestLiveConfig(t, "sync_to_bookmarks_bar = false\n")

	assert.False(t, live.settings().Enabled)
	assert.Equal(t, isync.ModeFolder, live.settings().Mode)
	assert.False(t, live.schedule().Enabled)

	require.NoError(t, os.WriteFile(path, []byte(
		"sync_to_bookmarks_bar = true\nbookmarks_sync_mode = \"bar\"\nbookmarks_sync_interval_minutes = 5\n"), 0o600))
	require.NoError(t, live.reload())

	assert.True(t, live.settings().Enabled)
	assert.Equal(t, isync.ModeBar, live.settings().Mode)
	assert.Equal(t, 5*time.Minute, live.schedule().Interval)
	assert.True(t, live.schedule().Enabled)
}

func TestLiveConfig_FailedReloadKeepsSnapshot(t *testing.T) {
	t.Parallel()

	live, path := newTestLiveConfig(t, "sync_to_bookmarks_bar = true\nbookmarks_sync_interval_minutes = 10\n")

	require.NoError(t, os.WriteFile(path, []byte("bookmarks_sync_mode = \"sideways\"\n"), 0o600))
	require.Error(t, live.reload())

	assert.True(t, live.settings().Enabled)
	assert.Equal(t, 10*time.Minute, live.schedule().Interval)
}

func TestLiveConfig_KeepsBookmarksFileOverride(t *testing.T) {
	t.Parallel()

	live, path := newTestLiveConfig(t, "")
	before := live.current.Load().BookmarksFile

	require.NoError(t, os.WriteFile(path, []byte("bookmarks_file = \"/elsewhere/Bookmarks\"\n"), 0o600))
	require.NoError(t, live.reload())

	// The flag still wins over the file.
	assert.Equal(t, before, live.current.Load().BookmarksFile)
}
