package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	isync "github.com/osmoscraft/osmosync/internal/sync"
)

func TestEnable_NoSyncOnlyWritesConfig(t *testing.T) {
	env := newCLIEnv(t)
	env.writeConfig(t, "# keep me\nsync_to_bookmarks_bar = false\ncontrol_addr = \"\"\n")

	out, err := runCLI(t, "enable", "--no-sync")
	require.NoError(t, err)
	assert.Empty(t, out)

	cfg := env.readConfig(t)
	assert.Contains(t, cfg, "sync_to_bookmarks_bar = true")
	assert.Contains(t, cfg, "# keep me")
	assert.NotContains(t, env.readBookmarks(t), "osmosmemo")
}

func TestEnable_CreatesConfigWhenMissing(t *testing.T) {
	env := newCLIEnv(t)

	_, err := runCLI(t, "enable", "--no-sync")
	require.NoError(t, err)
	assert.Contains(t, env.readConfig(t), "sync_to_bookmarks_bar = true")
}

func TestDisable_NotifiesDaemon(t *testing.T) {
	env := newCLIEnv(t)

	fake := &fakeDaemon{}
	addr := startFakeDaemon(t, fake)
	env.writeConfig(t, "sync_to_bookmarks_bar = true\ncontrol_addr = \""+addr+"\"\n")

	_, err := runCLI(t, "disable")
	require.NoError(t, err)

	assert.Contains(t, env.readConfig(t), "sync_to_bookmarks_bar = false")
	assert.Equal(t, int32(1), fake.settings.Load())
	assert.Zero(t, fake.syncs.Load())
}

func TestEnable_SyncsThroughDaemon(t *testing.T) {
	env := newCLIEnv(t)

	fake := &fakeDaemon{result: isync.Result{Status: isync.StatusOK, Counts: isync.Counts{Created: 1}}}
	addr := startFakeDaemon(t, fake)
	env.writeConfig(t, connectedBase+"control_addr = \""+addr+"\"\n")

	out, err := runCLI(t, "enable")
	require.NoError(t, err)

	assert.Equal(t, int32(1), fake.settings.Load())
	assert.Equal(t, int32(1), fake.syncs.Load())
	assert.True(t, strings.HasPrefix(out, "OK"), out)
	assert.Contains(t, out, "1 created")
}

func TestEnable_SyncsLocallyWithoutDaemon(t *testing.T) {
	env := newCLIEnv(t)
	env.writeConfig(t, "sync_to_bookmarks_bar = false\ncontrol_addr = \"\"\n")

	out, err := runCLI(t, "--json", "enable")
	require.NoError(t, err)

	// Enabled but not connected: the sync runs and is skipped.
	res := decodeResult(t, out)
	assert.Equal(t, isync.StatusSkipped, res.Status)
	assert.Equal(t, isync.MsgUnconfigured, res.Message)
}
