package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmoscraft/osmosync/internal/daemon"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

const emptyBookmarks = `{
   "checksum": "",
   "roots": {
      "bookmark_bar": {
         "children": [ ],
         "date_added": "13300000000000000",
         "guid": "0bc5d13f-2cba-5d74-951f-3f233fe6c908",
         "id": "1",
         "name": "Bookmarks bar",
         "type": "folder"
      },
      "other": {
         "children": [ ],
         "date_added": "13300000000000000",
         "guid": "82b081ec-3dd3-529c-8475-ab6c344590dd",
         "id": "2",
         "name": "Other bookmarks",
         "type": "folder"
      },
      "synced": {
         "children": [ ],
         "date_added": "13300000000000000",
         "guid": "4cf2e351-0e85-532b-bb37-df045d8f8d0f",
         "id": "3",
         "name": "Mobile bookmarks",
         "type": "folder"
      }
   },
   "version": 1
}
`

// cliEnv is an isolated home for one CLI test: config, data and Bookmarks
// file all live under t.TempDir(). Tests using it cannot run in parallel
// because they set environment variables.
type cliEnv struct {
	dir           string
	configPath    string
	dataDir       string
	bookmarksPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	dir := t.TempDir()
	e := &cliEnv{
		dir:           dir,
		configPath:    filepath.Join(dir, "config", "osmosync", "config.toml"),
		dataDir:       filepath.Join(dir, "data", "osmosync"),
		bookmarksPath: filepath.Join(dir, "Bookmarks"),
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("OSMOSYNC_CONFIG", "")
	t.Setenv("OSMOSYNC_TOKEN", "")
	t.Setenv("OSMOSYNC_BOOKMARKS_FILE", e.bookmarksPath)

	require.NoError(t, os.WriteFile(e.bookmarksPath, []byte(emptyBookmarks), 0o600))

	return e
}

// writeConfig writes body as the config file.
func (e *cliEnv) writeConfig(t *testing.T, body string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(e.configPath), 0o700))
	require.NoError(t, os.WriteFile(e.configPath, []byte(body), 0o600))
}

func (e *cliEnv) readConfig(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(e.configPath)
	require.NoError(t, err)

	return string(data)
}

func (e *cliEnv) readBookmarks(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(e.bookmarksPath)
	require.NoError(t, err)

	return string(data)
}

// connectedBase is a config with a complete connection and sync on.
const connectedBase = `access_token = "ghp_test"
username = "octocat"
repo = "notes"
sync_to_bookmarks_bar = true
`

// connectedConfig also turns the control endpoint off so tests never reach
// a real daemon.
const connectedConfig = connectedBase + "control_addr = \"\"\n"

// runCLI executes the root command with args and returns what it wrote to
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return addr
}

// fakeDaemon answers control requests the way a daemon would, recording
// what it was asked.
type fakeDaemon struct {
	result   isync.Result
	syncs    atomic.Int32
	settings atomic.Int32

	mu       sync.Mutex
	markdown []*string
}

func (f *fakeDaemon) SyncNow(_ context.Context, markdown *string) isync.Result {
	f.syncs.Add(1)

	f.mu.Lock()
	f.markdown = append(f.markdown, markdown)
	f.mu.Unlock()

	return f.result
}

func (f *fakeDaemon) SettingsChanged(context.Context) error {
	f.settings.Add(1)

	return nil
}

// startFakeDaemon serves f on a loopback port until the test ends and
// returns the address.
func startFakeDaemon(t *testing.T, f *fakeDaemon) string {
	t.Helper()

	srv := daemon.NewControlServer("127.0.0.1:0", f, testLogger())
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return srv.Addr()
}
