package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	isync "github.com/osmoscraft/osmosync/internal/sync"
)

type fakeHandler struct {
	gotMarkdown atomic.Pointer[string]
	syncs       atomic.Int32
	changes     atomic.Int32
	changeErr   error
}

func (h *fakeHandler) SyncNow(_ context.Context, markdown *string) isync.Result {
	h.syncs.Add(1)
	h.gotMarkdown.Store(markdown)

	return isync.Result{Status: isync.StatusOK, Message: "Synced: 1 removed", Counts: isync.Counts{Removed: 1}}
}

func (h *fakeHandler) SettingsChanged(context.Context) error {
	h.changes.Add(1)

	return h.changeErr
}

func startControl(t *testing.T, h Handler) string {
	t.Helper()

	s := NewControlServer("127.0.0.1:0", h, testLogger(t))
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return s.Addr()
}

func testCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestControl_SyncNow(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	addr := startControl(t, h)

	reply, err := SendControl(testCtx(t), addr, Message{Type: MsgSyncNow})
	require.NoError(t, err)

	require.NotNil(t, reply.Result)
	assert.True(t, reply.Success)
	assert.Equal(t, isync.StatusOK, reply.Result.Status)
	assert.Equal(t, 1, reply.Result.Counts.Removed)
	assert.Nil(t, h.gotMarkdown.Load())
}

func TestControl_SyncNowWithMarkdown(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	addr := startControl(t, h)

	md := "- [Foo](http://a)\n"

	_, err := SendControl(testCtx(t), addr, Message{Type: MsgSyncNow, MarkdownString: &md})
	require.NoError(t, err)

	got := h.gotMarkdown.Load()
	require.NotNil(t, got)
	assert.Equal(t, md, *got)
}

func TestControl_SettingsChanged(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	addr := startControl(t, h)

	reply, err := SendControl(testCtx(t), addr, Message{Type: MsgSettingsChanged})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Nil(t, reply.Result)
	assert.Equal(t, int32(1), h.changes.Load())
}

func TestControl_SettingsChangedError(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{changeErr: errors.New("bad config")}
	addr := startControl(t, h)

	reply, err := SendControl(testCtx(t), addr, Message{Type: MsgSettingsChanged})
	require.Error(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, "bad config", reply.Error)
}

func TestControl_UnknownType(t *testing.T) {
	t.Parallel()

	addr := startControl(t, &fakeHandler{})

	_, err := SendControl(testCtx(t), addr, Message{Type: "REBOOT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown message type")
}

func TestControl_SeveralRequestsOnOneConnection(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	addr := startControl(t, h)
	ctx := testCtx(t)

	conn, _, err := websocket.Dial(ctx, "ws://"+addr+controlPath, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	for range 3 {
		require.NoError(t, wsjson.Write(ctx, conn, Message{Type: MsgSyncNow}))

		var reply Reply
		require.NoError(t, wsjson.Read(ctx, conn, &reply))
		assert.True(t, reply.Success)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	assert.Equal(t, int32(3), h.syncs.Load())
}

func TestControl_RejectsCrossOrigin(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	addr := startControl(t, h)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")

	_, _, err := websocket.Dial(testCtx(t), "ws://"+addr+controlPath, &websocket.DialOptions{HTTPHeader: header})
	require.Error(t, err)
	assert.Zero(t, h.syncs.Load())
}

func TestSendControl_NoDaemon(t *testing.T) {
	t.Parallel()

	// Reserve a port, then free it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = SendControl(testCtx(t), addr, Message{Type: MsgSyncNow})
	require.ErrorIs(t, err, ErrNoDaemon)
}

func TestControlServer_ListenConflict(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewControlServer(ln.Addr().String(), &fakeHandler{}, testLogger(t))
	require.Error(t, s.Listen())
}
