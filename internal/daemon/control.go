package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// controlPath is the WebSocket endpoint served on the control address.
const controlPath = "/control"

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	// maxMessageBytes bounds a request, which can carry a whole document.
	maxMessageBytes = 8 << 20
)

// ErrNoDaemon is returned by SendControl when nothing listens on the
// control address.
var ErrNoDaemon = errors.New("daemon: no daemon listening")

// MessageType names a control request.
type MessageType string

// Control requests.
const (
	// MsgSyncNow runs a sync and replies with its Result. MarkdownString,
	// when set, replaces the fetched document text.
	MsgSyncNow MessageType = "SYNC_BOOKMARKS_NOW"
	// MsgSettingsChanged reloads the config file and reschedules the timer.
	MsgSettingsChanged MessageType = "SYNC_SETTINGS_CHANGED"
)

// Message is a control request.
type Message struct {
	Type           MessageType `json:"type"`
	MarkdownString *string     `json:"markdownString,omitempty"`
}

// Reply answers a Message. Success is false only when the request could
// not be handled at all; a failed sync still succeeds with an error Result.
type Reply struct {
	Success bool          `json:"success"`
	Result  *isync.Result `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Handler executes control requests.
type Handler interface {
	SyncNow(ctx context.Context, markdown *string) isync.Result
	SettingsChanged(ctx context.Context) error
}

// ControlServer serves the control endpoint. It accepts any number of
// requests per connection, answering each in order.
type ControlServer struct {
	addr    string
	handler Handler
	logger  *slog.Logger
	ln      net.Listener
}

// NewControlServer creates a server for addr. Call Listen, then Serve.
func NewControlServer(addr string, handler Handler, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}

	return &ControlServer{addr: addr, handler: handler, logger: logger}
}

// Listen binds the control address. Calling it again is a no-op.
func (s *ControlServer) Listen() error {
	if s.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("daemon: listening on %s: %w", s.addr, err)
	}

	s.ln = ln

	return nil
}

// Addr returns the bound address, which differs from the configured one
// when port 0 was requested.
func (s *ControlServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}

	return s.ln.Addr().String()
}

// Serve handles connections until ctx is canceled, then shuts down.
func (s *ControlServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(controlPath, s.handleControl)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("control endpoint listening", slog.String("addr", "ws://"+s.Addr()+controlPath))
		errCh <- srv.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("daemon: control server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("daemon: control server shutdown: %w", err)
	}

	return nil
}

func (s *ControlServer) handleControl(w http.ResponseWriter, r *http.Request) {
	// Default options reject cross-origin browser pages; the CLI sends no
	// Origin header.
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("control upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(maxMessageBytes)

	ctx := r.Context()

	for {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				s.logger.Debug("control connection closed", slog.String("error", err.Error()))
			}

			return
		}

		reply := s.dispatch(ctx, msg)

		if err := wsjson.Write(ctx, conn, reply); err != nil {
			s.logger.Debug("control reply failed", slog.String("error", err.Error()))
			return
		}
	}
}

func (s *ControlServer) dispatch(ctx context.Context, msg Message) Reply {
	s.logger.Debug("control request", slog.String("type", string(msg.Type)))

	switch msg.Type {
	case MsgSyncNow:
		res := s.handler.SyncNow(ctx, msg.MarkdownString)

		return Reply{Success: true, Result: &res}
	case MsgSettingsChanged:
		if err := s.handler.SettingsChanged(ctx); err != nil {
			return Reply{Error: err.Error()}
		}

		return Reply{Success: true}
	default:
		return Reply{Error: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}

// SendControl sends msg to the daemon at addr and waits for its reply.
// A daemon that cannot be reached yields an error wrapping ErrNoDaemon.
func SendControl(ctx context.Context, addr string, msg Message) (Reply, error) {
	conn, _, err := websocket.Dial(ctx, "ws://"+addr+controlPath, nil)
	if err != nil {
		return Reply{}, fmt.Errorf("%w at %s: %w", ErrNoDaemon, addr, err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		return Reply{}, fmt.Errorf("daemon: sending %s: %w", msg.Type, err)
	}

	var reply Reply
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		return Reply{}, fmt.Errorf("daemon: reading reply to %s: %w", msg.Type, err)
	}

	conn.Close(websocket.StatusNormalClosure, "")

	if !reply.Success {
		return reply, fmt.Errorf("daemon: %s failed: %s", msg.Type, reply.Error)
	}

	return reply, nil
}
