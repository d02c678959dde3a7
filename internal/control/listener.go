package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/logging"
)

// Timeouts
const (
	SocketCheckTimeout = 100 * time.Millisecond

	dialTimeout       = 1 * time.Second
	listenerRWTimeout = 5 * time.Second
	clientPingTimeout = 2 * time.Second
	clientCmdTimeout  = 5 * time.Second
	acceptRetryDelay  = 50 * time.Millisecond
)

// ListenerConfig holds configuration for a control listener.
type ListenerConfig struct {
	Addr       anysocket.Addr
	WireFormat WireFormat
	Controller Controller
}

// Listener accepts control connections and dispatches commands.
type Listener struct {
	addr       anysocket.Addr
	wireFormat WireFormat
	ln         *anysocket.Listener
	router     *Router
	done       chan struct{}
}

// NewListener creates a control listener with the default wire format.
func NewListener(addr anysocket.Addr, ctrl Controller) (*Listener, error) {
	return NewListenerWithConfig(ListenerConfig{
		Addr:       addr,
		WireFormat: DefaultWireFormat,
		Controller: ctrl,
	})
}

// NewListenerWithConfig binds the control address. It fails if another
// instance already answers there. For a Unix path a leftover socket file
// from a dead instance is removed first, and the new socket is made
// accessible to the owner only.
func NewListenerWithConfig(cfg ListenerConfig) (*Listener, error) {
	if cfg.WireFormat == nil {
		cfg.WireFormat = DefaultWireFormat
	}
	if !cfg.Addr.IsValid() {
		return nil, errors.New("control address is required")
	}

	probe := anysocket.Connector{Dialer: net.Dialer{Timeout: SocketCheckTimeout}}
	if s, err := probe.Connect(context.Background(), cfg.Addr); err == nil {
		s.Close()
		return nil, fmt.Errorf("listener already running on %s", cfg.Addr)
	}

	socketFile := socketFilePath(cfg.Addr)
	if socketFile != "" {
		if err := removeIfExists(socketFile); err != nil {
			return nil, fmt.Errorf("cleanup stale socket: %w", err)
		}
	}

	ln, err := anysocket.Bind(context.Background(), cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	if socketFile != "" {
		if err := os.Chmod(socketFile, 0o600); err != nil {
			ln.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
	}

	router := NewRouter()
	if cfg.Controller != nil {
		router.RegisterController(cfg.Controller)
	}

	return &Listener{
		addr:       ln.LocalAddress(),
		wireFormat: cfg.WireFormat,
		ln:         ln,
		router:     router,
		done:       make(chan struct{}),
	}, nil
}

// RegisterCommand adds a custom command handler.
func (l *Listener) RegisterCommand(name string, handler Handler) {
	l.router.Handle(name, handler)
}

// Router returns the underlying router for advanced configuration.
func (l *Listener) Router() *Router {
	return l.router
}

// Addr returns the bound control address. For TCP with port 0 it carries
// the port the system chose.
func (l *Listener) Addr() anysocket.Addr {
	return l.addr
}

// Start begins accepting connections (blocking). It returns after Close.
func (l *Listener) Start(ctx context.Context) {
	defer close(l.done)

	for {
		s, _, err := l.ln.AcceptStream()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logging.L().Warn("control listener accept error", "error", err)
			time.Sleep(acceptRetryDelay)
			continue
		}
		go l.handleConnection(ctx, s)
	}
}

// Done is closed when Start returns.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) handleConnection(ctx context.Context, s *anysocket.Stream) {
	defer s.Close()
	_ = s.SetDeadline(time.Now().Add(listenerRWTimeout))

	msg, err := l.wireFormat.Decode(s)
	if err != nil {
		logging.L().Debug("control decode failed", "peer", s.PeerAddress(), "err", err)
		return
	}

	req := NewRequest(msg.Command)
	resp := l.router.Dispatch(ctx, req)
	if resp == nil {
		resp = &Message{Error: "no response"}
	}
	if err := l.wireFormat.Encode(s, resp); err != nil {
		logging.L().Debug("control encode failed", "command", req.Command, "err", err)
	}
}

// Close shuts down the control listener. A Unix socket file is removed.
func (l *Listener) Close() error {
	if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}

// socketFilePath is the filesystem path behind addr, or "" for TCP and
// abstract sockets.
func socketFilePath(addr anysocket.Addr) string {
	if !addr.IsUnix() || addr.IsAbstract() {
		return ""
	}
	return addr.Path()
}

// removeIfExists removes a file if it exists.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// isSocketNotAvailable reports whether err means nothing listens at the
// control address.
func isSocketNotAvailable(err error) bool {
	return errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, os.ErrNotExist)
}
