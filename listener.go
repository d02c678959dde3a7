package anysocket

import (
	"context"
	"net"
	"os"
	"syscall"
	"time"
)

// Listener is a bound, listening TCP or Unix domain socket.
//
// A Listener holds exactly one of *net.TCPListener or *net.UnixListener and
// owns it. AcceptStream may be called repeatedly and from several goroutines;
// every accepted Stream has the listener's kind.
type Listener struct {
	tcp  *net.TCPListener
	unix *net.UnixListener
}

var _ net.Listener = (*Listener)(nil)

// NewTCPListener wraps a listening TCP socket.
func NewTCPListener(l *net.TCPListener) *Listener {
	return &Listener{tcp: l}
}

// NewUnixListener wraps a listening Unix socket.
func NewUnixListener(l *net.UnixListener) *Listener {
	return &Listener{unix: l}
}

// Binder creates Listeners. The zero value binds like net.Listen.
type Binder struct {
	ListenConfig net.ListenConfig
}

// Bind listens on addr with a zero Binder.
func Bind(ctx context.Context, addr Addr) (*Listener, error) {
	var b Binder
	return b.Bind(ctx, addr)
}

// Bind listens on addr. For KindTCP a zero port asks the system for an
// ephemeral port; LocalAddress reports the one chosen. For KindUnix the
// net package's path policy applies unchanged: an existing file makes Bind
// fail with EADDRINUSE, and Close unlinks the socket file it created.
func (b *Binder) Bind(ctx context.Context, addr Addr) (*Listener, error) {
	switch addr.kind {
	case KindTCP:
		l, err := b.ListenConfig.Listen(ctx, "tcp", addr.hostPort())
		if err != nil {
			return nil, err
		}
		return NewTCPListener(l.(*net.TCPListener)), nil
	case KindUnix:
		l, err := b.ListenConfig.Listen(ctx, "unix", addr.path)
		if err != nil {
			return nil, err
		}
		return NewUnixListener(l.(*net.UnixListener)), nil
	default:
		return nil, invalidAddrError("listen")
	}
}

// BindFirst binds the first address in addrs that succeeds. If all fail it
// returns the error of the last one.
func (b *Binder) BindFirst(ctx context.Context, addrs ...Addr) (*Listener, error) {
	if len(addrs) == 0 {
		return nil, ErrNoAddresses
	}
	var lastErr error
	for _, addr := range addrs {
		l, err := b.Bind(ctx, addr)
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Kind reports which transport l is bound to.
func (l *Listener) Kind() Kind {
	switch {
	case l == nil:
	case l.tcp != nil:
		return KindTCP
	case l.unix != nil:
		return KindUnix
	}
	return 0
}

func (l *Listener) IsTCP() bool  { return l.Kind() == KindTCP }
func (l *Listener) IsUnix() bool { return l.Kind() == KindUnix }

// TCP returns the wrapped TCP listener.
func (l *Listener) TCP() (*net.TCPListener, bool) {
	if l == nil || l.tcp == nil {
		return nil, false
	}
	return l.tcp, true
}

// Unix returns the wrapped Unix listener.
func (l *Listener) Unix() (*net.UnixListener, bool) {
	if l == nil || l.unix == nil {
		return nil, false
	}
	return l.unix, true
}

// AcceptStream waits for the next connection and returns it with the peer's
// address. Both have the listener's kind.
func (l *Listener) AcceptStream() (*Stream, Addr, error) {
	switch {
	case l == nil:
	case l.tcp != nil:
		c, err := l.tcp.AcceptTCP()
		if err != nil {
			return nil, Addr{}, err
		}
		return NewTCPStream(c), addrOf(KindTCP, c.RemoteAddr()), nil
	case l.unix != nil:
		c, err := l.unix.AcceptUnix()
		if err != nil {
			return nil, Addr{}, err
		}
		return NewUnixStream(c), addrOf(KindUnix, c.RemoteAddr()), nil
	}
	return nil, Addr{}, syscall.EINVAL
}

// Accept implements net.Listener. The returned conn is a *Stream.
func (l *Listener) Accept() (net.Conn, error) {
	s, _, err := l.AcceptStream()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close stops listening. Blocked AcceptStream calls return net.ErrClosed.
func (l *Listener) Close() error {
	switch {
	case l == nil:
	case l.tcp != nil:
		return l.tcp.Close()
	case l.unix != nil:
		return l.unix.Close()
	}
	return syscall.EINVAL
}

// Addr returns the transport's own listening address.
func (l *Listener) Addr() net.Addr {
	switch {
	case l == nil:
	case l.tcp != nil:
		return l.tcp.Addr()
	case l.unix != nil:
		return l.unix.Addr()
	}
	return nil
}

// LocalAddress returns the bound endpoint as an Addr of the listener's kind,
// with an ephemeral port filled in.
func (l *Listener) LocalAddress() Addr {
	return addrOf(l.Kind(), l.Addr())
}

// SetDeadline sets the deadline for pending and future accepts.
func (l *Listener) SetDeadline(t time.Time) error {
	switch {
	case l == nil:
	case l.tcp != nil:
		return l.tcp.SetDeadline(t)
	case l.unix != nil:
		return l.unix.SetDeadline(t)
	}
	return syscall.EINVAL
}

func (l *Listener) SyscallConn() (syscall.RawConn, error) {
	switch {
	case l == nil:
	case l.tcp != nil:
		return l.tcp.SyscallConn()
	case l.unix != nil:
		return l.unix.SyscallConn()
	}
	return nil, syscall.EINVAL
}

func (l *Listener) File() (*os.File, error) {
	switch {
	case l == nil:
	case l.tcp != nil:
		return l.tcp.File()
	case l.unix != nil:
		return l.unix.File()
	}
	return nil, syscall.EINVAL
}

// TakeError returns and clears the listening socket's pending error.
func (l *Listener) TakeError() (pending error, err error) {
	rc, err := l.SyscallConn()
	if err != nil {
		return nil, err
	}
	return takeError(rc)
}

func (l *Listener) String() string {
	if l.Kind() == 0 {
		return "<nil>"
	}
	return l.LocalAddress().String()
}
