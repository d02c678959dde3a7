package anysocket

import (
	"net"
	"os"
	"syscall"
	"time"
)

// Stream is an established connection over TCP or a Unix domain socket.
//
// A Stream holds exactly one of *net.TCPConn or *net.UnixConn for its whole
// life and owns it: Close releases the descriptor. Read and Write may be
// called concurrently, as on the wrapped conn. A nil or zero Stream fails
// every operation with syscall.EINVAL, like an uninitialized net conn.
type Stream struct {
	tcp  *net.TCPConn
	unix *net.UnixConn
}

var _ net.Conn = (*Stream)(nil)

// NewTCPStream wraps an established TCP connection.
func NewTCPStream(c *net.TCPConn) *Stream {
	return &Stream{tcp: c}
}

// NewUnixStream wraps an established Unix stream connection.
func NewUnixStream(c *net.UnixConn) *Stream {
	return &Stream{unix: c}
}

// StreamFromConn wraps c if it is a *net.TCPConn or *net.UnixConn.
func StreamFromConn(c net.Conn) (*Stream, bool) {
	switch c := c.(type) {
	case *net.TCPConn:
		if c != nil {
			return NewTCPStream(c), true
		}
	case *net.UnixConn:
		if c != nil {
			return NewUnixStream(c), true
		}
	case *Stream:
		if c.Kind() != 0 {
			return c, true
		}
	}
	return nil, false
}

// Kind reports which transport s is bound to.
func (s *Stream) Kind() Kind {
	switch {
	case s == nil:
	case s.tcp != nil:
		return KindTCP
	case s.unix != nil:
		return KindUnix
	}
	return 0
}

func (s *Stream) IsTCP() bool  { return s.Kind() == KindTCP }
func (s *Stream) IsUnix() bool { return s.Kind() == KindUnix }

// TCP returns the wrapped TCP connection, for transport specific options
// such as SetNoDelay or SetKeepAlive.
func (s *Stream) TCP() (*net.TCPConn, bool) {
	if s == nil || s.tcp == nil {
		return nil, false
	}
	return s.tcp, true
}

// Unix returns the wrapped Unix connection.
func (s *Stream) Unix() (*net.UnixConn, bool) {
	if s == nil || s.unix == nil {
		return nil, false
	}
	return s.unix, true
}

// Read reads from the connection. At end of stream it returns 0, io.EOF.
func (s *Stream) Read(b []byte) (int, error) {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.Read(b)
	case s.unix != nil:
		return s.unix.Read(b)
	}
	return 0, syscall.EINVAL
}

// Write writes to the connection. Short writes are returned as reported by
// the transport; Write does not loop.
func (s *Stream) Write(b []byte) (int, error) {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.Write(b)
	case s.unix != nil:
		return s.unix.Write(b)
	}
	return 0, syscall.EINVAL
}

// Close closes the connection. Closing twice returns the transport's
// "use of closed network connection" error.
func (s *Stream) Close() error {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.Close()
	case s.unix != nil:
		return s.unix.Close()
	}
	return syscall.EINVAL
}

// CloseRead shuts down the reading side of the connection.
func (s *Stream) CloseRead() error {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.CloseRead()
	case s.unix != nil:
		return s.unix.CloseRead()
	}
	return syscall.EINVAL
}

// CloseWrite shuts down the writing side of the connection. The peer reads
// io.EOF once it has drained what was written before.
func (s *Stream) CloseWrite() error {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.CloseWrite()
	case s.unix != nil:
		return s.unix.CloseWrite()
	}
	return syscall.EINVAL
}

// ShutdownHow selects the direction passed to Shutdown.
type ShutdownHow int

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)

// Shutdown half-closes or fully shuts down the connection without releasing
// the descriptor. ShutdownBoth is a single shutdown(SHUT_RDWR) where the
// platform has one; its errors take the form CloseRead and CloseWrite use.
func (s *Stream) Shutdown(how ShutdownHow) error {
	switch how {
	case ShutdownRead:
		return s.CloseRead()
	case ShutdownWrite:
		return s.CloseWrite()
	case ShutdownBoth:
		return shutdownBoth(s)
	default:
		return syscall.EINVAL
	}
}

// shutdownError wraps err the way net reports a failed CloseRead or
// CloseWrite.
func (s *Stream) shutdownError(err error) error {
	return &net.OpError{Op: "close", Net: s.Kind().String(), Source: s.LocalAddr(), Addr: s.RemoteAddr(), Err: err}
}

// LocalAddr returns the transport's own local address (*net.TCPAddr or
// *net.UnixAddr).
func (s *Stream) LocalAddr() net.Addr {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.LocalAddr()
	case s.unix != nil:
		return s.unix.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the transport's own peer address.
func (s *Stream) RemoteAddr() net.Addr {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.RemoteAddr()
	case s.unix != nil:
		return s.unix.RemoteAddr()
	}
	return nil
}

// LocalAddress returns the local endpoint as an Addr of the same kind as s.
// Like the net package, it reports the address recorded when the connection
// was established and does not fail after Close.
func (s *Stream) LocalAddress() Addr {
	return addrOf(s.Kind(), s.LocalAddr())
}

// PeerAddress returns the remote endpoint as an Addr of the same kind as s.
// A Unix peer that never bound a name is reported as the transport reports
// it, usually unnamed.
func (s *Stream) PeerAddress() Addr {
	return addrOf(s.Kind(), s.RemoteAddr())
}

func (s *Stream) SetDeadline(t time.Time) error {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.SetDeadline(t)
	case s.unix != nil:
		return s.unix.SetDeadline(t)
	}
	return syscall.EINVAL
}

func (s *Stream) SetReadDeadline(t time.Time) error {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.SetReadDeadline(t)
	case s.unix != nil:
		return s.unix.SetReadDeadline(t)
	}
	return syscall.EINVAL
}

func (s *Stream) SetWriteDeadline(t time.Time) error {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.SetWriteDeadline(t)
	case s.unix != nil:
		return s.unix.SetWriteDeadline(t)
	}
	return syscall.EINVAL
}

// SyscallConn returns a raw network connection for socket level access.
func (s *Stream) SyscallConn() (syscall.RawConn, error) {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.SyscallConn()
	case s.unix != nil:
		return s.unix.SyscallConn()
	}
	return nil, syscall.EINVAL
}

// File returns a duplicate of the underlying descriptor. Closing either
// one does not affect the other.
func (s *Stream) File() (*os.File, error) {
	switch {
	case s == nil:
	case s.tcp != nil:
		return s.tcp.File()
	case s.unix != nil:
		return s.unix.File()
	}
	return nil, syscall.EINVAL
}

// TakeError returns and clears the socket's pending error (SO_ERROR).
// pending is nil when no error is queued; err reports a failure to query.
func (s *Stream) TakeError() (pending error, err error) {
	rc, err := s.SyscallConn()
	if err != nil {
		return nil, err
	}
	return takeError(rc)
}

// String describes the connection as local->peer.
func (s *Stream) String() string {
	if s.Kind() == 0 {
		return "<nil>"
	}
	return s.LocalAddress().String() + "->" + s.PeerAddress().String()
}
