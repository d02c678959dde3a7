package anysocket

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// sockPath returns a socket path in a short temporary directory. t.TempDir
// paths can exceed the sun_path limit on some systems.
func sockPath(t *testing.T, name string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "anysock")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, name)
}

// forEachKind runs fn once with a loopback TCP address and once with a
// fresh Unix socket path.
func forEachKind(t *testing.T, fn func(t *testing.T, addr Addr)) {
	t.Helper()
	t.Run("tcp", func(t *testing.T) {
		fn(t, TCPAddr("127.0.0.1", 0))
	})
	t.Run("unix", func(t *testing.T) {
		fn(t, UnixAddr(sockPath(t, "s.sock")))
	})
}

func bindListener(t *testing.T, addr Addr) *Listener {
	t.Helper()
	ln, err := Bind(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

// connectedPair binds addr, then accepts and connects concurrently.
func connectedPair(t *testing.T, addr Addr) (client, server *Stream, peer Addr) {
	t.Helper()
	ln := bindListener(t, addr)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		server, peer, err = ln.AcceptStream()
		return err
	})
	g.Go(func() error {
		var err error
		client, err = Connect(context.Background(), ln.LocalAddress())
		return err
	})
	require.NoError(t, g.Wait())

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server, peer
}

// nativePair does what connectedPair does with the net package alone.
func nativePair(t *testing.T, kind Kind) (client, server net.Conn) {
	t.Helper()
	address := "127.0.0.1:0"
	if kind == KindUnix {
		address = sockPath(t, "native.sock")
	}
	ln, err := net.Listen(kind.String(), address)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var g errgroup.Group
	g.Go(func() error {
		var err error
		server, err = ln.Accept()
		return err
	})
	g.Go(func() error {
		var err error
		client, err = net.Dial(kind.String(), ln.Addr().String())
		return err
	})
	require.NoError(t, g.Wait())

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

// assertSameErrorClass checks that ours failed the way native failed:
// both nil, or same errno, same net.ErrClosed-ness and same OpError op.
func assertSameErrorClass(t *testing.T, native, ours error) {
	t.Helper()
	if native == nil {
		assert.NoError(t, ours)
		return
	}
	require.Error(t, ours)

	var nativeErrno syscall.Errno
	if errors.As(native, &nativeErrno) {
		var oursErrno syscall.Errno
		require.True(t, errors.As(ours, &oursErrno), "expected errno in %v", ours)
		assert.Equal(t, nativeErrno, oursErrno)
	}
	assert.Equal(t, errors.Is(native, net.ErrClosed), errors.Is(ours, net.ErrClosed))

	var nativeOp *net.OpError
	if errors.As(native, &nativeOp) {
		var oursOp *net.OpError
		require.True(t, errors.As(ours, &oursOp), "expected *net.OpError, got %T", ours)
		assert.Equal(t, nativeOp.Op, oursOp.Op)
		assert.Equal(t, nativeOp.Net, oursOp.Net)
	}
}
