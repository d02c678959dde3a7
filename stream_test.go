package anysocket

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestStreamRoundTrip(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, server, _ := connectedPair(t, addr)

		assert.Equal(t, addr.Kind(), client.Kind())
		assert.Equal(t, addr.Kind(), server.Kind())

		_, err := client.Write([]byte("ping"))
		require.NoError(t, err)
		buf := make([]byte, 4)
		_, err = io.ReadFull(server, buf)
		require.NoError(t, err)
		assert.Equal(t, "ping", string(buf))

		_, err = server.Write([]byte("pong"))
		require.NoError(t, err)
		_, err = io.ReadFull(client, buf)
		require.NoError(t, err)
		assert.Equal(t, "pong", string(buf))
	})
}

func TestStreamEOFAfterCloseWrite(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, server, _ := connectedPair(t, addr)

		_, err := client.Write([]byte("last"))
		require.NoError(t, err)
		require.NoError(t, client.Shutdown(ShutdownWrite))

		got, err := io.ReadAll(server)
		require.NoError(t, err)
		assert.Equal(t, "last", string(got))

		n, err := server.Read(make([]byte, 8))
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)

		// The other direction stays open.
		_, err = server.Write([]byte("ack"))
		require.NoError(t, err)
		buf := make([]byte, 3)
		_, err = io.ReadFull(client, buf)
		require.NoError(t, err)
		assert.Equal(t, "ack", string(buf))
	})
}

func TestStreamConcurrentReadWrite(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, server, _ := connectedPair(t, addr)

		payload := make([]byte, 1<<20)
		_, err := rand.Read(payload)
		require.NoError(t, err)

		// Both ends write and read at the same time. If the Stream serialized
		// Read and Write, the socket buffers would fill and this would hang.
		var g errgroup.Group
		var fromClient, fromServer []byte
		g.Go(func() error {
			if _, err := client.Write(payload); err != nil {
				return err
			}
			return client.CloseWrite()
		})
		g.Go(func() error {
			if _, err := server.Write(payload); err != nil {
				return err
			}
			return server.CloseWrite()
		})
		g.Go(func() error {
			var err error
			fromClient, err = io.ReadAll(server)
			return err
		})
		g.Go(func() error {
			var err error
			fromServer, err = io.ReadAll(client)
			return err
		})
		require.NoError(t, g.Wait())

		assert.True(t, bytes.Equal(payload, fromClient))
		assert.True(t, bytes.Equal(payload, fromServer))
	})
}

func TestStreamConcurrentCloseReleasesOnce(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, _, _ := connectedPair(t, addr)

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = client.Close()
			}()
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.True(t, errors.Is(err, net.ErrClosed), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, ok)
	})
}

func TestStreamCloseUnblocksRead(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, _, _ := connectedPair(t, addr)

		done := make(chan error, 1)
		go func() {
			_, err := client.Read(make([]byte, 1))
			done <- err
		}()

		time.Sleep(20 * time.Millisecond)
		require.NoError(t, client.Close())

		select {
		case err := <-done:
			assert.True(t, errors.Is(err, net.ErrClosed), "got %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("read did not return after close")
		}
	})
}

func TestStreamErrorsMatchNative(t *testing.T) {
	type step func(c net.Conn) error
	closeWrite := func(c net.Conn) error { return c.(interface{ CloseWrite() error }).CloseWrite() }
	closeRead := func(c net.Conn) error { return c.(interface{ CloseRead() error }).CloseRead() }
	closeConn := func(c net.Conn) error { return c.Close() }
	write := func(c net.Conn) error { _, err := c.Write([]byte("x")); return err }
	read := func(c net.Conn) error { _, err := c.Read(make([]byte, 1)); return err }

	tests := []struct {
		name  string
		steps []step
	}{
		{"double close write", []step{closeWrite, closeWrite}},
		{"double close read", []step{closeRead, closeRead}},
		{"double close", []step{closeConn, closeConn}},
		{"write after close write", []step{closeWrite, write}},
		{"write after close", []step{closeConn, write}},
		{"read after close", []step{closeConn, read}},
		{"close write after close", []step{closeConn, closeWrite}},
	}

	for _, kind := range []Kind{KindTCP, KindUnix} {
		for _, tt := range tests {
			t.Run(kind.String()+"/"+tt.name, func(t *testing.T) {
				addr := TCPAddr("127.0.0.1", 0)
				if kind == KindUnix {
					addr = UnixAddr(sockPath(t, "s.sock"))
				}
				nativeClient, _ := nativePair(t, kind)
				ours, _, _ := connectedPair(t, addr)

				for i, s := range tt.steps {
					nativeErr := s(nativeClient)
					oursErr := s(ours)
					t.Logf("step %d: native=%v ours=%v", i, nativeErr, oursErr)
					assertSameErrorClass(t, nativeErr, oursErr)
				}
			})
		}
	}
}

func TestStreamShutdownBoth(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, server, _ := connectedPair(t, addr)

		require.NoError(t, client.Shutdown(ShutdownBoth))

		n, err := server.Read(make([]byte, 1))
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)

		_, err = client.Write([]byte("x"))
		assert.Error(t, err)

		assert.Equal(t, syscall.EINVAL, client.Shutdown(ShutdownHow(42)))
	})
}

func TestStreamAddresses(t *testing.T) {
	t.Run("tcp", func(t *testing.T) {
		client, server, peer := connectedPair(t, TCPAddr("127.0.0.1", 0))

		assert.Equal(t, client.LocalAddress(), peer)
		assert.Equal(t, client.LocalAddress(), server.PeerAddress())
		assert.Equal(t, server.LocalAddress(), client.PeerAddress())
		assert.NotZero(t, peer.Port())
		assert.Equal(t, "127.0.0.1", peer.Host())

		_, isTCP := client.LocalAddr().(*net.TCPAddr)
		assert.True(t, isTCP)
	})

	t.Run("unix", func(t *testing.T) {
		path := sockPath(t, "s.sock")
		client, server, peer := connectedPair(t, UnixAddr(path))

		assert.Equal(t, UnixAddr(path), server.LocalAddress())
		assert.Equal(t, UnixAddr(path), client.PeerAddress())

		// The dialing side never bound a name. How that is spelled is up to
		// the platform, but it must stay a Unix address.
		assert.True(t, peer.IsUnix())
		assert.True(t, server.PeerAddress().IsUnix())
		assert.True(t, client.LocalAddress().IsUnix())
	})
}

func TestStreamAddressesAfterClose(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, _, _ := connectedPair(t, addr)
		local, peer := client.LocalAddress(), client.PeerAddress()

		require.NoError(t, client.Close())
		assert.Equal(t, local, client.LocalAddress())
		assert.Equal(t, peer, client.PeerAddress())
	})
}

func TestZeroStream(t *testing.T) {
	for name, s := range map[string]*Stream{"nil": nil, "zero": {}} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Kind(0), s.Kind())
			_, err := s.Read(make([]byte, 1))
			assert.Equal(t, syscall.EINVAL, err)
			_, err = s.Write([]byte("x"))
			assert.Equal(t, syscall.EINVAL, err)
			assert.Equal(t, syscall.EINVAL, s.Close())
			assert.Equal(t, syscall.EINVAL, s.Shutdown(ShutdownBoth))
			assert.Equal(t, syscall.EINVAL, s.SetDeadline(time.Time{}))
			assert.Nil(t, s.LocalAddr())
			assert.False(t, s.LocalAddress().IsValid())
			_, err = s.TakeError()
			assert.Equal(t, syscall.EINVAL, err)
			assert.Equal(t, "<nil>", s.String())
		})
	}
}

func TestStreamFromConn(t *testing.T) {
	nativeClient, _ := nativePair(t, KindUnix)

	s, ok := StreamFromConn(nativeClient)
	require.True(t, ok)
	assert.Equal(t, KindUnix, s.Kind())
	uc, ok := s.Unix()
	require.True(t, ok)
	assert.Same(t, nativeClient, uc)
	_, ok = s.TCP()
	assert.False(t, ok)

	again, ok := StreamFromConn(s)
	require.True(t, ok)
	assert.Same(t, s, again)

	_, ok = StreamFromConn(nil)
	assert.False(t, ok)
	_, ok = StreamFromConn((*net.TCPConn)(nil))
	assert.False(t, ok)
	_, ok = StreamFromConn(&Stream{})
	assert.False(t, ok)

	pipeA, pipeB := net.Pipe()
	defer pipeA.Close()
	defer pipeB.Close()
	_, ok = StreamFromConn(pipeA)
	assert.False(t, ok)
}

func TestStreamDeadline(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, _, _ := connectedPair(t, addr)

		require.NoError(t, client.SetReadDeadline(time.Now().Add(10*time.Millisecond)))
		_, err := client.Read(make([]byte, 1))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrDeadlineExceeded), "got %v", err)
	})
}

func TestStreamString(t *testing.T) {
	client, server, _ := connectedPair(t, TCPAddr("127.0.0.1", 0))
	assert.Equal(t, client.LocalAddress().String()+"->"+server.LocalAddress().String(), client.String())
}
