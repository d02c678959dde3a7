package anysocket

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSplitHalves(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, server, _ := connectedPair(t, addr)
		r, w := client.Split()

		assert.Equal(t, addr.Kind(), r.Kind())
		assert.Equal(t, addr.Kind(), w.Kind())
		assert.Equal(t, client.LocalAddress(), r.LocalAddress())
		assert.Equal(t, client.PeerAddress(), w.PeerAddress())
		assert.Same(t, client, r.Stream())
		assert.Same(t, client, w.Stream())

		var g errgroup.Group
		g.Go(func() error {
			if _, err := w.Write([]byte("hello")); err != nil {
				return err
			}
			return w.Close()
		})
		g.Go(func() error {
			got, err := io.ReadAll(server)
			if err != nil {
				return err
			}
			if _, err := server.Write(got); err != nil {
				return err
			}
			return server.CloseWrite()
		})

		echoed, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, g.Wait())
		assert.Equal(t, "hello", string(echoed))
	})
}

func TestSplitWriteHalfCloseLeavesReadOpen(t *testing.T) {
	forEachKind(t, func(t *testing.T, addr Addr) {
		client, server, _ := connectedPair(t, addr)
		r, w := client.Split()

		require.NoError(t, w.Close())
		_, err := w.Write([]byte("x"))
		assert.Error(t, err)

		_, err = server.Write([]byte("still"))
		require.NoError(t, err)
		buf := make([]byte, 5)
		_, err = io.ReadFull(r, buf)
		require.NoError(t, err)
		assert.Equal(t, "still", string(buf))
	})
}
