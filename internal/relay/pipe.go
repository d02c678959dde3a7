package relay

import (
	"errors"
	"io"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/stuffbucket/anysocket"
)

// Pipe copies a to b and b to a until both directions reach end of stream.
// When one direction ends, the write side of its destination is shut down so
// the peer sees io.EOF while the other direction keeps flowing. If either
// copy fails, both streams are closed and the first error is returned.
func Pipe(a, b *anysocket.Stream) (aToB, bToA int64, err error) {
	var up, down atomic.Uint64
	err = pipe(a, b, &up, &down)
	return int64(up.Load()), int64(down.Load()), err
}

func pipe(a, b *anysocket.Stream, up, down *atomic.Uint64) error {
	var g errgroup.Group
	g.Go(func() error { return copyHalf(b, a, up) })
	g.Go(func() error { return copyHalf(a, b, down) })
	return g.Wait()
}

// copyHalf copies src into dst, counting bytes, then half-closes dst.
func copyHalf(dst, src *anysocket.Stream, n *atomic.Uint64) error {
	_, err := io.Copy(&countingWriter{w: dst, n: n}, src)
	if err != nil {
		// Unblock the opposite direction.
		_ = dst.Close()
		_ = src.Close()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	}
	_ = dst.Shutdown(anysocket.ShutdownWrite)
	return nil
}

type countingWriter struct {
	w io.Writer
	n *atomic.Uint64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n.Add(uint64(n))
	return n, err
}
