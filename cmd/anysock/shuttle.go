package main

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/logging"
)

// inputPump reads one source for the life of the process and hands its
// bytes to whichever connection is attached. Bytes read but not yet taken
// when a connection detaches stay for the next one.
type inputPump struct {
	chunks chan []byte

	mu      sync.Mutex
	pending []byte
}

func newInputPump(r io.Reader) *inputPump {
	p := &inputPump{chunks: make(chan []byte)}
	go p.run(r)
	return p
}

func (p *inputPump) run(r io.Reader) {
	defer close(p.chunks)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.chunks <- chunk
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logging.L().Debug("input ended", "err", err)
			}
			return
		}
	}
}

// attach returns a reader over the pump that reports io.EOF once the
// source ends or detach is called.
func (p *inputPump) attach() *pumpReader {
	return &pumpReader{p: p, done: make(chan struct{})}
}

type pumpReader struct {
	p    *inputPump
	done chan struct{}
	once sync.Once
}

func (r *pumpReader) detach() {
	r.once.Do(func() { close(r.done) })
}

func (r *pumpReader) Read(b []byte) (int, error) {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		p.mu.Unlock()
		var (
			chunk []byte
			ok    bool
		)
		select {
		case <-r.done:
			p.mu.Lock()
			return 0, io.EOF
		case chunk, ok = <-p.chunks:
		}
		p.mu.Lock()
		if !ok {
			return 0, io.EOF
		}
		p.pending = chunk
		select {
		case <-r.done:
			// taken after detach; keep it for the next connection
			return 0, io.EOF
		default:
		}
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// shuttle copies in to the stream and the stream to out. When in ends the
// write side is shut down so the peer sees EOF. shuttle returns once the
// peer has finished sending and the send side has stopped; input not yet
// sent by then stays in the pump.
func shuttle(s *anysocket.Stream, in *inputPump, out io.Writer) (sent, received int64, err error) {
	rd, wr := s.Split()
	src := in.attach()

	sentCh := make(chan int64, 1)
	go func() {
		n, err := io.Copy(wr, src)
		if err != nil && !isPeerGone(err) {
			logging.L().Warn("send failed", "peer", s.PeerAddress(), "err", err)
		}
		if err := wr.Close(); err != nil && !isPeerGone(err) {
			logging.L().Debug("shutdown write", "err", err)
		}
		sentCh <- n
	}()

	received, err = io.Copy(out, rd)
	if isPeerGone(err) {
		err = nil
	}

	src.detach()
	sent = <-sentCh
	return sent, received, err
}

// isPeerGone reports errors that mean the other side went away.
func isPeerGone(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENOTCONN)
}
