package anysocket

import (
	"time"
)

// ReadHalf is the reading side of a Stream returned by Split.
type ReadHalf struct {
	s *Stream
}

// WriteHalf is the writing side of a Stream returned by Split.
type WriteHalf struct {
	s *Stream
}

// Split returns views of the read and write sides of s so they can be handed
// to separate goroutines. No locking is added: the halves are safe to use
// concurrently because the wrapped conn is. The Stream keeps ownership of
// the descriptor; closing a half only shuts down its direction.
func (s *Stream) Split() (ReadHalf, WriteHalf) {
	return ReadHalf{s: s}, WriteHalf{s: s}
}

func (r ReadHalf) Read(b []byte) (int, error)        { return r.s.Read(b) }
func (r ReadHalf) Close() error                      { return r.s.CloseRead() }
func (r ReadHalf) SetReadDeadline(t time.Time) error { return r.s.SetReadDeadline(t) }
func (r ReadHalf) Kind() Kind                        { return r.s.Kind() }
func (r ReadHalf) LocalAddress() Addr                { return r.s.LocalAddress() }
func (r ReadHalf) PeerAddress() Addr                 { return r.s.PeerAddress() }

// Stream returns the Stream the half was split from.
func (r ReadHalf) Stream() *Stream { return r.s }

func (w WriteHalf) Write(b []byte) (int, error)        { return w.s.Write(b) }
func (w WriteHalf) Close() error                       { return w.s.CloseWrite() }
func (w WriteHalf) SetWriteDeadline(t time.Time) error { return w.s.SetWriteDeadline(t) }
func (w WriteHalf) Kind() Kind                         { return w.s.Kind() }
func (w WriteHalf) LocalAddress() Addr                 { return w.s.LocalAddress() }
func (w WriteHalf) PeerAddress() Addr                  { return w.s.PeerAddress() }

// Stream returns the Stream the half was split from.
func (w WriteHalf) Stream() *Stream { return w.s }
