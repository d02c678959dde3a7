package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/config"
	"github.com/stuffbucket/anysocket/internal/logging"
)

const acceptRetryDelay = 50 * time.Millisecond

// Dialer opens the upstream side of a relay session. *anysocket.Connector
// implements it.
type Dialer interface {
	Connect(ctx context.Context, addr anysocket.Addr) (*anysocket.Stream, error)
}

// Options tunes a Forwarder. The zero value relays without a session limit
// and dials once.
type Options struct {
	// MaxConns bounds concurrent sessions. Zero means unlimited. Accepting
	// pauses while the limit is reached.
	MaxConns int
	// DialRetries is how many extra attempts are made to reach the target.
	DialRetries    int
	DialRetryDelay time.Duration
	// Dialer defaults to an anysocket.Connector with DialTimeout.
	Dialer      Dialer
	DialTimeout time.Duration
}

// OptionsFromConfig maps the relay settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxConns:       cfg.MaxConns,
		DialRetries:    cfg.DialRetries,
		DialRetryDelay: cfg.DialRetryDelay,
		DialTimeout:    cfg.DialTimeout,
	}
}

// Stats is a snapshot of a Forwarder's counters.
type Stats struct {
	Active       int64  `json:"active"`
	Total        uint64 `json:"total"`
	BytesUp      uint64 `json:"bytes_up"`   // listen side to target
	BytesDown    uint64 `json:"bytes_down"` // target to listen side
	DialFailures uint64 `json:"dial_failures"`
}

// Forwarder accepts streams on one address and relays each to a target
// address. Listen and target kinds are independent.
type Forwarder struct {
	name   string
	listen anysocket.Addr
	target anysocket.Addr
	opts   Options

	ln     *anysocket.Listener
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[*anysocket.Stream]struct{}
	closed   bool
	wg       sync.WaitGroup

	active       atomic.Int64
	total        atomic.Uint64
	up           atomic.Uint64
	down         atomic.Uint64
	dialFailures atomic.Uint64
}

// New returns a Forwarder for a route. Start binds it.
func New(route config.Route, opts Options) *Forwarder {
	if opts.Dialer == nil {
		opts.Dialer = &anysocket.Connector{Dialer: net.Dialer{Timeout: opts.DialTimeout}}
	}
	f := &Forwarder{
		name:     route.Name,
		listen:   route.Listen,
		target:   route.Target,
		opts:     opts,
		sessions: make(map[*anysocket.Stream]struct{}),
	}
	if opts.MaxConns > 0 {
		f.sem = semaphore.NewWeighted(int64(opts.MaxConns))
	}
	return f
}

// Start binds the listen address and begins relaying in the background.
// A closed Forwarder cannot be started.
func (f *Forwarder) Start(ctx context.Context) error {
	if f.isClosed() {
		return fmt.Errorf("relay %s: %w", f.name, net.ErrClosed)
	}
	ln, err := anysocket.Bind(ctx, f.listen)
	if err != nil {
		return fmt.Errorf("relay %s: %w", f.name, err)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = ln.Close()
		return fmt.Errorf("relay %s: %w", f.name, net.ErrClosed)
	}
	f.ln = ln
	f.ctx, f.cancel = context.WithCancel(context.WithoutCancel(ctx))
	f.wg.Add(1)
	f.mu.Unlock()
	logging.L().Info("started relay", "name", f.name, "listen", ln.LocalAddress(), "target", f.target)

	go func() {
		defer f.wg.Done()
		f.acceptLoop()
	}()
	return nil
}

func (f *Forwarder) acceptLoop() {
	for {
		if f.sem != nil {
			if err := f.sem.Acquire(f.ctx, 1); err != nil {
				return
			}
		}

		conn, peer, err := f.ln.AcceptStream()
		if err != nil {
			f.release()
			if f.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logging.L().Warn("relay accept error", "name", f.name, "err", err)
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		if !f.track(conn) {
			_ = conn.Close()
			f.release()
			return
		}
		f.total.Add(1)
		f.active.Add(1)
		logging.L().Debug("relay session opened", "name", f.name, "peer", peer)

		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			defer f.release()
			defer f.active.Add(-1)
			defer f.untrack(conn)
			f.serve(conn)
		}()
	}
}

func (f *Forwarder) serve(conn *anysocket.Stream) {
	upstream, err := f.dialWithRetry()
	if err != nil {
		logging.L().Warn("relay dial failed", "name", f.name, "target", f.target, "err", err)
		return
	}
	if !f.track(upstream) {
		_ = upstream.Close()
		return
	}
	defer f.untrack(upstream)

	if err := pipe(conn, upstream, &f.up, &f.down); err != nil {
		logging.L().Debug("relay session ended with error", "name", f.name, "err", err)
	}
}

func (f *Forwarder) dialWithRetry() (*anysocket.Stream, error) {
	attempts := f.opts.DialRetries + 1
	var lastErr error
	for i := range attempts {
		s, err := f.opts.Dialer.Connect(f.ctx, f.target)
		if err == nil {
			if i > 0 {
				logging.L().Debug("relay dial succeeded after retries", "name", f.name, "attempts", i+1)
			}
			return s, nil
		}
		lastErr = err
		f.dialFailures.Add(1)

		if i < attempts-1 {
			select {
			case <-f.ctx.Done():
				return nil, net.ErrClosed
			case <-time.After(f.opts.DialRetryDelay):
			}
		}
	}
	return nil, lastErr
}

func (f *Forwarder) release() {
	if f.sem != nil {
		f.sem.Release(1)
	}
}

func (f *Forwarder) track(s *anysocket.Stream) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.sessions[s] = struct{}{}
	return true
}

func (f *Forwarder) untrack(s *anysocket.Stream) {
	f.mu.Lock()
	delete(f.sessions, s)
	f.mu.Unlock()
	_ = s.Close()
}

// Name returns the route name.
func (f *Forwarder) Name() string { return f.name }

// Target returns the address sessions are relayed to.
func (f *Forwarder) Target() anysocket.Addr { return f.target }

// Addr returns the bound listen address, with an ephemeral port filled in.
// Before Start it returns the configured address.
func (f *Forwarder) Addr() anysocket.Addr {
	f.mu.Lock()
	ln := f.ln
	f.mu.Unlock()
	if ln == nil {
		return f.listen
	}
	return ln.LocalAddress()
}

func (f *Forwarder) Stats() Stats {
	return Stats{
		Active:       f.active.Load(),
		Total:        f.total.Load(),
		BytesUp:      f.up.Load(),
		BytesDown:    f.down.Load(),
		DialFailures: f.dialFailures.Load(),
	}
}

func (f *Forwarder) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close stops accepting, closes every open session and waits for their
// goroutines to exit.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for s := range f.sessions {
		_ = s.Close()
	}
	ln := f.ln
	f.mu.Unlock()

	if ln == nil {
		return nil
	}
	f.cancel()
	err := ln.Close()
	f.wg.Wait()
	logging.L().Info("stopped relay", "name", f.name, "listen", f.listen)
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}
