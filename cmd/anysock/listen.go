package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/logging"
)

var listenFlags struct {
	echo bool
	once bool
}

var listenCmd = &cobra.Command{
	Use:   "listen ADDR...",
	Short: "Listen on an address and accept connections",
	Long: `Bind the first of the given addresses that succeeds and accept
connections on it. The bound address is printed on stderr; for
tcp://HOST:0 it carries the port the system chose.

Without --echo each connection in turn is joined to stdin and stdout;
input not yet sent when a connection ends goes to the next one.
With --echo every connection is served concurrently and gets its own
bytes back.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runListen,
}

func init() {
	f := listenCmd.Flags()
	f.BoolVar(&listenFlags.echo, "echo", false, "Echo received bytes back to each peer")
	f.BoolVar(&listenFlags.once, "once", false, "Exit after the first connection ends")
}

func runListen(_ *cobra.Command, args []string) error {
	addrs, err := parseAddrs(args)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var b anysocket.Binder
	ln, err := b.BindFirst(ctx, addrs...)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	fmt.Fprintf(os.Stderr, "%s %s\n", subtle("listening on"), addr(ln.LocalAddress().String()))

	var stdin *inputPump
	if !listenFlags.echo {
		stdin = newInputPump(os.Stdin)
	}
	return acceptLoop(ctx, ln, stdin, os.Stdout, listenFlags.echo, listenFlags.once)
}

// acceptLoop accepts until ln is closed or ctx is done. Cancelling ctx also
// closes connections still in progress.
func acceptLoop(ctx context.Context, ln *anysocket.Listener, stdin *inputPump, out io.Writer, echoMode, once bool) error {
	stopListener := context.AfterFunc(ctx, func() { ln.Close() })
	defer stopListener()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		s, peer, err := ln.AcceptStream()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		logging.L().Info("accepted", "peer", peer, "local", s.LocalAddress())

		stopOnCancel := context.AfterFunc(ctx, func() { s.Close() })

		if echoMode {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer stopOnCancel()
				echo(s)
			}()
		} else {
			_, n, err := shuttle(s, stdin, out)
			stopOnCancel()
			s.Close()
			if err != nil {
				logging.L().Warn("connection failed", "peer", peer, "err", err)
			} else {
				logging.L().Debug("connection closed", "peer", peer, "received", n)
			}
		}

		if once {
			// Stop accepting; an echo session still running finishes first.
			ln.Close()
			return nil
		}
	}
}

// echo writes everything s sends back to it, then half-closes.
func echo(s *anysocket.Stream) {
	defer s.Close()
	n, err := io.Copy(s, s)
	if err != nil && !isPeerGone(err) {
		logging.L().Warn("echo failed", "peer", s.PeerAddress(), "err", err)
		return
	}
	_ = s.CloseWrite()
	logging.L().Debug("echo done", "peer", s.PeerAddress(), "bytes", n)
}

func parseAddrs(args []string) ([]anysocket.Addr, error) {
	addrs := make([]anysocket.Addr, 0, len(args))
	for _, arg := range args {
		a, err := anysocket.ParseAddr(arg)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}
