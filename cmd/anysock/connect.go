package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/logging"
)

var connectFlags struct {
	timeout  time.Duration
	progress bool
}

var connectCmd = &cobra.Command{
	Use:   "connect ADDR...",
	Short: "Connect to an address and join it to stdin/stdout",
	Long: `Connect to the first of the given addresses that accepts, then copy
stdin to the connection and the connection to stdout. When stdin ends
the write side is shut down so the peer sees end of stream; the command
exits once the peer closes its side.

Examples:
  echo ping | anysock connect unix:///tmp/test.sock
  anysock connect tcp://[::1]:8080 tcp://127.0.0.1:8080`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConnect,
}

func init() {
	f := connectCmd.Flags()
	f.DurationVar(&connectFlags.timeout, "timeout", 10*time.Second, "Timeout for each connection attempt (0 for none)")
	f.BoolVar(&connectFlags.progress, "progress", false, "Show received bytes and rate on stderr")
}

func runConnect(_ *cobra.Command, args []string) error {
	addrs, err := parseAddrs(args)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := anysocket.Connector{Dialer: net.Dialer{Timeout: connectFlags.timeout}}
	s, err := c.ConnectFirst(ctx, addrs...)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer s.Close()
	logging.L().Debug("connected", "local", s.LocalAddress(), "peer", s.PeerAddress())

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	var out io.Writer = os.Stdout
	var meter *logging.TransferMeter
	if connectFlags.progress {
		meter = logging.NewTransferMeter(s.PeerAddress().String())
		out = io.MultiWriter(os.Stdout, meter)
	}

	_, _, err = shuttle(s, newInputPump(os.Stdin), out)
	if meter != nil {
		meter.Finish(err)
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
