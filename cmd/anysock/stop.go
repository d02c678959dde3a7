package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/config"
	"github.com/stuffbucket/anysocket/internal/control"
	"github.com/stuffbucket/anysocket/internal/logging"
	"github.com/stuffbucket/anysocket/internal/util"
)

var stopFlags struct {
	timeout int
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running relay daemon",
	Long:  `Asks the relay daemon to close its routes and exit, then waits for its control address to go away.`,
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().IntVarP(&stopFlags.timeout, "timeout", "t", config.DefaultStopTimeout, "Seconds to wait for shutdown")
}

func runStop(_ *cobra.Command, _ []string) error {
	ctl, err := controlAddr()
	if err != nil {
		return err
	}
	client := control.NewClient(ctl)

	if !client.IsRunning() {
		return fmt.Errorf("relay is not running on %s", ctl)
	}

	if err := client.Stop(); err != nil {
		return err
	}

	timeout := time.Duration(stopFlags.timeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	progress := logging.NewWaitProgress("Stopping relay", timeout)
	if err := waitStopped(ctx, ctl, client, progress); err != nil {
		progress.Fail(err)
		return fmt.Errorf("timeout waiting for relay to stop")
	}
	progress.Finish()
	fmt.Println(success("✓ relay stopped"))
	return nil
}

// waitStopped waits until the daemon no longer answers. A filesystem
// control socket is watched directly since the daemon removes it on exit.
func waitStopped(ctx context.Context, ctl anysocket.Addr, client *control.Client, progress *logging.WaitProgress) error {
	if ctl.IsUnix() && !ctl.IsAbstract() {
		progress.SetStatus("waiting for " + ctl.Path())
		return util.WaitGone(ctx, ctl.Path(), 200*time.Millisecond)
	}

	progress.SetStatus("waiting for " + ctl.String())
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for client.IsRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
