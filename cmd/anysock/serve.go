package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket/internal/config"
	"github.com/stuffbucket/anysocket/internal/control"
	"github.com/stuffbucket/anysocket/internal/logging"
	"github.com/stuffbucket/anysocket/internal/relay"
	"github.com/stuffbucket/anysocket/internal/util"
)

var serveFlags struct {
	routes   []string
	maxConns int
	logPath  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay daemon",
	Long: `Run the relay daemon. Each route forwards every connection accepted on
its listen address to its target address; either side may be TCP or a
Unix socket. Routes come from the config file and from --route flags.

The daemon answers status, stop and config commands on its control
address.

Examples:
  # Expose a local Unix socket on a TCP port
  anysock serve --route tcp://127.0.0.1:8080=unix:///run/app.sock

  # Routes from a file, control plane over TCP
  anysock serve --config relay.yaml --control tcp://127.0.0.1:7070`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringArrayVar(&serveFlags.routes, "route", nil, "Route as LISTEN=TARGET (repeatable)")
	f.IntVar(&serveFlags.maxConns, "max-conns", 0, "Concurrent sessions per route (default from config)")
	f.StringVar(&serveFlags.logPath, "log-file", "", "Also write logs to this rotating file")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := serveConfig()
	if err != nil {
		return err
	}

	if err := util.EnsureDir(cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	if err := logging.Init(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel}); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mgr := relay.NewManager(relay.OptionsFromConfig(cfg))
	if err := mgr.Start(ctx, cfg.Routes); err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			logging.L().Warn("closing routes", "err", err)
		}
	}()

	ctrl := control.NewLocalController(cancel, mgr.Routes)
	listener, err := control.NewListener(cfg.Control, ctrl)
	if err != nil {
		return fmt.Errorf("control: %w", err)
	}
	configRouter := control.NewConfigRouter(cfg)
	listener.Router().Mount("config", configRouter.Router())
	go listener.Start(ctx)
	defer func() {
		_ = listener.Close()
		<-listener.Done()
	}()

	printServeSummary(cfg, listener.Addr().String(), mgr.Routes())

	<-ctx.Done()
	if ctrl.IsStopped() {
		logging.L().Info("stop requested over control socket")
	} else {
		logging.L().Info("shutting down on signal")
	}
	return nil
}

// serveConfig layers --route, --max-conns and --log-file over loadConfig
// and validates the result.
func serveConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, s := range serveFlags.routes {
		r, err := config.ParseRoute(s)
		if err != nil {
			return nil, err
		}
		cfg.Routes = append(cfg.Routes, r)
	}
	if serveFlags.maxConns != 0 {
		cfg.MaxConns = serveFlags.maxConns
	}
	if serveFlags.logPath != "" {
		cfg.LogPath = serveFlags.logPath
	}
	if len(cfg.Routes) == 0 {
		return nil, errors.New("no routes: pass --route LISTEN=TARGET or a config file with routes")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printServeSummary(cfg *config.Config, controlAddr string, routes []relay.RouteStatus) {
	fmt.Println(title("anysock relay running"))
	for _, r := range routes {
		fmt.Printf("  %s %s %s %s\n", key(r.Name+":"), addr(r.Listen.String()), subtle("->"), addr(r.Target.String()))
	}
	fmt.Println()
	fmt.Printf("  %s %s\n", key("Control:"), value(controlAddr))
	if cfg.LogPath != "" {
		fmt.Printf("  %s %s\n", key("Log:"), value(cfg.LogPath))
	}
	stop := "anysock stop"
	if cfg.Control != config.DefaultControlAddr(cfg.StateDir) {
		stop += " --control " + controlAddr
	}
	fmt.Printf("  %s %s\n", key("Stop:"), command(stop))
}
