package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/config"
	"github.com/stuffbucket/anysocket/internal/logging"
	"github.com/stuffbucket/anysocket/internal/ui"
	"github.com/stuffbucket/anysocket/internal/util"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootFlags struct {
	logLevel string
	stateDir string
	control  string
	config   string
	theme    string
}

var rootCmd = &cobra.Command{
	Use:   "anysock",
	Short: "anysock - one socket API for TCP and Unix domain sockets",
	Long: `anysock connects, listens and relays over TCP and Unix domain stream
sockets through a single address syntax:

  tcp://HOST:PORT     network endpoint
  unix:///PATH        local socket file
  unix://@NAME        Linux abstract socket

The serve command runs a relay daemon that forwards between any two
addresses, controlled over its own control socket.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		ui.SetTheme(ui.ThemeByName(rootFlags.theme))
		return logging.Init(logging.Options{Level: rootFlags.logLevel})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("anysock version %s (commit: %s, built: %s)\n", version, commit, date))

	defaultHelp := rootCmd.HelpTemplate()
	rootCmd.SetHelpTemplate("{{banner}}" + defaultHelp)
	cobra.AddTemplateFunc("banner", ui.Banner)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default info)")
	pf.StringVar(&rootFlags.stateDir, "state-dir", "", "State directory (default: ~/.local/state/anysock)")
	pf.StringVar(&rootFlags.control, "control", "", "Control address (default: unix://STATE_DIR/control.sock)")
	pf.StringVar(&rootFlags.config, "config", "", "Config file (default: STATE_DIR/anysock.yaml if present)")
	pf.StringVar(&rootFlags.theme, "theme", "default", fmt.Sprintf("Color theme %v", ui.ListThemes()))

	rootCmd.AddCommand(addrCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
}

// stateDir is --state-dir or the default state directory.
func stateDir() string {
	if rootFlags.stateDir != "" {
		return rootFlags.stateDir
	}
	return config.DefaultStateDir()
}

// loadConfig builds the effective configuration: the --config file, or
// the state directory's anysock.yaml when it exists, or defaults. An
// explicit --control and --state-dir win over the file.
func loadConfig() (*config.Config, error) {
	dir := stateDir()
	path := rootFlags.config
	if path == "" && util.FileExists(config.DefaultConfigPath(dir)) {
		path = config.DefaultConfigPath(dir)
	}

	cfg := config.Default(dir)
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if rootFlags.stateDir != "" && cfg.StateDir != rootFlags.stateDir {
			cfg.StateDir = rootFlags.stateDir
			cfg.Control = config.DefaultControlAddr(cfg.StateDir)
		}
	}

	if rootFlags.control != "" {
		a, err := anysocket.ParseAddr(rootFlags.control)
		if err != nil {
			return nil, fmt.Errorf("--control: %w", err)
		}
		cfg.Control = a
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	return cfg, nil
}

// controlAddr is the control address client commands talk to.
func controlAddr() (anysocket.Addr, error) {
	cfg, err := loadConfig()
	if err != nil {
		return anysocket.Addr{}, err
	}
	if !cfg.Control.IsValid() {
		return anysocket.Addr{}, errors.New("no control address configured")
	}
	return cfg.Control, nil
}
