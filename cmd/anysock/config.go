package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket/internal/config"
	"github.com/stuffbucket/anysocket/internal/control"
)

const maxDisplayValueLen = 60

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read configuration values",
	Long: `Read anysock configuration.

Values come from the running relay when it answers on the control
address. Otherwise they come from the config file and defaults, and
runtime-only keys (pid) are unavailable.

Examples:
  anysock config keys
  anysock config get max-conns`,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys with their values",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configKeysCmd)
}

// localConfigValue answers key from cfg. ok is false for unknown and
// runtime-only keys.
func localConfigValue(cfg *config.Config, k string) (string, bool) {
	switch k {
	case control.ConfigKeyStateDir:
		return cfg.StateDir, true
	case control.ConfigKeyControl:
		return cfg.Control.String(), true
	case control.ConfigKeyLogPath:
		return cfg.LogPath, true
	case control.ConfigKeyLogLevel:
		return cfg.LogLevel, true
	case control.ConfigKeyMaxConns:
		return strconv.Itoa(cfg.MaxConns), true
	case control.ConfigKeyDialTimeout:
		return cfg.DialTimeout.String(), true
	case control.ConfigKeyDialRetries:
		return strconv.Itoa(cfg.DialRetries), true
	case control.ConfigKeyDialRetryDelay:
		return cfg.DialRetryDelay.String(), true
	case control.ConfigKeyRoutes:
		names := make([]string, 0, len(cfg.Routes))
		for _, r := range cfg.Routes {
			names = append(names, fmt.Sprintf("%s=%s->%s", r.Name, r.Listen, r.Target))
		}
		return strings.Join(names, " "), true
	default:
		return "", false
	}
}

func runConfigGet(_ *cobra.Command, args []string) error {
	k := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := control.NewClient(cfg.Control)
	if client.IsRunning() {
		v, err := client.GetConfig(k)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	}

	if k == control.ConfigKeyPID {
		return fmt.Errorf("%s is only available while the relay is running", k)
	}
	v, ok := localConfigValue(cfg, k)
	if !ok {
		return fmt.Errorf("unknown config key: %s", k)
	}
	fmt.Println(v)
	return nil
}

func runConfigKeys(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := control.NewClient(cfg.Control)
	running := client.IsRunning()

	var keys []string
	if running {
		if keys, err = client.ConfigKeys(); err != nil {
			return err
		}
	} else {
		keys = control.ConfigKeys()
	}

	fmt.Println(title("Configuration Keys"))
	if !running {
		fmt.Println(subtle("  relay not running; showing file and default values"))
	}
	fmt.Println()

	for _, k := range keys {
		var v string
		if running {
			v, _ = client.GetConfig(k)
		} else {
			v, _ = localConfigValue(cfg, k)
		}
		if len(v) > maxDisplayValueLen {
			v = v[:maxDisplayValueLen-3] + "..."
		}
		switch {
		case v != "":
			fmt.Printf("  %s %s %s\n", key(k), subtle("="), value(v))
		case k == control.ConfigKeyPID && !running:
			fmt.Printf("  %s  %s\n", key(k), subtle("requires running relay"))
		default:
			fmt.Printf("  %s\n", key(k))
		}
	}
	fmt.Println()
	fmt.Println(subtle("Use 'anysock config get <key>' to see full values"))
	return nil
}
