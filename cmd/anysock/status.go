package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket/internal/control"
	"github.com/stuffbucket/anysocket/internal/logging"
	"github.com/stuffbucket/anysocket/internal/relay"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the relay daemon and its routes",
	Long:  `Display whether the relay daemon is running and, if so, each route with its session and byte counters.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	ctl, err := controlAddr()
	if err != nil {
		return err
	}
	client := control.NewClient(ctl)

	if !client.IsRunning() {
		fmt.Printf("  %s %s\n", key("Relay:"), errorf(control.StatusStopped))
		fmt.Printf("  %s %s\n", key("Control:"), value(ctl.String()))
		fmt.Println()
		fmt.Println(subtle("Start the relay with:"), command("anysock serve --route LISTEN=TARGET"))
		return nil
	}

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	routes, err := client.Routes()
	if err != nil {
		return fmt.Errorf("get routes: %w", err)
	}

	getConfig := func(k string) string {
		v, err := client.GetConfig(k)
		if err != nil {
			return ""
		}
		return v
	}

	fmt.Println(title("anysock status"))
	fmt.Printf("  %s %s\n", key("Relay:"), success(status))
	fmt.Printf("  %s %s\n", key("Control:"), value(ctl.String()))
	printIfSet("PID:", getConfig(control.ConfigKeyPID))
	printIfSet("Log:", getConfig(control.ConfigKeyLogPath))
	fmt.Println()

	printRoutes(os.Stdout, routes)
	return nil
}

func printRoutes(w io.Writer, routes []relay.RouteStatus) {
	if len(routes) == 0 {
		fmt.Fprintln(w, subtle("  No routes."))
		return
	}
	fmt.Fprintln(w, subtle("  Routes:"))
	for _, r := range routes {
		fmt.Fprintf(w, "  %s %s %s %s\n", key(r.Name+":"), addr(r.Listen.String()), subtle("->"), addr(r.Target.String()))
		fmt.Fprintf(w, "    %s\n", value(formatStats(r.Stats)))
	}
}

func formatStats(s relay.Stats) string {
	out := fmt.Sprintf("%d active, %d total, %s up, %s down",
		s.Active, s.Total,
		logging.HumanBytes(int64(s.BytesUp)), logging.HumanBytes(int64(s.BytesDown)))
	if s.DialFailures > 0 {
		out += fmt.Sprintf(", %d dial failures", s.DialFailures)
	}
	return out
}

// printIfSet prints a key-value line if the value is non-empty.
func printIfSet(label, val string) {
	if val != "" {
		fmt.Printf("  %s %s\n", key(label), value(val))
	}
}
