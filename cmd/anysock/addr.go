package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stuffbucket/anysocket"
)

var addrCmd = &cobra.Command{
	Use:   "addr ADDR...",
	Short: "Parse and describe socket addresses",
	Long: `Parse each argument as a socket address and print what it refers to.

Examples:
  anysock addr tcp://127.0.0.1:8080
  anysock addr unix:///run/app.sock unix://@abstract`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runAddr(os.Stdout, args)
	},
}

func runAddr(w io.Writer, args []string) error {
	var failed int
	for i, arg := range args {
		if i > 0 {
			fmt.Fprintln(w)
		}
		a, err := anysocket.ParseAddr(arg)
		if err != nil {
			fmt.Fprintf(w, "%s %s\n", errorf("✗"), err)
			failed++
			continue
		}
		for _, kv := range describeAddr(a) {
			fmt.Fprintf(w, "  %s %s\n", key(kv[0]+":"), value(kv[1]))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d addresses invalid", failed, len(args))
	}
	return nil
}

// describeAddr lists the properties of a as label/value pairs.
func describeAddr(a anysocket.Addr) [][2]string {
	out := [][2]string{
		{"Address", a.String()},
		{"Kind", a.Kind().String()},
	}
	switch {
	case a.IsTCP():
		host := a.Host()
		if host == "" {
			host = "(all interfaces)"
		}
		port := strconv.Itoa(int(a.Port()))
		if a.Port() == 0 {
			port += " (ephemeral)"
		}
		out = append(out, [2]string{"Host", host}, [2]string{"Port", port})
	case a.IsAbstract():
		out = append(out, [2]string{"Name", a.Path()[1:]}, [2]string{"Namespace", "abstract"})
	case a.IsUnnamed():
		out = append(out, [2]string{"Path", "(unnamed)"})
	default:
		out = append(out, [2]string{"Path", a.Path()}, [2]string{"Namespace", "filesystem"})
	}
	return out
}
