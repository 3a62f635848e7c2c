// Package cli turns the command line into a domain.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/Mufi-Lang/mufi-lang.org/src/internal/domain"
)

// ParsePort reads the optional positional port argument. A value that is
// not an integer prints a warning and falls back to domain.DefaultPort.
// The range is left to net.Listen to reject.
func ParsePort(args []string, warn io.Writer) int {
	if len(args) == 0 {
		return domain.DefaultPort
	}
	port, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		color.New(color.FgYellow).Fprintf(warn, "Invalid port number. Using default port %d.\n", domain.DefaultPort)
		return domain.DefaultPort
	}
	return port
}

// Parse builds the runtime configuration from os.Args style arguments
// (program name excluded). The served root is always the working directory.
func Parse(args []string, out io.Writer) (domain.Config, error) {
	fs := flag.NewFlagSet("mufiz-docs", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flag]... [port]\n", fs.Name())
		fmt.Fprintln(fs.Output(), "Flags must come before the port. An argument starting with '-' is read as a flag, so negative ports are rejected here.")
		fs.PrintDefaults()
	}
	host := fs.String("host", "", "Host to bind to (empty binds all interfaces)")
	watch := fs.Bool("watch", false, "Watch the served directory and push reloads to /__livereload")
	build := fs.String("build", "", "Command to run at startup and after every change (implies -watch)")
	if err := fs.Parse(args); err != nil {
		return domain.Config{}, err
	}
	// flag stops at the first positional argument; refuse to drop what follows.
	for _, arg := range fs.Args()[min(1, fs.NArg()):] {
		if strings.HasPrefix(arg, "-") {
			err := fmt.Errorf("flag %s given after the port", arg)
			fmt.Fprintln(fs.Output(), err)
			fs.Usage()
			return domain.Config{}, err
		}
	}

	root, err := os.Getwd()
	if err != nil {
		return domain.Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	return domain.Config{
		Host:     *host,
		Port:     ParsePort(fs.Args(), out),
		Root:     root,
		Watch:    *watch || *build != "",
		BuildCmd: *build,
	}, nil
}
