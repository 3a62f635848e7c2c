package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/Mufi-Lang/mufi-lang.org/src/internal/cli"
	"github.com/Mufi-Lang/mufi-lang.org/src/internal/domain"
	"github.com/Mufi-Lang/mufi-lang.org/src/internal/service"
)

var Version = "1.0.0"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

func run(parent context.Context, args []string, out io.Writer) int {
	cfg, err := cli.Parse(args, out)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	cfg.Version = Version

	// Initialize Context
	ctx := domain.NewContext(cfg, out)

	// Create and Run Orchestrator
	orchestrator := service.CreateOrchestrator(ctx)
	if err := orchestrator.Run(parent); err != nil {
		color.New(color.FgRed).Fprintf(out, "❌ Server error: %v\n", err)
		return 1
	}
	return 0
}
