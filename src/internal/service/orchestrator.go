package service

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/Mufi-Lang/mufi-lang.org/src/internal/api"
	"github.com/Mufi-Lang/mufi-lang.org/src/internal/domain"
	"github.com/Mufi-Lang/mufi-lang.org/src/internal/service/builder"
	"github.com/Mufi-Lang/mufi-lang.org/src/internal/service/watcher"
)

const buildSettleGrace = 250 * time.Millisecond

type Orchestrator struct {
	ctx *domain.Context
}

func CreateOrchestrator(ctx *domain.Context) *Orchestrator {
	return &Orchestrator{
		ctx: ctx,
	}
}

// Run serves until parent is cancelled or SIGINT/SIGTERM arrives. Both end
// in a clean shutdown and a nil error; bind and serve failures are returned.
func (o *Orchestrator) Run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := o.ctx.Out
	fmt.Fprintf(out, "Serving from: %s\n", o.ctx.Config.Root)

	server := api.Create(o.ctx)
	ln, err := server.Listen()
	if err != nil {
		return err
	}

	o.printBanner(ln.Addr())

	if o.ctx.Config.Watch {
		if err := o.startWatching(ctx, server.Hub()); err != nil {
			ln.Close()
			return err
		}
	}

	if err := server.Serve(ctx, ln); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n👋 Server stopped by user")
	return nil
}

func (o *Orchestrator) printBanner(addr net.Addr) {
	port := o.ctx.Config.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	url := fmt.Sprintf("http://localhost:%d", port)

	out := o.ctx.Out
	title := color.New(color.FgCyan, color.Bold)
	if v := o.ctx.Config.Version; v != "" {
		title.Fprintf(out, "🚀 MufiZ Documentation Server v%s\n", v)
	} else {
		title.Fprintln(out, "🚀 MufiZ Documentation Server")
	}
	fmt.Fprintf(out, "📡 Serving at %s\n", url)
	fmt.Fprintf(out, "📁 Directory: %s\n", o.ctx.Config.Root)
	fmt.Fprintf(out, "🌐 Open: %s\n", url)
	if o.ctx.Config.Watch {
		fmt.Fprintf(out, "🔄 Live reload: <script src=\"%s\"></script>\n", domain.LiveReloadScriptPath)
	}
	fmt.Fprintln(out, "⏹️  Press Ctrl+C to stop")
	fmt.Fprintln(out, strings.Repeat("-", 50))
}

// startWatching connects the file watcher to the live-reload hub, running
// the build command in between when one is configured.
func (o *Orchestrator) startWatching(ctx context.Context, hub *api.Hub) error {
	logger := o.ctx.Logger

	w, err := watcher.New(o.ctx.Config.Root, logger)
	if err != nil {
		return err
	}

	reload := func() {
		n := hub.Broadcast("reload")
		logger.Printf("reload sent to %d client(s)", n)
	}

	onChange := func(paths []string) {
		logger.Printf("%d file(s) changed", len(paths))
		reload()
	}

	if cmd := o.ctx.Config.BuildCmd; cmd != "" {
		b := builder.New(cmd, o.ctx.Config.Root, log.New(o.ctx.Out, domain.BuildPrefix, 0))
		done := func(err error) {
			if err != nil {
				logger.Printf("build failed: %v", err)
				return
			}
			reload()
		}
		// A batch fires one debounce after its last event, so output written
		// by a build can still arrive shortly after the build ends.
		settle := 2*w.Debounce + buildSettleGrace
		b.Trigger(ctx, done)
		onChange = func(paths []string) {
			if b.Settling(settle) {
				return
			}
			logger.Printf("%d file(s) changed, rebuilding", len(paths))
			b.Trigger(ctx, done)
		}
	}

	go func() {
		if err := w.Run(ctx, onChange); err != nil {
			logger.Printf("watcher stopped: %v", err)
		}
	}()
	return nil
}
