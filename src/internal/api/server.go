package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Mufi-Lang/mufi-lang.org/src/internal/domain"
)

const shutdownTimeout = 5 * time.Second

type Api struct {
	ctx *domain.Context
	hub *Hub
}

func Create(ctx *domain.Context) *Api {
	a := &Api{
		ctx: ctx,
	}
	if ctx.Config.Watch {
		a.hub = NewHub(ctx.Logger)
	}
	return a
}

// Hub returns the live-reload hub, or nil when watching is disabled.
func (a *Api) Hub() *Hub {
	return a.hub
}

// Handler assembles the full request pipeline: access log, header
// injection, then either the live-reload endpoints or the file server.
func (a *Api) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", staticFiles(a.ctx.Config.Root))

	if a.hub != nil {
		mux.Handle(domain.LiveReloadPath, a.hub)
		mux.Handle(domain.LiveReloadScriptPath, liveReloadScript())
	}

	return accessLog(a.ctx.Logger, withHeaders(mux))
}

// Listen binds the configured address so that bind errors surface before
// the banner is printed.
func (a *Api) Listen() (net.Listener, error) {
	addr := a.ctx.Config.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve blocks until ctx is cancelled or the listener fails. Cancellation
// triggers a graceful shutdown and is not reported as an error.
func (a *Api) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          a.ctx.Logger,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	if a.hub != nil {
		a.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
