// SPDX-License-Identifier: MIT

// Package daemon owns the process lifecycle: it binds the listener, runs the
// HTTP server next to the background janitor and shuts both down together.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNotListening is returned by Run when Listen was not called first.
var ErrNotListening = errors.New("daemon: listener not bound")

// Config holds server lifecycle settings.
type Config struct {
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	// ShutdownTimeout bounds graceful draining of in-flight requests.
	ShutdownTimeout time.Duration
}

// Task is a background loop that returns when ctx is done.
type Task func(ctx context.Context)

// Shutdowner releases a resource at process exit.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// App runs the HTTP server and background tasks.
type App struct {
	cfg      Config
	handler  http.Handler
	tasks    []Task
	closers  []Shutdowner
	logger   zerolog.Logger
	listener net.Listener
}

// NewApp creates an App. Zero timeouts get defaults. There is no write
// timeout; conversion and download responses are long-lived.
func NewApp(cfg Config, handler http.Handler, logger zerolog.Logger) *App {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	return &App{cfg: cfg, handler: handler, logger: logger}
}

// AddTask registers a background loop started by Run.
func (a *App) AddTask(t Task) { a.tasks = append(a.tasks, t) }

// AddCloser registers a resource shut down after the server stops.
func (a *App) AddCloser(c Shutdowner) { a.closers = append(a.closers, c) }

// Listen binds the listen address.
func (a *App) Listen() error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
	}
	a.listener = ln
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run serves until ctx is cancelled or the server fails, then drains
// in-flight requests and stops every task before returning.
func (a *App) Run(ctx context.Context) error {
	if a.listener == nil {
		return ErrNotListening
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("event", "server.listening").Str("addr", a.Addr()).Msg("HTTP server listening")
		if err := srv.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	for _, task := range a.tasks {
		g.Go(func() error {
			task(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown(srv)
	})

	return g.Wait()
}

func (a *App) shutdown(srv *http.Server) error {
	a.logger.Info().Str("event", "server.shutdown").Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("HTTP server shutdown error")
		errs = append(errs, err)
	}
	for _, c := range a.closers {
		if err := c.Shutdown(ctx); err != nil {
			a.logger.Error().Err(err).Msg("shutdown error")
			errs = append(errs, err)
		}
	}
	a.logger.Info().Msg("daemon stopped")
	return errors.Join(errs...)
}
