// cmd/api/server.go
// This file contains the serve() method which starts the HTTP server and
// handles graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// shutdownTimeout is how long in-flight requests get to finish once a
// shutdown starts.
const shutdownTimeout = 20 * time.Second

// serve runs the HTTP server until ctx is cancelled or the process receives
// SIGINT or SIGTERM, then shuts it down gracefully.
func (app *applicationDependencies) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "address", srv.Addr, "environment", app.config.Env, "version", appVersion)
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down server", "address", srv.Addr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-listenErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	app.logger.Info("server stopped", "address", srv.Addr)
	return nil
}
