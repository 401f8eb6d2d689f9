// Package main is the entry point for the library API.
// It wires together configuration, the database connection, the services
// and the HTTP router, and exposes them as the serve, migrate and seed commands.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/services"
)

// appVersion is the current version of the API, shown in logs and the healthcheck.
const appVersion = "1.0.0"

// healthChecker is what the readiness probe needs from the storage layer.
// data.Models satisfies it.
type healthChecker interface {
	Ping(ctx context.Context) error
	BreakerState() gobreaker.State
}

var _ healthChecker = data.Models{}

// applicationDependencies bundles every shared resource that HTTP handlers need.
// A pointer to this struct is passed as the receiver on all handler and route methods.
type applicationDependencies struct {
	config   serverConfig      // Configuration loaded from flags, environment and file
	logger   *slog.Logger      // Structured logger
	services services.Services // Domain services for librarians, readers and loans
	health   healthChecker     // Database reachability for the readiness probe
	metrics  *metrics          // Prometheus collectors served on /metrics
	started  time.Time         // Process start, reported as uptime
}

// newApplication builds the dependencies shared by every handler on top of
// the given models.
func newApplication(cfg serverConfig, logger *slog.Logger, models data.Models) *applicationDependencies {
	return &applicationDependencies{
		config:   cfg,
		logger:   logger,
		services: services.NewFromModels(models, services.WithMinSalary(cfg.minSalary())),
		health:   models,
		metrics:  newMetrics(),
		started:  time.Now(),
	}
}

// main is the application entry point. Command errors are already logged
// by the command that failed.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
