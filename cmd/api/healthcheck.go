// cmd/api/healthcheck.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// check is the outcome of one readiness probe.
type check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthcheckHandler handles GET /v1/healthcheck, the liveness probe. It only
// confirms the process is up and says which build is running.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	env := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": app.config.Env,
			"version":     appVersion,
			"uptime":      time.Since(app.started).Round(time.Second).String(),
		},
	}

	if err := app.writeJSON(w, http.StatusOK, env, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// readinessHandler handles GET /v1/healthcheck/ready. It answers 503 while
// the database cannot be reached or its circuit breaker is open.
func (app *applicationDependencies) readinessHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "available", http.StatusOK
	checks := map[string]check{
		"database": app.checkDatabase(r.Context()),
		"circuit_breaker": {
			Status:  "UP",
			Message: app.health.BreakerState().String(),
		},
	}
	if app.health.BreakerState() == gobreaker.StateOpen {
		checks["circuit_breaker"] = check{Status: "DOWN", Message: gobreaker.StateOpen.String()}
	}

	for _, c := range checks {
		if c.Status != "UP" {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	if err := app.writeJSON(w, code, envelope{"status": status, "checks": checks}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *applicationDependencies) checkDatabase(ctx context.Context) check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := app.health.Ping(ctx); err != nil {
		app.logger.Warn("readiness database ping failed", "error", err.Error())
		return check{Status: "DOWN", Message: "cannot connect to database"}
	}
	return check{Status: "UP"}
}
