package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// NewBreaker returns the circuit breaker used around database calls. Three
// consecutive failures open it; after ten seconds a few trial requests are
// let through. Missing rows, constraint violations and cancelled requests
// are answers from a healthy database and do not count as failures.
func NewBreaker(name string, logger Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
		IsSuccessful: breakerSuccess,
	})
}

func breakerSuccess(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, sql.ErrNoRows),
		errors.Is(err, context.Canceled),
		classifyConstraint(err) != nil:
		return true
	}
	return false
}
