// cmd/api/errors.go
// This file contains all error-response helpers for the application.
// It is the only place where service and store errors become HTTP statuses.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/services"
)

// logError logs an internal error at ERROR level with the request method and URL for context.
func (app *applicationDependencies) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
		slog.String("request_id", requestID(r.Context())),
	)
}

// errorResponse sends a JSON error envelope with the given status code and message.
// It is the low-level building block used by all the specific error helpers below.
func (app *applicationDependencies) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{"error": message}
	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs a 500-level error and sends a generic message to the client.
// Internal error details are never exposed.
func (app *applicationDependencies) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

// notFoundResponse sends a 404 Not Found error.
func (app *applicationDependencies) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

// methodNotAllowedResponse sends a 405 Method Not Allowed error.
func (app *applicationDependencies) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not supported for this resource", r.Method)
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// badRequestResponse sends a 400 Bad Request error with the error message from the caller.
func (app *applicationDependencies) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends a 422 Unprocessable Entity response containing
// the field-level validation errors collected by a Validator.
func (app *applicationDependencies) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

// conflictResponse sends a 409 Conflict for a write the database refused.
// The message names the kind of rule broken, never the row involved.
func (app *applicationDependencies) conflictResponse(w http.ResponseWriter, r *http.Request, cerr *data.ConstraintError) {
	var message string
	switch cerr.Kind {
	case data.ConstraintUnique:
		message = "a record with these unique values (tax id, registration number, email, etc) already exists"
	case data.ConstraintForeignKey:
		message = "the operation is not possible because of related records"
	case data.ConstraintNotNull:
		message = "required fields were not filled in"
	default:
		message = "data integrity violation"
	}
	app.logger.Warn("constraint violation", "constraint", cerr.Constraint, "kind", cerr.Kind.String(), "request_id", requestID(r.Context()))
	app.errorResponse(w, r, http.StatusConflict, message)
}

// serviceUnavailableResponse sends a 503 while the database circuit is open.
func (app *applicationDependencies) serviceUnavailableResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "10")
	app.errorResponse(w, r, http.StatusServiceUnavailable, "the service is temporarily unavailable, please try again later")
}

// rateLimitExceededResponse sends a 429 Too Many Requests error.
func (app *applicationDependencies) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// serviceErrorResponse maps an error returned by a service onto a response.
func (app *applicationDependencies) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *data.ConstraintError

	switch {
	case errors.Is(err, services.ErrNotFound):
		app.errorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidData):
		app.errorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &cerr):
		app.conflictResponse(w, r, cerr)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		app.serviceUnavailableResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
