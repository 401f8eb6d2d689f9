// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router
// wrapped in the middleware chain.
//
// Middleware chain (outermost → innermost):
//
//	logRequest → recoverPanic → enableCORS → rateLimit → router
//
// logRequest sits outside recoverPanic so requests that panicked are still
// logged and counted, with their 500 status.
//
// Tax id lookups live under /v1/tax-ids because httprouter cannot register a
// static segment where a route already has :id.
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/healthcheck/ready", app.readinessHandler)
	router.Handler(http.MethodGet, "/metrics", app.metrics.handler())

	// Librarians
	router.HandlerFunc(http.MethodGet, "/v1/librarians", app.listLibrariansHandler)
	router.HandlerFunc(http.MethodPost, "/v1/librarians", app.createLibrarianHandler)
	router.HandlerFunc(http.MethodGet, "/v1/librarians/:id", app.showLibrarianHandler)
	router.HandlerFunc(http.MethodPut, "/v1/librarians/:id", app.updateLibrarianHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/librarians/:id", app.deleteLibrarianHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/librarians/:id/activate", app.activateLibrarianHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/librarians/:id/deactivate", app.deactivateLibrarianHandler)

	// Readers
	router.HandlerFunc(http.MethodGet, "/v1/readers", app.listReadersHandler)
	router.HandlerFunc(http.MethodPost, "/v1/readers", app.createReaderHandler)
	router.HandlerFunc(http.MethodGet, "/v1/readers/:id", app.showReaderHandler)
	router.HandlerFunc(http.MethodPut, "/v1/readers/:id", app.updateReaderHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/readers/:id", app.deleteReaderHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/readers/:id/loyalty-tier", app.updateLoyaltyTierHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/readers/:id/credit-limit", app.updateCreditLimitHandler)
	router.HandlerFunc(http.MethodGet, "/v1/readers/:id/loans", app.listReaderLoansHandler)

	// Loans
	router.HandlerFunc(http.MethodGet, "/v1/loans", app.listLoansHandler)
	router.HandlerFunc(http.MethodPost, "/v1/loans", app.createLoanHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/:id", app.showLoanHandler)
	router.HandlerFunc(http.MethodPut, "/v1/loans/:id", app.updateLoanHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/loans/:id", app.deleteLoanHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/loans/:id/return", app.returnLoanHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/loans/:id/renew", app.renewLoanHandler)

	// Lookups by tax id
	router.HandlerFunc(http.MethodGet, "/v1/tax-ids/:taxid/librarian", app.showLibrarianByTaxIDHandler)
	router.HandlerFunc(http.MethodGet, "/v1/tax-ids/:taxid/reader", app.showReaderByTaxIDHandler)

	return app.logRequest(app.recoverPanic(app.enableCORS(app.rateLimit(router))))
}
