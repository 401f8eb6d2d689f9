// cmd/api/handlers_librarians.go
// This file contains the HTTP handlers for the librarians resource.
// Each handler is a method on *applicationDependencies so it has access
// to the logger and the services.
package main

import (
	"fmt"
	"net/http"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// createLibrarianHandler handles POST /v1/librarians.
// It validates the request shape, lets the service apply the domain rules
// (salary floor, unique tax id and registration number) and responds 201
// with the stored librarian and its Location.
func (app *applicationDependencies) createLibrarianHandler(w http.ResponseWriter, r *http.Request) {
	var input data.LibrarianInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateLibrarianInput(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	librarian, err := app.services.Librarians.Create(r.Context(), input.Librarian())
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/librarians/%d", librarian.ID))

	if err := app.writeJSON(w, http.StatusCreated, envelope{"librarian": librarian}, headers); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showLibrarianHandler handles GET /v1/librarians/:id.
func (app *applicationDependencies) showLibrarianHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	librarian, err := app.services.Librarians.FindByID(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"librarian": librarian}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showLibrarianByTaxIDHandler handles GET /v1/tax-ids/:taxid/librarian.
func (app *applicationDependencies) showLibrarianByTaxIDHandler(w http.ResponseWriter, r *http.Request) {
	taxID, err := app.readTaxIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	librarian, err := app.services.Librarians.FindByTaxID(r.Context(), taxID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"librarian": librarian}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listLibrariansHandler handles GET /v1/librarians.
//
// The query parameters select one listing, checked in this order:
//
//	min_salary & max_salary  – salary range, both bounds inclusive
//	name & active            – name contains, with the given status
//	name                     – name contains, case-insensitive
//	active                   – active (true) or inactive (false) librarians
//	(none)                   – every librarian, paged by page/page_size/sort
func (app *applicationDependencies) listLibrariansHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	name := app.readString(qs, "name", "")
	active := app.readBool(qs, "active", v)
	minSalary := app.readDecimal(qs, "min_salary", v)
	maxSalary := app.readDecimal(qs, "max_salary", v)
	v.Check(minSalary != nil || qs.Get("max_salary") == "", "min_salary", "must be provided with max_salary")
	v.Check(maxSalary != nil || qs.Get("min_salary") == "", "max_salary", "must be provided with min_salary")
	filters := app.readFilters(qs, data.LibrarianSortSafeList, v)

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		librarians []*data.Librarian
		metadata   data.Metadata
		err        error
		ctx        = r.Context()
	)

	switch {
	case minSalary != nil && maxSalary != nil:
		librarians, err = app.services.Librarians.FindBySalaryRange(ctx, *minSalary, *maxSalary)
	case name != "" && active != nil:
		librarians, err = app.services.Librarians.FindByNameAndActive(ctx, name, *active)
	case name != "":
		librarians, err = app.services.Librarians.FindByNameContains(ctx, name)
	case active != nil && *active:
		librarians, err = app.services.Librarians.ListActive(ctx)
	case active != nil:
		librarians, err = app.services.Librarians.FindByNameAndActive(ctx, "", false)
	default:
		librarians, metadata, err = app.services.Librarians.ListAll(ctx, filters)
	}
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	if metadata == (data.Metadata{}) {
		metadata = data.CalculateMetadata(len(librarians), 1, 0)
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"librarians": librarians, "metadata": metadata}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateLibrarianHandler handles PUT /v1/librarians/:id.
// Every field is replaced; the id in the URL wins over any id in the body.
func (app *applicationDependencies) updateLibrarianHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.LibrarianInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateLibrarianInput(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	librarian, err := app.services.Librarians.Update(r.Context(), id, input.Librarian())
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"librarian": librarian}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteLibrarianHandler handles DELETE /v1/librarians/:id and answers 204.
func (app *applicationDependencies) deleteLibrarianHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.services.Librarians.Delete(r.Context(), id); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// activateLibrarianHandler handles PATCH /v1/librarians/:id/activate.
func (app *applicationDependencies) activateLibrarianHandler(w http.ResponseWriter, r *http.Request) {
	app.setLibrarianActive(w, r, true)
}

// deactivateLibrarianHandler handles PATCH /v1/librarians/:id/deactivate.
func (app *applicationDependencies) deactivateLibrarianHandler(w http.ResponseWriter, r *http.Request) {
	app.setLibrarianActive(w, r, false)
}

func (app *applicationDependencies) setLibrarianActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	svc := app.services.Librarians
	change := svc.Deactivate
	if active {
		change = svc.Activate
	}

	librarian, err := change(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"librarian": librarian}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
