// cmd/api/handlers_loans.go
package main

import (
	"fmt"
	"net/http"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// createLoanHandler handles POST /v1/loans. loan_date defaults to today and
// due_date to fourteen days after the loan date.
func (app *applicationDependencies) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var input data.LoanInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan := input.Loan()

	v := validator.New()
	if data.ValidateLoan(v, loan); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	loan, err := app.services.Loans.Create(r.Context(), loan)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/loans/%d", loan.ID))

	if err := app.writeJSON(w, http.StatusCreated, envelope{"loan": loan}, headers); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showLoanHandler handles GET /v1/loans/:id.
func (app *applicationDependencies) showLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.services.Loans.FindByID(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listLoansHandler handles GET /v1/loans.
//
// Filters, first match wins:
//
//	start & end  – loan date within the range, inclusive
//	title        – book title contains, case-insensitive
//	status       – outstanding, returned or overdue
//
// Without filters every loan is returned, paged.
func (app *applicationDependencies) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	start := app.readDate(qs, "start", v)
	end := app.readDate(qs, "end", v)
	v.Check(start != nil || qs.Get("end") == "", "start", "must be provided with end")
	v.Check(end != nil || qs.Get("start") == "", "end", "must be provided with start")
	title := app.readString(qs, "title", "")
	status := app.readString(qs, "status", "")
	if status != "" {
		v.Check(validator.In(status, "outstanding", "returned", "overdue"), "status", "must be outstanding, returned or overdue")
	}
	filters := app.readFilters(qs, data.LoanSortSafeList, v)

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		loans    []*data.Loan
		metadata data.Metadata
		err      error
		ctx      = r.Context()
		svc      = app.services.Loans
	)

	switch {
	case start != nil && end != nil:
		loans, err = svc.FindByDateRange(ctx, *start, *end)
	case title != "":
		loans, err = svc.FindByTitleContains(ctx, title)
	case status == "outstanding":
		loans, err = svc.ListOutstanding(ctx)
	case status == "returned":
		loans, err = svc.ListReturned(ctx)
	case status == "overdue":
		loans, err = svc.ListOverdue(ctx)
	default:
		loans, metadata, err = svc.ListAll(ctx, filters)
	}
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	if metadata == (data.Metadata{}) {
		metadata = data.CalculateMetadata(len(loans), 1, 0)
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"loans": loans, "metadata": metadata}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateLoanHandler handles PUT /v1/loans/:id.
func (app *applicationDependencies) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.LoanInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan := input.Loan()

	v := validator.New()
	if data.ValidateLoan(v, loan); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	loan, err = app.services.Loans.Update(r.Context(), id, loan)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteLoanHandler handles DELETE /v1/loans/:id.
func (app *applicationDependencies) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.services.Loans.Delete(r.Context(), id); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// returnLoanHandler handles PATCH /v1/loans/:id/return. Returning a loan a
// second time is a 400.
func (app *applicationDependencies) returnLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.services.Loans.RecordReturn(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// renewLoanHandler handles PATCH /v1/loans/:id/renew with a body of
// {"days": 7}. days must be between 1 and 30.
func (app *applicationDependencies) renewLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Days *int `json:"days"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Days != nil, "days", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	loan, err := app.services.Loans.Renew(r.Context(), id, *input.Days)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
