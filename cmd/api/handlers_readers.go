// cmd/api/handlers_readers.go
package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// createReaderHandler handles POST /v1/readers.
func (app *applicationDependencies) createReaderHandler(w http.ResponseWriter, r *http.Request) {
	var input data.ReaderInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateReaderInput(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	reader, err := app.services.Readers.Create(r.Context(), input.Reader())
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/readers/%d", reader.ID))

	if err := app.writeJSON(w, http.StatusCreated, envelope{"reader": reader}, headers); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showReaderHandler handles GET /v1/readers/:id.
func (app *applicationDependencies) showReaderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reader, err := app.services.Readers.FindByID(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"reader": reader}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showReaderByTaxIDHandler handles GET /v1/tax-ids/:taxid/reader.
func (app *applicationDependencies) showReaderByTaxIDHandler(w http.ResponseWriter, r *http.Request) {
	taxID, err := app.readTaxIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reader, err := app.services.Readers.FindByTaxID(r.Context(), taxID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"reader": reader}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listReadersHandler handles GET /v1/readers.
//
// Recognised filters, first match wins:
//
//	tier & min_credit  – readers of the tier with credit strictly above min_credit
//	tier               – readers of the tier
//	min_credit         – readers with credit of at least min_credit
//	active_since       – readers whose last reading is after the date
//	name               – name contains, case-insensitive
//
// Without filters every reader is returned, paged.
func (app *applicationDependencies) listReadersHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	tier := data.LoyaltyTier(strings.ToUpper(app.readString(qs, "tier", "")))
	minCredit := app.readDecimal(qs, "min_credit", v)
	activeSince := app.readDate(qs, "active_since", v)
	name := app.readString(qs, "name", "")
	filters := app.readFilters(qs, data.ReaderSortSafeList, v)

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		readers  []*data.Reader
		metadata data.Metadata
		err      error
		ctx      = r.Context()
		svc      = app.services.Readers
	)

	switch {
	case tier != "" && minCredit != nil:
		readers, err = svc.FindByLoyaltyTierAndMinCredit(ctx, tier, *minCredit)
	case tier != "":
		readers, err = svc.FindByLoyaltyTier(ctx, tier)
	case minCredit != nil:
		readers, err = svc.FindByMinCreditLimit(ctx, *minCredit)
	case activeSince != nil:
		readers, err = svc.FindReadersActiveSince(ctx, *activeSince)
	case name != "":
		readers, err = svc.FindByNameContains(ctx, name)
	default:
		readers, metadata, err = svc.ListAll(ctx, filters)
	}
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	if metadata == (data.Metadata{}) {
		metadata = data.CalculateMetadata(len(readers), 1, 0)
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"readers": readers, "metadata": metadata}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateReaderHandler handles PUT /v1/readers/:id.
func (app *applicationDependencies) updateReaderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.ReaderInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateReaderInput(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	reader, err := app.services.Readers.Update(r.Context(), id, input.Reader())
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"reader": reader}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteReaderHandler handles DELETE /v1/readers/:id. The reader's loans go
// with it.
func (app *applicationDependencies) deleteReaderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.services.Readers.Delete(r.Context(), id); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// updateLoyaltyTierHandler handles PATCH /v1/readers/:id/loyalty-tier with a
// body of {"loyalty_tier": "GOLD"}.
func (app *applicationDependencies) updateLoyaltyTierHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		LoyaltyTier data.LoyaltyTier `json:"loyalty_tier"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.LoyaltyTier != "", "loyalty_tier", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	reader, err := app.services.Readers.UpdateLoyaltyTier(r.Context(), id, input.LoyaltyTier)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"reader": reader}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateCreditLimitHandler handles PATCH /v1/readers/:id/credit-limit with a
// body of {"credit_limit": "500.00"}.
func (app *applicationDependencies) updateCreditLimitHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		CreditLimit *decimal.Decimal `json:"credit_limit"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.CreditLimit != nil, "credit_limit", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	reader, err := app.services.Readers.UpdateCreditLimit(r.Context(), id, *input.CreditLimit)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"reader": reader}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listReaderLoansHandler handles GET /v1/readers/:id/loans. An optional
// returned=true|false narrows the list by status.
func (app *applicationDependencies) listReaderLoansHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	returned := app.readBool(r.URL.Query(), "returned", v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var loans []*data.Loan
	if returned != nil {
		loans, err = app.services.Loans.FindByReaderAndStatus(r.Context(), id, *returned)
	} else {
		loans, err = app.services.Loans.FindByReader(r.Context(), id)
	}
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"loans": loans}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
