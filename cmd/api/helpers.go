// cmd/api/helpers.go
// This file contains general-purpose helper functions for the application.
// Error-response helpers live in errors.go; only non-error utilities are here.
package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// json is a drop-in replacement for encoding/json that honours the same
// struct tags and Marshaler/Unmarshaler methods.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the top-level JSON wrapper type used for all API responses.
// Every response body is a JSON object with at least one named key,
// e.g. {"reader": {...}} or {"readers": [...], "metadata": {...}}.
type envelope map[string]any

// readIDParam extracts and validates the ":id" URL parameter added by httprouter.
// Returns an error if the value is missing, non-numeric, or less than 1.
func (app *applicationDependencies) readIDParam(r *http.Request) (int64, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

// readTaxIDParam extracts the ":taxid" URL parameter.
func (app *applicationDependencies) readTaxIDParam(r *http.Request) (string, error) {
	taxID := httprouter.ParamsFromContext(r.Context()).ByName("taxid")
	if !validator.Matches(taxID, validator.TaxIDRX) {
		return "", errors.New("invalid tax id parameter: must contain exactly 11 digits")
	}
	return taxID, nil
}

// readString reads a string query parameter from qs, returning defaultValue
// if the key is absent or empty.
func (app *applicationDependencies) readString(qs url.Values, key, defaultValue string) string {
	s := strings.TrimSpace(qs.Get(key))
	if s == "" {
		return defaultValue
	}
	return s
}

// readInt reads an integer query parameter from qs, returning defaultValue if
// the key is absent. A value that is not an integer is recorded in v.
func (app *applicationDependencies) readInt(qs url.Values, key string, defaultValue int, v *validator.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultValue
	}
	return i
}

// readBool reads an optional boolean query parameter. It returns nil when
// the key is absent.
func (app *applicationDependencies) readBool(qs url.Values, key string, v *validator.Validator) *bool {
	s := qs.Get(key)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		v.AddError(key, "must be true or false")
		return nil
	}
	return &b
}

// readDecimal reads an optional decimal query parameter.
func (app *applicationDependencies) readDecimal(qs url.Values, key string, v *validator.Validator) *decimal.Decimal {
	s := qs.Get(key)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		v.AddError(key, "must be a decimal number")
		return nil
	}
	return &d
}

// readDate reads an optional YYYY-MM-DD query parameter.
func (app *applicationDependencies) readDate(qs url.Values, key string, v *validator.Validator) *data.Date {
	s := qs.Get(key)
	if s == "" {
		return nil
	}
	d, err := data.ParseDate(s)
	if err != nil {
		v.AddError(key, "must be a date in the format YYYY-MM-DD")
		return nil
	}
	return &d
}

// readFilters reads the page, page_size and sort query parameters. Without
// page_size the whole result set is returned.
func (app *applicationDependencies) readFilters(qs url.Values, safelist []string, v *validator.Validator) data.Filters {
	f := data.Filters{
		Page:         app.readInt(qs, "page", 1, v),
		PageSize:     app.readInt(qs, "page_size", 0, v),
		Sort:         app.readString(qs, "sort", "id"),
		SortSafeList: safelist,
	}
	data.ValidateFilters(v, f)
	return f
}

// writeJSON marshals data to indented JSON, applies any custom headers,
// sets Content-Type to "application/json", writes the status code, and
// streams the body to the client.
func (app *applicationDependencies) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// readJSON decodes a single JSON value from the request body into dst.
// It enforces a 1 MB size limit, rejects unknown fields, and ensures the
// body contains exactly one JSON value (no trailing data).
func (app *applicationDependencies) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body must not be empty")
		}
		return err
	}

	rest, err := io.ReadAll(io.MultiReader(dec.Buffered(), r.Body))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}
