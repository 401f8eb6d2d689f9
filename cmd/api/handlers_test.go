package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/mocks"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/services"
)

var testNow = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

type fakeHealth struct {
	pingErr error
	state   gobreaker.State
}

func (f *fakeHealth) Ping(context.Context) error     { return f.pingErr }
func (f *fakeHealth) BreakerState() gobreaker.State { return f.state }

func newTestApplication(t *testing.T) (*applicationDependencies, *mocks.Store) {
	t.Helper()

	store := mocks.NewStore()
	app := &applicationDependencies{
		config: serverConfig{
			Env:  "development",
			CORS: corsConfig{TrustedOrigins: []string{"http://localhost:3000"}},
		},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		services: services.New(store.Librarians(), store.Readers(), store.Loans(), services.WithClock(func() time.Time { return testNow })),
		health:   &fakeHealth{state: gobreaker.StateClosed},
		metrics:  newMetrics(),
		started:  testNow,
	}
	return app, store
}

func send(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func object(t *testing.T, rec *httptest.ResponseRecorder, key string) map[string]any {
	t.Helper()

	obj, ok := decodeBody(t, rec)[key].(map[string]any)
	require.True(t, ok, "missing %q in %s", key, rec.Body.String())
	return obj
}

func list(t *testing.T, rec *httptest.ResponseRecorder, key string) []any {
	t.Helper()

	items, ok := decodeBody(t, rec)[key].([]any)
	require.True(t, ok, "missing %q in %s", key, rec.Body.String())
	return items
}

func seedLibrarian(store *mocks.Store, name, taxID, registration, salary string, active bool) data.Librarian {
	return store.Librarians().Seed(data.Librarian{
		Person:             data.Person{Name: name, TaxID: taxID},
		EmployeeCode:       "EMP-" + registration,
		AdmissionDate:      data.NewDate(2020, time.January, 10),
		Active:             active,
		Salary:             decimal.RequireFromString(salary),
		RegistrationNumber: registration,
	})
}

func seedReader(store *mocks.Store, name, taxID string, tier data.LoyaltyTier, credit string, lastReading *data.Date) data.Reader {
	return store.Readers().Seed(data.Reader{
		Person:             data.Person{Name: name, TaxID: taxID},
		RegistrationNumber: "R" + taxID,
		RegistrationDate:   data.NewDate(2023, time.March, 1),
		Active:             true,
		LoyaltyTier:        tier,
		CreditLimit:        decimal.RequireFromString(credit),
		LastReadingDate:    lastReading,
	})
}

func seedLoans(store *mocks.Store, readerID int64) {
	loans := store.Loans()
	loans.Seed(data.Loan{
		ReaderID:  readerID,
		BookTitle: "Dom Casmurro",
		LoanDate:  data.NewDate(2024, time.April, 20),
		DueDate:   data.NewDate(2024, time.May, 4),
	})
	loans.Seed(data.Loan{
		ReaderID:  readerID,
		BookTitle: "O Cortiço",
		LoanDate:  data.NewDate(2024, time.May, 1),
		DueDate:   data.NewDate(2024, time.May, 15),
	})
	loans.Seed(data.Loan{
		ReaderID:         readerID,
		BookTitle:        "Iracema",
		LoanDate:         data.NewDate(2024, time.March, 1),
		DueDate:          data.NewDate(2024, time.March, 15),
		ActualReturnDate: data.NewDate(2024, time.March, 10).Ptr(),
		Returned:         true,
	})
}

const librarianBody = `{
	"name": "Ana Souza",
	"tax_id": "12345678901",
	"email": "ana@example.com",
	"employee_code": "EMP-01",
	"registration_number": "2024",
	"salary": "2500.00",
	"address": {"city": "Recife", "state": "PE"}
}`

func TestCreateLibrarian(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodPost, "/v1/librarians", librarianBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/v1/librarians/1", rec.Header().Get("Location"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	librarian := object(t, rec, "librarian")
	assert.Equal(t, "Ana Souza", librarian["name"])
	assert.Equal(t, true, librarian["active"])
	assert.Equal(t, "2024-05-15", librarian["admission_date"])
	assert.Equal(t, "Recife", librarian["address"].(map[string]any)["city"])

	rec = send(t, app.routes(), http.MethodGet, "/v1/librarians/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345678901", object(t, rec, "librarian")["tax_id"])
}

func TestCreateLibrarianRejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"empty body", "", http.StatusBadRequest, ""},
		{"malformed json", `{"name": `, http.StatusBadRequest, ""},
		{"unknown field", `{"nickname": "Ana"}`, http.StatusBadRequest, ""},
		{"two values", `{"name": "Ana"}{"name": "Bia"}`, http.StatusBadRequest, ""},
		{"missing salary", `{"name": "Ana", "tax_id": "12345678901", "employee_code": "E1", "registration_number": "2024"}`, http.StatusUnprocessableEntity, "salary"},
		{"bad tax id", strings.Replace(librarianBody, "12345678901", "123.456.789-01", 1), http.StatusUnprocessableEntity, "tax_id"},
		{"bad email", strings.Replace(librarianBody, "ana@example.com", "ana-at-example", 1), http.StatusUnprocessableEntity, "email"},
		{"salary below floor", strings.Replace(librarianBody, "2500.00", "1000.00", 1), http.StatusBadRequest, ""},
		{"short registration number", strings.Replace(librarianBody, `"2024"`, `"12"`, 1), http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, store := newTestApplication(t)

			rec := send(t, app.routes(), http.MethodPost, "/v1/librarians", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Empty(t, store.SaveCalls)

			if tt.field != "" {
				errs := object(t, rec, "error")
				assert.Contains(t, errs, tt.field)
			}
		})
	}
}

func TestCreateLibrarianDuplicateTaxID(t *testing.T) {
	app, store := newTestApplication(t)
	seedLibrarian(store, "Bia Lima", "12345678901", "1001", "3000.00", true)

	rec := send(t, app.routes(), http.MethodPost, "/v1/librarians", librarianBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tax id already registered: 12345678901", decodeBody(t, rec)["error"])
}

func TestUpdateLibrarian(t *testing.T) {
	app, store := newTestApplication(t)
	seedLibrarian(store, "Bia Lima", "11111111111", "1001", "3000.00", true)
	other := seedLibrarian(store, "Caio Melo", "22222222222", "1002", "3000.00", true)

	t.Run("replaces fields", func(t *testing.T) {
		body := strings.Replace(librarianBody, "12345678901", "22222222222", 1)
		rec := send(t, app.routes(), http.MethodPut, "/v1/librarians/2", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		librarian := object(t, rec, "librarian")
		assert.EqualValues(t, other.ID, librarian["id"])
		assert.Equal(t, "Ana Souza", librarian["name"])
	})

	t.Run("tax id taken by another librarian", func(t *testing.T) {
		body := strings.Replace(librarianBody, "12345678901", "11111111111", 1)
		rec := send(t, app.routes(), http.MethodPut, "/v1/librarians/2", body)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("missing librarian", func(t *testing.T) {
		rec := send(t, app.routes(), http.MethodPut, "/v1/librarians/99", librarianBody)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestShowLibrarian(t *testing.T) {
	app, store := newTestApplication(t)
	seedLibrarian(store, "Bia Lima", "11111111111", "1001", "3000.00", true)

	tests := []struct {
		target string
		status int
	}{
		{"/v1/librarians/1", http.StatusOK},
		{"/v1/librarians/2", http.StatusNotFound},
		{"/v1/librarians/abc", http.StatusBadRequest},
		{"/v1/librarians/0", http.StatusBadRequest},
		{"/v1/tax-ids/11111111111/librarian", http.StatusOK},
		{"/v1/tax-ids/99999999999/librarian", http.StatusNotFound},
		{"/v1/tax-ids/123/librarian", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := send(t, app.routes(), http.MethodGet, "/v1/librarians/2", "")
	assert.Equal(t, "librarian not found with id: 2", decodeBody(t, rec)["error"])
}

func TestDeleteLibrarian(t *testing.T) {
	app, store := newTestApplication(t)
	seedLibrarian(store, "Bia Lima", "11111111111", "1001", "3000.00", true)

	rec := send(t, app.routes(), http.MethodDelete, "/v1/librarians/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = send(t, app.routes(), http.MethodDelete, "/v1/librarians/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLibrarianActivation(t *testing.T) {
	app, store := newTestApplication(t)
	seedLibrarian(store, "Bia Lima", "11111111111", "1001", "3000.00", true)

	rec := send(t, app.routes(), http.MethodPatch, "/v1/librarians/1/deactivate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, object(t, rec, "librarian")["active"])

	rec = send(t, app.routes(), http.MethodPatch, "/v1/librarians/1/activate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, object(t, rec, "librarian")["active"])

	rec = send(t, app.routes(), http.MethodPatch, "/v1/librarians/7/activate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLibrarians(t *testing.T) {
	app, store := newTestApplication(t)
	seedLibrarian(store, "Ana Souza", "11111111111", "1001", "2000.00", true)
	seedLibrarian(store, "Mariana Lima", "22222222222", "1002", "3500.00", false)
	seedLibrarian(store, "Bruno Costa", "33333333333", "1003", "5000.00", true)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?name=ANA", 2},
		{"?name=ana&active=false", 1},
		{"?active=true", 2},
		{"?active=false", 1},
		{"?min_salary=2000&max_salary=3500", 2},
		{"?min_salary=5000.01&max_salary=9000", 0},
		{"?page=2&page_size=2", 1},
		{"?sort=-salary", 3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodGet, "/v1/librarians"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, list(t, rec, "librarians"), tt.want)
		})
	}

	t.Run("page metadata", func(t *testing.T) {
		rec := send(t, app.routes(), http.MethodGet, "/v1/librarians?page=2&page_size=2", "")
		meta := object(t, rec, "metadata")
		assert.EqualValues(t, 2, meta["current_page"])
		assert.EqualValues(t, 2, meta["last_page"])
		assert.EqualValues(t, 3, meta["total_records"])
	})
}

func TestListLibrariansRejected(t *testing.T) {
	app, _ := newTestApplication(t)

	tests := []struct {
		query  string
		status int
	}{
		{"?min_salary=2000", http.StatusUnprocessableEntity},
		{"?max_salary=2000", http.StatusUnprocessableEntity},
		{"?min_salary=lots&max_salary=2000", http.StatusUnprocessableEntity},
		{"?active=maybe", http.StatusUnprocessableEntity},
		{"?sort=email", http.StatusUnprocessableEntity},
		{"?page=0", http.StatusUnprocessableEntity},
		{"?page_size=101", http.StatusUnprocessableEntity},
		{"?min_salary=4000&max_salary=3000", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodGet, "/v1/librarians"+tt.query, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

const readerBody = `{
	"name": "Carla Dias",
	"tax_id": "44444444444",
	"registration_number": "R-100",
	"loyalty_tier": "GOLD",
	"credit_limit": "500.00"
}`

func TestCreateReader(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodPost, "/v1/readers", readerBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/v1/readers/1", rec.Header().Get("Location"))

	reader := object(t, rec, "reader")
	assert.Equal(t, true, reader["active"])
	assert.Equal(t, "GOLD", reader["loyalty_tier"])
	assert.Equal(t, "2024-05-15", reader["registration_date"])
	assert.NotContains(t, reader, "last_reading_date")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"duplicate tax id", readerBody, http.StatusBadRequest},
		{"missing credit limit", `{"name": "Davi", "tax_id": "55555555555", "registration_number": "R-2", "loyalty_tier": "GOLD"}`, http.StatusUnprocessableEntity},
		{"unknown tier", strings.Replace(strings.Replace(readerBody, "GOLD", "PLATINUM", 1), "44444444444", "55555555555", 1), http.StatusBadRequest},
		{"credit above limit", strings.Replace(strings.Replace(readerBody, "500.00", "10000.01", 1), "44444444444", "55555555555", 1), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodPost, "/v1/readers", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestReaderPatches(t *testing.T) {
	app, store := newTestApplication(t)
	seedReader(store, "Carla Dias", "44444444444", data.TierBronze, "100.00", nil)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"tier", "/v1/readers/1/loyalty-tier", `{"loyalty_tier": "DIAMOND"}`, http.StatusOK},
		{"unknown tier", "/v1/readers/1/loyalty-tier", `{"loyalty_tier": "PLATINUM"}`, http.StatusBadRequest},
		{"tier missing", "/v1/readers/1/loyalty-tier", `{}`, http.StatusUnprocessableEntity},
		{"tier of missing reader", "/v1/readers/9/loyalty-tier", `{"loyalty_tier": "GOLD"}`, http.StatusNotFound},
		{"credit", "/v1/readers/1/credit-limit", `{"credit_limit": "750.50"}`, http.StatusOK},
		{"credit at upper bound", "/v1/readers/1/credit-limit", `{"credit_limit": 10000}`, http.StatusOK},
		{"credit above bound", "/v1/readers/1/credit-limit", `{"credit_limit": "10000.01"}`, http.StatusBadRequest},
		{"negative credit", "/v1/readers/1/credit-limit", `{"credit_limit": "-1"}`, http.StatusBadRequest},
		{"credit missing", "/v1/readers/1/credit-limit", `{}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodPatch, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	reader, err := store.Readers().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, data.TierDiamond, reader.LoyaltyTier)
	assert.True(t, decimal.NewFromInt(10000).Equal(reader.CreditLimit))
}

func TestListReaders(t *testing.T) {
	app, store := newTestApplication(t)
	seedReader(store, "Carla Dias", "44444444444", data.TierGold, "800.00", data.NewDate(2024, time.May, 1).Ptr())
	seedReader(store, "Davi Rocha", "55555555555", data.TierGold, "500.00", data.NewDate(2024, time.April, 1).Ptr())
	seedReader(store, "Elisa Prado", "66666666666", data.TierSilver, "1500.00", nil)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?tier=GOLD", 2},
		{"?tier=gold", 2},
		{"?tier=DIAMOND", 0},
		{"?tier=GOLD&min_credit=500", 1},
		{"?min_credit=800", 2},
		{"?active_since=2024-04-01", 1},
		{"?name=vi", 1},
		{"?page=1&page_size=2&sort=-credit_limit", 2},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodGet, "/v1/readers"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, list(t, rec, "readers"), tt.want)
		})
	}

	for _, query := range []string{"?active_since=yesterday", "?min_credit=abc", "?sort=tax_id"} {
		rec := send(t, app.routes(), http.MethodGet, "/v1/readers"+query, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, query)
	}

	rec := send(t, app.routes(), http.MethodGet, "/v1/tax-ids/55555555555/reader", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Davi Rocha", object(t, rec, "reader")["name"])
}

func TestDeleteReaderRemovesLoans(t *testing.T) {
	app, store := newTestApplication(t)
	reader := seedReader(store, "Carla Dias", "44444444444", data.TierGold, "800.00", nil)
	seedLoans(store, reader.ID)

	rec := send(t, app.routes(), http.MethodDelete, "/v1/readers/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Zero(t, store.Loans().Count())
	rec = send(t, app.routes(), http.MethodGet, "/v1/loans/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateLoan(t *testing.T) {
	app, store := newTestApplication(t)
	seedReader(store, "Carla Dias", "44444444444", data.TierGold, "800.00", nil)

	rec := send(t, app.routes(), http.MethodPost, "/v1/loans", `{"reader_id": 1, "book_title": "Memórias Póstumas"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/v1/loans/1", rec.Header().Get("Location"))

	loan := object(t, rec, "loan")
	assert.Equal(t, "2024-05-15", loan["loan_date"])
	assert.Equal(t, "2024-05-29", loan["due_date"])
	assert.Equal(t, false, loan["returned"])

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown reader", `{"reader_id": 99, "book_title": "Iracema"}`, http.StatusNotFound},
		{"no reader", `{"book_title": "Iracema"}`, http.StatusUnprocessableEntity},
		{"no title", `{"reader_id": 1, "book_title": "  "}`, http.StatusUnprocessableEntity},
		{"bad isbn", `{"reader_id": 1, "book_title": "Iracema", "isbn": "abc"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"reader_id": 1, "book_title": "Iracema", "loan_date": "15/05/2024"}`, http.StatusBadRequest},
		{"due before loan", `{"reader_id": 1, "book_title": "Iracema", "loan_date": "2024-05-10", "due_date": "2024-05-01"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodPost, "/v1/loans", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 1, store.Loans().Count())
}

func TestUpdateAndDeleteLoan(t *testing.T) {
	app, store := newTestApplication(t)
	reader := seedReader(store, "Carla Dias", "44444444444", data.TierGold, "800.00", nil)
	seedLoans(store, reader.ID)

	body := `{"reader_id": 1, "book_title": "Senhora", "loan_date": "2024-05-02", "due_date": "2024-05-20"}`
	rec := send(t, app.routes(), http.MethodPut, "/v1/loans/2", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Senhora", object(t, rec, "loan")["book_title"])

	rec = send(t, app.routes(), http.MethodPut, "/v1/loans/42", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(t, app.routes(), http.MethodDelete, "/v1/loans/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, store.Loans().Count())
}

func TestReturnAndRenewLoan(t *testing.T) {
	app, store := newTestApplication(t)
	reader := seedReader(store, "Carla Dias", "44444444444", data.TierGold, "800.00", nil)
	seedLoans(store, reader.ID)

	rec := send(t, app.routes(), http.MethodPatch, "/v1/loans/2/renew", `{"days": 7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-05-22", object(t, rec, "loan")["due_date"])

	for _, body := range []string{`{"days": 0}`, `{"days": 31}`} {
		rec = send(t, app.routes(), http.MethodPatch, "/v1/loans/2/renew", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	rec = send(t, app.routes(), http.MethodPatch, "/v1/loans/2/renew", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = send(t, app.routes(), http.MethodPatch, "/v1/loans/2/return", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loan := object(t, rec, "loan")
	assert.Equal(t, true, loan["returned"])
	assert.Equal(t, "2024-05-15", loan["actual_return_date"])

	rec = send(t, app.routes(), http.MethodPatch, "/v1/loans/2/return", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "this book has already been returned", decodeBody(t, rec)["error"])

	rec = send(t, app.routes(), http.MethodPatch, "/v1/loans/2/renew", `{"days": 7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLoans(t *testing.T) {
	app, store := newTestApplication(t)
	reader := seedReader(store, "Carla Dias", "44444444444", data.TierGold, "800.00", nil)
	seedLoans(store, reader.ID)

	tests := []struct {
		target string
		key    string
		want   int
	}{
		{"/v1/loans", "loans", 3},
		{"/v1/loans?status=outstanding", "loans", 2},
		{"/v1/loans?status=returned", "loans", 1},
		{"/v1/loans?status=overdue", "loans", 1},
		{"/v1/loans?title=CASM", "loans", 1},
		{"/v1/loans?start=2024-04-20&end=2024-05-01", "loans", 2},
		{"/v1/loans?page_size=2&sort=-loan_date", "loans", 2},
		{"/v1/readers/1/loans", "loans", 3},
		{"/v1/readers/1/loans?returned=false", "loans", 2},
		{"/v1/readers/1/loans?returned=true", "loans", 1},
		{"/v1/readers/2/loans", "loans", 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, list(t, rec, tt.key), tt.want)
		})
	}

	rejected := []struct {
		target string
		status int
	}{
		{"/v1/loans?status=late", http.StatusUnprocessableEntity},
		{"/v1/loans?start=2024-05-01", http.StatusUnprocessableEntity},
		{"/v1/loans?start=2024-05-02&end=2024-05-01", http.StatusBadRequest},
		{"/v1/readers/1/loans?returned=perhaps", http.StatusUnprocessableEntity},
	}

	for _, tt := range rejected {
		t.Run(tt.target, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestStoreFailures(t *testing.T) {
	t.Run("open circuit", func(t *testing.T) {
		app, store := newTestApplication(t)
		store.GetError = gobreaker.ErrOpenState

		rec := send(t, app.routes(), http.MethodGet, "/v1/librarians/1", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	})

	t.Run("unexpected error", func(t *testing.T) {
		app, store := newTestApplication(t)
		store.ListError = errors.New("connection reset by peer")

		rec := send(t, app.routes(), http.MethodGet, "/v1/readers", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}

func TestHealthcheck(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodGet, "/v1/healthcheck", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "available", body["status"])
	info := body["system_info"].(map[string]any)
	assert.Equal(t, "development", info["environment"])
	assert.Equal(t, appVersion, info["version"])
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		health *fakeHealth
		status int
	}{
		{"ready", &fakeHealth{state: gobreaker.StateClosed}, http.StatusOK},
		{"half open", &fakeHealth{state: gobreaker.StateHalfOpen}, http.StatusOK},
		{"database down", &fakeHealth{pingErr: errors.New("dial tcp: refused"), state: gobreaker.StateClosed}, http.StatusServiceUnavailable},
		{"circuit open", &fakeHealth{state: gobreaker.StateOpen}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApplication(t)
			app.health = tt.health

			rec := send(t, app.routes(), http.MethodGet, "/v1/healthcheck/ready", "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, decodeBody(t, rec)["checks"], "database")
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApplication(t)
	routes := app.routes()

	send(t, routes, http.MethodGet, "/v1/healthcheck", "")

	rec := send(t, routes, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `library_http_requests_total{code="200",method="GET"} 1`)
	assert.Contains(t, rec.Body.String(), "library_http_request_duration_seconds")
}

func TestRequestID(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodGet, "/v1/healthcheck", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	app, _ := newTestApplication(t)

	t.Run("trusted preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/librarians", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		rec := httptest.NewRecorder()
		app.routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	})

	t.Run("untrusted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		rec := httptest.NewRecorder()
		app.routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRouterErrors(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodPost, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "the POST method is not supported for this resource", decodeBody(t, rec)["error"])

	rec = send(t, app.routes(), http.MethodGet, "/v1/books", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverPanic(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := send(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}

func TestRateLimit(t *testing.T) {
	app, _ := newTestApplication(t)
	app.config.Limiter = limiterConfig{Enabled: true, RPS: 1, Burst: 1}
	routes := app.routes()

	rec := send(t, routes, http.MethodGet, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, routes, http.MethodGet, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestResponsesAreIndentedJSON(t *testing.T) {
	app, _ := newTestApplication(t)

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{http.MethodGet, "/v1/healthcheck", "", http.StatusOK},
		{http.MethodGet, "/v1/nowhere", "", http.StatusNotFound},
		{http.MethodDelete, "/v1/healthcheck", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/librarians", `{"name": ""}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := send(t, app.routes(), tt.method, tt.target, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.True(t, strings.HasPrefix(rec.Body.String(), "{\n  \""), rec.Body.String())
			decodeBody(t, rec)
		})
	}
}

func TestCreateLibrarianPaddedRegistrationNumber(t *testing.T) {
	app, store := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodPost, "/v1/librarians", strings.Replace(librarianBody, `"2024"`, `"1234"`, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := strings.NewReplacer(`"2024"`, `" 1234 "`, "12345678901", "10987654321", "EMP-01", "EMP-02", "ana@example.com", "bia@example.com").Replace(librarianBody)
	rec = send(t, app.routes(), http.MethodPost, "/v1/librarians", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "registration number already registered: 1234", decodeBody(t, rec)["error"])

	stored, err := store.Librarians().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "1234", stored.RegistrationNumber)
}

func TestRequestBodyMustHoldOneValue(t *testing.T) {
	app, store := newTestApplication(t)
	reader := seedReader(store, "Carla Dias", "44444444444", data.TierGold, "800.00", nil)
	seedLoans(store, reader.ID)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"trailing brace", `{"days": 7}}`, http.StatusBadRequest},
		{"trailing bracket", `{"days": 7}]`, http.StatusBadRequest},
		{"second object", `{"days": 7} {"days": 2}`, http.StatusBadRequest},
		{"trailing whitespace", "{\"days\": 7}\n\t ", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, app.routes(), http.MethodPatch, "/v1/loans/2/renew", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestInFlightGaugeSurvivesPanics(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.logRequest(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	assert.Panics(t, func() { send(t, h, http.MethodGet, "/", "") })

	rec := send(t, app.metrics.handler(), http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), "library_http_requests_in_flight 0")
}
