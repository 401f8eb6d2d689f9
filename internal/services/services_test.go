package services_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/mocks"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/services"
)

var fixedNow = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

func today() data.Date { return data.DateOf(fixedNow) }

func clock() time.Time { return fixedNow }

func newTestServices() (services.Services, *mocks.Store) {
	store := mocks.NewStore()
	svc := services.New(store.Librarians(), store.Readers(), store.Loans(), services.WithClock(clock))
	return svc, store
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLibrarian(name, taxID, registration string) *data.Librarian {
	return &data.Librarian{
		Person:             data.Person{Name: name, TaxID: taxID},
		EmployeeCode:       "EMP-" + registration,
		Active:             true,
		Salary:             money("2500.00"),
		RegistrationNumber: registration,
	}
}

func newReader(name, taxID string, tier data.LoyaltyTier, credit string) *data.Reader {
	return &data.Reader{
		Person:             data.Person{Name: name, TaxID: taxID},
		RegistrationNumber: "R" + taxID,
		Active:             true,
		LoyaltyTier:        tier,
		CreditLimit:        money(credit),
	}
}
