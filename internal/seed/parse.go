package seed

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
)

func parseLibrarian(f []string) (*data.Librarian, error) {
	salary, err := decimal.NewFromString(f[14])
	if err != nil {
		return nil, fmt.Errorf("invalid salary %q", f[14])
	}

	l := &data.Librarian{
		Person: data.Person{
			Name:    f[0],
			Email:   f[1],
			TaxID:   f[2],
			Phone:   f[3],
			Address: address(f[6:13]),
		},
		RegistrationNumber: f[4],
		EmployeeCode:       f[5],
		Salary:             salary,
		Active:             parseBool(f[15]),
	}
	if len(f) > 16 {
		l.Shift = f[16]
	}
	return l, nil
}

func parseReader(f []string) (*data.Reader, error) {
	credit, err := decimal.NewFromString(f[6])
	if err != nil {
		return nil, fmt.Errorf("invalid credit limit %q", f[6])
	}
	lastReading, err := optionalDate(f[7])
	if err != nil {
		return nil, err
	}

	return &data.Reader{
		Person: data.Person{
			Name:    f[0],
			Email:   f[1],
			TaxID:   f[2],
			Phone:   f[3],
			Address: address(f[8:15]),
		},
		RegistrationNumber: f[4],
		LoyaltyTier:        data.LoyaltyTier(f[5]),
		CreditLimit:        credit,
		LastReadingDate:    lastReading,
		Active:             true,
	}, nil
}

func parseLoan(readerID int64, f []string) (*data.Loan, error) {
	loanDate, err := data.ParseDate(f[4])
	if err != nil {
		return nil, err
	}
	dueDate, err := data.ParseDate(f[5])
	if err != nil {
		return nil, err
	}
	returnDate, err := optionalDate(f[6])
	if err != nil {
		return nil, err
	}

	return &data.Loan{
		ReaderID:         readerID,
		BookTitle:        f[1],
		Author:           f[2],
		ISBN:             f[3],
		LoanDate:         loanDate,
		DueDate:          dueDate,
		ActualReturnDate: returnDate,
		Returned:         parseBool(f[7]),
	}, nil
}

// address maps postal_code;street;complement;number;district;city;state.
func address(f []string) data.Address {
	return data.Address{
		PostalCode: f[0],
		Street:     f[1],
		Complement: f[2],
		Number:     f[3],
		District:   f[4],
		City:       f[5],
		State:      f[6],
	}
}

// optionalDate treats an empty field or the literal null as no date.
func optionalDate(s string) (*data.Date, error) {
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	d, err := data.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseBool is true only for a case-insensitive "true"; anything else is false.
func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
