package data

import (
	"strings"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// Address is the postal address shared by librarians and readers. Every
// field is optional.
type Address struct {
	PostalCode string `json:"postal_code,omitempty" db:"postal_code"`
	Street     string `json:"street,omitempty" db:"street"`
	Complement string `json:"complement,omitempty" db:"complement"`
	Number     string `json:"number,omitempty" db:"number"`
	District   string `json:"district,omitempty" db:"district"`
	City       string `json:"city,omitempty" db:"city"`
	State      string `json:"state,omitempty" db:"state"`
}

// Person carries the identity and contact fields common to librarians and
// readers. It is embedded by value and never stored on its own; sqlx
// flattens the embedded Address into the owning table's columns.
type Person struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	TaxID   string `json:"tax_id" db:"tax_id"`
	Email   string `json:"email,omitempty" db:"email"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Address `json:"address"`
}

// Normalize trims surrounding whitespace from the identity fields.
func (p *Person) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.TaxID = strings.TrimSpace(p.TaxID)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
}

// ValidatePerson records shape errors for the fields every person carries.
func ValidatePerson(v *validator.Validator, p Person) {
	v.Check(validator.NotBlank(p.Name), "name", "must be provided")
	v.Check(validator.MaxChars(p.Name, 200), "name", "must not be more than 200 characters")

	v.Check(p.TaxID != "", "tax_id", "must be provided")
	v.Check(validator.Matches(p.TaxID, validator.TaxIDRX), "tax_id", "must contain exactly 11 digits")

	if p.Email != "" {
		v.Check(validator.Matches(p.Email, validator.EmailRX), "email", "must be a valid email address")
	}
	if p.Phone != "" {
		v.Check(validator.Matches(p.Phone, validator.PhoneRX), "phone", "must contain 10 or 11 digits")
	}
	if p.State != "" {
		v.Check(len(p.State) == 2, "address.state", "must be a two-letter state code")
	}
}
