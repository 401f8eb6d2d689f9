package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// LibrarianService manages library staff records.
type LibrarianService struct {
	store LibrarianStore
	opts  options
}

// NewLibrarianService returns a LibrarianService backed by store.
func NewLibrarianService(store LibrarianStore, opts ...Option) *LibrarianService {
	return &LibrarianService{store: store, opts: newOptions(opts)}
}

// Create registers a new librarian. Tax id and registration number must not
// belong to another librarian.
func (s *LibrarianService) Create(ctx context.Context, l *data.Librarian) (*data.Librarian, error) {
	s.applyDefaults(l)
	if err := s.validate(l); err != nil {
		return nil, err
	}

	switch _, err := s.store.GetByTaxID(ctx, l.TaxID); {
	case err == nil:
		return nil, duplicate("tax_id", "tax id", l.TaxID)
	case !errors.Is(err, data.ErrRecordNotFound):
		return nil, err
	}
	switch _, err := s.store.GetByRegistrationNumber(ctx, l.RegistrationNumber); {
	case err == nil:
		return nil, duplicate("registration_number", "registration number", l.RegistrationNumber)
	case !errors.Is(err, data.ErrRecordNotFound):
		return nil, err
	}

	l.ID = 0
	if err := s.store.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Update replaces every field of librarian id with l. Uniqueness is left to
// the store, which reports collisions as a constraint error.
func (s *LibrarianService) Update(ctx context.Context, id int64, l *data.Librarian) (*data.Librarian, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}

	s.applyDefaults(l)
	if err := s.validate(l); err != nil {
		return nil, err
	}

	l.ID = id
	if err := s.store.Save(ctx, l); err != nil {
		return nil, lookup(err, "librarian", "id", id)
	}
	return l, nil
}

// FindByID returns librarian id.
func (s *LibrarianService) FindByID(ctx context.Context, id int64) (*data.Librarian, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, lookup(err, "librarian", "id", id)
	}
	return l, nil
}

// ListAll returns one page of every librarian.
func (s *LibrarianService) ListAll(ctx context.Context, page data.Filters) ([]*data.Librarian, data.Metadata, error) {
	return s.store.List(ctx, data.LibrarianFilter{}, page)
}

// Delete removes librarian id.
func (s *LibrarianService) Delete(ctx context.Context, id int64) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return lookup(s.store.Delete(ctx, id), "librarian", "id", id)
}

// Deactivate marks librarian id inactive.
func (s *LibrarianService) Deactivate(ctx context.Context, id int64) (*data.Librarian, error) {
	return s.setActive(ctx, id, false)
}

// Activate marks librarian id active.
func (s *LibrarianService) Activate(ctx context.Context, id int64) (*data.Librarian, error) {
	return s.setActive(ctx, id, true)
}

func (s *LibrarianService) setActive(ctx context.Context, id int64, active bool) (*data.Librarian, error) {
	l, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Active = active
	if err := s.store.Save(ctx, l); err != nil {
		return nil, lookup(err, "librarian", "id", id)
	}
	return l, nil
}

// FindByTaxID returns the librarian holding taxID.
func (s *LibrarianService) FindByTaxID(ctx context.Context, taxID string) (*data.Librarian, error) {
	l, err := s.store.GetByTaxID(ctx, taxID)
	if err != nil {
		return nil, lookup(err, "librarian", "tax id", taxID)
	}
	return l, nil
}

// ListActive returns the librarians currently active.
func (s *LibrarianService) ListActive(ctx context.Context) ([]*data.Librarian, error) {
	active := true
	return s.find(ctx, data.LibrarianFilter{Active: &active})
}

// FindByNameContains returns librarians whose name contains name, ignoring case.
func (s *LibrarianService) FindByNameContains(ctx context.Context, name string) ([]*data.Librarian, error) {
	return s.find(ctx, data.LibrarianFilter{NameContains: name})
}

// FindBySalaryRange returns librarians paid between lo and hi inclusive.
func (s *LibrarianService) FindBySalaryRange(ctx context.Context, lo, hi decimal.Decimal) ([]*data.Librarian, error) {
	if lo.GreaterThan(hi) {
		return nil, invalid("salary", "minimum salary cannot be greater than maximum salary")
	}
	return s.find(ctx, data.LibrarianFilter{MinSalary: &lo, MaxSalary: &hi})
}

// FindByNameAndActive combines the name search with an active flag.
func (s *LibrarianService) FindByNameAndActive(ctx context.Context, name string, active bool) ([]*data.Librarian, error) {
	return s.find(ctx, data.LibrarianFilter{NameContains: name, Active: &active})
}

func (s *LibrarianService) find(ctx context.Context, filter data.LibrarianFilter) ([]*data.Librarian, error) {
	librarians, _, err := s.store.List(ctx, filter, all)
	return librarians, err
}

func (s *LibrarianService) applyDefaults(l *data.Librarian) {
	if l.AdmissionDate.IsZero() {
		l.AdmissionDate = s.opts.today()
	}
}

func (s *LibrarianService) validate(l *data.Librarian) error {
	if strings.TrimSpace(l.Name) == "" {
		return invalid("name", "name is required")
	}
	l.RegistrationNumber = strings.TrimSpace(l.RegistrationNumber)
	if l.RegistrationNumber == "" {
		return invalid("registration_number", "registration number is required")
	}
	if !validator.Matches(l.RegistrationNumber, validator.RegistrationNumberRX) {
		return invalid("registration_number", "registration number must contain at least 4 digits")
	}
	if l.Salary.LessThan(s.opts.minSalary) {
		return invalid("salary", fmt.Sprintf("salary cannot be below the minimum wage (%s)", s.opts.minSalary.StringFixed(2)))
	}
	return nil
}
