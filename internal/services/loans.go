package services

import (
	"context"
	"strings"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
)

// Renewal bounds, in days.
const (
	MinRenewalDays = 1
	MaxRenewalDays = 30
)

// ReaderResolver looks readers up by id. *ReaderService satisfies it.
type ReaderResolver interface {
	FindByID(ctx context.Context, id int64) (*data.Reader, error)
}

var _ ReaderResolver = (*ReaderService)(nil)

// LoanService manages the books lent to readers.
type LoanService struct {
	store   LoanStore
	readers ReaderResolver
	opts    options
}

// NewLoanService returns a LoanService backed by store that checks readers
// exist through readers.
func NewLoanService(store LoanStore, readers ReaderResolver, opts ...Option) *LoanService {
	return &LoanService{store: store, readers: readers, opts: newOptions(opts)}
}

// Create records a new loan. Missing dates default to today and today plus
// data.DefaultLoanDays; the reader must exist.
func (s *LoanService) Create(ctx context.Context, l *data.Loan) (*data.Loan, error) {
	l.ApplyDefaults(s.opts.today())
	if err := validateLoan(l); err != nil {
		return nil, err
	}
	if _, err := s.readers.FindByID(ctx, l.ReaderID); err != nil {
		return nil, err
	}

	l.ID = 0
	if err := s.store.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Update replaces every field of loan id with l.
func (s *LoanService) Update(ctx context.Context, id int64, l *data.Loan) (*data.Loan, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}

	l.ApplyDefaults(s.opts.today())
	if err := validateLoan(l); err != nil {
		return nil, err
	}
	if _, err := s.readers.FindByID(ctx, l.ReaderID); err != nil {
		return nil, err
	}

	l.ID = id
	if err := s.store.Save(ctx, l); err != nil {
		return nil, lookup(err, "loan", "id", id)
	}
	return l, nil
}

// FindByID returns loan id.
func (s *LoanService) FindByID(ctx context.Context, id int64) (*data.Loan, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, lookup(err, "loan", "id", id)
	}
	return l, nil
}

// ListAll returns one page of every loan.
func (s *LoanService) ListAll(ctx context.Context, page data.Filters) ([]*data.Loan, data.Metadata, error) {
	return s.store.List(ctx, data.LoanFilter{}, page)
}

// Delete removes loan id.
func (s *LoanService) Delete(ctx context.Context, id int64) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return lookup(s.store.Delete(ctx, id), "loan", "id", id)
}

// RecordReturn closes loan id today. A loan can only be returned once.
func (s *LoanService) RecordReturn(ctx context.Context, id int64) (*data.Loan, error) {
	l, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Returned {
		return nil, invalid("returned", "this book has already been returned")
	}

	l.MarkReturned(s.opts.today())
	if err := s.store.Save(ctx, l); err != nil {
		return nil, lookup(err, "loan", "id", id)
	}
	return l, nil
}

// Renew pushes the due date of loan id back by days.
func (s *LoanService) Renew(ctx context.Context, id int64, days int) (*data.Loan, error) {
	l, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Returned {
		return nil, invalid("returned", "cannot renew a loan that has already been returned")
	}
	if days < MinRenewalDays || days > MaxRenewalDays {
		return nil, invalid("days", "renewal days must be between 1 and 30")
	}

	l.DueDate = l.DueDate.AddDays(days)
	if err := s.store.Save(ctx, l); err != nil {
		return nil, lookup(err, "loan", "id", id)
	}
	return l, nil
}

// FindByReader returns every loan of reader readerID.
func (s *LoanService) FindByReader(ctx context.Context, readerID int64) ([]*data.Loan, error) {
	return s.find(ctx, data.LoanFilter{ReaderID: readerID})
}

// ListOutstanding returns loans not yet returned.
func (s *LoanService) ListOutstanding(ctx context.Context) ([]*data.Loan, error) {
	returned := false
	return s.find(ctx, data.LoanFilter{Returned: &returned})
}

// ListReturned returns loans already returned.
func (s *LoanService) ListReturned(ctx context.Context) ([]*data.Loan, error) {
	returned := true
	return s.find(ctx, data.LoanFilter{Returned: &returned})
}

// FindByTitleContains returns loans whose book title contains title, ignoring case.
func (s *LoanService) FindByTitleContains(ctx context.Context, title string) ([]*data.Loan, error) {
	return s.find(ctx, data.LoanFilter{TitleContains: title})
}

// FindByDateRange returns loans taken out between start and end inclusive.
func (s *LoanService) FindByDateRange(ctx context.Context, start, end data.Date) ([]*data.Loan, error) {
	if start.After(end) {
		return nil, invalid("start", "start date cannot be after end date")
	}
	return s.find(ctx, data.LoanFilter{LoanedFrom: &start, LoanedTo: &end})
}

// ListOverdue returns outstanding loans whose due date has passed.
func (s *LoanService) ListOverdue(ctx context.Context) ([]*data.Loan, error) {
	returned := false
	today := s.opts.today()
	return s.find(ctx, data.LoanFilter{Returned: &returned, DueBefore: &today})
}

// FindByReaderAndStatus returns the loans of readerID with the given
// returned flag.
func (s *LoanService) FindByReaderAndStatus(ctx context.Context, readerID int64, returned bool) ([]*data.Loan, error) {
	return s.find(ctx, data.LoanFilter{ReaderID: readerID, Returned: &returned})
}

func (s *LoanService) find(ctx context.Context, filter data.LoanFilter) ([]*data.Loan, error) {
	loans, _, err := s.store.List(ctx, filter, all)
	return loans, err
}

func validateLoan(l *data.Loan) error {
	switch {
	case strings.TrimSpace(l.BookTitle) == "":
		return invalid("book_title", "book title is required")
	case l.LoanDate.IsZero():
		return invalid("loan_date", "loan date is required")
	case l.DueDate.IsZero():
		return invalid("due_date", "due date is required")
	case l.DueDate.Before(l.LoanDate):
		return invalid("due_date", "due date cannot be before loan date")
	case l.ReaderID <= 0:
		return invalid("reader_id", "reader is required")
	}
	return nil
}
