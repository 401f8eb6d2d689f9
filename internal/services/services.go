// Package services holds the library's domain rules. Each service validates
// a request, talks to its store and returns either a record or an error
// matching ErrNotFound or ErrInvalidData; store failures pass through as-is.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
)

// DefaultMinSalary is the lowest salary a librarian may be paid.
var DefaultMinSalary = decimal.RequireFromString("1320.00")

// LibrarianStore is the persistence the librarian service needs.
type LibrarianStore interface {
	Get(ctx context.Context, id int64) (*data.Librarian, error)
	GetByTaxID(ctx context.Context, taxID string) (*data.Librarian, error)
	GetByRegistrationNumber(ctx context.Context, number string) (*data.Librarian, error)
	List(ctx context.Context, filter data.LibrarianFilter, page data.Filters) ([]*data.Librarian, data.Metadata, error)
	Save(ctx context.Context, l *data.Librarian) error
	Delete(ctx context.Context, id int64) error
}

// ReaderStore is the persistence the reader service needs.
type ReaderStore interface {
	Get(ctx context.Context, id int64) (*data.Reader, error)
	GetByTaxID(ctx context.Context, taxID string) (*data.Reader, error)
	List(ctx context.Context, filter data.ReaderFilter, page data.Filters) ([]*data.Reader, data.Metadata, error)
	Save(ctx context.Context, r *data.Reader) error
	Delete(ctx context.Context, id int64) error
}

// LoanStore is the persistence the loan service needs.
type LoanStore interface {
	Get(ctx context.Context, id int64) (*data.Loan, error)
	List(ctx context.Context, filter data.LoanFilter, page data.Filters) ([]*data.Loan, data.Metadata, error)
	Save(ctx context.Context, l *data.Loan) error
	Delete(ctx context.Context, id int64) error
}

var (
	_ LibrarianStore = data.LibrarianModel{}
	_ ReaderStore    = data.ReaderModel{}
	_ LoanStore      = data.LoanModel{}
)

type options struct {
	now       func() time.Time
	minSalary decimal.Decimal
}

// Option configures a service.
type Option func(*options)

// WithClock sets the source of "today". Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMinSalary sets the librarian salary floor. Defaults to DefaultMinSalary.
func WithMinSalary(floor decimal.Decimal) Option {
	return func(o *options) { o.minSalary = floor }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, minSalary: DefaultMinSalary}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) today() data.Date {
	return data.DateOf(o.now())
}

// Services bundles the three services, wired to each other.
type Services struct {
	Librarians *LibrarianService
	Readers    *ReaderService
	Loans      *LoanService
}

// New builds every service over the given stores. The loan service resolves
// readers through the reader service.
func New(librarians LibrarianStore, readers ReaderStore, loans LoanStore, opts ...Option) Services {
	readerService := NewReaderService(readers, opts...)
	return Services{
		Librarians: NewLibrarianService(librarians, opts...),
		Readers:    readerService,
		Loans:      NewLoanService(loans, readerService, opts...),
	}
}

// NewFromModels builds the services over the PostgreSQL models.
func NewFromModels(models data.Models, opts ...Option) Services {
	return New(models.Librarians, models.Readers, models.Loans, opts...)
}

// all is the unpaged page used by the query operations.
var all = data.Filters{}
