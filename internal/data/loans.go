package data

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// DefaultLoanDays is the loan period applied when no due date is given.
const DefaultLoanDays = 14

// Loan records one book lent to one reader. ReaderID is a plain reference:
// the reader is resolved through the reader service, never embedded.
type Loan struct {
	ID               int64  `json:"id" db:"id"`
	ReaderID         int64  `json:"reader_id" db:"reader_id"`
	BookTitle        string `json:"book_title" db:"book_title"`
	Author           string `json:"author,omitempty" db:"author"`
	ISBN             string `json:"isbn,omitempty" db:"isbn"`
	LoanDate         Date   `json:"loan_date" db:"loan_date"`
	DueDate          Date   `json:"due_date" db:"due_date"`
	ActualReturnDate *Date  `json:"actual_return_date,omitempty" db:"actual_return_date"`
	Returned         bool   `json:"returned" db:"returned"`
}

// ApplyDefaults fills a missing loan date with today and a missing due date
// with the loan date plus DefaultLoanDays.
func (l *Loan) ApplyDefaults(today Date) {
	if l.LoanDate.IsZero() {
		l.LoanDate = today
	}
	if l.DueDate.IsZero() {
		l.DueDate = l.LoanDate.AddDays(DefaultLoanDays)
	}
}

// IsOverdue reports whether the book is still out and today is past the
// due date. A loan due today is not overdue.
func (l *Loan) IsOverdue(today Date) bool {
	return !l.Returned && today.After(l.DueDate)
}

// MarkReturned closes the loan on the given day.
func (l *Loan) MarkReturned(today Date) {
	l.Returned = true
	l.ActualReturnDate = today.Ptr()
}

// LoanInput is the request body for creating or replacing a loan.
type LoanInput struct {
	ReaderID         int64  `json:"reader_id"`
	BookTitle        string `json:"book_title"`
	Author           string `json:"author"`
	ISBN             string `json:"isbn"`
	LoanDate         Date   `json:"loan_date"`
	DueDate          Date   `json:"due_date"`
	ActualReturnDate *Date  `json:"actual_return_date"`
	Returned         bool   `json:"returned"`
}

// Loan maps the input onto a record.
func (in LoanInput) Loan() *Loan {
	l := &Loan{
		ReaderID:         in.ReaderID,
		BookTitle:        strings.TrimSpace(in.BookTitle),
		Author:           strings.TrimSpace(in.Author),
		ISBN:             strings.TrimSpace(in.ISBN),
		LoanDate:         in.LoanDate,
		DueDate:          in.DueDate,
		ActualReturnDate: in.ActualReturnDate,
		Returned:         in.Returned,
	}
	if l.ActualReturnDate != nil && l.ActualReturnDate.IsZero() {
		l.ActualReturnDate = nil
	}
	return l
}

// ValidateLoan records shape errors for a loan.
func ValidateLoan(v *validator.Validator, l *Loan) {
	v.Check(l.ReaderID > 0, "reader_id", "must be provided")
	v.Check(validator.NotBlank(l.BookTitle), "book_title", "must be provided")
	v.Check(validator.MaxChars(l.BookTitle, 500), "book_title", "must not be more than 500 characters")
	if l.ISBN != "" {
		v.Check(validator.Matches(l.ISBN, validator.ISBNRX), "isbn", "must be a valid ISBN-10 or ISBN-13")
	}
}

// LoanSortSafeList lists the accepted values of the sort query parameter.
var LoanSortSafeList = []string{"id", "book_title", "loan_date", "due_date", "-id", "-book_title", "-loan_date", "-due_date"}

// LoanFilter selects loans. Zero-valued fields do not constrain.
type LoanFilter struct {
	ReaderID      int64
	Returned      *bool
	TitleContains string // case-insensitive
	LoanedFrom    *Date  // loan_date >= LoanedFrom
	LoanedTo      *Date  // loan_date <= LoanedTo
	DueBefore     *Date  // due_date < DueBefore
}

// Matches evaluates the filter against l in memory.
func (f LoanFilter) Matches(l *Loan) bool {
	switch {
	case f.ReaderID != 0 && l.ReaderID != f.ReaderID:
		return false
	case f.Returned != nil && l.Returned != *f.Returned:
		return false
	case f.TitleContains != "" && !containsFold(l.BookTitle, f.TitleContains):
		return false
	case f.LoanedFrom != nil && l.LoanDate.Before(*f.LoanedFrom):
		return false
	case f.LoanedTo != nil && l.LoanDate.After(*f.LoanedTo):
		return false
	case f.DueBefore != nil && !l.DueDate.Before(*f.DueBefore):
		return false
	}
	return true
}

func (f LoanFilter) conditions() []exp.Expression {
	var conds []exp.Expression
	if f.ReaderID != 0 {
		conds = append(conds, goqu.C("reader_id").Eq(f.ReaderID))
	}
	if f.Returned != nil {
		conds = append(conds, goqu.C("returned").Eq(*f.Returned))
	}
	if f.TitleContains != "" {
		conds = append(conds, likeFold("book_title", f.TitleContains))
	}
	switch {
	case f.LoanedFrom != nil && f.LoanedTo != nil:
		conds = append(conds, goqu.C("loan_date").Between(goqu.Range(f.LoanedFrom.String(), f.LoanedTo.String())))
	case f.LoanedFrom != nil:
		conds = append(conds, goqu.C("loan_date").Gte(f.LoanedFrom.String()))
	case f.LoanedTo != nil:
		conds = append(conds, goqu.C("loan_date").Lte(f.LoanedTo.String()))
	}
	if f.DueBefore != nil {
		conds = append(conds, goqu.C("due_date").Lt(f.DueBefore.String()))
	}
	return conds
}

// LoanModel provides the loan store.
type LoanModel struct {
	q *querier
}

type loanRow struct {
	TotalRecords int `db:"total_records"`
	Loan
}

var loanColumns = []any{
	"id", "reader_id", "book_title", "author", "isbn",
	"loan_date", "due_date", "actual_return_date", "returned",
}

func (m LoanModel) selectQuery() *goqu.SelectDataset {
	return m.q.dialect.From("loans").Select(loanColumns...)
}

func (m LoanModel) record(l *Loan) goqu.Record {
	return goqu.Record{
		"reader_id":          l.ReaderID,
		"book_title":         l.BookTitle,
		"author":             l.Author,
		"isbn":               l.ISBN,
		"loan_date":          dateValue(&l.LoanDate),
		"due_date":           dateValue(&l.DueDate),
		"actual_return_date": dateValue(l.ActualReturnDate),
		"returned":           l.Returned,
	}
}

// Get retrieves a single loan by primary key.
func (m LoanModel) Get(ctx context.Context, id int64) (*Loan, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}
	var l Loan
	if err := m.q.get(ctx, "get loan", &l, m.selectQuery().Where(goqu.C("id").Eq(id))); err != nil {
		return nil, err
	}
	return &l, nil
}

func (m LoanModel) listQuery(filter LoanFilter, page Filters) *goqu.SelectDataset {
	ds := m.selectQuery().SelectAppend(totalRecordsColumn())
	return page.apply(where(ds, filter.conditions()))
}

// List returns the loans matching filter, one page at a time.
func (m LoanModel) List(ctx context.Context, filter LoanFilter, page Filters) ([]*Loan, Metadata, error) {
	var rows []loanRow
	if err := m.q.selectAll(ctx, "list loans", &rows, m.listQuery(filter, page)); err != nil {
		return nil, Metadata{}, err
	}

	totalRecords := 0
	loans := make([]*Loan, 0, len(rows))
	for i := range rows {
		totalRecords = rows[i].TotalRecords
		loans = append(loans, &rows[i].Loan)
	}
	return loans, CalculateMetadata(totalRecords, page.Page, page.PageSize), nil
}

// Save inserts l when it has no id yet, otherwise replaces the stored row.
// A reader_id with no matching reader surfaces as a foreign key ConstraintError.
func (m LoanModel) Save(ctx context.Context, l *Loan) error {
	if l.ID == 0 {
		id, err := m.q.insert(ctx, "insert loan", m.q.dialect.Insert("loans").Rows(m.record(l)))
		if err != nil {
			return err
		}
		l.ID = id
		return nil
	}
	ds := m.q.dialect.Update("loans").Set(m.record(l)).Where(goqu.C("id").Eq(l.ID)).Prepared(true)
	return m.q.exec(ctx, "update loan", ds)
}

// Delete removes the loan with the given id.
func (m LoanModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}
	ds := m.q.dialect.Delete("loans").Where(goqu.C("id").Eq(id)).Prepared(true)
	return m.q.exec(ctx, "delete loan", ds)
}
