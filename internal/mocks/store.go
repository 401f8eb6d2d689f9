// Package mocks provides in-memory implementations of the service store
// interfaces for testing. The three stores share one Store so deleting a
// reader cascades to its loans, as the database does.
package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/services"
)

// Store is the in-memory database behind the three mock stores.
type Store struct {
	mu sync.RWMutex

	librarians map[int64]data.Librarian
	readers    map[int64]data.Reader
	loans      map[int64]data.Loan
	nextID     map[string]int64

	// Call tracking for verification
	SaveCalls   []string
	DeleteCalls []string

	// Error injection for testing error scenarios
	GetError    error
	ListError   error
	SaveError   error
	DeleteError error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		librarians: make(map[int64]data.Librarian),
		readers:    make(map[int64]data.Reader),
		loans:      make(map[int64]data.Loan),
		nextID:     make(map[string]int64),
	}
}

// Reset clears all records, tracked calls and injected errors.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.librarians = make(map[int64]data.Librarian)
	s.readers = make(map[int64]data.Reader)
	s.loans = make(map[int64]data.Loan)
	s.nextID = make(map[string]int64)
	s.SaveCalls = nil
	s.DeleteCalls = nil
	s.GetError = nil
	s.ListError = nil
	s.SaveError = nil
	s.DeleteError = nil
}

// Librarians returns the librarian store view.
func (s *Store) Librarians() *LibrarianStore { return &LibrarianStore{s: s} }

// Readers returns the reader store view.
func (s *Store) Readers() *ReaderStore { return &ReaderStore{s: s} }

// Loans returns the loan store view.
func (s *Store) Loans() *LoanStore { return &LoanStore{s: s} }

func (s *Store) track(calls *[]string, table string) {
	s.mu.Lock()
	*calls = append(*calls, table)
	s.mu.Unlock()
}

func (s *Store) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// paginate applies page to matches, returning the slice and its metadata.
func paginate[T any](matches []T, page data.Filters) ([]T, data.Metadata) {
	total := len(matches)
	meta := data.CalculateMetadata(total, page.Page, page.PageSize)
	if page.PageSize <= 0 {
		return matches, meta
	}
	start := 0
	if page.Page > 1 {
		start = (page.Page - 1) * page.PageSize
	}
	if start >= total {
		return []T{}, meta
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}
	return matches[start:end], meta
}

func uniqueViolation(constraint string) error {
	return &data.ConstraintError{Kind: data.ConstraintUnique, Constraint: constraint}
}

// LibrarianStore implements services.LibrarianStore.
type LibrarianStore struct{ s *Store }

var _ services.LibrarianStore = (*LibrarianStore)(nil)

// Seed stores l as-is, assigning an id when it has none.
func (m *LibrarianStore) Seed(l data.Librarian) data.Librarian {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if l.ID == 0 {
		l.ID = m.s.id("librarians")
	}
	m.s.librarians[l.ID] = l
	return l
}

func (m *LibrarianStore) Get(ctx context.Context, id int64) (*data.Librarian, error) {
	if m.s.GetError != nil {
		return nil, m.s.GetError
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	l, ok := m.s.librarians[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &l, nil
}

func (m *LibrarianStore) GetByTaxID(ctx context.Context, taxID string) (*data.Librarian, error) {
	return m.first(ctx, data.LibrarianFilter{TaxID: taxID})
}

func (m *LibrarianStore) GetByRegistrationNumber(ctx context.Context, number string) (*data.Librarian, error) {
	return m.first(ctx, data.LibrarianFilter{RegistrationNumber: number})
}

func (m *LibrarianStore) first(ctx context.Context, filter data.LibrarianFilter) (*data.Librarian, error) {
	if m.s.GetError != nil {
		return nil, m.s.GetError
	}
	found, _, err := m.List(ctx, filter, data.Filters{})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, data.ErrRecordNotFound
	}
	return found[0], nil
}

func (m *LibrarianStore) List(ctx context.Context, filter data.LibrarianFilter, page data.Filters) ([]*data.Librarian, data.Metadata, error) {
	if m.s.ListError != nil {
		return nil, data.Metadata{}, m.s.ListError
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matches := []*data.Librarian{}
	for _, id := range sortedKeys(m.s.librarians) {
		l := m.s.librarians[id]
		if filter.Matches(&l) {
			matches = append(matches, &l)
		}
	}
	out, meta := paginate(matches, page)
	return out, meta, nil
}

func (m *LibrarianStore) Save(ctx context.Context, l *data.Librarian) error {
	m.s.track(&m.s.SaveCalls, "librarians")
	if m.s.SaveError != nil {
		return m.s.SaveError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if l.ID != 0 {
		if _, ok := m.s.librarians[l.ID]; !ok {
			return data.ErrRecordNotFound
		}
	}
	for id, other := range m.s.librarians {
		if id == l.ID {
			continue
		}
		switch {
		case other.TaxID == l.TaxID:
			return uniqueViolation("librarians_tax_id_key")
		case other.RegistrationNumber == l.RegistrationNumber:
			return uniqueViolation("librarians_registration_number_key")
		case other.EmployeeCode == l.EmployeeCode:
			return uniqueViolation("librarians_employee_code_key")
		case l.Email != "" && other.Email == l.Email:
			return uniqueViolation("librarians_email_key")
		}
	}

	if l.ID == 0 {
		l.ID = m.s.id("librarians")
	}
	m.s.librarians[l.ID] = *l
	return nil
}

func (m *LibrarianStore) Delete(ctx context.Context, id int64) error {
	m.s.track(&m.s.DeleteCalls, "librarians")
	if m.s.DeleteError != nil {
		return m.s.DeleteError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.librarians[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.librarians, id)
	return nil
}

// ReaderStore implements services.ReaderStore.
type ReaderStore struct{ s *Store }

var _ services.ReaderStore = (*ReaderStore)(nil)

// Seed stores r as-is, assigning an id when it has none.
func (m *ReaderStore) Seed(r data.Reader) data.Reader {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.s.id("readers")
	}
	m.s.readers[r.ID] = r
	return r
}

func (m *ReaderStore) Get(ctx context.Context, id int64) (*data.Reader, error) {
	if m.s.GetError != nil {
		return nil, m.s.GetError
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	r, ok := m.s.readers[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &r, nil
}

func (m *ReaderStore) GetByTaxID(ctx context.Context, taxID string) (*data.Reader, error) {
	if m.s.GetError != nil {
		return nil, m.s.GetError
	}
	found, _, err := m.List(ctx, data.ReaderFilter{TaxID: taxID}, data.Filters{})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, data.ErrRecordNotFound
	}
	return found[0], nil
}

func (m *ReaderStore) List(ctx context.Context, filter data.ReaderFilter, page data.Filters) ([]*data.Reader, data.Metadata, error) {
	if m.s.ListError != nil {
		return nil, data.Metadata{}, m.s.ListError
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matches := []*data.Reader{}
	for _, id := range sortedKeys(m.s.readers) {
		r := m.s.readers[id]
		if filter.Matches(&r) {
			matches = append(matches, &r)
		}
	}
	out, meta := paginate(matches, page)
	return out, meta, nil
}

func (m *ReaderStore) Save(ctx context.Context, r *data.Reader) error {
	m.s.track(&m.s.SaveCalls, "readers")
	if m.s.SaveError != nil {
		return m.s.SaveError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if r.ID != 0 {
		if _, ok := m.s.readers[r.ID]; !ok {
			return data.ErrRecordNotFound
		}
	}
	for id, other := range m.s.readers {
		if id == r.ID {
			continue
		}
		switch {
		case other.TaxID == r.TaxID:
			return uniqueViolation("readers_tax_id_key")
		case other.RegistrationNumber == r.RegistrationNumber:
			return uniqueViolation("readers_registration_number_key")
		case r.Email != "" && other.Email == r.Email:
			return uniqueViolation("readers_email_key")
		}
	}

	if r.ID == 0 {
		r.ID = m.s.id("readers")
	}
	m.s.readers[r.ID] = *r
	return nil
}

// Delete removes the reader and, like ON DELETE CASCADE, its loans.
func (m *ReaderStore) Delete(ctx context.Context, id int64) error {
	m.s.track(&m.s.DeleteCalls, "readers")
	if m.s.DeleteError != nil {
		return m.s.DeleteError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.readers[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.readers, id)
	for loanID, l := range m.s.loans {
		if l.ReaderID == id {
			delete(m.s.loans, loanID)
		}
	}
	return nil
}

// LoanStore implements services.LoanStore.
type LoanStore struct{ s *Store }

var _ services.LoanStore = (*LoanStore)(nil)

// Seed stores l as-is, assigning an id when it has none.
func (m *LoanStore) Seed(l data.Loan) data.Loan {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if l.ID == 0 {
		l.ID = m.s.id("loans")
	}
	m.s.loans[l.ID] = l
	return l
}

// Count returns how many loans are stored.
func (m *LoanStore) Count() int {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.loans)
}

func (m *LoanStore) Get(ctx context.Context, id int64) (*data.Loan, error) {
	if m.s.GetError != nil {
		return nil, m.s.GetError
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	l, ok := m.s.loans[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &l, nil
}

func (m *LoanStore) List(ctx context.Context, filter data.LoanFilter, page data.Filters) ([]*data.Loan, data.Metadata, error) {
	if m.s.ListError != nil {
		return nil, data.Metadata{}, m.s.ListError
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matches := []*data.Loan{}
	for _, id := range sortedKeys(m.s.loans) {
		l := m.s.loans[id]
		if filter.Matches(&l) {
			matches = append(matches, &l)
		}
	}
	out, meta := paginate(matches, page)
	return out, meta, nil
}

// Save enforces the reader foreign key and the due date check.
func (m *LoanStore) Save(ctx context.Context, l *data.Loan) error {
	m.s.track(&m.s.SaveCalls, "loans")
	if m.s.SaveError != nil {
		return m.s.SaveError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if l.ID != 0 {
		if _, ok := m.s.loans[l.ID]; !ok {
			return data.ErrRecordNotFound
		}
	}
	if _, ok := m.s.readers[l.ReaderID]; !ok {
		return &data.ConstraintError{Kind: data.ConstraintForeignKey, Constraint: "loans_reader_id_fkey"}
	}
	if l.DueDate.Before(l.LoanDate) {
		return &data.ConstraintError{Kind: data.ConstraintCheck, Constraint: "loans_due_date_check"}
	}

	if l.ID == 0 {
		l.ID = m.s.id("loans")
	}
	m.s.loans[l.ID] = *l
	return nil
}

func (m *LoanStore) Delete(ctx context.Context, id int64) error {
	m.s.track(&m.s.DeleteCalls, "loans")
	if m.s.DeleteError != nil {
		return m.s.DeleteError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.loans[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.loans, id)
	return nil
}
