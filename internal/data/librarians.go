package data

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// Librarian is a member of staff. It maps to a row in the "librarians" table.
type Librarian struct {
	Person
	EmployeeCode       string          `json:"employee_code" db:"employee_code"`
	AdmissionDate      Date            `json:"admission_date" db:"admission_date"`
	Shift              string          `json:"shift,omitempty" db:"shift"`
	Active             bool            `json:"active" db:"active"`
	Salary             decimal.Decimal `json:"salary" db:"salary"`
	RegistrationNumber string          `json:"registration_number" db:"registration_number"`
}

// LibrarianInput is the request body for creating or replacing a librarian.
// Pointers tell "absent" apart from a zero value.
type LibrarianInput struct {
	Name               string           `json:"name"`
	TaxID              string           `json:"tax_id"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	Address            Address          `json:"address"`
	EmployeeCode       string           `json:"employee_code"`
	AdmissionDate      Date             `json:"admission_date"`
	Shift              string           `json:"shift"`
	Active             *bool            `json:"active"`
	Salary             *decimal.Decimal `json:"salary"`
	RegistrationNumber string           `json:"registration_number"`
}

// Librarian maps the input onto a record. active defaults to true.
func (in LibrarianInput) Librarian() *Librarian {
	l := &Librarian{
		Person: Person{
			Name:    in.Name,
			TaxID:   in.TaxID,
			Email:   in.Email,
			Phone:   in.Phone,
			Address: in.Address,
		},
		EmployeeCode:       strings.TrimSpace(in.EmployeeCode),
		AdmissionDate:      in.AdmissionDate,
		Shift:              in.Shift,
		Active:             in.Active == nil || *in.Active,
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
	}
	if in.Salary != nil {
		l.Salary = *in.Salary
	}
	l.Normalize()
	return l
}

// ValidateLibrarianInput checks presence of the fields whose zero value
// would otherwise be indistinguishable from "not sent", then the record shape.
func ValidateLibrarianInput(v *validator.Validator, in LibrarianInput) {
	v.Check(in.Salary != nil, "salary", "must be provided")
	ValidateLibrarian(v, in.Librarian())
}

// ValidateLibrarian records shape errors for a librarian. Domain rules
// (salary floor, registration number format, duplicates) belong to the
// service layer.
func ValidateLibrarian(v *validator.Validator, l *Librarian) {
	ValidatePerson(v, l.Person)
	v.Check(validator.NotBlank(l.EmployeeCode), "employee_code", "must be provided")
	v.Check(validator.MaxChars(l.EmployeeCode, 50), "employee_code", "must not be more than 50 characters")
	v.Check(validator.NotBlank(l.RegistrationNumber), "registration_number", "must be provided")
	v.Check(!l.Salary.IsNegative(), "salary", "must not be negative")
}

// LibrarianSortSafeList lists the accepted values of the sort query parameter.
var LibrarianSortSafeList = []string{"id", "name", "salary", "admission_date", "-id", "-name", "-salary", "-admission_date"}

// LibrarianFilter selects librarians. Zero-valued fields do not constrain.
type LibrarianFilter struct {
	TaxID              string
	RegistrationNumber string
	NameContains       string // case-insensitive
	Active             *bool
	MinSalary          *decimal.Decimal // inclusive
	MaxSalary          *decimal.Decimal // inclusive
}

// Matches evaluates the filter against l in memory.
func (f LibrarianFilter) Matches(l *Librarian) bool {
	switch {
	case f.TaxID != "" && l.TaxID != f.TaxID:
		return false
	case f.RegistrationNumber != "" && l.RegistrationNumber != f.RegistrationNumber:
		return false
	case f.NameContains != "" && !containsFold(l.Name, f.NameContains):
		return false
	case f.Active != nil && l.Active != *f.Active:
		return false
	case f.MinSalary != nil && l.Salary.LessThan(*f.MinSalary):
		return false
	case f.MaxSalary != nil && l.Salary.GreaterThan(*f.MaxSalary):
		return false
	}
	return true
}

func (f LibrarianFilter) conditions() []exp.Expression {
	var conds []exp.Expression
	if f.TaxID != "" {
		conds = append(conds, goqu.C("tax_id").Eq(f.TaxID))
	}
	if f.RegistrationNumber != "" {
		conds = append(conds, goqu.C("registration_number").Eq(f.RegistrationNumber))
	}
	if f.NameContains != "" {
		conds = append(conds, likeFold("name", f.NameContains))
	}
	if f.Active != nil {
		conds = append(conds, goqu.C("active").Eq(*f.Active))
	}
	switch {
	case f.MinSalary != nil && f.MaxSalary != nil:
		conds = append(conds, goqu.C("salary").Between(goqu.Range(f.MinSalary.String(), f.MaxSalary.String())))
	case f.MinSalary != nil:
		conds = append(conds, goqu.C("salary").Gte(f.MinSalary.String()))
	case f.MaxSalary != nil:
		conds = append(conds, goqu.C("salary").Lte(f.MaxSalary.String()))
	}
	return conds
}

// LibrarianModel wraps the shared query runner and provides the
// librarian store.
type LibrarianModel struct {
	q *querier
}

type librarianRow struct {
	TotalRecords int `db:"total_records"`
	Librarian
}

func (m LibrarianModel) selectQuery() *goqu.SelectDataset {
	return m.q.dialect.From("librarians").Select(
		"id", "name", "tax_id", goqu.COALESCE(goqu.C("email"), "").As("email"), "phone",
		"postal_code", "street", "complement", "number", "district", "city", "state",
		"employee_code", "admission_date", "shift", "active", "salary", "registration_number",
	)
}

func (m LibrarianModel) record(l *Librarian) goqu.Record {
	return goqu.Record{
		"name":                l.Name,
		"tax_id":              l.TaxID,
		"email":               nullable(l.Email),
		"phone":               l.Phone,
		"postal_code":         l.PostalCode,
		"street":              l.Street,
		"complement":          l.Complement,
		"number":              l.Number,
		"district":            l.District,
		"city":                l.City,
		"state":               l.State,
		"employee_code":       l.EmployeeCode,
		"admission_date":      dateValue(&l.AdmissionDate),
		"shift":               l.Shift,
		"active":              l.Active,
		"salary":              l.Salary.StringFixed(2),
		"registration_number": l.RegistrationNumber,
	}
}

// Get retrieves a single librarian by primary key.
func (m LibrarianModel) Get(ctx context.Context, id int64) (*Librarian, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}
	var l Librarian
	err := m.q.get(ctx, "get librarian", &l, m.selectQuery().Where(goqu.C("id").Eq(id)))
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByTaxID retrieves the librarian holding taxID.
func (m LibrarianModel) GetByTaxID(ctx context.Context, taxID string) (*Librarian, error) {
	return m.getBy(ctx, "get librarian by tax id", goqu.C("tax_id").Eq(taxID))
}

// GetByRegistrationNumber retrieves the librarian holding number.
func (m LibrarianModel) GetByRegistrationNumber(ctx context.Context, number string) (*Librarian, error) {
	return m.getBy(ctx, "get librarian by registration number", goqu.C("registration_number").Eq(number))
}

func (m LibrarianModel) getBy(ctx context.Context, action string, cond exp.Expression) (*Librarian, error) {
	var l Librarian
	if err := m.q.get(ctx, action, &l, m.selectQuery().Where(cond).Limit(1)); err != nil {
		return nil, err
	}
	return &l, nil
}

func (m LibrarianModel) listQuery(filter LibrarianFilter, page Filters) *goqu.SelectDataset {
	ds := m.selectQuery().SelectAppend(totalRecordsColumn())
	return page.apply(where(ds, filter.conditions()))
}

// List returns the librarians matching filter, one page at a time.
func (m LibrarianModel) List(ctx context.Context, filter LibrarianFilter, page Filters) ([]*Librarian, Metadata, error) {
	var rows []librarianRow
	if err := m.q.selectAll(ctx, "list librarians", &rows, m.listQuery(filter, page)); err != nil {
		return nil, Metadata{}, err
	}

	totalRecords := 0
	librarians := make([]*Librarian, 0, len(rows))
	for i := range rows {
		totalRecords = rows[i].TotalRecords
		librarians = append(librarians, &rows[i].Librarian)
	}
	return librarians, CalculateMetadata(totalRecords, page.Page, page.PageSize), nil
}

// Save inserts l when it has no id yet, otherwise replaces the stored row.
func (m LibrarianModel) Save(ctx context.Context, l *Librarian) error {
	if l.ID == 0 {
		id, err := m.q.insert(ctx, "insert librarian", m.q.dialect.Insert("librarians").Rows(m.record(l)))
		if err != nil {
			return err
		}
		l.ID = id
		return nil
	}
	ds := m.q.dialect.Update("librarians").Set(m.record(l)).Where(goqu.C("id").Eq(l.ID)).Prepared(true)
	return m.q.exec(ctx, "update librarian", ds)
}

// Delete removes the librarian with the given id.
func (m LibrarianModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}
	ds := m.q.dialect.Delete("librarians").Where(goqu.C("id").Eq(id)).Prepared(true)
	return m.q.exec(ctx, "delete librarian", ds)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// likeFold matches column against term case-insensitively. LIKE wildcards
// in term are escaped so they match literally.
func likeFold(column, term string) exp.Expression {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return goqu.Func("LOWER", goqu.C(column)).Like("%" + escaped + "%")
}
