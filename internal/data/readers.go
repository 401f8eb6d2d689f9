package data

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// LoyaltyTier ranks a reader's standing with the library.
type LoyaltyTier string

const (
	TierBronze  LoyaltyTier = "BRONZE"
	TierSilver  LoyaltyTier = "SILVER"
	TierGold    LoyaltyTier = "GOLD"
	TierDiamond LoyaltyTier = "DIAMOND"
)

// LoyaltyTiers lists every valid tier, lowest first.
var LoyaltyTiers = []LoyaltyTier{TierBronze, TierSilver, TierGold, TierDiamond}

// Valid reports whether t is one of the four known tiers.
func (t LoyaltyTier) Valid() bool {
	return validator.In(t, LoyaltyTiers...)
}

// Credit limit bounds, inclusive.
var (
	MinCreditLimit = decimal.Zero
	MaxCreditLimit = decimal.NewFromInt(10000)
)

// Reader is a registered library patron. Its loans live in the loans table
// and are fetched separately; they are never embedded in a Reader.
type Reader struct {
	Person
	RegistrationNumber string          `json:"registration_number" db:"registration_number"`
	RegistrationDate   Date            `json:"registration_date" db:"registration_date"`
	Active             bool            `json:"active" db:"active"`
	LoyaltyTier        LoyaltyTier     `json:"loyalty_tier" db:"loyalty_tier"`
	CreditLimit        decimal.Decimal `json:"credit_limit" db:"credit_limit"`
	LastReadingDate    *Date           `json:"last_reading_date,omitempty" db:"last_reading_date"`
}

// ReaderInput is the request body for creating or replacing a reader.
type ReaderInput struct {
	Name               string           `json:"name"`
	TaxID              string           `json:"tax_id"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	Address            Address          `json:"address"`
	RegistrationNumber string           `json:"registration_number"`
	RegistrationDate   Date             `json:"registration_date"`
	Active             *bool            `json:"active"`
	LoyaltyTier        LoyaltyTier      `json:"loyalty_tier"`
	CreditLimit        *decimal.Decimal `json:"credit_limit"`
	LastReadingDate    *Date            `json:"last_reading_date"`
}

// Reader maps the input onto a record. active defaults to true.
func (in ReaderInput) Reader() *Reader {
	r := &Reader{
		Person: Person{
			Name:    in.Name,
			TaxID:   in.TaxID,
			Email:   in.Email,
			Phone:   in.Phone,
			Address: in.Address,
		},
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		RegistrationDate:   in.RegistrationDate,
		Active:             in.Active == nil || *in.Active,
		LoyaltyTier:        in.LoyaltyTier,
		LastReadingDate:    in.LastReadingDate,
	}
	if in.CreditLimit != nil {
		r.CreditLimit = *in.CreditLimit
	}
	if r.LastReadingDate != nil && r.LastReadingDate.IsZero() {
		r.LastReadingDate = nil
	}
	r.Normalize()
	return r
}

// ValidateReaderInput checks presence of credit_limit, then the record shape.
func ValidateReaderInput(v *validator.Validator, in ReaderInput) {
	v.Check(in.CreditLimit != nil, "credit_limit", "must be provided")
	ValidateReader(v, in.Reader())
}

// ValidateReader records shape errors for a reader. Tier membership and the
// credit range are domain rules checked by the service layer.
func ValidateReader(v *validator.Validator, r *Reader) {
	ValidatePerson(v, r.Person)
	v.Check(validator.NotBlank(r.RegistrationNumber), "registration_number", "must be provided")
	v.Check(r.LoyaltyTier != "", "loyalty_tier", "must be provided")
}

// ReaderSortSafeList lists the accepted values of the sort query parameter.
var ReaderSortSafeList = []string{"id", "name", "credit_limit", "registration_date", "-id", "-name", "-credit_limit", "-registration_date"}

// ReaderFilter selects readers. Zero-valued fields do not constrain.
type ReaderFilter struct {
	TaxID        string
	NameContains string // case-insensitive
	LoyaltyTier  LoyaltyTier
	MinCredit    *decimal.Decimal // credit_limit >= MinCredit
	CreditAbove  *decimal.Decimal // credit_limit > CreditAbove
	ReadAfter    *Date            // last_reading_date strictly after
}

// Matches evaluates the filter against r in memory.
func (f ReaderFilter) Matches(r *Reader) bool {
	switch {
	case f.TaxID != "" && r.TaxID != f.TaxID:
		return false
	case f.NameContains != "" && !containsFold(r.Name, f.NameContains):
		return false
	case f.LoyaltyTier != "" && r.LoyaltyTier != f.LoyaltyTier:
		return false
	case f.MinCredit != nil && r.CreditLimit.LessThan(*f.MinCredit):
		return false
	case f.CreditAbove != nil && !r.CreditLimit.GreaterThan(*f.CreditAbove):
		return false
	case f.ReadAfter != nil && (r.LastReadingDate == nil || !r.LastReadingDate.After(*f.ReadAfter)):
		return false
	}
	return true
}

func (f ReaderFilter) conditions() []exp.Expression {
	var conds []exp.Expression
	if f.TaxID != "" {
		conds = append(conds, goqu.C("tax_id").Eq(f.TaxID))
	}
	if f.NameContains != "" {
		conds = append(conds, likeFold("name", f.NameContains))
	}
	if f.LoyaltyTier != "" {
		conds = append(conds, goqu.C("loyalty_tier").Eq(string(f.LoyaltyTier)))
	}
	if f.MinCredit != nil {
		conds = append(conds, goqu.C("credit_limit").Gte(f.MinCredit.String()))
	}
	if f.CreditAbove != nil {
		conds = append(conds, goqu.C("credit_limit").Gt(f.CreditAbove.String()))
	}
	if f.ReadAfter != nil {
		conds = append(conds, goqu.C("last_reading_date").Gt(f.ReadAfter.String()))
	}
	return conds
}

// ReaderModel provides the reader store.
type ReaderModel struct {
	q *querier
}

type readerRow struct {
	TotalRecords int `db:"total_records"`
	Reader
}

func (m ReaderModel) selectQuery() *goqu.SelectDataset {
	return m.q.dialect.From("readers").Select(
		"id", "name", "tax_id", goqu.COALESCE(goqu.C("email"), "").As("email"), "phone",
		"postal_code", "street", "complement", "number", "district", "city", "state",
		"registration_number", "registration_date", "active", "loyalty_tier", "credit_limit", "last_reading_date",
	)
}

func (m ReaderModel) record(r *Reader) goqu.Record {
	return goqu.Record{
		"name":                r.Name,
		"tax_id":              r.TaxID,
		"email":               nullable(r.Email),
		"phone":               r.Phone,
		"postal_code":         r.PostalCode,
		"street":              r.Street,
		"complement":          r.Complement,
		"number":              r.Number,
		"district":            r.District,
		"city":                r.City,
		"state":               r.State,
		"registration_number": r.RegistrationNumber,
		"registration_date":   dateValue(&r.RegistrationDate),
		"active":              r.Active,
		"loyalty_tier":        string(r.LoyaltyTier),
		"credit_limit":        r.CreditLimit.StringFixed(2),
		"last_reading_date":   dateValue(r.LastReadingDate),
	}
}

// Get retrieves a single reader by primary key.
func (m ReaderModel) Get(ctx context.Context, id int64) (*Reader, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}
	var r Reader
	if err := m.q.get(ctx, "get reader", &r, m.selectQuery().Where(goqu.C("id").Eq(id))); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByTaxID retrieves the reader holding taxID.
func (m ReaderModel) GetByTaxID(ctx context.Context, taxID string) (*Reader, error) {
	var r Reader
	ds := m.selectQuery().Where(goqu.C("tax_id").Eq(taxID)).Limit(1)
	if err := m.q.get(ctx, "get reader by tax id", &r, ds); err != nil {
		return nil, err
	}
	return &r, nil
}

func (m ReaderModel) listQuery(filter ReaderFilter, page Filters) *goqu.SelectDataset {
	ds := m.selectQuery().SelectAppend(totalRecordsColumn())
	return page.apply(where(ds, filter.conditions()))
}

// List returns the readers matching filter, one page at a time.
func (m ReaderModel) List(ctx context.Context, filter ReaderFilter, page Filters) ([]*Reader, Metadata, error) {
	var rows []readerRow
	if err := m.q.selectAll(ctx, "list readers", &rows, m.listQuery(filter, page)); err != nil {
		return nil, Metadata{}, err
	}

	totalRecords := 0
	readers := make([]*Reader, 0, len(rows))
	for i := range rows {
		totalRecords = rows[i].TotalRecords
		readers = append(readers, &rows[i].Reader)
	}
	return readers, CalculateMetadata(totalRecords, page.Page, page.PageSize), nil
}

// Save inserts r when it has no id yet, otherwise replaces the stored row.
func (m ReaderModel) Save(ctx context.Context, r *Reader) error {
	if r.ID == 0 {
		id, err := m.q.insert(ctx, "insert reader", m.q.dialect.Insert("readers").Rows(m.record(r)))
		if err != nil {
			return err
		}
		r.ID = id
		return nil
	}
	ds := m.q.dialect.Update("readers").Set(m.record(r)).Where(goqu.C("id").Eq(r.ID)).Prepared(true)
	return m.q.exec(ctx, "update reader", ds)
}

// Delete removes the reader; the database cascades to its loans.
func (m ReaderModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}
	ds := m.q.dialect.Delete("readers").Where(goqu.C("id").Eq(id)).Prepared(true)
	return m.q.exec(ctx, "delete reader", ds)
}
