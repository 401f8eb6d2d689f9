package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
)

// ReaderService manages library patrons.
type ReaderService struct {
	store ReaderStore
	opts  options
}

// NewReaderService returns a ReaderService backed by store.
func NewReaderService(store ReaderStore, opts ...Option) *ReaderService {
	return &ReaderService{store: store, opts: newOptions(opts)}
}

// Create registers a new reader. The tax id must not belong to another reader.
func (s *ReaderService) Create(ctx context.Context, r *data.Reader) (*data.Reader, error) {
	s.applyDefaults(r)
	if err := validateReader(r); err != nil {
		return nil, err
	}

	switch _, err := s.store.GetByTaxID(ctx, r.TaxID); {
	case err == nil:
		return nil, duplicate("tax_id", "tax id", r.TaxID)
	case !errors.Is(err, data.ErrRecordNotFound):
		return nil, err
	}

	r.ID = 0
	if err := s.store.Save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update replaces every field of reader id with r.
func (s *ReaderService) Update(ctx context.Context, id int64, r *data.Reader) (*data.Reader, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}

	s.applyDefaults(r)
	if err := validateReader(r); err != nil {
		return nil, err
	}

	r.ID = id
	if err := s.store.Save(ctx, r); err != nil {
		return nil, lookup(err, "reader", "id", id)
	}
	return r, nil
}

// FindByID returns reader id.
func (s *ReaderService) FindByID(ctx context.Context, id int64) (*data.Reader, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, lookup(err, "reader", "id", id)
	}
	return r, nil
}

// ListAll returns one page of every reader.
func (s *ReaderService) ListAll(ctx context.Context, page data.Filters) ([]*data.Reader, data.Metadata, error) {
	return s.store.List(ctx, data.ReaderFilter{}, page)
}

// Delete removes reader id together with its loans.
func (s *ReaderService) Delete(ctx context.Context, id int64) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return lookup(s.store.Delete(ctx, id), "reader", "id", id)
}

// UpdateLoyaltyTier moves reader id to tier.
func (s *ReaderService) UpdateLoyaltyTier(ctx context.Context, id int64, tier data.LoyaltyTier) (*data.Reader, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tier.Valid() {
		return nil, invalid("loyalty_tier", "invalid loyalty tier: "+string(tier))
	}

	r.LoyaltyTier = tier
	if err := s.store.Save(ctx, r); err != nil {
		return nil, lookup(err, "reader", "id", id)
	}
	return r, nil
}

// UpdateCreditLimit sets the credit limit of reader id.
func (s *ReaderService) UpdateCreditLimit(ctx context.Context, id int64, limit decimal.Decimal) (*data.Reader, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateCreditLimit(limit); err != nil {
		return nil, err
	}

	r.CreditLimit = limit
	if err := s.store.Save(ctx, r); err != nil {
		return nil, lookup(err, "reader", "id", id)
	}
	return r, nil
}

// FindByTaxID returns the reader holding taxID.
func (s *ReaderService) FindByTaxID(ctx context.Context, taxID string) (*data.Reader, error) {
	r, err := s.store.GetByTaxID(ctx, taxID)
	if err != nil {
		return nil, lookup(err, "reader", "tax id", taxID)
	}
	return r, nil
}

// FindByLoyaltyTier returns readers in tier. An unknown tier matches nobody.
func (s *ReaderService) FindByLoyaltyTier(ctx context.Context, tier data.LoyaltyTier) ([]*data.Reader, error) {
	return s.find(ctx, data.ReaderFilter{LoyaltyTier: tier})
}

// FindByNameContains returns readers whose name contains name, ignoring case.
func (s *ReaderService) FindByNameContains(ctx context.Context, name string) ([]*data.Reader, error) {
	return s.find(ctx, data.ReaderFilter{NameContains: name})
}

// FindByMinCreditLimit returns readers whose credit limit is at least limit.
func (s *ReaderService) FindByMinCreditLimit(ctx context.Context, limit decimal.Decimal) ([]*data.Reader, error) {
	return s.find(ctx, data.ReaderFilter{MinCredit: &limit})
}

// FindReadersActiveSince returns readers whose last reading is after since.
func (s *ReaderService) FindReadersActiveSince(ctx context.Context, since data.Date) ([]*data.Reader, error) {
	return s.find(ctx, data.ReaderFilter{ReadAfter: &since})
}

// FindByLoyaltyTierAndMinCredit returns readers in tier whose credit limit
// is strictly greater than limit.
func (s *ReaderService) FindByLoyaltyTierAndMinCredit(ctx context.Context, tier data.LoyaltyTier, limit decimal.Decimal) ([]*data.Reader, error) {
	return s.find(ctx, data.ReaderFilter{LoyaltyTier: tier, CreditAbove: &limit})
}

func (s *ReaderService) find(ctx context.Context, filter data.ReaderFilter) ([]*data.Reader, error) {
	readers, _, err := s.store.List(ctx, filter, all)
	return readers, err
}

func (s *ReaderService) applyDefaults(r *data.Reader) {
	if r.RegistrationDate.IsZero() {
		r.RegistrationDate = s.opts.today()
	}
}

func validateReader(r *data.Reader) error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name", "name is required")
	}
	if !r.LoyaltyTier.Valid() {
		return invalid("loyalty_tier", "invalid loyalty tier: "+string(r.LoyaltyTier))
	}
	return validateCreditLimit(r.CreditLimit)
}

func validateCreditLimit(limit decimal.Decimal) error {
	if limit.LessThan(data.MinCreditLimit) || limit.GreaterThan(data.MaxCreditLimit) {
		return invalid("credit_limit", "credit limit must be between 0 and 10000")
	}
	return nil
}
