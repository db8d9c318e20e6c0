package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mchalloran/backend-pos/internal/common"
)

// ErrNotFound indicates the requested settings entity does not exist.
var ErrNotFound = errors.New("settings entity not found")

// Service exposes the settings lookups every other module depends on:
// sales categories, payment types, locations, and tax rates.
type Service struct {
	Store Store
	Cache *Cache
	// DefaultTaxRateBps is used when a location has no effective rate for
	// the requested date.
	DefaultTaxRateBps int64
	Now               func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ListCategories returns sales categories, active only unless asked otherwise.
func (s *Service) ListCategories(ctx context.Context, includeInactive bool) ([]SalesCategory, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("settings service not configured")
	}
	return s.Store.ListSalesCategories(ctx, includeInactive)
}

// CreateCategory validates and creates a sales category.
func (s *Service) CreateCategory(ctx context.Context, name string, taxDefault bool) (SalesCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SalesCategory{}, common.NewAppError("VALIDATION", "category name is required", http.StatusUnprocessableEntity, nil)
	}
	return s.Store.CreateSalesCategory(ctx, name, taxDefault)
}

// UpdateCategory edits a category. Historical line items keep the taxability
// they were posted with; the default only applies going forward.
func (s *Service) UpdateCategory(ctx context.Context, c SalesCategory) (SalesCategory, error) {
	if strings.TrimSpace(c.Name) == "" {
		return SalesCategory{}, common.NewAppError("VALIDATION", "category name is required", http.StatusUnprocessableEntity, nil)
	}
	out, err := s.Store.UpdateSalesCategory(ctx, c)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesCategory{}, ErrNotFound
	}
	return out, err
}

// Category fetches a single sales category.
func (s *Service) Category(ctx context.Context, id uuid.UUID) (SalesCategory, error) {
	c, err := s.Store.GetSalesCategory(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesCategory{}, ErrNotFound
	}
	return c, err
}

// ListPaymentTypes returns payment types, active only unless asked otherwise.
func (s *Service) ListPaymentTypes(ctx context.Context, includeInactive bool) ([]PaymentType, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("settings service not configured")
	}
	return s.Store.ListPaymentTypes(ctx, includeInactive)
}

// CreatePaymentType validates and creates a payment type.
func (s *Service) CreatePaymentType(ctx context.Context, p PaymentType) (PaymentType, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return PaymentType{}, common.NewAppError("VALIDATION", "payment type name is required", http.StatusUnprocessableEntity, nil)
	}
	return s.Store.CreatePaymentType(ctx, p)
}

// UpdatePaymentType edits a payment type.
func (s *Service) UpdatePaymentType(ctx context.Context, p PaymentType) (PaymentType, error) {
	if strings.TrimSpace(p.Name) == "" {
		return PaymentType{}, common.NewAppError("VALIDATION", "payment type name is required", http.StatusUnprocessableEntity, nil)
	}
	out, err := s.Store.UpdatePaymentType(ctx, p)
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentType{}, ErrNotFound
	}
	return out, err
}

// PaymentType fetches a single payment type.
func (s *Service) PaymentType(ctx context.Context, id uuid.UUID) (PaymentType, error) {
	p, err := s.Store.GetPaymentType(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentType{}, ErrNotFound
	}
	return p, err
}

// ListLocations returns all locations.
func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	return s.Store.ListLocations(ctx)
}

// CreateLocation validates and creates a location.
func (s *Service) CreateLocation(ctx context.Context, name, code string) (Location, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return Location{}, common.NewAppError("VALIDATION", "location name and code are required", http.StatusUnprocessableEntity, nil)
	}
	return s.Store.CreateLocation(ctx, name, code)
}

// Location fetches a single location.
func (s *Service) Location(ctx context.Context, id uuid.UUID) (Location, error) {
	l, err := s.Store.GetLocation(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, ErrNotFound
	}
	return l, err
}

// ListTaxRates returns the rate history for a location.
func (s *Service) ListTaxRates(ctx context.Context, locationID uuid.UUID) ([]TaxRate, error) {
	return s.Store.ListTaxRates(ctx, locationID)
}

// CreateTaxRate records a new effective-dated rate and invalidates the
// cached resolution for the location.
func (s *Service) CreateTaxRate(ctx context.Context, r TaxRate) (TaxRate, error) {
	if r.RateBps < 0 {
		return TaxRate{}, common.NewAppError("VALIDATION", "rate_bps must not be negative", http.StatusUnprocessableEntity, nil)
	}
	if r.EffectiveFrom.IsZero() {
		return TaxRate{}, common.NewAppError("VALIDATION", "effective_from is required", http.StatusUnprocessableEntity, nil)
	}
	out, err := s.Store.CreateTaxRate(ctx, r)
	if err != nil {
		return TaxRate{}, err
	}
	if s.Cache != nil {
		// The cached resolution is keyed per day; dropping today's entry is
		// enough since future-dated rates age in through the TTL.
		_ = s.Cache.Delete(ctx, taxRateKey(r.LocationID, s.now().Format("2006-01-02")))
	}
	return out, nil
}

// ResolveTaxRate returns the tax rate in basis points effective for the
// location on the given date, falling back to the configured default when
// no rate row covers the date. The engine always receives the rate as an
// explicit parameter; this resolution is the only place ambient settings
// are consulted.
func (s *Service) ResolveTaxRate(ctx context.Context, locationID uuid.UUID, on time.Time) (int64, error) {
	if s == nil || s.Store == nil {
		return 0, errors.New("settings service not configured")
	}
	if on.IsZero() {
		on = s.now()
	}
	day := on.Format("2006-01-02")
	key := taxRateKey(locationID, day)
	if s.Cache != nil {
		var cached int64
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	rate, err := s.Store.EffectiveTaxRate(ctx, locationID, on)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.DefaultTaxRateBps, nil
		}
		return 0, err
	}
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, key, rate.RateBps)
	}
	return rate.RateBps, nil
}

func taxRateKey(locationID uuid.UUID, day string) string {
	return fmt.Sprintf("settings:taxrate:%s:%s", locationID, day)
}
