package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store defines the persistence operations required by the settings service.
type Store interface {
	ListSalesCategories(ctx context.Context, includeInactive bool) ([]SalesCategory, error)
	GetSalesCategory(ctx context.Context, id uuid.UUID) (SalesCategory, error)
	CreateSalesCategory(ctx context.Context, name string, taxDefault bool) (SalesCategory, error)
	UpdateSalesCategory(ctx context.Context, c SalesCategory) (SalesCategory, error)

	ListPaymentTypes(ctx context.Context, includeInactive bool) ([]PaymentType, error)
	GetPaymentType(ctx context.Context, id uuid.UUID) (PaymentType, error)
	CreatePaymentType(ctx context.Context, p PaymentType) (PaymentType, error)
	UpdatePaymentType(ctx context.Context, p PaymentType) (PaymentType, error)

	ListLocations(ctx context.Context) ([]Location, error)
	GetLocation(ctx context.Context, id uuid.UUID) (Location, error)
	CreateLocation(ctx context.Context, name, code string) (Location, error)

	ListTaxRates(ctx context.Context, locationID uuid.UUID) ([]TaxRate, error)
	CreateTaxRate(ctx context.Context, r TaxRate) (TaxRate, error)
	// EffectiveTaxRate returns the rate effective for the location on the
	// given date, or pgx.ErrNoRows when none is configured.
	EffectiveTaxRate(ctx context.Context, locationID uuid.UUID, on time.Time) (TaxRate, error)
}

// PGStore implements Store on a pgx connection pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewStore returns a Store backed by Postgres.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) ListSalesCategories(ctx context.Context, includeInactive bool) ([]SalesCategory, error) {
	query := `SELECT id, name, tax_default, active FROM sales_categories WHERE active OR $1 ORDER BY name`
	rows, err := s.Pool.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SalesCategory
	for rows.Next() {
		var c SalesCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxDefault, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) GetSalesCategory(ctx context.Context, id uuid.UUID) (SalesCategory, error) {
	var c SalesCategory
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, tax_default, active FROM sales_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.TaxDefault, &c.Active)
	return c, err
}

func (s *PGStore) CreateSalesCategory(ctx context.Context, name string, taxDefault bool) (SalesCategory, error) {
	var c SalesCategory
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO sales_categories (id, name, tax_default, active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, name, tax_default, active`,
		uuid.New(), name, taxDefault).
		Scan(&c.ID, &c.Name, &c.TaxDefault, &c.Active)
	return c, err
}

func (s *PGStore) UpdateSalesCategory(ctx context.Context, c SalesCategory) (SalesCategory, error) {
	var out SalesCategory
	err := s.Pool.QueryRow(ctx,
		`UPDATE sales_categories SET name = $2, tax_default = $3, active = $4
		 WHERE id = $1
		 RETURNING id, name, tax_default, active`,
		c.ID, c.Name, c.TaxDefault, c.Active).
		Scan(&out.ID, &out.Name, &out.TaxDefault, &out.Active)
	return out, err
}

func (s *PGStore) ListPaymentTypes(ctx context.Context, includeInactive bool) ([]PaymentType, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, name, taxable, counts_as_cash, active FROM payment_types WHERE active OR $1 ORDER BY name`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentType
	for rows.Next() {
		var p PaymentType
		if err := rows.Scan(&p.ID, &p.Name, &p.Taxable, &p.CountsAsCash, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) GetPaymentType(ctx context.Context, id uuid.UUID) (PaymentType, error) {
	var p PaymentType
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, taxable, counts_as_cash, active FROM payment_types WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Taxable, &p.CountsAsCash, &p.Active)
	return p, err
}

func (s *PGStore) CreatePaymentType(ctx context.Context, p PaymentType) (PaymentType, error) {
	var out PaymentType
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO payment_types (id, name, taxable, counts_as_cash, active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id, name, taxable, counts_as_cash, active`,
		uuid.New(), p.Name, p.Taxable, p.CountsAsCash).
		Scan(&out.ID, &out.Name, &out.Taxable, &out.CountsAsCash, &out.Active)
	return out, err
}

func (s *PGStore) UpdatePaymentType(ctx context.Context, p PaymentType) (PaymentType, error) {
	var out PaymentType
	err := s.Pool.QueryRow(ctx,
		`UPDATE payment_types SET name = $2, taxable = $3, counts_as_cash = $4, active = $5
		 WHERE id = $1
		 RETURNING id, name, taxable, counts_as_cash, active`,
		p.ID, p.Name, p.Taxable, p.CountsAsCash, p.Active).
		Scan(&out.ID, &out.Name, &out.Taxable, &out.CountsAsCash, &out.Active)
	return out, err
}

func (s *PGStore) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, code FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Code); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PGStore) GetLocation(ctx context.Context, id uuid.UUID) (Location, error) {
	var l Location
	err := s.Pool.QueryRow(ctx, `SELECT id, name, code FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Code)
	return l, err
}

func (s *PGStore) CreateLocation(ctx context.Context, name, code string) (Location, error) {
	var l Location
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO locations (id, name, code) VALUES ($1, $2, $3) RETURNING id, name, code`,
		uuid.New(), name, code).
		Scan(&l.ID, &l.Name, &l.Code)
	return l, err
}

func (s *PGStore) ListTaxRates(ctx context.Context, locationID uuid.UUID) ([]TaxRate, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, location_id, rate_bps, effective_from, effective_to
		 FROM tax_rates WHERE location_id = $1 ORDER BY effective_from DESC`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaxRate
	for rows.Next() {
		var r TaxRate
		if err := rows.Scan(&r.ID, &r.LocationID, &r.RateBps, &r.EffectiveFrom, &r.EffectiveTo); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateTaxRate(ctx context.Context, r TaxRate) (TaxRate, error) {
	if r.RateBps < 0 {
		return TaxRate{}, errors.New("rate_bps must not be negative")
	}
	var out TaxRate
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO tax_rates (id, location_id, rate_bps, effective_from, effective_to)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, location_id, rate_bps, effective_from, effective_to`,
		uuid.New(), r.LocationID, r.RateBps, r.EffectiveFrom, r.EffectiveTo).
		Scan(&out.ID, &out.LocationID, &out.RateBps, &out.EffectiveFrom, &out.EffectiveTo)
	return out, err
}

func (s *PGStore) EffectiveTaxRate(ctx context.Context, locationID uuid.UUID, on time.Time) (TaxRate, error) {
	var r TaxRate
	err := s.Pool.QueryRow(ctx,
		`SELECT id, location_id, rate_bps, effective_from, effective_to
		 FROM tax_rates
		 WHERE location_id = $1
		   AND effective_from <= $2
		   AND (effective_to IS NULL OR effective_to >= $2)
		 ORDER BY effective_from DESC
		 LIMIT 1`, locationID, on).
		Scan(&r.ID, &r.LocationID, &r.RateBps, &r.EffectiveFrom, &r.EffectiveTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TaxRate{}, pgx.ErrNoRows
		}
		return TaxRate{}, err
	}
	return r, nil
}
