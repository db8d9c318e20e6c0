package salesday

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mchalloran/backend-pos/internal/money"
)

// Store defines the persistence operations required by the sales day service.
type Store interface {
	Open(ctx context.Context, d SalesDay) (SalesDay, error)
	Get(ctx context.Context, id uuid.UUID) (SalesDay, error)
	// CurrentOpen returns the open day for a location, or pgx.ErrNoRows.
	CurrentOpen(ctx context.Context, locationID uuid.UUID) (SalesDay, error)
	List(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]SalesDay, error)
	// CashCollected sums non-voided tenders of cash-like payment types across
	// the day's tickets.
	CashCollected(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error)
	Submit(ctx context.Context, id uuid.UUID, expected, counted, overShort money.Cents, note string) (SalesDay, error)
	Lock(ctx context.Context, id uuid.UUID) (SalesDay, error)
	Reopen(ctx context.Context, id uuid.UUID) (SalesDay, error)
}

// PGStore implements Store on a pgx connection pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewStore returns a Store backed by Postgres.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

const dayColumns = `id, location_id, business_date, status, starting_cash, expected_cash,
	counted_cash, over_short, note, opened_at, submitted_at, locked_at`

func scanDay(row pgx.Row) (SalesDay, error) {
	var d SalesDay
	err := row.Scan(&d.ID, &d.LocationID, &d.BusinessDate, &d.Status, &d.StartingCash,
		&d.ExpectedCash, &d.CountedCash, &d.OverShort, &d.Note, &d.OpenedAt, &d.SubmittedAt, &d.LockedAt)
	return d, err
}

func (s *PGStore) Open(ctx context.Context, d SalesDay) (SalesDay, error) {
	return scanDay(s.Pool.QueryRow(ctx,
		`INSERT INTO sales_days (id, location_id, business_date, status, starting_cash, note)
		 VALUES ($1, $2, $3, 'open', $4, $5)
		 RETURNING `+dayColumns,
		uuid.New(), d.LocationID, d.BusinessDate, d.StartingCash, d.Note))
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (SalesDay, error) {
	return scanDay(s.Pool.QueryRow(ctx,
		`SELECT `+dayColumns+` FROM sales_days WHERE id = $1`, id))
}

func (s *PGStore) CurrentOpen(ctx context.Context, locationID uuid.UUID) (SalesDay, error) {
	return scanDay(s.Pool.QueryRow(ctx,
		`SELECT `+dayColumns+` FROM sales_days
		 WHERE location_id = $1 AND status = 'open'
		 ORDER BY opened_at DESC LIMIT 1`, locationID))
}

func (s *PGStore) List(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]SalesDay, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+dayColumns+` FROM sales_days
		 WHERE location_id = $1
		 ORDER BY business_date DESC
		 LIMIT $2 OFFSET $3`, locationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SalesDay
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) CashCollected(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error) {
	var total money.Cents
	err := s.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(td.amount), 0)
		 FROM tenders td
		 JOIN transactions tr ON tr.id = td.transaction_id AND tr.voided_at IS NULL
		 JOIN tickets tk ON tk.id = tr.ticket_id AND tk.deleted_at IS NULL
		 JOIN payment_types pt ON pt.id = td.payment_type_id
		 WHERE tk.sales_day_id = $1 AND pt.counts_as_cash`, salesDayID).
		Scan(&total)
	return total, err
}

func (s *PGStore) Submit(ctx context.Context, id uuid.UUID, expected, counted, overShort money.Cents, note string) (SalesDay, error) {
	return scanDay(s.Pool.QueryRow(ctx,
		`UPDATE sales_days
		 SET status = 'submitted', expected_cash = $2, counted_cash = $3, over_short = $4,
		     note = CASE WHEN $5 = '' THEN note ELSE $5 END, submitted_at = now()
		 WHERE id = $1 AND status = 'open'
		 RETURNING `+dayColumns,
		id, expected, counted, overShort, note))
}

func (s *PGStore) Lock(ctx context.Context, id uuid.UUID) (SalesDay, error) {
	return scanDay(s.Pool.QueryRow(ctx,
		`UPDATE sales_days SET status = 'locked', locked_at = now()
		 WHERE id = $1 AND status = 'submitted'
		 RETURNING `+dayColumns, id))
}

func (s *PGStore) Reopen(ctx context.Context, id uuid.UUID) (SalesDay, error) {
	return scanDay(s.Pool.QueryRow(ctx,
		`UPDATE sales_days
		 SET status = 'open', expected_cash = 0, counted_cash = NULL, over_short = 0, submitted_at = NULL
		 WHERE id = $1 AND status = 'submitted'
		 RETURNING `+dayColumns, id))
}
