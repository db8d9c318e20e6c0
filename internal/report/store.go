package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mchalloran/backend-pos/internal/money"
)

// Queries defines the aggregation reads behind the report service. Day
// queries are scoped to one sales day; range queries cover tickets by
// business timestamp and optionally by location.
type Queries interface {
	DayTotals(ctx context.Context, salesDayID uuid.UUID) (Totals, error)
	DayCategories(ctx context.Context, salesDayID uuid.UUID) ([]CategoryBreakdown, error)
	DayPayments(ctx context.Context, salesDayID uuid.UUID) ([]PaymentBreakdown, error)
	DayDeductions(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error)

	RangeTotals(ctx context.Context, locationID *uuid.UUID, from, to time.Time) (Totals, error)
	RangeCategories(ctx context.Context, locationID *uuid.UUID, from, to time.Time) ([]CategoryBreakdown, error)
	RangePayments(ctx context.Context, locationID *uuid.UUID, from, to time.Time) ([]PaymentBreakdown, error)
}

// PGQueries implements Queries on a pgx connection pool. Everything reads the
// frozen per-line and per-tender figures; nothing is re-derived from prices,
// so reports agree with the tickets to the cent.
type PGQueries struct {
	Pool *pgxpool.Pool
}

// NewQueries returns Queries backed by Postgres.
func NewQueries(pool *pgxpool.Pool) *PGQueries {
	return &PGQueries{Pool: pool}
}

func (q *PGQueries) DayTotals(ctx context.Context, salesDayID uuid.UUID) (Totals, error) {
	var t Totals
	err := q.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(subtotal), 0), COALESCE(SUM(tax_total), 0), COALESCE(SUM(total), 0),
		        COALESCE(SUM(total_paid), 0), COALESCE(SUM(balance_owed), 0),
		        COUNT(*), COUNT(*) FILTER (WHERE is_open)
		 FROM tickets
		 WHERE sales_day_id = $1 AND deleted_at IS NULL`, salesDayID).
		Scan(&t.Subtotal, &t.TaxTotal, &t.Total, &t.TotalPaid, &t.BalanceOwed,
			&t.TicketCount, &t.OpenTicketCount)
	return t, err
}

const dayCategorySQL = `
	SELECT li.category_id, sc.name,
	       COALESCE(SUM(li.pretax), 0), COALESCE(SUM(li.tax), 0), COALESCE(SUM(li.total), 0)
	FROM line_items li
	JOIN transactions tr ON tr.id = li.transaction_id AND tr.voided_at IS NULL
	JOIN tickets tk ON tk.id = tr.ticket_id AND tk.deleted_at IS NULL
	JOIN sales_categories sc ON sc.id = li.category_id
	WHERE tk.sales_day_id = $1
	GROUP BY li.category_id, sc.name
	ORDER BY sc.name`

func (q *PGQueries) DayCategories(ctx context.Context, salesDayID uuid.UUID) ([]CategoryBreakdown, error) {
	rows, err := q.Pool.Query(ctx, dayCategorySQL, salesDayID)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

const dayPaymentSQL = `
	SELECT td.payment_type_id, pt.name, COALESCE(SUM(td.amount), 0), COUNT(*)
	FROM tenders td
	JOIN transactions tr ON tr.id = td.transaction_id AND tr.voided_at IS NULL
	JOIN tickets tk ON tk.id = tr.ticket_id AND tk.deleted_at IS NULL
	JOIN payment_types pt ON pt.id = td.payment_type_id
	WHERE tk.sales_day_id = $1
	GROUP BY td.payment_type_id, pt.name
	ORDER BY pt.name`

func (q *PGQueries) DayPayments(ctx context.Context, salesDayID uuid.UUID) ([]PaymentBreakdown, error) {
	rows, err := q.Pool.Query(ctx, dayPaymentSQL, salesDayID)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (q *PGQueries) DayDeductions(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error) {
	var total money.Cents
	err := q.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM deductions WHERE sales_day_id = $1`, salesDayID).
		Scan(&total)
	return total, err
}

func (q *PGQueries) RangeTotals(ctx context.Context, locationID *uuid.UUID, from, to time.Time) (Totals, error) {
	var t Totals
	err := q.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(subtotal), 0), COALESCE(SUM(tax_total), 0), COALESCE(SUM(total), 0),
		        COALESCE(SUM(total_paid), 0), COALESCE(SUM(balance_owed), 0),
		        COUNT(*), COUNT(*) FILTER (WHERE is_open)
		 FROM tickets
		 WHERE deleted_at IS NULL
		   AND created_at >= $2 AND created_at < $3
		   AND ($1::uuid IS NULL OR location_id = $1)`, locationID, from, to).
		Scan(&t.Subtotal, &t.TaxTotal, &t.Total, &t.TotalPaid, &t.BalanceOwed,
			&t.TicketCount, &t.OpenTicketCount)
	return t, err
}

const rangeCategorySQL = `
	SELECT li.category_id, sc.name,
	       COALESCE(SUM(li.pretax), 0), COALESCE(SUM(li.tax), 0), COALESCE(SUM(li.total), 0)
	FROM line_items li
	JOIN transactions tr ON tr.id = li.transaction_id AND tr.voided_at IS NULL
	JOIN tickets tk ON tk.id = tr.ticket_id AND tk.deleted_at IS NULL
	JOIN sales_categories sc ON sc.id = li.category_id
	WHERE tk.created_at >= $2 AND tk.created_at < $3
	  AND ($1::uuid IS NULL OR tk.location_id = $1)
	GROUP BY li.category_id, sc.name
	ORDER BY sc.name`

func (q *PGQueries) RangeCategories(ctx context.Context, locationID *uuid.UUID, from, to time.Time) ([]CategoryBreakdown, error) {
	rows, err := q.Pool.Query(ctx, rangeCategorySQL, locationID, from, to)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

const rangePaymentSQL = `
	SELECT td.payment_type_id, pt.name, COALESCE(SUM(td.amount), 0), COUNT(*)
	FROM tenders td
	JOIN transactions tr ON tr.id = td.transaction_id AND tr.voided_at IS NULL
	JOIN tickets tk ON tk.id = tr.ticket_id AND tk.deleted_at IS NULL
	JOIN payment_types pt ON pt.id = td.payment_type_id
	WHERE tk.created_at >= $2 AND tk.created_at < $3
	  AND ($1::uuid IS NULL OR tk.location_id = $1)
	GROUP BY td.payment_type_id, pt.name
	ORDER BY pt.name`

func (q *PGQueries) RangePayments(ctx context.Context, locationID *uuid.UUID, from, to time.Time) ([]PaymentBreakdown, error) {
	rows, err := q.Pool.Query(ctx, rangePaymentSQL, locationID, from, to)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func scanCategories(rows pgx.Rows) ([]CategoryBreakdown, error) {
	defer rows.Close()
	var out []CategoryBreakdown
	for rows.Next() {
		var c CategoryBreakdown
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &c.Pretax, &c.Tax, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanPayments(rows pgx.Rows) ([]PaymentBreakdown, error) {
	defer rows.Close()
	var out []PaymentBreakdown
	for rows.Next() {
		var p PaymentBreakdown
		if err := rows.Scan(&p.PaymentTypeID, &p.PaymentTypeName, &p.Amount, &p.TenderCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
