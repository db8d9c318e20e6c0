package ticket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mchalloran/backend-pos/internal/settlement"
)

// ListFilter narrows ticket listings.
type ListFilter struct {
	LocationID *uuid.UUID
	SalesDayID *uuid.UUID
	OpenOnly   bool
	Limit      int
	Offset     int
}

// PostParams carries the full transaction graph to persist in one unit.
// When CreateTicket is set a new ticket row is inserted first and the
// transaction attaches to it.
type PostParams struct {
	CreateTicket bool
	Ticket       Ticket
	Transaction  Transaction
	Lines        []LineItem
	Tenders      []Tender
	Allocations  []TenderAllocation
}

// Store defines the persistence operations required by the ticket service.
type Store interface {
	GetTicket(ctx context.Context, id uuid.UUID) (Ticket, error)
	ListTickets(ctx context.Context, f ListFilter) ([]Ticket, int, error)
	ListTransactions(ctx context.Context, ticketID uuid.UUID) ([]Transaction, error)
	ListLineItems(ctx context.Context, ticketID uuid.UUID) ([]LineItem, error)
	ListTenders(ctx context.Context, ticketID uuid.UUID) ([]Tender, error)

	// PostTransaction persists the transaction graph, recomputes the ticket
	// snapshot, refreshes the cached totals, and returns the updated ticket.
	// All of it happens in a single database transaction.
	PostTransaction(ctx context.Context, p PostParams) (Ticket, Transaction, error)

	// VoidTransaction stamps the transaction voided, drops its rows from the
	// settlement snapshot, and refreshes the ticket totals atomically.
	VoidTransaction(ctx context.Context, ticketID, txnID uuid.UUID) (Ticket, Transaction, error)

	// SoftDeleteTicket marks the ticket deleted and returns its final state.
	SoftDeleteTicket(ctx context.Context, id uuid.UUID) (Ticket, error)
}

// PGStore implements Store on a pgx connection pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewStore returns a Store backed by Postgres.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

const ticketColumns = `id, ticket_number, location_id, sales_day_id, note, subtotal, tax_total,
	total, total_paid, balance_owed, is_open, created_at, updated_at, deleted_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.TicketNumber, &t.LocationID, &t.SalesDayID, &t.Note, &t.Subtotal,
		&t.TaxTotal, &t.Total, &t.TotalPaid, &t.BalanceOwed, &t.IsOpen, &t.CreatedAt, &t.UpdatedAt,
		&t.DeletedAt)
	return t, err
}

func (s *PGStore) GetTicket(ctx context.Context, id uuid.UUID) (Ticket, error) {
	return scanTicket(s.Pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (s *PGStore) ListTickets(ctx context.Context, f ListFilter) ([]Ticket, int, error) {
	query := `SELECT ` + ticketColumns + `, COUNT(*) OVER() AS total_count
		FROM tickets
		WHERE deleted_at IS NULL
		  AND ($1::uuid IS NULL OR location_id = $1)
		  AND ($2::uuid IS NULL OR sales_day_id = $2)
		  AND (NOT $3 OR is_open)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	rows, err := s.Pool.Query(ctx, query, f.LocationID, f.SalesDayID, f.OpenOnly, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Ticket
	var total int
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.TicketNumber, &t.LocationID, &t.SalesDayID, &t.Note,
			&t.Subtotal, &t.TaxTotal, &t.Total, &t.TotalPaid, &t.BalanceOwed, &t.IsOpen,
			&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (s *PGStore) ListTransactions(ctx context.Context, ticketID uuid.UUID) ([]Transaction, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, ticket_id, tax_rate_bps, created_at, voided_at
		 FROM transactions WHERE ticket_id = $1 ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.TicketID, &t.TaxRateBps, &t.CreatedAt, &t.VoidedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) ListLineItems(ctx context.Context, ticketID uuid.UUID) ([]LineItem, error) {
	return listLineItems(ctx, s.Pool, ticketID)
}

func (s *PGStore) ListTenders(ctx context.Context, ticketID uuid.UUID) ([]Tender, error) {
	return listTenders(ctx, s.Pool, ticketID)
}

func listLineItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, ticketID uuid.UUID) ([]LineItem, error) {
	rows, err := q.Query(ctx,
		`SELECT li.id, li.transaction_id, li.category_id, li.description, li.unit_price,
		        li.quantity, li.is_return, li.taxable, li.pretax, li.tax, li.total
		 FROM line_items li
		 JOIN transactions t ON t.id = li.transaction_id
		 WHERE t.ticket_id = $1 AND t.voided_at IS NULL
		 ORDER BY li.created_at, li.id`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LineItem
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.CategoryID, &l.Description, &l.UnitPrice,
			&l.Quantity, &l.IsReturn, &l.Taxable, &l.Pretax, &l.Tax, &l.Total); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func listTenders(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, ticketID uuid.UUID) ([]Tender, error) {
	rows, err := q.Query(ctx,
		`SELECT td.id, td.transaction_id, td.payment_type_id, td.amount, td.is_layaway, td.desired_total
		 FROM tenders td
		 JOIN transactions t ON t.id = td.transaction_id
		 WHERE t.ticket_id = $1 AND t.voided_at IS NULL
		 ORDER BY td.created_at, td.id`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tender
	for rows.Next() {
		var td Tender
		if err := rows.Scan(&td.ID, &td.TransactionID, &td.PaymentTypeID, &td.Amount, &td.IsLayaway, &td.DesiredTotal); err != nil {
			return nil, err
		}
		out = append(out, td)
	}
	return out, rows.Err()
}

func (s *PGStore) PostTransaction(ctx context.Context, p PostParams) (Ticket, Transaction, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Ticket{}, Transaction{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ticketID := p.Ticket.ID
	if p.CreateTicket {
		if ticketID == uuid.Nil {
			ticketID = uuid.New()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tickets (id, location_id, sales_day_id, note)
			 VALUES ($1, $2, $3, $4)`,
			ticketID, p.Ticket.LocationID, p.Ticket.SalesDayID, p.Ticket.Note); err != nil {
			return Ticket{}, Transaction{}, err
		}
	} else {
		// Lock the row so concurrent posts serialize on the snapshot refresh.
		if _, err := scanTicket(tx.QueryRow(ctx,
			`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
			ticketID)); err != nil {
			return Ticket{}, Transaction{}, err
		}
	}

	txn := p.Transaction
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.TicketID = ticketID
	if err := tx.QueryRow(ctx,
		`INSERT INTO transactions (id, ticket_id, tax_rate_bps)
		 VALUES ($1, $2, $3)
		 RETURNING id, ticket_id, tax_rate_bps, created_at, voided_at`,
		txn.ID, ticketID, txn.TaxRateBps).
		Scan(&txn.ID, &txn.TicketID, &txn.TaxRateBps, &txn.CreatedAt, &txn.VoidedAt); err != nil {
		return Ticket{}, Transaction{}, err
	}

	for _, l := range p.Lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO line_items
			   (id, transaction_id, category_id, description, unit_price, quantity,
			    is_return, taxable, pretax, tax, total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			l.ID, txn.ID, l.CategoryID, l.Description, l.UnitPrice, l.Quantity,
			l.IsReturn, l.Taxable, l.Pretax, l.Tax, l.Total); err != nil {
			return Ticket{}, Transaction{}, err
		}
	}
	for _, td := range p.Tenders {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenders (id, transaction_id, payment_type_id, amount, is_layaway, desired_total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			td.ID, txn.ID, td.PaymentTypeID, td.Amount, td.IsLayaway, td.DesiredTotal); err != nil {
			return Ticket{}, Transaction{}, err
		}
	}
	for _, a := range p.Allocations {
		if _, err := tx.Exec(ctx,
			`INSERT INTO line_item_tenders (id, tender_id, line_item_id, applied_pretax, applied_tax, applied_total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, a.TenderID, a.LineItemID, a.AppliedPretax, a.AppliedTax, a.AppliedTotal); err != nil {
			return Ticket{}, Transaction{}, err
		}
	}

	updated, err := refreshTicketTotals(ctx, tx, ticketID)
	if err != nil {
		return Ticket{}, Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Ticket{}, Transaction{}, err
	}
	return updated, txn, nil
}

func (s *PGStore) VoidTransaction(ctx context.Context, ticketID, txnID uuid.UUID) (Ticket, Transaction, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Ticket{}, Transaction{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := scanTicket(tx.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		ticketID)); err != nil {
		return Ticket{}, Transaction{}, err
	}

	var txn Transaction
	if err := tx.QueryRow(ctx,
		`UPDATE transactions SET voided_at = now()
		 WHERE id = $1 AND ticket_id = $2 AND voided_at IS NULL
		 RETURNING id, ticket_id, tax_rate_bps, created_at, voided_at`,
		txnID, ticketID).
		Scan(&txn.ID, &txn.TicketID, &txn.TaxRateBps, &txn.CreatedAt, &txn.VoidedAt); err != nil {
		return Ticket{}, Transaction{}, err
	}

	updated, err := refreshTicketTotals(ctx, tx, ticketID)
	if err != nil {
		return Ticket{}, Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Ticket{}, Transaction{}, err
	}
	return updated, txn, nil
}

func (s *PGStore) SoftDeleteTicket(ctx context.Context, id uuid.UUID) (Ticket, error) {
	return scanTicket(s.Pool.QueryRow(ctx,
		`UPDATE tickets SET deleted_at = now(), is_open = FALSE, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+ticketColumns, id))
}

// refreshTicketTotals recomputes the summary from the non-voided snapshot and
// writes the cached columns back, inside the caller's transaction.
func refreshTicketTotals(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) (Ticket, error) {
	lines, err := listLineItems(ctx, tx, ticketID)
	if err != nil {
		return Ticket{}, err
	}
	tenders, err := listTenders(ctx, tx, ticketID)
	if err != nil {
		return Ticket{}, err
	}
	summary := Summarize(lines, tenders)
	return writeTicketTotals(ctx, tx, ticketID, summary)
}

func writeTicketTotals(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID, s settlement.Summary) (Ticket, error) {
	return scanTicket(tx.QueryRow(ctx,
		`UPDATE tickets
		 SET subtotal = $2, tax_total = $3, total = $4, total_paid = $5,
		     balance_owed = $6, is_open = $7, updated_at = $8
		 WHERE id = $1
		 RETURNING `+ticketColumns,
		ticketID, s.Subtotal, s.TaxTotal, s.Total, s.TotalPaid, s.BalanceOwed, s.IsOpen, time.Now().UTC()))
}
