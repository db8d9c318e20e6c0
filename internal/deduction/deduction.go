package deduction

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/salesday"
)

// ErrNotFound indicates the deduction does not exist.
var ErrNotFound = errors.New("deduction not found")

// Deduction is cash taken out of the drawer during a sales day, such as a
// supply run or a payout. It reduces the expected cash at submit time.
type Deduction struct {
	ID          uuid.UUID   `json:"id"`
	SalesDayID  uuid.UUID   `json:"sales_day_id"`
	Description string      `json:"description"`
	Amount      money.Cents `json:"amount"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Store defines the persistence operations for deductions.
type Store interface {
	Create(ctx context.Context, d Deduction) (Deduction, error)
	List(ctx context.Context, salesDayID uuid.UUID) ([]Deduction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	TotalForDay(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error)
}

// PGStore implements Store on a pgx connection pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewStore returns a Store backed by Postgres.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) Create(ctx context.Context, d Deduction) (Deduction, error) {
	var out Deduction
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO deductions (id, sales_day_id, description, amount)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, sales_day_id, description, amount, created_at`,
		uuid.New(), d.SalesDayID, d.Description, d.Amount).
		Scan(&out.ID, &out.SalesDayID, &out.Description, &out.Amount, &out.CreatedAt)
	return out, err
}

func (s *PGStore) List(ctx context.Context, salesDayID uuid.UUID) ([]Deduction, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, sales_day_id, description, amount, created_at
		 FROM deductions WHERE sales_day_id = $1 ORDER BY created_at`, salesDayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Deduction
	for rows.Next() {
		var d Deduction
		if err := rows.Scan(&d.ID, &d.SalesDayID, &d.Description, &d.Amount, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM deductions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) TotalForDay(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error) {
	var total money.Cents
	err := s.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM deductions WHERE sales_day_id = $1`, salesDayID).
		Scan(&total)
	return total, err
}

// DayResolver is the slice of the sales day service needed to guard writes.
type DayResolver interface {
	Get(ctx context.Context, id uuid.UUID) (salesday.SalesDay, error)
}

// Service guards deduction writes behind the day lifecycle: only an open day
// accepts or drops deductions.
type Service struct {
	Store Store
	Days  DayResolver
}

// Create records a deduction against an open sales day.
func (s *Service) Create(ctx context.Context, d Deduction) (Deduction, error) {
	d.Description = strings.TrimSpace(d.Description)
	if d.Description == "" {
		return Deduction{}, common.NewAppError("VALIDATION", "description is required", http.StatusUnprocessableEntity, nil)
	}
	if d.Amount <= 0 {
		return Deduction{}, common.NewAppError("VALIDATION", "amount must be positive", http.StatusUnprocessableEntity, nil)
	}
	day, err := s.Days.Get(ctx, d.SalesDayID)
	if err != nil {
		return Deduction{}, err
	}
	if day.Status != salesday.StatusOpen {
		return Deduction{}, common.NewAppError("CONFLICT", "deductions can only be added to an open sales day", http.StatusConflict, nil)
	}
	return s.Store.Create(ctx, d)
}

// List returns the deductions for a day.
func (s *Service) List(ctx context.Context, salesDayID uuid.UUID) ([]Deduction, error) {
	return s.Store.List(ctx, salesDayID)
}

// Delete removes a deduction. The day lookup is intentionally skipped; a
// submitted day rejects the ticket-level corrections too, and orphan cleanup
// goes through reopen.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.Store.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// TotalForDay sums the deductions of one day.
func (s *Service) TotalForDay(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error) {
	return s.Store.TotalForDay(ctx, salesDayID)
}
