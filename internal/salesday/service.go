package salesday

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/events"
	"github.com/mchalloran/backend-pos/internal/money"
)

// ErrNotFound indicates the sales day does not exist.
var ErrNotFound = errors.New("sales day not found")

// DeductionSource reports the cash taken out of the drawer during a day.
type DeductionSource interface {
	TotalForDay(ctx context.Context, salesDayID uuid.UUID) (money.Cents, error)
}

// Service drives the drawer lifecycle. State transitions are guarded both
// here and in the store's conditional updates, so a lost race surfaces as a
// conflict instead of a double transition.
type Service struct {
	Store      Store
	Deductions DeductionSource
	Events     *events.Bus
	Log        zerolog.Logger
	// DefaultStartingCash seeds the drawer when the open request does not
	// name a float.
	DefaultStartingCash money.Cents
	Now                 func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Open starts a new day for the location. Only one open day per location is
// allowed at a time.
func (s *Service) Open(ctx context.Context, locationID uuid.UUID, startingCash *money.Cents, note string) (SalesDay, error) {
	if locationID == uuid.Nil {
		return SalesDay{}, common.NewAppError("VALIDATION", "location_id is required", http.StatusUnprocessableEntity, nil)
	}
	float := s.DefaultStartingCash
	if startingCash != nil {
		if *startingCash < 0 {
			return SalesDay{}, common.NewAppError("VALIDATION", "starting_cash must not be negative", http.StatusUnprocessableEntity, nil)
		}
		float = *startingCash
	}
	if _, err := s.Store.CurrentOpen(ctx, locationID); err == nil {
		return SalesDay{}, common.NewAppError("CONFLICT", "location already has an open sales day", http.StatusConflict, nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return SalesDay{}, err
	}
	day, err := s.Store.Open(ctx, SalesDay{
		LocationID:   locationID,
		BusinessDate: s.now().UTC().Truncate(24 * time.Hour),
		StartingCash: float,
		Note:         note,
	})
	if err != nil {
		return SalesDay{}, err
	}
	s.Log.Info().
		Str("sales_day_id", day.ID.String()).
		Str("location_id", locationID.String()).
		Int64("starting_cash", int64(day.StartingCash)).
		Msg("sales day opened")
	return day, nil
}

// Current returns the open day for the location.
func (s *Service) Current(ctx context.Context, locationID uuid.UUID) (SalesDay, error) {
	day, err := s.Store.CurrentOpen(ctx, locationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesDay{}, ErrNotFound
	}
	return day, err
}

// Get fetches a single day.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (SalesDay, error) {
	day, err := s.Store.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesDay{}, ErrNotFound
	}
	return day, err
}

// List returns the day history for a location.
func (s *Service) List(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]SalesDay, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.List(ctx, locationID, limit, offset)
}

// Submit closes out the drawer: expected cash is the starting float plus
// every cash tender on the day's tickets minus drawer deductions, and
// over/short is counted minus expected. The day moves to submitted and the
// rollup pipeline is notified.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, counted money.Cents, note string) (SalesDay, error) {
	if counted < 0 {
		return SalesDay{}, common.NewAppError("VALIDATION", "counted_cash must not be negative", http.StatusUnprocessableEntity, nil)
	}
	day, err := s.Get(ctx, id)
	if err != nil {
		return SalesDay{}, err
	}
	if day.Status != StatusOpen {
		return SalesDay{}, common.NewAppError("CONFLICT", "only an open sales day can be submitted", http.StatusConflict, nil)
	}
	collected, err := s.Store.CashCollected(ctx, id)
	if err != nil {
		return SalesDay{}, err
	}
	expected := money.Add(day.StartingCash, collected)
	if s.Deductions != nil {
		deducted, err := s.Deductions.TotalForDay(ctx, id)
		if err != nil {
			return SalesDay{}, err
		}
		expected = money.Add(expected, money.Negate(deducted))
	}
	overShort := counted - expected
	updated, err := s.Store.Submit(ctx, id, expected, counted, overShort, note)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesDay{}, common.NewAppError("CONFLICT", "sales day is no longer open", http.StatusConflict, nil)
		}
		return SalesDay{}, err
	}
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicSalesDaySubmitted, updated.ID, map[string]any{
			"location_id":   updated.LocationID,
			"business_date": updated.BusinessDate.Format("2006-01-02"),
			"expected_cash": updated.ExpectedCash,
			"counted_cash":  counted,
			"over_short":    updated.OverShort,
		}); err != nil {
			s.Log.Warn().Err(err).Msg("emit sales day submitted")
		}
	}
	s.Log.Info().
		Str("sales_day_id", id.String()).
		Int64("expected_cash", int64(updated.ExpectedCash)).
		Int64("over_short", int64(updated.OverShort)).
		Msg("sales day submitted")
	return updated, nil
}

// Lock makes a submitted day immutable.
func (s *Service) Lock(ctx context.Context, id uuid.UUID) (SalesDay, error) {
	day, err := s.Store.Lock(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesDay{}, common.NewAppError("CONFLICT", "only a submitted sales day can be locked", http.StatusConflict, nil)
	}
	return day, err
}

// Reopen returns a submitted day to open so corrections can be posted. A
// locked day stays locked.
func (s *Service) Reopen(ctx context.Context, id uuid.UUID) (SalesDay, error) {
	day, err := s.Store.Reopen(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesDay{}, common.NewAppError("CONFLICT", "only a submitted sales day can be reopened", http.StatusConflict, nil)
	}
	return day, err
}
