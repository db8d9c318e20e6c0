package salesday_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/salesday"
)

type stubDayStore struct {
	salesday.Store

	days      map[uuid.UUID]salesday.SalesDay
	open      map[uuid.UUID]uuid.UUID // locationID -> open day id
	collected money.Cents
}

func newStubDayStore() *stubDayStore {
	return &stubDayStore{
		days: map[uuid.UUID]salesday.SalesDay{},
		open: map[uuid.UUID]uuid.UUID{},
	}
}

func (s *stubDayStore) Open(_ context.Context, d salesday.SalesDay) (salesday.SalesDay, error) {
	d.ID = uuid.New()
	d.Status = salesday.StatusOpen
	d.OpenedAt = time.Now()
	s.days[d.ID] = d
	s.open[d.LocationID] = d.ID
	return d, nil
}

func (s *stubDayStore) Get(_ context.Context, id uuid.UUID) (salesday.SalesDay, error) {
	d, ok := s.days[id]
	if !ok {
		return salesday.SalesDay{}, pgx.ErrNoRows
	}
	return d, nil
}

func (s *stubDayStore) CurrentOpen(_ context.Context, locationID uuid.UUID) (salesday.SalesDay, error) {
	id, ok := s.open[locationID]
	if !ok {
		return salesday.SalesDay{}, pgx.ErrNoRows
	}
	return s.days[id], nil
}

func (s *stubDayStore) CashCollected(_ context.Context, _ uuid.UUID) (money.Cents, error) {
	return s.collected, nil
}

func (s *stubDayStore) Submit(_ context.Context, id uuid.UUID, expected, counted, overShort money.Cents, note string) (salesday.SalesDay, error) {
	d, ok := s.days[id]
	if !ok || d.Status != salesday.StatusOpen {
		return salesday.SalesDay{}, pgx.ErrNoRows
	}
	now := time.Now()
	d.Status = salesday.StatusSubmitted
	d.ExpectedCash = expected
	d.CountedCash = &counted
	d.OverShort = overShort
	if note != "" {
		d.Note = note
	}
	d.SubmittedAt = &now
	s.days[id] = d
	delete(s.open, d.LocationID)
	return d, nil
}

func (s *stubDayStore) Lock(_ context.Context, id uuid.UUID) (salesday.SalesDay, error) {
	d, ok := s.days[id]
	if !ok || d.Status != salesday.StatusSubmitted {
		return salesday.SalesDay{}, pgx.ErrNoRows
	}
	now := time.Now()
	d.Status = salesday.StatusLocked
	d.LockedAt = &now
	s.days[id] = d
	return d, nil
}

func (s *stubDayStore) Reopen(_ context.Context, id uuid.UUID) (salesday.SalesDay, error) {
	d, ok := s.days[id]
	if !ok || d.Status != salesday.StatusSubmitted {
		return salesday.SalesDay{}, pgx.ErrNoRows
	}
	d.Status = salesday.StatusOpen
	d.ExpectedCash = 0
	d.CountedCash = nil
	d.OverShort = 0
	d.SubmittedAt = nil
	s.days[id] = d
	s.open[d.LocationID] = id
	return d, nil
}

func newDayService(store *stubDayStore) *salesday.Service {
	return &salesday.Service{
		Store:               store,
		Log:                 zerolog.Nop(),
		DefaultStartingCash: 50000,
	}
}

func TestOpenUsesDefaultFloat(t *testing.T) {
	store := newStubDayStore()
	svc := newDayService(store)

	day, err := svc.Open(context.Background(), uuid.New(), nil, "")
	require.NoError(t, err)
	require.Equal(t, salesday.StatusOpen, day.Status)
	require.EqualValues(t, 50000, day.StartingCash)
}

func TestOpenRejectsSecondOpenDay(t *testing.T) {
	store := newStubDayStore()
	svc := newDayService(store)
	locationID := uuid.New()

	_, err := svc.Open(context.Background(), locationID, nil, "")
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), locationID, nil, "")
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
}

func TestSubmitComputesExpectedAndOverShort(t *testing.T) {
	store := newStubDayStore()
	store.collected = 32500
	svc := newDayService(store)

	day, err := svc.Open(context.Background(), uuid.New(), nil, "")
	require.NoError(t, err)

	// Drawer should hold 50000 + 32500; counting 82000 leaves it 500 short.
	submitted, err := svc.Submit(context.Background(), day.ID, 82000, "")
	require.NoError(t, err)
	require.Equal(t, salesday.StatusSubmitted, submitted.Status)
	require.EqualValues(t, 82500, submitted.ExpectedCash)
	require.EqualValues(t, -500, submitted.OverShort)
}

type fixedDeductions struct {
	total money.Cents
}

func (f fixedDeductions) TotalForDay(_ context.Context, _ uuid.UUID) (money.Cents, error) {
	return f.total, nil
}

func TestSubmitSubtractsDeductions(t *testing.T) {
	store := newStubDayStore()
	store.collected = 32500
	svc := newDayService(store)
	svc.Deductions = fixedDeductions{total: 2500}

	day, err := svc.Open(context.Background(), uuid.New(), nil, "")
	require.NoError(t, err)

	submitted, err := svc.Submit(context.Background(), day.ID, 80000, "")
	require.NoError(t, err)
	require.EqualValues(t, 80000, submitted.ExpectedCash)
	require.EqualValues(t, 0, submitted.OverShort)
}

func TestSubmitTwiceConflicts(t *testing.T) {
	store := newStubDayStore()
	svc := newDayService(store)

	day, err := svc.Open(context.Background(), uuid.New(), nil, "")
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), day.ID, 50000, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), day.ID, 50000, "")
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
}

func TestLockAndReopenTransitions(t *testing.T) {
	store := newStubDayStore()
	svc := newDayService(store)

	day, err := svc.Open(context.Background(), uuid.New(), nil, "")
	require.NoError(t, err)

	// Locking an open day is not allowed.
	_, err = svc.Lock(context.Background(), day.ID)
	require.Error(t, err)

	_, err = svc.Submit(context.Background(), day.ID, 50000, "")
	require.NoError(t, err)

	reopened, err := svc.Reopen(context.Background(), day.ID)
	require.NoError(t, err)
	require.Equal(t, salesday.StatusOpen, reopened.Status)
	require.Nil(t, reopened.CountedCash)

	_, err = svc.Submit(context.Background(), day.ID, 50000, "")
	require.NoError(t, err)
	locked, err := svc.Lock(context.Background(), day.ID)
	require.NoError(t, err)
	require.Equal(t, salesday.StatusLocked, locked.Status)

	// Locked is terminal.
	_, err = svc.Reopen(context.Background(), day.ID)
	require.Error(t, err)
}
