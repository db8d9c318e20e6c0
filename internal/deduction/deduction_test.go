package deduction_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mchalloran/backend-pos/internal/common"
	"github.com/mchalloran/backend-pos/internal/deduction"
	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/salesday"
)

type memStore struct {
	rows map[uuid.UUID]deduction.Deduction
}

func (s *memStore) Create(_ context.Context, d deduction.Deduction) (deduction.Deduction, error) {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	s.rows[d.ID] = d
	return d, nil
}

func (s *memStore) List(_ context.Context, salesDayID uuid.UUID) ([]deduction.Deduction, error) {
	var out []deduction.Deduction
	for _, d := range s.rows {
		if d.SalesDayID == salesDayID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.rows[id]; !ok {
		return deduction.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) TotalForDay(_ context.Context, salesDayID uuid.UUID) (money.Cents, error) {
	var total money.Cents
	for _, d := range s.rows {
		if d.SalesDayID == salesDayID {
			total += d.Amount
		}
	}
	return total, nil
}

type stubDays struct {
	day salesday.SalesDay
}

func (s *stubDays) Get(_ context.Context, _ uuid.UUID) (salesday.SalesDay, error) {
	return s.day, nil
}

func TestCreateRequiresOpenDay(t *testing.T) {
	store := &memStore{rows: map[uuid.UUID]deduction.Deduction{}}
	days := &stubDays{day: salesday.SalesDay{ID: uuid.New(), Status: salesday.StatusSubmitted}}
	svc := &deduction.Service{Store: store, Days: days}

	_, err := svc.Create(context.Background(), deduction.Deduction{
		SalesDayID:  days.day.ID,
		Description: "ice run",
		Amount:      1500,
	})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)

	days.day.Status = salesday.StatusOpen
	d, err := svc.Create(context.Background(), deduction.Deduction{
		SalesDayID:  days.day.ID,
		Description: "ice run",
		Amount:      1500,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, d.ID)
}

func TestCreateValidatesInput(t *testing.T) {
	store := &memStore{rows: map[uuid.UUID]deduction.Deduction{}}
	days := &stubDays{day: salesday.SalesDay{Status: salesday.StatusOpen}}
	svc := &deduction.Service{Store: store, Days: days}

	_, err := svc.Create(context.Background(), deduction.Deduction{Description: " ", Amount: 100})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), deduction.Deduction{Description: "payout", Amount: 0})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), deduction.Deduction{Description: "payout", Amount: -50})
	require.Error(t, err)
}

func TestTotalForDaySums(t *testing.T) {
	store := &memStore{rows: map[uuid.UUID]deduction.Deduction{}}
	days := &stubDays{day: salesday.SalesDay{Status: salesday.StatusOpen}}
	svc := &deduction.Service{Store: store, Days: days}
	dayID := uuid.New()
	days.day.ID = dayID

	for _, amount := range []money.Cents{1500, 2000} {
		_, err := svc.Create(context.Background(), deduction.Deduction{
			SalesDayID:  dayID,
			Description: "payout",
			Amount:      amount,
		})
		require.NoError(t, err)
	}
	total, err := svc.TotalForDay(context.Background(), dayID)
	require.NoError(t, err)
	require.EqualValues(t, 3500, total)
}
