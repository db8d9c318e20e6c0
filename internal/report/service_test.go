package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mchalloran/backend-pos/internal/catalog"
	"github.com/mchalloran/backend-pos/internal/money"
	"github.com/mchalloran/backend-pos/internal/report"
	"github.com/mchalloran/backend-pos/internal/salesday"
)

type stubQueries struct {
	totals     report.Totals
	byLocation map[uuid.UUID]report.Totals
	calls      int
}

func (s *stubQueries) DayTotals(_ context.Context, _ uuid.UUID) (report.Totals, error) {
	s.calls++
	return s.totals, nil
}

func (s *stubQueries) DayCategories(_ context.Context, _ uuid.UUID) ([]report.CategoryBreakdown, error) {
	return []report.CategoryBreakdown{
		{CategoryID: uuid.New(), CategoryName: "Grooming", Pretax: 10000, Tax: 825, Total: 10825},
	}, nil
}

func (s *stubQueries) DayPayments(_ context.Context, _ uuid.UUID) ([]report.PaymentBreakdown, error) {
	return []report.PaymentBreakdown{
		{PaymentTypeID: uuid.New(), PaymentTypeName: "Cash", Amount: 10825, TenderCount: 1},
	}, nil
}

func (s *stubQueries) DayDeductions(_ context.Context, _ uuid.UUID) (money.Cents, error) {
	return 1500, nil
}

func (s *stubQueries) RangeTotals(_ context.Context, locationID *uuid.UUID, _, _ time.Time) (report.Totals, error) {
	s.calls++
	if locationID == nil {
		return s.totals, nil
	}
	return s.byLocation[*locationID], nil
}

func (s *stubQueries) RangeCategories(_ context.Context, _ *uuid.UUID, _, _ time.Time) ([]report.CategoryBreakdown, error) {
	return nil, nil
}

func (s *stubQueries) RangePayments(_ context.Context, _ *uuid.UUID, _, _ time.Time) ([]report.PaymentBreakdown, error) {
	return nil, nil
}

type stubDayResolver struct {
	day salesday.SalesDay
}

func (s *stubDayResolver) Get(_ context.Context, _ uuid.UUID) (salesday.SalesDay, error) {
	return s.day, nil
}

type stubLocations struct {
	rows []catalog.Location
}

func (s *stubLocations) ListLocations(_ context.Context) ([]catalog.Location, error) {
	return s.rows, nil
}

func newReportService(t *testing.T, q report.Queries, days report.DayResolver, locs report.LocationLister) *report.Service {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &report.Service{
		Q:         q,
		Days:      days,
		Locations: locs,
		R:         client,
		TTL:       time.Minute,
		Log:       zerolog.Nop(),
	}
}

func TestDayEODBuildsAndCaches(t *testing.T) {
	dayID := uuid.New()
	counted := money.Cents(82000)
	queries := &stubQueries{
		totals: report.Totals{Subtotal: 10000, TaxTotal: 825, Total: 10825, TotalPaid: 10825, TicketCount: 1},
	}
	days := &stubDayResolver{day: salesday.SalesDay{
		ID:           dayID,
		LocationID:   uuid.New(),
		BusinessDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:       salesday.StatusSubmitted,
		StartingCash: 50000,
		ExpectedCash: 82500,
		CountedCash:  &counted,
		OverShort:    -500,
	}}
	svc := newReportService(t, queries, days, nil)

	out, err := svc.DayEOD(context.Background(), dayID, false)
	require.NoError(t, err)
	require.Equal(t, "2026-03-14", out.BusinessDate)
	require.EqualValues(t, 10825, out.Totals.Total)
	require.EqualValues(t, -500, out.OverShort)
	require.EqualValues(t, 1500, out.Deductions)
	require.Len(t, out.Categories, 1)
	require.Len(t, out.Payments, 1)
	firstCalls := queries.calls

	// Second build is served from cache.
	_, err = svc.DayEOD(context.Background(), dayID, false)
	require.NoError(t, err)
	require.Equal(t, firstCalls, queries.calls)

	// A forced refresh goes back to the database.
	_, err = svc.DayEOD(context.Background(), dayID, true)
	require.NoError(t, err)
	require.Greater(t, queries.calls, firstCalls)
}

func TestMasterRangeSkipsIdleLocations(t *testing.T) {
	busy := catalog.Location{ID: uuid.New(), Name: "Main", Code: "MAIN"}
	idle := catalog.Location{ID: uuid.New(), Name: "Annex", Code: "ANX"}
	queries := &stubQueries{
		totals: report.Totals{Total: 10825, TicketCount: 1},
		byLocation: map[uuid.UUID]report.Totals{
			busy.ID: {Total: 10825, TicketCount: 1},
			idle.ID: {},
		},
	}
	svc := newReportService(t, queries, nil, &stubLocations{rows: []catalog.Location{busy, idle}})

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	out, err := svc.MasterRange(context.Background(), from, to)
	require.NoError(t, err)
	require.EqualValues(t, 10825, out.Totals.Total)
	require.Len(t, out.Locations, 1)
	require.Equal(t, &busy.ID, out.Locations[0].LocationID)
}
