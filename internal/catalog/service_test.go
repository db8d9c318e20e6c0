package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mchalloran/backend-pos/internal/catalog"
)

type stubStore struct {
	catalog.Store

	rate        catalog.TaxRate
	rateErr     error
	rateLookups int
}

func (s *stubStore) EffectiveTaxRate(_ context.Context, locationID uuid.UUID, _ time.Time) (catalog.TaxRate, error) {
	s.rateLookups++
	if s.rateErr != nil {
		return catalog.TaxRate{}, s.rateErr
	}
	r := s.rate
	r.LocationID = locationID
	return r, nil
}

func newTestCache(t *testing.T) *catalog.Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute)
}

func TestResolveTaxRateCachesPerDay(t *testing.T) {
	store := &stubStore{rate: catalog.TaxRate{ID: uuid.New(), RateBps: 825}}
	svc := &catalog.Service{
		Store:             store,
		Cache:             newTestCache(t),
		DefaultTaxRateBps: 700,
	}

	locationID := uuid.New()
	on := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	rate, err := svc.ResolveTaxRate(context.Background(), locationID, on)
	require.NoError(t, err)
	require.EqualValues(t, 825, rate)
	require.Equal(t, 1, store.rateLookups)

	rate, err = svc.ResolveTaxRate(context.Background(), locationID, on)
	require.NoError(t, err)
	require.EqualValues(t, 825, rate)
	require.Equal(t, 1, store.rateLookups, "second resolution should be served from cache")
}

func TestResolveTaxRateFallsBackToDefault(t *testing.T) {
	store := &stubStore{rateErr: pgx.ErrNoRows}
	svc := &catalog.Service{
		Store:             store,
		Cache:             newTestCache(t),
		DefaultTaxRateBps: 825,
	}

	rate, err := svc.ResolveTaxRate(context.Background(), uuid.New(), time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 825, rate)
}

func TestResolveTaxRateWorksWithoutCache(t *testing.T) {
	store := &stubStore{rate: catalog.TaxRate{ID: uuid.New(), RateBps: 600}}
	svc := &catalog.Service{Store: store, DefaultTaxRateBps: 825}

	rate, err := svc.ResolveTaxRate(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 600, rate)
	require.Equal(t, 1, store.rateLookups)
}
