package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mchalloran/backend-pos/internal/catalog"
	"github.com/mchalloran/backend-pos/internal/obs"
	"github.com/mchalloran/backend-pos/internal/salesday"
)

// DayResolver fetches the sales day the report describes.
type DayResolver interface {
	Get(ctx context.Context, id uuid.UUID) (salesday.SalesDay, error)
}

// LocationLister enumerates locations for the master rollup.
type LocationLister interface {
	ListLocations(ctx context.Context) ([]catalog.Location, error)
}

// Service builds EOD and range reports with a cache-aside Redis layer. A
// report is rebuilt from the database on miss or when the caller forces a
// refresh, which the rollup worker does after every drawer submit.
type Service struct {
	Q         Queries
	Days      DayResolver
	Locations LocationLister
	R         *redis.Client
	TTL       time.Duration
	Log       zerolog.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts)+1)
	formatted = append(formatted, "report")
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// DayEOD builds the end-of-day report for one sales day.
func (s *Service) DayEOD(ctx context.Context, salesDayID uuid.UUID, refresh bool) (DayReport, error) {
	if s == nil || s.Q == nil || s.Days == nil {
		return DayReport{}, errors.New("report service not configured")
	}
	key := cacheKey("day", salesDayID)
	if !refresh {
		var cached DayReport
		if s.fromCache(ctx, key, &cached) {
			s.countBuild("day", "cache")
			return cached, nil
		}
	}
	out, err := s.buildDay(ctx, salesDayID)
	if err != nil {
		return DayReport{}, err
	}
	s.store(ctx, key, out)
	s.countBuild("day", "db")
	return out, nil
}

func (s *Service) buildDay(ctx context.Context, salesDayID uuid.UUID) (DayReport, error) {
	day, err := s.Days.Get(ctx, salesDayID)
	if err != nil {
		return DayReport{}, err
	}
	totals, err := s.Q.DayTotals(ctx, salesDayID)
	if err != nil {
		return DayReport{}, err
	}
	categories, err := s.Q.DayCategories(ctx, salesDayID)
	if err != nil {
		return DayReport{}, err
	}
	payments, err := s.Q.DayPayments(ctx, salesDayID)
	if err != nil {
		return DayReport{}, err
	}
	deductions, err := s.Q.DayDeductions(ctx, salesDayID)
	if err != nil {
		return DayReport{}, err
	}
	return DayReport{
		SalesDayID:   day.ID,
		LocationID:   day.LocationID,
		BusinessDate: day.BusinessDate.Format("2006-01-02"),
		Status:       string(day.Status),
		Totals:       totals,
		Categories:   categories,
		Payments:     payments,
		StartingCash: day.StartingCash,
		ExpectedCash: day.ExpectedCash,
		OverShort:    day.OverShort,
		Deductions:   deductions,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

// LocationRange builds the aggregate for one location over [from, to).
func (s *Service) LocationRange(ctx context.Context, locationID uuid.UUID, from, to time.Time) (RangeReport, error) {
	if s == nil || s.Q == nil {
		return RangeReport{}, errors.New("report service not configured")
	}
	key := cacheKey("range", locationID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached RangeReport
	if s.fromCache(ctx, key, &cached) {
		s.countBuild("location", "cache")
		return cached, nil
	}
	out, err := s.buildRange(ctx, &locationID, from, to)
	if err != nil {
		return RangeReport{}, err
	}
	s.store(ctx, key, out)
	s.countBuild("location", "db")
	return out, nil
}

func (s *Service) buildRange(ctx context.Context, locationID *uuid.UUID, from, to time.Time) (RangeReport, error) {
	totals, err := s.Q.RangeTotals(ctx, locationID, from, to)
	if err != nil {
		return RangeReport{}, err
	}
	categories, err := s.Q.RangeCategories(ctx, locationID, from, to)
	if err != nil {
		return RangeReport{}, err
	}
	payments, err := s.Q.RangePayments(ctx, locationID, from, to)
	if err != nil {
		return RangeReport{}, err
	}
	return RangeReport{
		LocationID:  locationID,
		From:        from.Format("2006-01-02"),
		To:          to.Format("2006-01-02"),
		Totals:      totals,
		Categories:  categories,
		Payments:    payments,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// MasterRange builds the cross-location rollup over [from, to): the grand
// total plus one range report per location.
func (s *Service) MasterRange(ctx context.Context, from, to time.Time) (MasterReport, error) {
	if s == nil || s.Q == nil || s.Locations == nil {
		return MasterReport{}, errors.New("report service not configured")
	}
	key := cacheKey("master", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached MasterReport
	if s.fromCache(ctx, key, &cached) {
		s.countBuild("master", "cache")
		return cached, nil
	}

	grand, err := s.buildRange(ctx, nil, from, to)
	if err != nil {
		return MasterReport{}, err
	}
	locations, err := s.Locations.ListLocations(ctx)
	if err != nil {
		return MasterReport{}, err
	}
	perLocation := make([]RangeReport, 0, len(locations))
	for _, loc := range locations {
		locID := loc.ID
		r, err := s.buildRange(ctx, &locID, from, to)
		if err != nil {
			return MasterReport{}, err
		}
		if r.Totals.TicketCount == 0 {
			continue
		}
		perLocation = append(perLocation, r)
	}
	out := MasterReport{
		From:        grand.From,
		To:          grand.To,
		Totals:      grand.Totals,
		Locations:   perLocation,
		GeneratedAt: s.now().UTC(),
	}
	s.store(ctx, key, out)
	s.countBuild("master", "db")
	return out, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.R.Set(ctx, key, data, s.TTL).Err(); err != nil {
		s.Log.Warn().Err(err).Str("key", key).Msg("cache report")
	}
}

func (s *Service) countBuild(reportType, source string) {
	if obs.ReportBuildsTotal != nil {
		obs.ReportBuildsTotal.WithLabelValues(reportType, source).Inc()
	}
}
