package service

import (
	"context"
	"strconv"
	"time"

	"github.com/smallbiznis/factuur/internal/cache"
	vatratedomain "github.com/smallbiznis/factuur/internal/vatrate/domain"
	"github.com/smallbiznis/factuur/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// cacheTTL bounds how long a (country, day) rate set is served from memory.
// Rate law changes take effect on day boundaries, so a day-keyed entry can
// only go stale when the seed data itself changes.
const cacheTTL = 15 * time.Minute

type serviceParam struct {
	fx.In

	Repository vatratedomain.Repository
	Metrics    *telemetry.Metrics `optional:"true"`
	Logger     *zap.Logger
}

type service struct {
	repo    vatratedomain.Repository
	cache   cache.Cache[string, []float64]
	metrics *telemetry.Metrics
	log     *zap.Logger
}

func NewService(p serviceParam) vatratedomain.Service {
	return &service{
		repo:    p.Repository,
		cache:   cache.NewTTLCache[string, []float64](),
		metrics: p.Metrics,
		log:     p.Logger.Named("vatrate.service"),
	}
}

func (s *service) RatesFor(ctx context.Context, countryCode string, date time.Time) ([]float64, error) {
	if len(countryCode) != 2 {
		return nil, vatratedomain.ErrInvalidCountry
	}
	if date.IsZero() {
		return nil, vatratedomain.ErrInvalidDate
	}

	key := countryCode + "|" + date.UTC().Format("2006-01-02")
	if rates, ok := s.cache.Get(key); ok {
		s.metrics.ObserveRateLookup(countryCode, true)
		return rates, nil
	}
	s.metrics.ObserveRateLookup(countryCode, false)

	records, err := s.repo.FindForCountry(ctx, countryCode, date)
	if err != nil {
		s.log.Warn("rate lookup failed",
			zap.String("country", countryCode),
			zap.Error(err),
		)
		return nil, err
	}

	rates := make([]float64, 0, len(records))
	for _, record := range records {
		rates = append(rates, record.Rate)
	}
	s.cache.Set(key, rates, cacheTTL)
	return rates, nil
}

func (s *service) List(ctx context.Context, req vatratedomain.ListRequest) ([]vatratedomain.Response, error) {
	records, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vatratedomain.Response, 0, len(records))
	for _, record := range records {
		out = append(out, vatratedomain.Response{
			ID:          strconv.FormatInt(int64(record.ID), 10),
			CountryCode: record.CountryCode,
			Kind:        record.Kind,
			Rate:        record.Rate,
			ValidFrom:   record.ValidFrom,
			ValidTo:     record.ValidTo,
		})
	}
	return out, nil
}
