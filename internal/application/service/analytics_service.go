package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// Analytics query limits
const (
	DefaultMonthCount = 6
	MaxMonthCount     = 36
	DefaultTopLimit   = 5
	MaxForecastMonths = 24
	DefaultCacheTTL   = 5 * time.Minute
)

// Grouping keys accepted by Top
const (
	GroupByVendor   = "vendor"
	GroupByCategory = "category"
)

// AnalyticsConfig tunes AnalyticsService
type AnalyticsConfig struct {
	CacheTTL time.Duration
	// ForecastSeed makes unseeded forecasts reproducible. Zero draws a
	// fresh seed per request.
	ForecastSeed int64
}

// AnalyticsService computes derived views over one user's records
type AnalyticsService interface {
	Summary(ctx context.Context, userID string) (analytics.Summary, error)
	Monthly(ctx context.Context, userID string, months int) (analytics.MonthlySeries, error)
	Top(ctx context.Context, userID, by string, limit int) ([]analytics.EntityTotal, error)
	Confidence(ctx context.Context, userID string) (analytics.Histogram, error)
	Forecast(ctx context.Context, userID string, horizon int, seed *int64) ([]analytics.ForecastPoint, error)
	Dashboard(ctx context.Context, userID string) (analytics.Dashboard, error)
	Compliance(ctx context.Context, userID string) ([]analytics.Finding, error)
	Report(ctx context.Context, userID string, q analytics.ReportQuery) (analytics.Report, error)
	Records(ctx context.Context, userID string) ([]*entity.Invoice, error)
	Invalidate(ctx context.Context, userID string) error
}

type analyticsServiceImpl struct {
	config AnalyticsConfig
	repo   port.InvoiceRepository
	cache  port.ReportCache
	logger Logger
	now    Clock
}

// NewAnalyticsService creates a new AnalyticsService. cache may be nil.
func NewAnalyticsService(config AnalyticsConfig, repo port.InvoiceRepository, cache port.ReportCache, logger Logger) AnalyticsService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	return &analyticsServiceImpl{
		config: config,
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    utcNow,
	}
}

// Records loads every record of the user
func (s *analyticsServiceImpl) Records(ctx context.Context, userID string) ([]*entity.Invoice, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", entity.ErrInvalidInput)
	}
	records, err := s.repo.List(ctx, entity.InvoiceFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	return records, nil
}

func (s *analyticsServiceImpl) Summary(ctx context.Context, userID string) (analytics.Summary, error) {
	return cachedView(ctx, s, userID, "summary", func(records []*entity.Invoice, _ time.Time) analytics.Summary {
		return analytics.Summarize(records)
	})
}

func (s *analyticsServiceImpl) Monthly(ctx context.Context, userID string, months int) (analytics.MonthlySeries, error) {
	if months <= 0 {
		months = DefaultMonthCount
	}
	if months > MaxMonthCount {
		return analytics.MonthlySeries{}, fmt.Errorf("%w: months must be at most %d", entity.ErrInvalidInput, MaxMonthCount)
	}
	return cachedView(ctx, s, userID, "monthly:"+strconv.Itoa(months), func(records []*entity.Invoice, now time.Time) analytics.MonthlySeries {
		return analytics.MonthlyBuckets(records, months, now)
	})
}

func (s *analyticsServiceImpl) Top(ctx context.Context, userID, by string, limit int) ([]analytics.EntityTotal, error) {
	var key analytics.KeyFunc
	switch by {
	case GroupByVendor, "":
		by, key = GroupByVendor, analytics.VendorKey
	case GroupByCategory:
		key = analytics.CategoryKey
	default:
		return nil, fmt.Errorf("%w: unknown grouping %q", entity.ErrInvalidInput, by)
	}
	if limit == 0 {
		limit = DefaultTopLimit
	}

	return cachedView(ctx, s, userID, fmt.Sprintf("top:%s:%d", by, limit), func(records []*entity.Invoice, _ time.Time) []analytics.EntityTotal {
		return analytics.TopEntities(records, key, limit)
	})
}

func (s *analyticsServiceImpl) Confidence(ctx context.Context, userID string) (analytics.Histogram, error) {
	return cachedView(ctx, s, userID, "confidence", func(records []*entity.Invoice, _ time.Time) analytics.Histogram {
		return analytics.ConfidenceHistogram(records)
	})
}

// Forecast predicts monthly totals. Results are cached only when the
// random source is seeded, since otherwise each call differs.
func (s *analyticsServiceImpl) Forecast(ctx context.Context, userID string, horizon int, seed *int64) ([]analytics.ForecastPoint, error) {
	if horizon <= 0 {
		horizon = analytics.DefaultForecastHorizon
	}
	if horizon > MaxForecastMonths {
		return nil, fmt.Errorf("%w: horizon must be at most %d", entity.ErrInvalidInput, MaxForecastMonths)
	}

	if seed == nil && s.config.ForecastSeed != 0 {
		seed = &s.config.ForecastSeed
	}
	if seed == nil {
		records, err := s.Records(ctx, userID)
		if err != nil {
			return nil, err
		}
		now := s.now()
		return analytics.ForecastCashFlow(records, horizon, now, analytics.NewSeededRandom(now.UnixNano())), nil
	}

	seedValue := *seed
	return cachedView(ctx, s, userID, fmt.Sprintf("forecast:%d:%d", horizon, seedValue), func(records []*entity.Invoice, now time.Time) []analytics.ForecastPoint {
		return analytics.ForecastCashFlow(records, horizon, now, analytics.NewSeededRandom(seedValue))
	})
}

func (s *analyticsServiceImpl) Dashboard(ctx context.Context, userID string) (analytics.Dashboard, error) {
	return cachedView(ctx, s, userID, "dashboard", analytics.BuildDashboard)
}

func (s *analyticsServiceImpl) Compliance(ctx context.Context, userID string) ([]analytics.Finding, error) {
	return cachedView(ctx, s, userID, "compliance", analytics.ComplianceFindings)
}

// Report builds the reports page. It is not cached because exports need
// the filtered records, which are not serialized.
func (s *analyticsServiceImpl) Report(ctx context.Context, userID string, q analytics.ReportQuery) (analytics.Report, error) {
	records, err := s.Records(ctx, userID)
	if err != nil {
		return analytics.Report{}, err
	}
	return analytics.BuildReport(records, q, s.now()), nil
}

// Invalidate drops the user's cached views
func (s *analyticsServiceImpl) Invalidate(ctx context.Context, userID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, userID)
}

// cachedView returns the cached value for key or computes it from the
// user's records. Cache failures are logged and fall through to computing.
// Views depending on the current month carry it in the key.
func cachedView[T any](ctx context.Context, s *analyticsServiceImpl, userID, key string, build func([]*entity.Invoice, time.Time) T) (T, error) {
	var zero T
	now := s.now()
	key = key + "@" + now.Format("2006-01")

	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, userID, key)
		if err != nil {
			s.logger.Error("Failed to read report cache", "error", err, "user_id", userID, "key", key)
		} else if ok {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
			s.logger.Error("Discarding unreadable cache entry", "error", err, "user_id", userID, "key", key)
		}
	}

	records, err := s.Records(ctx, userID)
	if err != nil {
		return zero, err
	}
	v := build(records, now)

	if s.cache != nil {
		if data, err := json.Marshal(v); err == nil {
			if err := s.cache.Set(ctx, userID, key, data, s.config.CacheTTL); err != nil {
				s.logger.Error("Failed to write report cache", "error", err, "user_id", userID, "key", key)
			}
		}
	}
	return v, nil
}
