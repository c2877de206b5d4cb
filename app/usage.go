// Package app provides application services that orchestrate domain logic
// with adapters.
package app

import (
	"context"
	"time"

	"github.com/artpar/tierguard/adapters/memory"
	"github.com/artpar/tierguard/domain/metric"
	"github.com/artpar/tierguard/domain/usage"
	"github.com/artpar/tierguard/ports"
	"github.com/rs/zerolog"
)

// statusTTL bounds provider call frequency: at most one fetch per TTL
// window regardless of how often status is read.
const statusTTL = 5 * time.Minute

const statusCachePurpose = "usage_status"

// UsageService computes the current month's usage status. Results are
// memoized in an hour-bucketed TTL cache, so the status, monthly-usage
// and remaining views all derive from a single cached provider fetch.
type UsageService struct {
	source    ports.UsageSource
	cache     *memory.TTLCache
	clock     ports.Clock
	limit     float64
	unitPrice float64
	logger    zerolog.Logger
}

// UsageDeps contains dependencies for the usage service.
type UsageDeps struct {
	Source ports.UsageSource
	Cache  *memory.TTLCache
	Clock  ports.Clock
	Logger zerolog.Logger
}

// UsageConfig configures the usage service.
type UsageConfig struct {
	MonthlyLimit     float64
	OverageUnitPrice float64
}

// NewUsageService creates the usage service.
func NewUsageService(deps UsageDeps, cfg UsageConfig) *UsageService {
	limit := cfg.MonthlyLimit
	if limit <= 0 {
		limit = usage.DefaultMonthlyLimit
	}

	return &UsageService{
		source:    deps.Source,
		cache:     deps.Cache,
		clock:     deps.Clock,
		limit:     limit,
		unitPrice: cfg.OverageUnitPrice,
		logger:    deps.Logger,
	}
}

// ComputeStatus returns the current usage status, fetching from the
// provider at most once per TTL window and hour bucket. Repeat calls
// within the window return the identical cached status.
func (s *UsageService) ComputeStatus(ctx context.Context) (usage.Status, error) {
	now := s.clock.Now().UTC()
	key := memory.BucketKey(statusCachePurpose, now)

	v, err := s.cache.GetOrCompute(key, statusTTL, func() (any, error) {
		w := metric.MonthWindow(now)
		remaining, err := s.source.FetchRemaining(ctx, w)
		if err != nil {
			return nil, err
		}
		st := usage.StatusFromRemaining(s.limit, remaining, now)
		s.logger.Debug().
			Float64("remaining", st.Remaining).
			Float64("percent_used", st.PercentUsed).
			Msg("usage status computed")
		return st, nil
	})
	if err != nil {
		return usage.Status{}, err
	}
	return v.(usage.Status), nil
}

// ProjectedMonthlyCost extrapolates the month-to-date usage to an
// end-of-month figure and prices the projected overage.
func (s *UsageService) ProjectedMonthlyCost(ctx context.Context) (usage.Projection, error) {
	st, err := s.ComputeStatus(ctx)
	if err != nil {
		return usage.Projection{}, err
	}
	return usage.Project(st, s.clock.Now(), s.unitPrice), nil
}

// Limit returns the configured monthly allowance.
func (s *UsageService) Limit() float64 {
	return s.limit
}
