package provider

import (
	"context"
	"fmt"

	appmetrics "github.com/artpar/tierguard/adapters/metrics"
	"github.com/artpar/tierguard/domain/metric"
	"github.com/artpar/tierguard/domain/usage"
	"github.com/artpar/tierguard/ports"
	"github.com/rs/zerolog"
)

// Source resolves the remaining monthly allowance through two query paths.
// The primary path is the raw HTTP client; when it fails or returns no
// datapoints, the structured query client takes over. "No data anywhere"
// means the resource has never emitted a datapoint, which is a full
// allowance, not an error.
type Source struct {
	client  *Client
	tokens  ports.TokenProvider
	querier ports.MetricQuerier

	limit      float64
	resourceID string
	metricName string
	logger     zerolog.Logger
	metrics    *appmetrics.Collector
}

// SourceConfig configures the dual-path source.
type SourceConfig struct {
	Limit      float64
	ResourceID string
	MetricName string
	Logger     zerolog.Logger
	Metrics    *appmetrics.Collector // optional
}

// NewSource creates a dual-path usage source.
func NewSource(client *Client, tokens ports.TokenProvider, querier ports.MetricQuerier, cfg SourceConfig) *Source {
	limit := cfg.Limit
	if limit <= 0 {
		limit = usage.DefaultMonthlyLimit
	}

	return &Source{
		client:     client,
		tokens:     tokens,
		querier:    querier,
		limit:      limit,
		resourceID: cfg.ResourceID,
		metricName: cfg.MetricName,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// FetchRemaining returns min(samples) over the window, clamped to
// [0, limit]. Transport and parse failures degrade through the fallback
// path and finally to the full allowance; only token acquisition errors
// propagate, since they indicate a configuration problem.
func (s *Source) FetchRemaining(ctx context.Context, w metric.Window) (float64, error) {
	if !w.Valid() {
		s.logger.Warn().
			Time("start", w.Start).
			Time("end", w.End).
			Msg("invalid query window, not issuing query")
		return s.limit, nil
	}

	samples, err := s.primary(ctx, w)
	if err != nil {
		return 0, err
	}

	if len(samples) == 0 {
		if s.metrics != nil {
			s.metrics.FallbacksTotal.Inc()
		}
		samples = s.fallback(ctx, w)
	}

	min, ok := metric.MinSample(samples)
	if !ok {
		s.logger.Debug().Msg("no datapoints from either path, assuming full allowance")
		return s.limit, nil
	}

	return usage.ClampRemaining(s.limit, min), nil
}

// primary runs the raw HTTP query. A nil, nil return means "no result,
// try the fallback"; an error return is a token acquisition failure.
func (s *Source) primary(ctx context.Context, w metric.Window) ([]float64, error) {
	token, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire provider token: %w", err)
	}

	body, err := s.client.Query(ctx, token, s.resourceID, s.metricName, w, metric.DefaultGrain, metric.AggregationMinimum)
	if err != nil {
		s.logger.Debug().Err(err).Msg("primary metrics query failed, using fallback path")
		return nil, nil
	}

	return metric.ParseMinimums(body), nil
}

// fallback runs the structured query client. All failures degrade to
// "no samples".
func (s *Source) fallback(ctx context.Context, w metric.Window) []float64 {
	res, err := s.querier.Query(ctx, s.resourceID, s.metricName, w, metric.DefaultGrain, metric.AggregationMinimum)
	if err != nil {
		s.logger.Debug().Err(err).Msg("fallback metrics query failed")
		return nil
	}
	return metric.CollectMinimums(res)
}

// Ensure interface compliance.
var _ ports.UsageSource = (*Source)(nil)
