// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/tierguard/domain/metric"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Provider Ports
// -----------------------------------------------------------------------------

// TokenProvider obtains a bearer token for the primary metric query path.
// How credentials are configured is the provider's concern; failures here
// indicate a configuration problem and are surfaced to callers.
type TokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// MetricQuerier is the structured query client used by the fallback path.
type MetricQuerier interface {
	// Query fetches a metric over a window at the given granularity and
	// aggregation, returning the provider's structured result.
	Query(ctx context.Context, resourceID, metricName string, w metric.Window, grain time.Duration, aggregation string) (metric.QueryResult, error)
}

// UsageSource yields the remaining monthly allowance for a query window.
type UsageSource interface {
	// FetchRemaining returns the most pessimistic remaining-allowance value
	// observed in the window, clamped to [0, limit]. A window with no
	// datapoints yields the full allowance, not an error; only token
	// acquisition failures propagate.
	FetchRemaining(ctx context.Context, w metric.Window) (float64, error)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// PollRecord is one completed poll cycle, success or failure.
type PollRecord struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Used        float64
	Remaining   float64
	PercentUsed float64
	Level       string
	Succeeded   bool
	Error       string
}

// HistoryStore persists poll cycle outcomes.
type HistoryStore interface {
	// Append stores one poll record.
	Append(ctx context.Context, rec PollRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]PollRecord, error)
}
