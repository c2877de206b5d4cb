// Package metrics provides Prometheus metrics for the usage monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for tierguard.
type Collector struct {
	// Allowance metrics
	PercentUsed     prometheus.Gauge
	RemainingUnits  prometheus.Gauge
	UsedUnits       prometheus.Gauge
	ThrottleLevel   prometheus.Gauge
	MonitoringUp    prometheus.Gauge

	// Poller metrics
	PollsTotal       *prometheus.CounterVec
	PollDuration     prometheus.Histogram
	ConsecutiveFails prometheus.Gauge

	// Provider metrics
	FallbacksTotal prometheus.Counter
}

// New creates a collector registered on its own registry. The registry is
// returned alongside so the HTTP layer can serve it.
func New() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := func(opts prometheus.GaugeOpts) prometheus.Gauge {
		g := prometheus.NewGauge(opts)
		reg.MustRegister(g)
		return g
	}

	c := &Collector{
		PercentUsed: factory(prometheus.GaugeOpts{
			Namespace: "tierguard",
			Name:      "percent_used",
			Help:      "Percent of the monthly free-tier allowance consumed",
		}),
		RemainingUnits: factory(prometheus.GaugeOpts{
			Namespace: "tierguard",
			Name:      "remaining_units",
			Help:      "Remaining free-tier allowance units this month",
		}),
		UsedUnits: factory(prometheus.GaugeOpts{
			Namespace: "tierguard",
			Name:      "used_units",
			Help:      "Consumed free-tier allowance units this month",
		}),
		ThrottleLevel: factory(prometheus.GaugeOpts{
			Namespace: "tierguard",
			Name:      "throttle_level",
			Help:      "Current throttle level ordinal (0=none .. 5=cost_limit)",
		}),
		MonitoringUp: factory(prometheus.GaugeOpts{
			Namespace: "tierguard",
			Name:      "monitoring_up",
			Help:      "1 while usage readings are fresh, 0 after repeated poll failures",
		}),
		ConsecutiveFails: factory(prometheus.GaugeOpts{
			Namespace: "tierguard",
			Name:      "poll_consecutive_failures",
			Help:      "Consecutive failed poll cycles",
		}),
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tierguard",
				Name:      "polls_total",
				Help:      "Total poll cycles by outcome",
			},
			[]string{"outcome"},
		),
		PollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tierguard",
				Name:      "poll_duration_seconds",
				Help:      "Poll cycle duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		FallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tierguard",
				Name:      "provider_fallbacks_total",
				Help:      "Times the primary metric path yielded nothing and the fallback ran",
			},
		),
	}

	reg.MustRegister(c.PollsTotal, c.PollDuration, c.FallbacksTotal)
	return c, reg
}
