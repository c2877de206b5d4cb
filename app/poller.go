package app

import (
	"context"
	"time"

	"github.com/artpar/tierguard/adapters/metrics"
	"github.com/artpar/tierguard/ports"
	"github.com/rs/zerolog"
)

// PollerConfig configures the background usage poller.
type PollerConfig struct {
	Enabled                bool
	Interval               time.Duration
	InitialDelay           time.Duration
	MaxConsecutiveFailures int
}

// Floors and defaults for poller timing. The interval floor keeps a
// misconfigured deployment from hammering the provider.
const (
	DefaultPollInterval = 2 * time.Hour
	MinPollInterval     = 30 * time.Minute
	DefaultInitialDelay = 60 * time.Second
	MinInitialDelay     = 10 * time.Second

	defaultMaxFailures = 5

	maxBackoff      = 24 * time.Hour
	maxBackoffShift = 4
)

// PollerDeps contains dependencies for the poller.
type PollerDeps struct {
	Usage   *UsageService
	State   *ThrottleState
	History ports.HistoryStore  // optional
	Metrics *metrics.Collector  // optional
	Clock   ports.Clock
	IDs     ports.IDGenerator
	Logger  zerolog.Logger
}

// Poller periodically computes the usage status and publishes the
// classification to the shared throttle state. Cycles run strictly
// sequentially: poll, sleep, poll. Failures back off exponentially and
// are never fatal; after MaxConsecutiveFailures the shared state is
// demoted to monitoring-inactive while polling continues.
type Poller struct {
	cfg PollerConfig

	usage   *UsageService
	state   *ThrottleState
	history ports.HistoryStore
	metrics *metrics.Collector
	clock   ports.Clock
	ids     ports.IDGenerator
	logger  zerolog.Logger

	// run state, owned by the polling goroutine
	failures    int
	lastSuccess time.Time
}

// NewPoller creates the background poller with timing floors applied.
func NewPoller(deps PollerDeps, cfg PollerConfig) *Poller {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Interval < MinPollInterval {
		cfg.Interval = MinPollInterval
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.InitialDelay < MinInitialDelay {
		cfg.InitialDelay = MinInitialDelay
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = defaultMaxFailures
	}

	return &Poller{
		cfg:     cfg,
		usage:   deps.Usage,
		state:   deps.State,
		history: deps.History,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		ids:     deps.IDs,
		logger:  deps.Logger,
	}
}

// Backoff returns the retry delay after the given number of consecutive
// failures: interval * 2^min(failures, 4), capped at 24 hours.
// This is a PURE function.
func Backoff(interval time.Duration, failures int) time.Duration {
	shift := failures
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	d := interval * time.Duration(1<<shift)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Run executes the polling loop until ctx is cancelled. It returns nil on
// cooperative shutdown; poll failures never terminate the loop.
func (p *Poller) Run(ctx context.Context) error {
	if !p.cfg.Enabled {
		p.logger.Info().Msg("usage poller disabled")
		return nil
	}

	p.logger.Info().
		Dur("interval", p.cfg.Interval).
		Dur("initial_delay", p.cfg.InitialDelay).
		Int("max_consecutive_failures", p.cfg.MaxConsecutiveFailures).
		Msg("usage poller starting")

	if !p.sleep(ctx, p.cfg.InitialDelay) {
		p.logger.Info().Msg("usage poller stopped")
		return nil
	}

	for {
		err := p.cycle(ctx)
		if ctx.Err() != nil {
			p.logger.Info().Msg("usage poller stopped")
			return nil
		}

		var delay time.Duration
		if err != nil {
			p.failures++
			if p.failures == p.cfg.MaxConsecutiveFailures {
				p.state.MarkInactive()
				if p.metrics != nil {
					p.metrics.MonitoringUp.Set(0)
				}
				p.logger.Error().
					Int("consecutive_failures", p.failures).
					Msg("max consecutive poll failures reached, marking monitoring inactive")
			}
			delay = Backoff(p.cfg.Interval, p.failures)
			p.logger.Warn().
				Err(err).
				Int("consecutive_failures", p.failures).
				Dur("backoff", delay).
				Msg("poll cycle failed")
		} else {
			p.failures = 0
			delay = p.cfg.Interval
		}

		if p.metrics != nil {
			p.metrics.ConsecutiveFails.Set(float64(p.failures))
		}

		if !p.sleep(ctx, delay) {
			p.logger.Info().Msg("usage poller stopped")
			return nil
		}
	}
}

// sleep waits for d or until ctx is cancelled. Returns false on cancellation.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// cycle runs a single poll: compute status, publish, record.
func (p *Poller) cycle(ctx context.Context) error {
	cycleID := p.ids.New()
	logger := p.logger.With().Str("cycle_id", cycleID).Logger()
	started := p.clock.Now().UTC()

	st, err := p.usage.ComputeStatus(ctx)
	finished := p.clock.Now().UTC()

	if p.metrics != nil {
		p.metrics.PollDuration.Observe(finished.Sub(started).Seconds())
	}

	if err != nil {
		if p.metrics != nil {
			p.metrics.PollsTotal.WithLabelValues("failure").Inc()
		}
		p.record(ctx, ports.PollRecord{
			ID:         cycleID,
			StartedAt:  started,
			FinishedAt: finished,
			Succeeded:  false,
			Error:      err.Error(),
		})
		return err
	}

	level := p.state.Update(st.PercentUsed, st.Remaining, finished)
	p.lastSuccess = finished

	p.logStatus(logger, st.PercentUsed, st.Remaining, level.String())

	if p.metrics != nil {
		p.metrics.PollsTotal.WithLabelValues("success").Inc()
		p.metrics.PercentUsed.Set(st.PercentUsed)
		p.metrics.RemainingUnits.Set(st.Remaining)
		p.metrics.UsedUnits.Set(st.Used)
		p.metrics.ThrottleLevel.Set(float64(level))
		p.metrics.MonitoringUp.Set(1)
	}

	p.record(ctx, ports.PollRecord{
		ID:          cycleID,
		StartedAt:   started,
		FinishedAt:  finished,
		Used:        st.Used,
		Remaining:   st.Remaining,
		PercentUsed: st.PercentUsed,
		Level:       level.String(),
		Succeeded:   true,
	})
	return nil
}

// logStatus emits the cycle result at a severity matching how close the
// allowance is to exhaustion. Advisory only.
func (p *Poller) logStatus(logger zerolog.Logger, percentUsed, remaining float64, level string) {
	ev := logger.Debug()
	switch {
	case percentUsed >= 95:
		ev = logger.Error()
	case percentUsed >= 90:
		ev = logger.Warn()
	case percentUsed >= 80:
		ev = logger.Info()
	}
	ev.Float64("percent_used", percentUsed).
		Float64("remaining", remaining).
		Str("level", level).
		Msg("usage status published")
}

// record appends to poll history, best effort.
func (p *Poller) record(ctx context.Context, rec ports.PollRecord) {
	if p.history == nil {
		return
	}
	if err := p.history.Append(ctx, rec); err != nil {
		p.logger.Warn().Err(err).Msg("failed to record poll history")
	}
}
