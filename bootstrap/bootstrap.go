// Package bootstrap wires all dependencies and starts the application:
// the background poller, the status HTTP server and poll history storage.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/tierguard/adapters/clock"
	"github.com/artpar/tierguard/adapters/idgen"
	"github.com/artpar/tierguard/adapters/memory"
	"github.com/artpar/tierguard/adapters/metrics"
	"github.com/artpar/tierguard/adapters/provider"
	"github.com/artpar/tierguard/adapters/sqlite"
	"github.com/artpar/tierguard/app"
	"github.com/artpar/tierguard/config"
	"github.com/artpar/tierguard/domain/throttle"
	"github.com/artpar/tierguard/ports"
	"github.com/artpar/tierguard/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	State      *app.ThrottleState
	Usage      *app.UsageService
	Poller     *app.Poller

	pollerCancel context.CancelFunc
	pollerDone   chan struct{}
}

// New creates and initializes the application from validated configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("resource_id", cfg.Provider.ResourceID).
		Str("metric", cfg.Provider.MetricName).
		Float64("monthly_allowance", cfg.Limit.MonthlyAllowance).
		Msg("initializing tierguard")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	a.DB = db

	if cfg.Metrics.Enabled {
		a.Metrics, a.Registry = metrics.New()
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	clk := clock.Real{}

	tokens := tokenProvider(cfg.Provider)

	client := provider.NewClient(provider.ClientConfig{
		BaseURL: cfg.Provider.MetricsURL,
		Timeout: cfg.Provider.Timeout,
	})

	fallbackURL := cfg.Provider.FallbackURL
	if fallbackURL == "" {
		fallbackURL = cfg.Provider.MetricsURL
	}
	querier := provider.NewRESTQuerier(provider.RESTQuerierConfig{
		BaseURL: fallbackURL,
		Tokens:  tokens,
		Timeout: cfg.Provider.Timeout,
	})

	source := provider.NewSource(client, tokens, querier, provider.SourceConfig{
		Limit:      cfg.Limit.MonthlyAllowance,
		ResourceID: cfg.Provider.ResourceID,
		MetricName: cfg.Provider.MetricName,
		Logger:     logger.With().Str("component", "provider").Logger(),
		Metrics:    a.Metrics,
	})

	a.Usage = app.NewUsageService(app.UsageDeps{
		Source: source,
		Cache:  memory.NewTTLCache(clk),
		Clock:  clk,
		Logger: logger.With().Str("component", "usage").Logger(),
	}, app.UsageConfig{
		MonthlyLimit:     cfg.Limit.MonthlyAllowance,
		OverageUnitPrice: cfg.Limit.OverageUnitPrice,
	})

	a.State = app.NewThrottleState(thresholds(cfg.Thresholds))

	history := sqlite.NewHistoryStore(db)

	a.Poller = app.NewPoller(app.PollerDeps{
		Usage:   a.Usage,
		State:   a.State,
		History: history,
		Metrics: a.Metrics,
		Clock:   clk,
		IDs:     idgen.UUID{},
		Logger:  logger.With().Str("component", "poller").Logger(),
	}, app.PollerConfig{
		Enabled:                cfg.Monitor.IsEnabled(),
		Interval:               cfg.Monitor.Interval(),
		InitialDelay:           cfg.Monitor.InitialDelay(),
		MaxConsecutiveFailures: cfg.Monitor.MaxConsecutiveFailures,
	})

	a.HTTPServer = httpServer(cfg.Server, web.NewHandler(web.Deps{
		State:    a.State,
		Usage:    a.Usage,
		History:  history,
		Registry: a.Registry,
		Logger:   logger.With().Str("component", "web").Logger(),
	}))

	return a, nil
}

// Run starts the poller and HTTP server and blocks until a shutdown
// signal or a server error.
func (a *App) Run() error {
	pollerCtx, cancel := context.WithCancel(context.Background())
	a.pollerCancel = cancel
	a.pollerDone = make(chan struct{})

	go func() {
		defer close(a.pollerDone)
		if err := a.Poller.Run(pollerCtx); err != nil {
			a.Logger.Error().Err(err).Msg("poller stopped with error")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.pollerCancel != nil {
		a.pollerCancel()
		select {
		case <-a.pollerDone:
		case <-ctx.Done():
			a.Logger.Warn().Msg("poller did not stop in time")
		}
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// tokenProvider picks the auth strategy from configuration: OAuth2
// client credentials when a token endpoint is configured, a static
// token otherwise.
func tokenProvider(cfg config.ProviderConfig) ports.TokenProvider {
	if cfg.TokenURL != "" {
		return provider.NewClientCredentials(provider.ClientCredentialsConfig{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scope:        cfg.Scope,
			Timeout:      cfg.Timeout,
		})
	}
	return provider.NewStaticToken(cfg.Token)
}

func thresholds(cfg config.ThresholdsConfig) throttle.Thresholds {
	return throttle.Thresholds{
		Warning:               cfg.Warning,
		Moderate:              cfg.Moderate,
		Aggressive:            cfg.Aggressive,
		Critical:              cfg.Critical,
		MaxMonthlyCostPercent: cfg.MaxMonthlyCostPercent,
	}
}

func httpServer(cfg config.ServerConfig, handler *web.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
