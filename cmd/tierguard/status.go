package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/tierguard/adapters/clock"
	"github.com/artpar/tierguard/adapters/memory"
	"github.com/artpar/tierguard/adapters/provider"
	"github.com/artpar/tierguard/app"
	"github.com/artpar/tierguard/config"
	"github.com/artpar/tierguard/domain/throttle"
	"github.com/artpar/tierguard/ports"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "One-shot usage check against the provider",
	Long: `Query the provider once and print the current month's usage,
the throttle level it classifies to, and the projected end-of-month cost.
No server is started and nothing is persisted.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	usageSvc := buildUsageService(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := usageSvc.ComputeStatus(ctx)
	if err != nil {
		return fmt.Errorf("compute usage status: %w", err)
	}

	proj, err := usageSvc.ProjectedMonthlyCost(ctx)
	if err != nil {
		return fmt.Errorf("compute projection: %w", err)
	}

	level := throttle.Classify(st.PercentUsed, throttle.Thresholds{
		Warning:               cfg.Thresholds.Warning,
		Moderate:              cfg.Thresholds.Moderate,
		Aggressive:            cfg.Thresholds.Aggressive,
		Critical:              cfg.Thresholds.Critical,
		MaxMonthlyCostPercent: cfg.Thresholds.MaxMonthlyCostPercent,
	})

	fmt.Printf("Usage for %s\n", cfg.Provider.ResourceID)
	fmt.Printf("  limit:          %.0f\n", st.Limit)
	fmt.Printf("  used:           %.0f (%.1f%%)\n", st.Used, st.PercentUsed)
	fmt.Printf("  remaining:      %.0f\n", st.Remaining)
	fmt.Printf("  throttle level: %s\n", level)
	fmt.Printf("  projected:      %.0f (overage %.0f, cost %.2f)\n", proj.Projected, proj.Overage, proj.Cost)

	return nil
}

// buildUsageService wires just enough of the stack for a one-shot query:
// provider client, token provider and the usage service. No database.
func buildUsageService(cfg *config.Config) *app.UsageService {
	logger := zerolog.Nop()
	clk := clock.Real{}

	var tokens ports.TokenProvider
	if cfg.Provider.TokenURL != "" {
		tokens = provider.NewClientCredentials(provider.ClientCredentialsConfig{
			TokenURL:     cfg.Provider.TokenURL,
			ClientID:     cfg.Provider.ClientID,
			ClientSecret: cfg.Provider.ClientSecret,
			Scope:        cfg.Provider.Scope,
			Timeout:      cfg.Provider.Timeout,
		})
	} else {
		tokens = provider.NewStaticToken(cfg.Provider.Token)
	}

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
		Logger:     logger,
	})

	return app.NewUsageService(app.UsageDeps{
		Source: source,
		Cache:  memory.NewTTLCache(clk),
		Clock:  clk,
		Logger: logger,
	}, app.UsageConfig{
		MonthlyLimit:     cfg.Limit.MonthlyAllowance,
		OverageUnitPrice: cfg.Limit.OverageUnitPrice,
	})
}
