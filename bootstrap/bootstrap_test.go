package bootstrap

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/tierguard/adapters/provider"
	"github.com/artpar/tierguard/config"
	"github.com/artpar/tierguard/domain/throttle"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Provider: config.ProviderConfig{
			MetricsURL: "https://metrics.example.com",
			ResourceID: "/resources/app-1",
			MetricName: "RemainingAllowance",
			Token:      "tok-1",
			Timeout:    5 * time.Second,
		},
		Limit: config.LimitConfig{MonthlyAllowance: 100000},
		Monitor: config.MonitorConfig{
			PollingIntervalHours:   2,
			InitialDelaySeconds:    60,
			MaxConsecutiveFailures: 5,
		},
		Thresholds: config.ThresholdsConfig{
			Warning: 70, Moderate: 80, Aggressive: 90, Critical: 95, MaxMonthlyCostPercent: 110,
		},
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Database: config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "test.db")},
		Logging:  config.LoggingConfig{Level: "error", Format: "json"},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestNew_WiresApplication(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.DB.Close()

	if a.State == nil || a.Usage == nil || a.Poller == nil {
		t.Fatal("core services not wired")
	}
	if a.Metrics == nil || a.Registry == nil {
		t.Error("metrics enabled but collector not created")
	}
	if a.HTTPServer == nil {
		t.Fatal("http server not created")
	}

	// Fail-open before the first poll.
	snap := a.State.Get()
	if snap.Level != throttle.LevelNone || !snap.MonitoringActive {
		t.Errorf("initial snapshot = %+v, want none/active", snap)
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.DB.Close()

	if a.Metrics != nil || a.Registry != nil {
		t.Error("metrics should not be created when disabled")
	}
}

func TestTokenProvider_Selection(t *testing.T) {
	static := tokenProvider(config.ProviderConfig{Token: "tok"})
	if _, ok := static.(*provider.StaticToken); !ok {
		t.Errorf("got %T, want *provider.StaticToken", static)
	}

	cc := tokenProvider(config.ProviderConfig{
		TokenURL: "https://login.example.com/token", ClientID: "a", ClientSecret: "b",
	})
	if _, ok := cc.(*provider.ClientCredentials); !ok {
		t.Errorf("got %T, want *provider.ClientCredentials", cc)
	}
}

func TestThresholds_Mapping(t *testing.T) {
	got := thresholds(config.ThresholdsConfig{
		Warning: 60, Moderate: 75, Aggressive: 85, Critical: 92, MaxMonthlyCostPercent: 120,
	})
	want := throttle.Thresholds{Warning: 60, Moderate: 75, Aggressive: 85, Critical: 92, MaxMonthlyCostPercent: 120}
	if got != want {
		t.Errorf("thresholds = %+v, want %+v", got, want)
	}
}
