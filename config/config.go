// Package config provides configuration loading and validation.
// Configuration is read once at startup and is immutable for the
// lifetime of the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Limit      LimitConfig      `yaml:"limit"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ProviderConfig configures the external metrics provider.
type ProviderConfig struct {
	MetricsURL  string        `yaml:"metrics_url"`
	FallbackURL string        `yaml:"fallback_url"` // structured query endpoint, optional
	ResourceID  string        `yaml:"resource_id"`
	MetricName  string        `yaml:"metric_name"`
	Timeout     time.Duration `yaml:"timeout"`

	// Auth: either a static token, or OAuth2 client credentials.
	Token        string `yaml:"token"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Scope        string `yaml:"scope"`
}

// LimitConfig configures the monthly free-tier allowance.
type LimitConfig struct {
	MonthlyAllowance float64 `yaml:"monthly_allowance"`
	OverageUnitPrice float64 `yaml:"overage_unit_price"`
}

// MonitorConfig configures the background usage poller.
type MonitorConfig struct {
	Enabled                *bool   `yaml:"enabled"` // default true
	PollingIntervalHours   float64 `yaml:"polling_interval_hours"`
	InitialDelaySeconds    int     `yaml:"initial_delay_seconds"`
	MaxConsecutiveFailures int     `yaml:"max_consecutive_failures"`
}

// IsEnabled returns the enabled flag, defaulting to true.
func (m MonitorConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Interval returns the polling interval as a duration.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.PollingIntervalHours * float64(time.Hour))
}

// InitialDelay returns the startup delay as a duration.
func (m MonitorConfig) InitialDelay() time.Duration {
	return time.Duration(m.InitialDelaySeconds) * time.Second
}

// ThresholdsConfig configures throttle classification boundaries (percentages).
type ThresholdsConfig struct {
	Warning               float64 `yaml:"warning"`
	Moderate              float64 `yaml:"moderate"`
	Aggressive            float64 `yaml:"aggressive"`
	Critical              float64 `yaml:"critical"`
	MaxMonthlyCostPercent float64 `yaml:"max_monthly_cost_percent"`
}

// ServerConfig configures the status HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures poll history persistence.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Useful for container deployments where no config file is mounted.
//
// Environment variables:
//
//	TIERGUARD_PROVIDER_METRICS_URL  - Provider metrics endpoint (required)
//	TIERGUARD_PROVIDER_RESOURCE_ID  - Monitored resource identifier (required)
//	TIERGUARD_PROVIDER_METRIC_NAME  - Remaining-allowance metric name
//	TIERGUARD_MONTHLY_ALLOWANCE     - Free-tier allowance units (default 100000)
//	TIERGUARD_MONITOR_ENABLED       - Enable the background poller (default true)
//	TIERGUARD_POLL_INTERVAL_HOURS   - Polling interval in hours (default 2, floor 0.5)
//	TIERGUARD_DATABASE_DSN          - History database path (default tierguard.db)
//	TIERGUARD_SERVER_PORT           - Status API port (default 8080)
//	TIERGUARD_LOG_LEVEL             - debug, info, warn, error (default info)
//	TIERGUARD_LOG_FORMAT            - json or console (default json)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set TIERGUARD_PROVIDER_METRICS_URL")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("TIERGUARD_PROVIDER_METRICS_URL") != ""
}

// applyEnvOverrides applies TIERGUARD_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TIERGUARD_PROVIDER_METRICS_URL"); v != "" {
		cfg.Provider.MetricsURL = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_RESOURCE_ID"); v != "" {
		cfg.Provider.ResourceID = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_FALLBACK_URL"); v != "" {
		cfg.Provider.FallbackURL = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_METRIC_NAME"); v != "" {
		cfg.Provider.MetricName = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_TOKEN"); v != "" {
		cfg.Provider.Token = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_TOKEN_URL"); v != "" {
		cfg.Provider.TokenURL = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_CLIENT_ID"); v != "" {
		cfg.Provider.ClientID = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_CLIENT_SECRET"); v != "" {
		cfg.Provider.ClientSecret = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_SCOPE"); v != "" {
		cfg.Provider.Scope = v
	}
	if v := os.Getenv("TIERGUARD_PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Provider.Timeout = d
		}
	}

	if v := os.Getenv("TIERGUARD_MONTHLY_ALLOWANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limit.MonthlyAllowance = f
		}
	}
	if v := os.Getenv("TIERGUARD_OVERAGE_UNIT_PRICE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limit.OverageUnitPrice = f
		}
	}

	if v := os.Getenv("TIERGUARD_MONITOR_ENABLED"); v != "" {
		b := parseBool(v)
		cfg.Monitor.Enabled = &b
	}
	if v := os.Getenv("TIERGUARD_POLL_INTERVAL_HOURS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitor.PollingIntervalHours = f
		}
	}
	if v := os.Getenv("TIERGUARD_INITIAL_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.InitialDelaySeconds = n
		}
	}
	if v := os.Getenv("TIERGUARD_MAX_CONSECUTIVE_FAILURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.MaxConsecutiveFailures = n
		}
	}

	if v := os.Getenv("TIERGUARD_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TIERGUARD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("TIERGUARD_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("TIERGUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TIERGUARD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("TIERGUARD_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("TIERGUARD_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Provider.MetricName == "" {
		cfg.Provider.MetricName = "RemainingAllowance"
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 10 * time.Second
	}

	if cfg.Limit.MonthlyAllowance == 0 {
		cfg.Limit.MonthlyAllowance = 100000
	}

	if cfg.Monitor.PollingIntervalHours == 0 {
		cfg.Monitor.PollingIntervalHours = 2
	}
	if cfg.Monitor.PollingIntervalHours < 0.5 {
		cfg.Monitor.PollingIntervalHours = 0.5
	}
	if cfg.Monitor.InitialDelaySeconds == 0 {
		cfg.Monitor.InitialDelaySeconds = 60
	}
	if cfg.Monitor.InitialDelaySeconds < 10 {
		cfg.Monitor.InitialDelaySeconds = 10
	}
	if cfg.Monitor.MaxConsecutiveFailures == 0 {
		cfg.Monitor.MaxConsecutiveFailures = 5
	}

	if cfg.Thresholds.Warning == 0 {
		cfg.Thresholds.Warning = 70
	}
	if cfg.Thresholds.Moderate == 0 {
		cfg.Thresholds.Moderate = 80
	}
	if cfg.Thresholds.Aggressive == 0 {
		cfg.Thresholds.Aggressive = 90
	}
	if cfg.Thresholds.Critical == 0 {
		cfg.Thresholds.Critical = 95
	}
	if cfg.Thresholds.MaxMonthlyCostPercent == 0 {
		cfg.Thresholds.MaxMonthlyCostPercent = 110
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "tierguard.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Provider.MetricsURL == "" {
		return fmt.Errorf("provider.metrics_url is required")
	}
	if cfg.Provider.ResourceID == "" {
		return fmt.Errorf("provider.resource_id is required")
	}
	if cfg.Provider.TokenURL != "" && (cfg.Provider.ClientID == "" || cfg.Provider.ClientSecret == "") {
		return fmt.Errorf("provider.token_url requires client_id and client_secret")
	}

	if cfg.Limit.MonthlyAllowance <= 0 {
		return fmt.Errorf("limit.monthly_allowance must be positive, got %v", cfg.Limit.MonthlyAllowance)
	}
	if cfg.Limit.OverageUnitPrice < 0 {
		return fmt.Errorf("limit.overage_unit_price must not be negative")
	}

	if cfg.Monitor.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("monitor.max_consecutive_failures must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
