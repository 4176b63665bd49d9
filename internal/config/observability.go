package config

import (
	"fmt"
	"slices"
	"time"
)

// ObservabilityConfig covers logging, New Relic and dependency health checks.
// It is optional in the environment; LoadConfig fills in defaults.
type ObservabilityConfig struct {
	// ServiceName and Environment label every log line and trace. Both are
	// forced by LoadConfig.
	ServiceName  string             `koanf:"service_name" validate:"required"`
	Environment  string             `koanf:"environment" validate:"required"`
	Logging      LoggingConfig      `koanf:"logging" validate:"required"`
	NewRelic     NewRelicConfig     `koanf:"new_relic" validate:"required"`
	HealthChecks HealthChecksConfig `koanf:"health_checks" validate:"required"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"required"`
	Format string `koanf:"format" validate:"required"`

	// SlowQueryThreshold marks pgx queries slower than this as warnings.
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold"`
}

// NewRelicConfig enables the APM agent when LicenseKey is set.
type NewRelicConfig struct {
	LicenseKey                string `koanf:"license_key"`
	AppLogForwardingEnabled   bool   `koanf:"app_log_forwarding_enabled"`
	DistributedTracingEnabled bool   `koanf:"distributed_tracing_enabled"`
	DebugLogging              bool   `koanf:"debug_logging"`
}

// HealthChecksConfig selects what /status probes. Checks names "database"
// and/or "redis".
type HealthChecksConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"min=1s"`
	Timeout  time.Duration `koanf:"timeout" validate:"min=1s"`
	Checks   []string      `koanf:"checks"`
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	healthChecks = []string{"database", "redis"}
)

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		ServiceName: "spoon",
		Environment: "development",
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "json",
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		NewRelic: NewRelicConfig{
			AppLogForwardingEnabled:   true,
			DistributedTracingEnabled: true,
		},
		HealthChecks: HealthChecksConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			Timeout:  5 * time.Second,
			Checks:   []string{"database", "redis"},
		},
	}
}

// Validate checks the rules struct tags cannot express. It also runs on
// configs built by hand.
func (c *ObservabilityConfig) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
	}

	if c.Logging.SlowQueryThreshold < 0 {
		return fmt.Errorf("logging slow_query_threshold must be non-negative")
	}

	for _, check := range c.HealthChecks.Checks {
		if !slices.Contains(healthChecks, check) {
			return fmt.Errorf("unknown health check: %s", check)
		}
	}

	return nil
}

// GetLogLevel returns the configured level, defaulting to info in production
// and debug in development.
func (c *ObservabilityConfig) GetLogLevel() string {
	if c.Logging.Level != "" {
		return c.Logging.Level
	}

	switch c.Environment {
	case "production":
		return "info"
	case "development":
		return "debug"
	}
	return ""
}

func (c *ObservabilityConfig) IsProduction() bool {
	return c.Environment == "production"
}
