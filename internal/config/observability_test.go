package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultObservabilityConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultObservabilityConfig().Validate())
}

func TestObservabilityValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ObservabilityConfig)
		errMsg string
	}{
		{"missing service name", func(c *ObservabilityConfig) { c.ServiceName = "" }, "service_name is required"},
		{"bad level", func(c *ObservabilityConfig) { c.Logging.Level = "trace" }, "invalid logging level"},
		{"negative threshold", func(c *ObservabilityConfig) { c.Logging.SlowQueryThreshold = -time.Second }, "slow_query_threshold"},
		{"unknown check", func(c *ObservabilityConfig) { c.HealthChecks.Checks = []string{"kafka"} }, "unknown health check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultObservabilityConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		env, level, want string
	}{
		{"production", "", "info"},
		{"development", "", "debug"},
		{"staging", "", ""},
		{"production", "warn", "warn"},
	}

	for _, tt := range tests {
		cfg := &ObservabilityConfig{Environment: tt.env, Logging: LoggingConfig{Level: tt.level}}
		assert.Equal(t, tt.want, cfg.GetLogLevel(), "env=%s level=%s", tt.env, tt.level)
	}
}
