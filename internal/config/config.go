// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types, and validates that required
// values are present so they can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (observability, spoon).
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it gets loaded into the
	// process env before any of the code below reads env vars.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

/*
	Env vars are read using the SPOON_ prefix. Keys are lowercased and the
	prefix removed; nesting uses "." as the delimiter, so
	SPOON_SERVER.PORT -> server.port -> Config.Server.Port
*/

// EnvPrefix is the prefix every configuration env var must carry.
const EnvPrefix = "SPOON_"

// Config is the root configuration object for the application.
//
// Observability and Spoon are pointers because they are optional. If not
// provided, defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Spoon         *SpoonConfig         `koanf:"spoon"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
//
// Timeouts are stored as whole seconds and converted when the http.Server is built.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the sustained number of requests per second allowed per
	// client IP on the API group. Zero disables the limiter.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig stores authentication-related secrets (the Clerk secret key).
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`
}

// SpoonConfig tunes the block type grouping endpoints.
type SpoonConfig struct {
	// CacheTTL is how long a scope's grouped block types stay in Redis.
	// Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=0"`

	// PruneLayouts toggles enqueueing of the orphaned field layout cleanup job.
	PruneLayouts bool `koanf:"prune_layouts"`
}

// DefaultSpoonConfig is used when no spoon block is configured.
func DefaultSpoonConfig() *SpoonConfig {
	return &SpoonConfig{
		CacheTTL:     10 * time.Minute,
		PruneLayouts: true,
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it into
// Config structs, validates it, applies defaults, and returns the resulting config.
//
// It logs fatally on any error, so a returned config is always usable.
func LoadConfig() (*Config, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not load initial env variables.")
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not unmarshal main config.")
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Config validation failed.")
	}

	if mainConfig.Spoon == nil {
		mainConfig.Spoon = DefaultSpoonConfig()
	}

	// Observability is optional; nil means "use defaults".
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are forced so telemetry stays consistent
	// regardless of what was set in env.
	mainConfig.Observability.ServiceName = "spoon"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid observability config")
	}

	return mainConfig, nil
}
