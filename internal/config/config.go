package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents different deployment environments.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the retreat service.
// Environment variables are parsed from the RETREAT_SCOUT_ prefix,
// e.g. RETREAT_SCOUT_HTTP_PORT, RETREAT_SCOUT_POSTGRES_DSN.
type Config struct {
	// Build target selects the high-level environment: local, cloud-dev, cloud.
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// DBDriver is derived from BuildTarget when set to "auto".
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Postgres configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// SQLite configuration (local build target)
	SQLitePath string `envconfig:"SQLITE_PATH" default:"retreat-scout.db"`

	// Search provider configuration (Google Custom Search JSON API)
	SearchAPIKey  string `envconfig:"SEARCH_API_KEY" default:""`
	SearchCX      string `envconfig:"SEARCH_CX" default:""`
	SearchBaseURL string `envconfig:"SEARCH_BASE_URL" default:"https://www.googleapis.com"`

	// Identity configuration
	JWTSecret string `envconfig:"JWT_SECRET" default:""`

	// Paywall configuration
	PremiumPrice float64 `envconfig:"PREMIUM_PRICE" default:"9.99"`

	// Health checking
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud-dev", "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a Config by parsing environment variables with the
// RETREAT_SCOUT_ prefix.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("RETREAT_SCOUT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewForTesting creates a config suitable for unit tests: sqlite in a
// temp location, fixed secrets, no external search credentials.
func NewForTesting() *Config {
	return &Config{
		BuildTarget:               "local",
		DBDriver:                  "sqlite",
		Environment:               EnvTesting,
		HTTPPort:                  8080,
		SQLitePath:                ":memory:",
		JWTSecret:                 "test-secret",
		PremiumPrice:              9.99,
		HealthIntervalSeconds:     30,
		HealthProbeTimeoutSeconds: 2,
	}
}

// IsTesting returns true if the environment is set to testing.
func (c *Config) IsTesting() bool { return c.Environment == EnvTesting }

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// GetHTTPAddr returns the HTTP server listen address.
func (c *Config) GetHTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }
