package config

import (
	"fmt"

	pkgconfig "github.com/tienda-labs/storefront/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours (default: 7 days)
	CartTTLHours int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Session
	JWTSecret        string `env:"JWT_SECRET,required"`
	SessionTTLHours  int    `env:"SESSION_TTL_HOURS" envDefault:"12"`
	LoginRateRPS     int    `env:"LOGIN_RATE_RPS" envDefault:"5"`
	LoginRateBurst   int    `env:"LOGIN_RATE_BURST" envDefault:"10"`

	// Upstream boundaries
	DirectoryBaseURL string `env:"DIRECTORY_BASE_URL" envDefault:"http://localhost:9090"`
	CatalogBaseURL   string `env:"CATALOG_BASE_URL" envDefault:"http://localhost:9090"`
	OrdersBaseURL    string `env:"ORDERS_BASE_URL" envDefault:"http://localhost:9090"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT secret must be at least 16 characters")
	}
	if c.CartTTLHours < 1 {
		return fmt.Errorf("invalid cart TTL: %d", c.CartTTLHours)
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("invalid session TTL: %d", c.SessionTTLHours)
	}
	return nil
}
