package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/rxstore/pkg/config"
	"github.com/utafrali/rxstore/pkg/database"
	"github.com/utafrali/rxstore/pkg/httpclient"
	"github.com/utafrali/rxstore/pkg/kafka"
	"github.com/utafrali/rxstore/pkg/middleware"
	"github.com/utafrali/rxstore/pkg/tracing"
)

// Config holds all configuration for the storefront service.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"rxstore"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"rxstore"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"rxstore_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"rxstore"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns         int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns         int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime  time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime  time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryThreshold time.Duration `env:"LOG_SLOW_QUERY" envDefault:"500ms"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Admin authentication
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// Shopper state
	CartTTL            time.Duration `env:"CART_TTL" envDefault:"720h"`
	CheckoutSessionTTL time.Duration `env:"CHECKOUT_SESSION_TTL" envDefault:"24h"`

	// Postal code lookup
	PostalLookupURL     string        `env:"POSTAL_LOOKUP_URL" envDefault:"https://viacep.com.br/ws"`
	PostalLookupTimeout time.Duration `env:"POSTAL_LOOKUP_TIMEOUT" envDefault:"3s"`

	// Blob storage
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"local"`
	StorageDir     string `env:"STORAGE_DIR" envDefault:"./data/uploads"`
	StorageBaseURL string `env:"STORAGE_BASE_URL" envDefault:"http://localhost:8080"`
	ProofMaxBytes  int64  `env:"PROOF_MAX_BYTES" envDefault:"5242880"`

	// Coupon application rate limit per shopper session
	CouponRatePerSecond float64 `env:"COUPON_RATE_PER_SECOND" envDefault:"1"`
	CouponRateBurst     int     `env:"COUPON_RATE_BURST" envDefault:"5"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load rxstore config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Environment == "production" && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.CartTTL <= 0 || c.CheckoutSessionTTL <= 0 {
		return fmt.Errorf("CART_TTL and CHECKOUT_SESSION_TTL must be positive")
	}
	if c.StorageDriver != "local" && c.StorageDriver != "memory" {
		return fmt.Errorf("STORAGE_DRIVER must be local or memory, got %q", c.StorageDriver)
	}
	if c.ProofMaxBytes <= 0 {
		return fmt.Errorf("PROOF_MAX_BYTES must be positive, got %d", c.ProofMaxBytes)
	}
	return nil
}

func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}

func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

func (c *Config) Kafka() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      c.KafkaBrokers,
		WriteTimeout: 5 * time.Second,
	}
}

func (c *Config) Tracing(version string) tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

// PostalClient is the retrying client configuration for the postal lookup.
func (c *Config) PostalClient() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = c.PostalLookupTimeout
	return cfg
}

func (c *Config) CORS() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowedOrigins:   c.CORSAllowedOrigins,
		AllowCredentials: true,
		MaxAge:           600,
	}
}
