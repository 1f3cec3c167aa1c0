// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetShutdownTimeout() time.Duration
}

// RateLimitConfig provides the per-IP budget for ingestion endpoints.
type RateLimitConfig interface {
	GetIngestRatePerMinute() int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig interface {
	IsMetricsEnabled() bool
}

// BrokerConfig provides the optional RabbitMQ event relay settings.
type BrokerConfig interface {
	GetAMQPURL() string
	GetAMQPExchange() string
}

// RawLeadConfig provides tuning for the telecalling pipeline.
type RawLeadConfig interface {
	GetPhoneDefaultRegion() string
	GetIngestChunkSize() int
	GetMaxBulkItems() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	JWTAccessSecret     string
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	ShutdownTimeout     time.Duration
	IngestRatePerMinute int
	MetricsEnabled      bool
	PhoneDefaultRegion  string
	IngestChunkSize     int
	MaxBulkItems        int
	AMQPURL             string
	AMQPExchange        string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string                { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool              { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string           { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool            { return c.CORSAllowCreds }
func (c *Config) GetShutdownTimeout() time.Duration { return c.ShutdownTimeout }

// RateLimitConfig implementation
func (c *Config) GetIngestRatePerMinute() int { return c.IngestRatePerMinute }

// MetricsConfig implementation
func (c *Config) IsMetricsEnabled() bool { return c.MetricsEnabled }

// BrokerConfig implementation
func (c *Config) GetAMQPURL() string      { return c.AMQPURL }
func (c *Config) GetAMQPExchange() string { return c.AMQPExchange }

// RawLeadConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }
func (c *Config) GetIngestChunkSize() int       { return c.IngestChunkSize }
func (c *Config) GetMaxBulkItems() int          { return c.MaxBulkItems }

// Load reads configuration from environment variables for the API server.
func Load() (*Config, error) {
	cfg, err := LoadBase()
	if err != nil {
		return nil, err
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return cfg, nil
}

// LoadBase reads the settings shared by every binary (database, pipeline
// tuning). Command-line tools use it directly since they never serve HTTP.
func LoadBase() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		ShutdownTimeout:     mustDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")),
		IngestRatePerMinute: mustInt(getEnv("INGEST_RATE_PER_MINUTE", "30")),
		MetricsEnabled:      strings.EqualFold(getEnv("METRICS_ENABLED", "true"), "true"),
		PhoneDefaultRegion:  strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "IN")),
		IngestChunkSize:     mustInt(getEnv("RAW_LEAD_INGEST_CHUNK_SIZE", "500")),
		MaxBulkItems:        mustInt(getEnv("RAW_LEAD_MAX_BULK_ITEMS", "10000")),
		AMQPURL:             strings.TrimSpace(getEnv("AMQP_URL", "")),
		AMQPExchange:        getEnv("AMQP_EXCHANGE", "ex.rawleads"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.IngestChunkSize <= 0 {
		return nil, fmt.Errorf("RAW_LEAD_INGEST_CHUNK_SIZE must be positive")
	}
	if cfg.MaxBulkItems <= 0 {
		return nil, fmt.Errorf("RAW_LEAD_MAX_BULK_ITEMS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
