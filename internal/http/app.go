package http

import (
	"context"

	"telecall_backend/internal/events"
	"telecall_backend/platform/config"
	"telecall_backend/platform/logger"
	"telecall_backend/platform/metrics"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.RateLimitConfig
	config.MetricsConfig
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built by cmd/api and consumed by router.New.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	// Metrics is nil when METRICS_ENABLED is false.
	Metrics *metrics.Metrics
	Modules []Module
}
