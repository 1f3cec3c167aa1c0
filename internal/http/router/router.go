// Package router assembles the Gin engine from the application container.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "telecall_backend/internal/http"
	"telecall_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// New builds the engine: global middleware, health and metrics endpoints,
// the /api/v1 groups, and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.SecurityHeaders())
	if app.Metrics != nil {
		engine.Use(app.Metrics.Middleware())
	}
	engine.Use(httpkit.RequestLogger(app.Logger))
	if corsMiddleware := newCORS(app.Config); corsMiddleware != nil {
		engine.Use(corsMiddleware)
	}

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := app.Health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if app.Metrics != nil && app.Config.IsMetricsEnabled() {
		engine.GET("/metrics", gin.WrapH(app.Metrics.Handler()))
	}

	v1 := engine.Group("/api/v1")
	authMiddleware := httpkit.AuthRequired(app.Config)
	protected := v1.Group("")
	protected.Use(authMiddleware)

	routerCtx := &apphttp.RouterContext{
		Engine:            engine,
		V1:                v1,
		Protected:         protected,
		Config:            app.Config,
		AuthMiddleware:    authMiddleware,
		IngestRateLimiter: httpkit.NewPerMinuteLimiter(app.Config.GetIngestRatePerMinute(), app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Debug("registered module routes", "module", module.Name())
	}

	return engine
}

// newCORS returns nil when no origin is allowed.
func newCORS(cfg apphttp.RouterConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.HeaderRequestID},
		ExposeHeaders:    []string{httpkit.HeaderRequestID},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	switch {
	case cfg.GetCORSAllowAll():
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	case len(cfg.GetCORSOrigins()) > 0:
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	default:
		return nil
	}
	return cors.New(corsCfg)
}
