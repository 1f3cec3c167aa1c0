// Package http holds the contracts between the router and the domain
// modules it mounts.
package http

import (
	"telecall_backend/platform/config"
	"telecall_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own endpoints.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is handed to every Module during startup.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 with no authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind AuthMiddleware. Role checks are left to
	// the modules since telecallers and managers share most paths.
	Protected      *gin.RouterGroup
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
	// IngestRateLimiter is shared by all bulk upload endpoints so one budget
	// covers JSON feeds and CSV files alike.
	IngestRateLimiter *httpkit.IPRateLimiter
}
