// Package httpkit provides the gin middleware, caller identity and error
// rendering shared by every HTTP module.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"telecall_backend/platform/config"
	"telecall_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"

	tokenTypeAccess = "access"
)

// RequestID propagates or assigns a request id and stores it on the request
// context for logger.WithContext.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger writes one line per request. Server errors are logged with
// the error HandleError attached to the context.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		reqLog := log.WithContext(c.Request.Context())
		if status >= http.StatusInternalServerError && len(c.Errors) > 0 {
			reqLog.HTTPError(c.Request.Method, path, status, c.Errors.Last(), c.ClientIP())
			return
		}
		reqLog.HTTPRequest(c.Request.Method, path, status, float64(time.Since(start).Milliseconds()), c.ClientIP())
	}
}

// SecurityHeaders sets the response headers every JSON endpoint carries.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// IPRateLimiter throttles requests per signed-in user, or per client IP
// for anonymous traffic.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a limiter refilling at r with the given burst.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{rate: r, burst: burst, log: log}
}

// NewPerMinuteLimiter allows perMinute requests per key with an equal burst.
func NewPerMinuteLimiter(perMinute int, log *logger.Logger) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return NewIPRateLimiter(rate.Limit(float64(perMinute)/60.0), perMinute, log)
}

func (i *IPRateLimiter) limiterFor(key string) *rate.Limiter {
	if existing, ok := i.limiters.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	limiter, _ := i.limiters.LoadOrStore(key, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

func rateKey(c *gin.Context) string {
	if id := GetIdentity(c); id.IsAuthenticated() {
		return "user:" + id.UserID().String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimit returns the middleware. Mount it after AuthRequired so uploads
// are counted per user.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if i.limiterFor(rateKey(c)).Allow() {
			c.Next()
			return
		}
		if i.log != nil {
			i.log.RateLimitExceeded(c.ClientIP(), c.Request.URL.Path)
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
	}
}

type accessClaims struct {
	Type  string   `json:"type"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer access token and stores the caller.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		userID, roles, err := parseAccessToken(rawToken, cfg)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		SetIdentity(c, userID, roles)
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, bool) {
	rawToken, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", false
	}
	rawToken = strings.TrimSpace(rawToken)
	return rawToken, rawToken != ""
}

func parseAccessToken(rawToken string, cfg config.JWTConfig) (uuid.UUID, []string, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.GetJWTAccessSecret()), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return uuid.Nil, nil, err
	}
	if claims.Type != tokenTypeAccess {
		return uuid.Nil, nil, errors.New("not an access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, nil, errors.New("invalid subject")
	}
	return userID, claims.Roles, nil
}
