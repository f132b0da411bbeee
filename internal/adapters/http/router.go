package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotenest/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotenest/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotenest/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotenest/internal/platform/config"
	"github.com/jsamuelsen/quotenest/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds /api requests when no timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// Banner is the plain-text body served at GET /.
const Banner = "QuoteNest API is running"

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	Logger    *slog.Logger
	AppConfig *config.AppConfig

	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler

	// RateLimiter guards the /api group. Nil disables rate limiting.
	RateLimiter *middleware.RateLimiter

	// Timeout is the deadline placed on /api requests. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Global middleware runs in this order:
//  1. Recovery
//  2. ContextLogger, RequestID, CorrelationID
//  3. OpenTelemetry tracing and request metrics
//  4. Logging (skips /-/ probes)
//
// The /api group adds Timeout and RateLimit.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	serviceName := "quotenest"
	if cfg.AppConfig != nil {
		serviceName = cfg.AppConfig.Name
	}

	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.ContextLogger(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(serviceName)...)
	engine.Use(middleware.Logging(cfg.Logger))

	engine.NoRoute(func(c *gin.Context) {
		dto.AbortWithCode(c, dto.ErrorCodeNotFound, "route not found")
	})

	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Banner)
	})

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	api := engine.Group("/api")
	api.Use(
		middleware.Timeout(cfg.Timeout),
		middleware.RateLimit(cfg.RateLimiter, cfg.Logger),
	)

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterQuoteRoutes(api)
	}
}

// NewRateLimiter builds the /api limiter from configuration, or nil when
// rate limiting is disabled.
func NewRateLimiter(cfg config.RateLimitConfig) *middleware.RateLimiter {
	if !cfg.Enabled {
		return nil
	}

	return middleware.NewRateLimiter(cfg.RPS, cfg.Burst, middleware.DefaultIdleTTL)
}

// NewDefaultRouterConfig creates a RouterConfig with the default timeout and
// no rate limiter.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	healthHandler *handlers.HealthHandler,
	quoteHandler *handlers.QuoteHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AppConfig:     appCfg,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		Timeout:       DefaultRequestTimeout,
	}
}
