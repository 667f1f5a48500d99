// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/config"
	"github.com/iliyamo/tutoring-sessions/internal/handler"
	"github.com/iliyamo/tutoring-sessions/internal/middleware"
	"github.com/iliyamo/tutoring-sessions/internal/service"
)

// Deps is everything the HTTP layer needs.  Redis is optional; without it
// rate limiting and response caching are disabled.
type Deps struct {
	DB        *sqlx.DB
	Services  *service.Services
	Logger    *zap.Logger
	JWTSecret string
	Timeout   time.Duration
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Logger))

	RegisterRoutes(e, d.DB)

	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.Timeout(d.Timeout),
	)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)

	RegisterAvailability(g, handler.NewAvailabilityHandler(d.Services.Availability), limit,
		middleware.NewRedisCache(d.Cache, d.Redis),
		middleware.InvalidateOnSuccess(d.Cache, d.Redis))
	RegisterProposals(g, handler.NewProposalHandler(d.Services.Proposals), limit)
	RegisterSessions(g, handler.NewSessionHandler(d.Services.Sessions), limit)
	RegisterWallets(g, handler.NewWalletHandler(d.Services.Wallets), limit)
	RegisterNotifications(g, handler.NewNotificationHandler(d.Services.Notifications))
	return e
}

// RegisterRoutes registers the unauthenticated endpoints.
func RegisterRoutes(e *echo.Echo, db *sqlx.DB) {
	e.GET("/healthz", handler.Health(db))
}
