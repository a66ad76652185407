package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	"github.com/pocketchange/pocketchange-api/internal/api/handler"
	"github.com/pocketchange/pocketchange-api/internal/api/middleware"
	"github.com/pocketchange/pocketchange-api/internal/core/ports"
	"github.com/pocketchange/pocketchange-api/internal/infrastructure/config"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// Collaborators are constructed by the caller and injected, so tests can
// substitute fakes.
func NewRouter(
	cfg *config.Config,
	log zerolog.Logger,
	authService ports.AuthService,
	verifier middleware.AccessVerifier,
	db *mongo.Database,
	rdb *redis.Client,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
	}))
	e.Use(echoprometheus.NewMiddleware("pocketchange"))

	// --- Auth routes (rate limited per client IP) ---
	authHandler := handler.NewAuthHandler(authService)
	authenticate := middleware.Authenticate(verifier)

	auth := e.Group("/api/auth", rateLimiter(cfg.Rate))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout, authenticate)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness)     // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}

// rateLimiter mirrors the platform's historical policy on auth endpoints:
// cfg.Requests per cfg.Window per client IP, with the window's quota
// available as burst.
func rateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
			Burst:     cfg.Requests,
			ExpiresIn: cfg.Window,
		}),
	})
}
