package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthtrack/backend/internal/service"
)

type RouterConfig struct {
	AuthService    *service.AuthService
	Health         *HealthHandler
	Logger         *slog.Logger
	Diagnostic     bool
	AllowedOrigins []string
	// RateLimiter is optional; nil disables limiting.
	RateLimiter *RateLimiter
	// Metrics is optional; nil leaves /metrics unmounted.
	Metrics http.Handler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins, true))

	router.GET("/ping", Ping)
	router.GET("/openapi.json", OpenAPIDoc)
	if cfg.Health != nil {
		router.GET("/healthz", cfg.Health.Healthz)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	limit := func(route string) gin.HandlerFunc {
		if cfg.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return cfg.RateLimiter.Middleware(route)
	}

	authHandler := NewAuthHandler(cfg.AuthService, logger, cfg.Diagnostic)
	auth := router.Group("/api/auth")
	{
		auth.POST("/registration", limit("registration"), authHandler.Register)
		auth.POST("/login", limit("login"), authHandler.Login)
		auth.POST("/refresh", limit("refresh"), authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", AuthMiddleware(cfg.AuthService, logger, cfg.Diagnostic), WithUser(authHandler.Me))
	}

	return router
}
