// Package api provides the HTTP API for the sitecontrol server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/api/handlers"
	"github.com/zapfragrance/sitecontrol/internal/api/middleware"
	"github.com/zapfragrance/sitecontrol/internal/config"
)

// Config holds configuration for the API router.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means same-origin in production.
	AllowedOrigins []string
	// MaxUploadBytes caps asset upload bodies.
	MaxUploadBytes int64
	// LocalAssetDir, when set, is served under /assets.
	LocalAssetDir string
}

// multipartOverhead is headroom above MaxUploadBytes for multipart framing.
const multipartOverhead = 1 << 20

// Deps are the collaborators wired into the router.
type Deps struct {
	Settings     handlers.SettingsManager
	Stream       handlers.SettingsStream
	Guard        GuardService
	Cookies      SessionCookies
	Database     handlers.DatabaseHealthChecker
	Gatherer     prometheus.Gatherer
	Requests     middleware.RequestObserver
	// Audit records admin changes. Optional.
	Audit        middleware.AuditStore
	// LoginLimiter throttles POST /api/v1/auth/login. Optional.
	LoginLimiter gin.HandlerFunc
}

// GuardService is what the router needs from the admin session guard.
type GuardService interface {
	handlers.AuthGuard
	middleware.SessionLookup
}

// SessionCookies is what the router needs from the session cookie store.
type SessionCookies interface {
	handlers.SessionCookieWriter
	middleware.SessionCookies
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, deps Deps, logger zerolog.Logger) *Router {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger, deps.Requests))
	r.Engine.Use(middleware.SecurityHeaders())
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment, logger))

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Settings, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	if deps.Gatherer != nil {
		metricsHandler := handlers.NewMetricsHandler(deps.Gatherer, logger)
		metricsHandler.RegisterPublicRoutes(r.Engine)
	}

	settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Stream, cfg.MaxUploadBytes, logger)
	r.Engine.GET("/theme.css", settingsHandler.ThemeCSS)

	if cfg.LocalAssetDir != "" {
		r.Engine.Static("/assets", cfg.LocalAssetDir)
	}

	apiV1 := r.Engine.Group("/api/v1")
	if cfg.MaxUploadBytes > 0 {
		apiV1.Use(middleware.BodyLimitMiddleware(cfg.MaxUploadBytes + multipartOverhead))
	}
	settingsHandler.RegisterPublicRoutes(apiV1)

	authHandler := handlers.NewAuthHandler(deps.Guard, deps.Cookies, logger)
	authHandler.RegisterPublicRoutes(apiV1, deps.LoginLimiter)

	// Admin routes (session required)
	admin := apiV1.Group("")
	admin.Use(middleware.AuthMiddleware(deps.Cookies, deps.Guard, logger))
	if deps.Audit != nil {
		admin.Use(middleware.AuditMiddleware(deps.Audit, logger))
	}
	authHandler.RegisterRoutes(admin)
	settingsHandler.RegisterRoutes(admin)

	return r
}
