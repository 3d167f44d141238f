// Package main is the entrypoint for the sitecontrol server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	"github.com/zapfragrance/sitecontrol/internal/api"
	"github.com/zapfragrance/sitecontrol/internal/api/handlers"
	"github.com/zapfragrance/sitecontrol/internal/api/middleware"
	"github.com/zapfragrance/sitecontrol/internal/assets"
	"github.com/zapfragrance/sitecontrol/internal/auth"
	"github.com/zapfragrance/sitecontrol/internal/cache"
	"github.com/zapfragrance/sitecontrol/internal/config"
	"github.com/zapfragrance/sitecontrol/internal/db"
	"github.com/zapfragrance/sitecontrol/internal/feed"
	"github.com/zapfragrance/sitecontrol/internal/metrics"
	"github.com/zapfragrance/sitecontrol/internal/models"
	"github.com/zapfragrance/sitecontrol/internal/settings"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// errDatabaseOffline is returned by offlineAdmins while the database is unreachable.
var errDatabaseOffline = errors.New("database unavailable")

// offlineAdmins stands in for the admin store when the server starts without a database.
type offlineAdmins struct{}

func (offlineAdmins) GetAdminByEmail(context.Context, string) (*models.Admin, error) {
	return nil, errDatabaseOffline
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		stderrLogger := zerolog.New(os.Stderr)
		stderrLogger.Error().Err(err).Msg("Failed to load env file")
		return 1
	}

	// Load configuration
	cfg := config.LoadServerConfig()

	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if !cfg.IsProduction() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Str("env", string(cfg.Environment)).
		Msg("Starting sitecontrol server")

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register metrics")
		return 1
	}

	// Connect to database. The site keeps serving from the local cache when
	// the database is unreachable, so a failed connect is not fatal.
	var (
		remote    settings.RemoteStore
		admins    auth.AdminStore = offlineAdmins{}
		dbChecker handlers.DatabaseHealthChecker
		audit     middleware.AuditStore
	)
	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database, continuing without remote settings")
	} else {
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to run database migrations")
			return 1
		}
		remote, admins, dbChecker, audit = database, database, database, database
	}

	// Local cache
	localCache, err := cache.NewSQLiteCache(cfg.CachePath, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open settings cache")
		return 1
	}
	defer localCache.Close()

	// Asset store
	var assetStore settings.AssetStore
	localAssetDir := ""
	switch cfg.AssetBackend {
	case config.AssetBackendLocal:
		store, err := assets.NewLocalStore(cfg.AssetLocalDir, cfg.AssetPublicBaseURL, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize local asset store")
			return 1
		}
		assetStore, localAssetDir = store, cfg.AssetLocalDir
	default:
		store, err := assets.NewS3Store(ctx, assets.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize S3 asset store")
			return 1
		}
		assetStore = store
	}

	// Session registry. Redis lets several instances share sessions and the
	// login rate limit.
	var (
		sessionRegistry auth.Registry = auth.NewMemoryRegistry()
		limiterStore    limiter.Store
	)
	if cfg.RedisURL != "" {
		redisRegistry, err := auth.NewRedisRegistry(ctx, cfg.RedisURL, time.Minute)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to connect to redis")
			return 1
		}
		defer redisRegistry.Close()
		sessionRegistry = redisRegistry

		limiterStore, err = middleware.NewRedisRateLimitStore(redisRegistry.Client())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize rate limit store")
			return 1
		}
		logger.Info().Msg("Using redis for sessions and rate limiting")
	}

	cookies, err := auth.NewSessionStore(
		auth.DefaultCookieConfig([]byte(cfg.SessionSecret), cfg.SecureCookie, cfg.SessionMaxAge), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize session store")
		return 1
	}

	guardCfg := auth.DefaultGuardConfig()
	guardCfg.SessionTTL = cfg.SessionTTL()
	guard := auth.NewGuard(admins, sessionRegistry, guardCfg, m, logger)
	if err := guard.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start session sweeper")
		return 1
	}
	defer guard.Stop()

	// Settings manager
	managerCfg := settings.DefaultConfig()
	managerCfg.RemoteAttempts = cfg.RemoteLoadAttempts
	managerCfg.RemoteRetryDelay = cfg.RemoteRetryDelay
	manager := settings.NewManager(managerCfg, settings.Deps{
		Remote:  remote,
		Cache:   localCache,
		Assets:  assetStore,
		Guard:   guard,
		Metrics: m,
	}, logger)

	// Live settings feed
	feedCfg := feed.DefaultConfig()
	feedCfg.AllowedOrigins = cfg.AllowedOrigins
	settingsFeed := feed.NewFeed(manager, m, feedCfg, logger)
	settingsFeed.Start()
	defer settingsFeed.Stop()
	unsubscribe := manager.Subscribe(settingsFeed.Publish)
	defer unsubscribe()

	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	manager.Load(loadCtx)
	loadCancel()

	loginLimiter, err := middleware.NewRateLimiter(int64(cfg.LoginRateLimitRequests), cfg.LoginRateLimitPeriod, limiterStore)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize login rate limiter")
		return 1
	}

	router := api.NewRouter(api.Config{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		LocalAssetDir:  localAssetDir,
	}, api.Deps{
		Settings:     manager,
		Stream:       settingsFeed,
		Guard:        guard,
		Cookies:      cookies,
		Database:     dbChecker,
		Gatherer:     registry,
		Requests:     m,
		Audit:        audit,
		LoginLimiter: loginLimiter,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("HTTP server error")
		return 1
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}
