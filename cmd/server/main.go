package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/vytalcards/internal/config"
	"github.com/HammerMeetNail/vytalcards/internal/database"
	"github.com/HammerMeetNail/vytalcards/internal/handlers"
	"github.com/HammerMeetNail/vytalcards/internal/logging"
	"github.com/HammerMeetNail/vytalcards/internal/middleware"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})
	}

	logger.Info("Starting Vytal card server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...", map[string]interface{}{"dir": cfg.Database.MigrationsDir})
	migrator, err := database.NewMigrator(cfg.Database.DSN(), cfg.Database.MigrationsDir)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	renderer := services.NewCardRenderer(services.RenderOptions{
		Scale: cfg.Render.Scale,
		Brand: cfg.Render.Brand,
	})
	draftService := services.NewDraftService(redisAdapter, cfg.Share.DraftTTL)
	downloadService := services.NewDownloadService(redisAdapter, cfg.Share.DownloadTTL)
	publishService := services.NewPublishService(dbAdapter)

	output := &handlers.CardOutput{
		Renderer:         renderer,
		Downloads:        downloadService,
		Brand:            cfg.Render.Brand,
		BaseURL:          cfg.Share.BaseURL,
		MessengerBaseURL: cfg.Share.MessengerBaseURL,
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	categoryHandler := handlers.NewCategoryHandler()
	draftHandler := handlers.NewDraftHandler(draftService, output)
	cardHandler := handlers.NewCardHandler(output)
	downloadHandler := handlers.NewDownloadHandler(downloadService)
	shareHandler := handlers.NewShareHandler(publishService, cfg.Share.BaseURL)
	sharePublicHandler := handlers.NewSharePublicHandler(publishService, cfg.Share.BaseURL, cfg.Render.Brand, cfg.Share.MessengerBaseURL)
	shareOGImageHandler := handlers.NewShareOGImageHandler(publishService, renderer)
	ogImageHandler := handlers.NewOGImageHandler(renderer)

	if n, err := publishService.CleanupExpired(context.Background()); err != nil {
		logger.Warn("Share cleanup failed", map[string]interface{}{"error": err.Error()})
	} else if n > 0 {
		logger.Info("Removed expired shares", map[string]interface{}{"count": n})
	}
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(resolveShareCleanupInterval(logger, os.LookupEnv))
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				n, err := publishService.CleanupExpired(cleanupCtx)
				if err != nil {
					logger.Warn("Share cleanup failed", map[string]interface{}{"error": err.Error()})
					continue
				}
				if n > 0 {
					logger.Info("Removed expired shares", map[string]interface{}{"count": n})
				}
			}
		}
	}()

	// Initialize middleware
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Environment == "production")
	requestLogger := middleware.NewRequestLogger(logger)

	renderRateLimit := resolveRenderRateLimit(cfg, logger, os.LookupEnv)
	renderRateLimiter := middleware.NewRateLimiter(redisDB.Client, renderRateLimit, 1*time.Hour, "ratelimit:render:", middleware.GetClientIP, false)
	limited := func(scope string, fn http.HandlerFunc) http.Handler {
		return renderRateLimiter.Scoped(scope)(fn)
	}

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Category endpoints
	mux.HandleFunc("GET /api/categories", categoryHandler.List)
	mux.HandleFunc("GET /api/categories/{category}/defaults", categoryHandler.Defaults)

	// Draft endpoints
	mux.HandleFunc("POST /api/drafts", draftHandler.Create)
	mux.HandleFunc("GET /api/drafts/{id}", draftHandler.Get)
	mux.HandleFunc("PATCH /api/drafts/{id}", draftHandler.Update)
	mux.HandleFunc("POST /api/drafts/{id}/reset", draftHandler.Reset)
	mux.HandleFunc("DELETE /api/drafts/{id}", draftHandler.Delete)
	mux.HandleFunc("GET /api/drafts/{id}/preview", draftHandler.Preview)
	mux.Handle("GET /api/drafts/{id}/image.png", limited("image", draftHandler.Image))
	mux.HandleFunc("GET /api/drafts/{id}/share", draftHandler.Share)
	mux.Handle("POST /api/drafts/{id}/export", limited("export", draftHandler.Export))

	// Stateless card endpoints
	mux.Handle("POST /api/cards/render", limited("image", cardHandler.Render))
	mux.HandleFunc("POST /api/cards/preview", cardHandler.Preview)
	mux.HandleFunc("POST /api/cards/share", cardHandler.Share)

	// Single-use downloads
	mux.HandleFunc("GET /d/{token}", downloadHandler.Serve)

	// Published cards
	mux.Handle("POST /api/shares", limited("publish", shareHandler.Publish))
	mux.HandleFunc("GET /api/shares/{token}", shareHandler.Get)
	mux.HandleFunc("DELETE /api/shares/{token}", shareHandler.Revoke)

	// OpenGraph images (public)
	mux.HandleFunc("GET /og/default.png", ogImageHandler.Default)
	mux.Handle("GET /og/share/{token}", limited("og", shareOGImageHandler.Serve))

	// Public share landing page (for link unfurls)
	mux.HandleFunc("GET /s/{token}", sharePublicHandler.Serve)

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")
		cleanupCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// resolveRenderRateLimit picks renders per client per hour. A positive
// RENDER_RATE_LIMIT wins over the environment default.
func resolveRenderRateLimit(cfg *config.Config, logger *logging.Logger, lookupEnv func(string) (string, bool)) int64 {
	limit := int64(30)
	if cfg.Server.Environment == "development" {
		limit = 300
		logger.Info("Using development render rate limit", map[string]interface{}{"limit": limit})
	}
	if cfg.Render.RateLimit > 0 {
		limit = cfg.Render.RateLimit
		logger.Info("Using render rate limit from env", map[string]interface{}{"limit": limit})
		return limit
	}
	if v, ok := lookupEnv("RENDER_RATE_LIMIT"); ok && v != "" {
		logger.Warn("Invalid RENDER_RATE_LIMIT; using default", map[string]interface{}{
			"value": v,
			"limit": limit,
		})
	}
	return limit
}

func resolveShareCleanupInterval(logger *logging.Logger, lookupEnv func(string) (string, bool)) time.Duration {
	interval := time.Hour
	if value, ok := lookupEnv("SHARE_CLEANUP_INTERVAL"); ok && value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			logger.Warn("Invalid SHARE_CLEANUP_INTERVAL; using default", map[string]interface{}{
				"value":   value,
				"default": interval.String(),
			})
		} else {
			interval = parsed
			logger.Info("Using share cleanup interval from env", map[string]interface{}{"interval": interval.String()})
		}
	}
	return interval
}
