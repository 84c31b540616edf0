package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatewarden/gatewarden/internal/accesskey"
	"github.com/gatewarden/gatewarden/internal/app"
	"github.com/gatewarden/gatewarden/internal/authz"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/platform/cache"
	"github.com/gatewarden/gatewarden/internal/platform/db"
	"github.com/gatewarden/gatewarden/internal/registry"
	"github.com/gatewarden/gatewarden/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	moduleRegistry, err := registry.Default()
	if err != nil {
		logger.Error("build module registry", slog.Any("error", err))
		os.Exit(1)
	}

	var grantCache *authz.Cache
	if cfg.GrantCacheTTL > 0 {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, grant caching disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			grantCache = authz.NewCache(redisClient, cfg.GrantCacheTTL, logger)
		}
	}

	metrics := observability.NewMetrics()

	keyRepo := accesskey.NewRepository(dbpool)
	userRepo := users.NewRepository(dbpool)

	authzService := authz.NewService(keyRepo, grantCache, logger)
	authzMiddleware := authz.Middleware{
		Service:  authzService,
		Registry: moduleRegistry,
		Logger:   logger,
		Metrics:  metrics,
	}

	keyService := accesskey.NewService(keyRepo, userRepo, moduleRegistry, authzService, logger)
	keyHandler := accesskey.NewHandler(logger, keyService)

	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService)

	authzHandler := authz.NewHandler(logger, authzService, moduleRegistry, keyService, authzMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthzHandler:     authzHandler,
		AuthzMiddleware:  authzMiddleware,
		AccessKeyHandler: keyHandler,
		UsersHandler:     userHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
