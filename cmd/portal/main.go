package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csp-portal/internal/cache"
	"csp-portal/internal/config"
	"csp-portal/internal/httpserver"
	"csp-portal/internal/logging"
	"csp-portal/internal/metrics"
	"csp-portal/internal/repo"
	"csp-portal/migrations"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting csp portal", zap.String("env", cfg.AppEnv), zap.String("storage", cfg.StorageDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	store, err := repo.Open(ctx, repo.OpenConfig{
		Driver:      repo.StorageDriver(cfg.StorageDriver),
		DatabaseURL: cfg.DatabaseURL,
		Schema:      cfg.DatabaseSchema,
		SQLitePath:  cfg.SQLitePath,
	}, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := store.Seed(ctx); err != nil {
		return fmt.Errorf("seed repository: %w", err)
	}
	logger.Info("repository ready")

	var repository repo.Repository = store
	if cfg.RedisAddr != "" {
		redisClient := cache.New(cache.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			UseTLS:    cfg.RedisTLS,
			KeyPrefix: cfg.RedisPrefix,
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", zap.Error(err))
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		repository = repo.NewCached(store, redisClient, cfg.CacheTTL, logger, metricRegistry)
	}

	if w, err := repository.GetWarMode(ctx); err == nil && w != nil {
		metricRegistry.ObserveWarMode(w.IsActive, w.Level)
	}

	httpSrv := httpserver.New(httpserver.Config{
		Addr:           cfg.HTTPListenAddr,
		BasePath:       cfg.PublicBasePath,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		TokenTTL:       cfg.AccessTokenTTL,
	}, repository, logger, metricRegistry)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	return nil
}
