package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-backend/internal/config"
	"gallery-backend/internal/handler"
	"gallery-backend/internal/queue/rabbitmq"
	"gallery-backend/internal/storage"
	"gallery-backend/internal/storage/local"
	minioclient "gallery-backend/internal/storage/minio"
	"gallery-backend/internal/store"
	"gallery-backend/internal/upload"
	"gallery-backend/internal/worker"
	"gallery-backend/pkg/database/postgres"
	redisclient "gallery-backend/pkg/database/redis"
	"gallery-backend/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}
	slog.Info("starting api gateway", "addr", cfg.HTTPAddr, "storage", cfg.Storage.Backend)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("connecting to postgres")
	pgPool, err := postgres.NewClient(ctx, cfg.PostgresURL, cfg.PoolOptions())
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := postgres.RunMigrations(ctx, pgPool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Direct uploads always go through the S3 gateway. With the local
	// backend it reports "not configured" on every call.
	direct, err := minioclient.NewClient(cfg.Storage)
	if err != nil {
		slog.Error("failed to create s3 client", "error", err)
		os.Exit(1)
	}

	var blobs storage.BlobStore
	if cfg.Storage.Backend == config.BackendS3 {
		if err := direct.EnsureBucket(ctx); err != nil {
			slog.Error("failed to prepare bucket", "error", err)
			os.Exit(1)
		}
		blobs = direct
	} else {
		localStore, err := local.NewStore(cfg.Storage.MediaRoot)
		if err != nil {
			slog.Error("failed to open media root", "root", cfg.Storage.MediaRoot, "error", err)
			os.Exit(1)
		}
		blobs = localStore
	}

	slog.Info("connecting to rabbitmq")
	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQURL)
	if err != nil {
		slog.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitClient.Close()

	// Listings are served straight from postgres when redis is down.
	var cache upload.Cache
	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cache = redisClient
	}

	svc := upload.NewService(
		store.New(pgPool),
		direct,
		blobs,
		worker.NewDispatcher(rabbitClient),
		cache,
		upload.Config{
			MaxUploadSize:   cfg.Upload.MaxUploadBytes(),
			PresignPutTTL:   cfg.Upload.PresignPutTTL,
			PresignPartTTL:  cfg.Upload.PresignPartTTL,
			ShareDefaultTTL: cfg.Upload.ShareDefaultTTL,
		},
	)

	router := handler.NewRouter(handler.NewHandler(svc, cfg.Upload.MaxUploadBytes()), handler.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Pprof:          cfg.EnablePprof,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("api gateway is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
}
