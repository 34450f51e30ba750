package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-backend/internal/ai"
	"gallery-backend/internal/config"
	"gallery-backend/internal/queue/rabbitmq"
	"gallery-backend/internal/storage"
	"gallery-backend/internal/storage/local"
	minioclient "gallery-backend/internal/storage/minio"
	"gallery-backend/internal/store"
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
	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid time zone", "error", err)
		os.Exit(1)
	}
	slog.Info("starting worker service", "pool_size", cfg.Pipeline.WorkerPoolSize)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("connecting to postgres")
	pgPool, err := postgres.NewClient(ctx, cfg.PostgresURL, cfg.PoolOptions())
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	var blobs storage.BlobStore
	if cfg.Storage.Backend == config.BackendS3 {
		s3, err := minioclient.NewClient(cfg.Storage)
		if err != nil {
			slog.Error("failed to create s3 client", "error", err)
			os.Exit(1)
		}
		if err := s3.Ready(); err != nil {
			slog.Error("s3 storage is not usable", "error", err)
			os.Exit(1)
		}
		blobs = s3
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

	var cache worker.CacheInvalidator
	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, listing invalidation disabled", "error", err)
	} else {
		defer redisClient.Close()
		cache = redisClient
	}

	// Models load on the first job that needs them.
	backend := ai.NewHTTPBackend(cfg.ML.URL, cfg.ML.Timeout)
	processor := worker.NewProcessor(
		store.New(pgPool),
		blobs,
		ai.NewEmbeddingService(backend, cfg.ML.EmbeddingModel, cfg.ML.EmbeddingPretrained, cfg.ML.EmbeddingDim),
		ai.NewFaceService(backend),
		cache,
		worker.Options{
			Location:      loc,
			LabelLanguage: cfg.Pipeline.LabelLanguage,
			LabelTopK:     cfg.Pipeline.LabelTopK,
			FaceModel:     cfg.Pipeline.FaceModel,
			FaceTolerance: cfg.Pipeline.FaceTolerance,
		},
	)

	msgs, err := rabbitClient.Consume(cfg.Pipeline.WorkerPoolSize)
	if err != nil {
		slog.Error("failed to start consuming", "error", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(processor, cfg.Pipeline.WorkerPoolSize, cfg.Pipeline.JobTimeout)
	slog.Info("worker service is running")
	pool.Serve(runCtx, msgs)

	slog.Info("worker service stopped")
}
